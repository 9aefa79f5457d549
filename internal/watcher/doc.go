// Package watcher reports newly created replay files in a set of directories.
//
// Two delivery modes share one filter: OS-native notifications through
// fsnotify, or a fixed-interval directory poll for filesystems where native
// events are unreliable (network shares, Wine/Proton prefixes). Neither mode
// recurses into subdirectories.
package watcher
