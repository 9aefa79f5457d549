// Package notifications delivers dispatch events via ntfy.
//
// The topic comes from config.toml (or RECWATCH_NTFY_TOPIC) and the service
// degrades to a no-op when none is set. Per-event toggles let operators keep
// failure alerts while silencing routine successes. The dispatcher depends
// only on the Service interface.
package notifications
