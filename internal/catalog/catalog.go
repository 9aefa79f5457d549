// Package catalog resolves the directories recwatch monitors for new replays.
//
// Explicit configuration wins outright. Otherwise each supported platform has
// a discovery strategy that lists the save folders used by the common Age of
// Empires II: Definitive Edition installs (Steam, Microsoft Store, GOG, Wine,
// Proton, CrossOver, Parallels). Strategies are pure functions of an
// Environment so they can be exercised without the real operating system.
package catalog

import (
	"os"
	"runtime"
	"strings"
)

// WatchTarget is a directory subscribed for create events.
type WatchTarget struct {
	Path      string
	Recursive bool
}

// Candidate is a directory proposed for monitoring.
type Candidate struct {
	Path string
	// Explicit marks directories that came from configuration.
	Explicit bool
	// Exists is false only for explicit directories that are currently missing.
	Exists bool
}

// Target converts the candidate into a non-recursive watch target.
func (c Candidate) Target() WatchTarget {
	return WatchTarget{Path: c.Path}
}

// Environment captures everything discovery reads from the host.
type Environment struct {
	Platform string
	Home     string
	Vars     map[string]string
	// Exists reports whether path is an existing directory.
	Exists func(path string) bool
	// ListDirs returns the names of subdirectories of path.
	ListDirs func(path string) []string
}

// HostEnvironment describes the running process.
func HostEnvironment() Environment {
	home, _ := os.UserHomeDir()
	vars := map[string]string{}
	for _, key := range []string{"USERPROFILE", "LOCALAPPDATA"} {
		if value, ok := os.LookupEnv(key); ok {
			vars[key] = value
		}
	}
	return Environment{
		Platform: runtime.GOOS,
		Home:     home,
		Vars:     vars,
		Exists:   dirExists,
		ListDirs: listDirs,
	}
}

func (e Environment) exists(path string) bool {
	if e.Exists == nil {
		return false
	}
	return e.Exists(path)
}

func (e Environment) subdirs(path string) []string {
	if e.ListDirs == nil {
		return nil
	}
	return e.ListDirs(path)
}

// strategy lists auto-discovery candidates for one platform.
type strategy func(env Environment) []string

var strategies = map[string]strategy{
	"windows": windowsDirs,
	"darwin":  darwinDirs,
	"linux":   linuxDirs,
}

// Platforms lists the platforms with a discovery strategy.
func Platforms() []string {
	return []string{"darwin", "linux", "windows"}
}

// Resolve returns the ordered, deduplicated directories to monitor. Explicit
// directories are returned as given (cleaned), including missing ones so the
// caller can warn about them. Without explicit directories the platform
// strategy runs and only existing directories are kept.
func Resolve(env Environment, explicit []string) []Candidate {
	if len(explicit) > 0 {
		return resolveExplicit(env, explicit)
	}
	discover, ok := strategies[env.Platform]
	if !ok {
		return nil
	}
	var out []Candidate
	seen := map[string]struct{}{}
	for _, path := range discover(env) {
		path = cleanFor(env.Platform, path)
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		if !env.exists(path) {
			continue
		}
		out = append(out, Candidate{Path: path, Exists: true})
	}
	return out
}

func resolveExplicit(env Environment, explicit []string) []Candidate {
	out := make([]Candidate, 0, len(explicit))
	seen := map[string]struct{}{}
	for _, path := range explicit {
		if strings.TrimSpace(path) == "" {
			continue
		}
		path = cleanFor(env.Platform, strings.TrimSpace(path))
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, Candidate{Path: path, Explicit: true, Exists: env.exists(path)})
	}
	return out
}

// Targets converts the existing candidates into watch targets.
func Targets(candidates []Candidate) []WatchTarget {
	targets := make([]WatchTarget, 0, len(candidates))
	for _, c := range candidates {
		if c.Exists {
			targets = append(targets, c.Target())
		}
	}
	return targets
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func listDirs(path string) []string {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}
