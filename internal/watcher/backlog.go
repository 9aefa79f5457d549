package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"recwatch/internal/replay"
)

// Existing lists final replay files already present in dir, oldest first.
func Existing(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type found struct {
		path string
		mod  time.Time
	}
	var files []found
	for _, entry := range entries {
		if entry.IsDir() || !replay.IsFinal(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, found{path: filepath.Join(dir, entry.Name()), mod: info.ModTime()})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}
