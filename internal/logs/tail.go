package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrNoLogs reports a log directory without any run log.
var ErrNoLogs = errors.New("no run logs found")

const (
	scanBufferInitial = 64 * 1024
	scanBufferMax     = 1024 * 1024
	defaultFollowPoll = 250 * time.Millisecond
)

// Latest returns the most recently modified file in dir matching pattern.
func Latest(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("match run logs: %w", err)
	}
	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, candidate{path: path, mod: info.ModTime()})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%s: %w", dir, ErrNoLogs)
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].mod.Equal(found[j].mod) {
			return found[i].mod.After(found[j].mod)
		}
		// Run log names embed a UTC timestamp, so the larger name is newer.
		return found[i].path > found[j].path
	})
	return found[0].path, nil
}

// Last returns up to limit trailing lines of path and the offset just past
// them. A non-positive limit returns no lines and the end offset.
func Last(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, scanBufferInitial), scanBufferMax)
	ring := make([]string, limit)
	count, next := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := 0; i < count; i++ {
		lines[i] = ring[(start+i)%limit]
	}
	return lines, end, nil
}

// Follow emits every complete line appended to path after offset, polling
// every interval, until ctx is done. A truncated file is read again from the
// start. Follow returns nil when ctx ends.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = defaultFollowPoll
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, emit)
		switch {
		case err == nil:
			offset = next
		case errors.Is(err, fs.ErrNotExist):
			offset = 0
		default:
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// readFrom emits complete lines starting at offset and returns the offset of
// the first unread byte. A trailing partial line is left for the next call.
func readFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return offset, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, scanBufferInitial)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		emit(line[:len(line)-1])
	}
}
