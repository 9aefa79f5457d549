package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"recwatch/internal/catalog"
	"recwatch/internal/ingest"
)

const finalName = "MP Replay v101.103.2359.0 @2025.03.14 202116.aoe2record"

type chanSink struct {
	mu    sync.Mutex
	seen  map[string]bool
	items chan ingest.Candidate
}

func newChanSink() *chanSink {
	return &chanSink{seen: make(map[string]bool), items: make(chan ingest.Candidate, 32)}
}

func (s *chanSink) Push(c ingest.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[c.Path] {
		return ingest.ErrDuplicate
	}
	s.seen[c.Path] = true
	s.items <- c
	return nil
}

func (s *chanSink) Len() int { return len(s.items) }

func (s *chanSink) expect(t *testing.T, want string) ingest.Candidate {
	t.Helper()
	select {
	case c := <-s.items:
		if c.Path != want {
			t.Fatalf("candidate = %q, want %q", c.Path, want)
		}
		return c
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
	return ingest.Candidate{}
}

func (s *chanSink) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case c := <-s.items:
		t.Fatalf("unexpected candidate %q", c.Path)
	case <-time.After(wait):
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("replay"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, opts Options, dirs ...string) (*Watcher, *chanSink) {
	t.Helper()
	targets := make([]catalog.WatchTarget, 0, len(dirs))
	for _, d := range dirs {
		targets = append(targets, catalog.WatchTarget{Path: d})
	}
	sink := newChanSink()
	w := New(targets, sink, opts)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := w.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		w.Wait()
	})
	return w, sink
}

func TestPollingReportsOnlyNewFinalReplays(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "MP Replay v101.103.2359.0 @2025.03.13 101010.aoe2record")
	writeFile(t, existing)

	w, sink := startWatcher(t, Options{UsePolling: true, PollingInterval: 10 * time.Millisecond}, dir)
	if w.Mode() != ModePolling {
		t.Fatalf("mode = %s, want polling", w.Mode())
	}

	writeFile(t, filepath.Join(dir, "MP Replay v101.103.2359.0 @2025.03.14 202116 (1).aoe2record"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	if err := os.Mkdir(filepath.Join(dir, "sub.aoe2record"), 0o755); err != nil {
		t.Fatal(err)
	}
	final := filepath.Join(dir, finalName)
	writeFile(t, final)

	c := sink.expect(t, final)
	if c.Source != dir || c.Mode != string(ModePolling) || c.SeenAt.IsZero() {
		t.Fatalf("candidate = %+v", c)
	}
	sink.expectNone(t, 50*time.Millisecond)
}

func TestPollingReportsRecreatedFile(t *testing.T) {
	dir := t.TempDir()
	_, sink := startWatcher(t, Options{UsePolling: true, PollingInterval: 10 * time.Millisecond}, dir)

	final := filepath.Join(dir, finalName)
	writeFile(t, final)
	sink.expect(t, final)

	// The fake sink rejects repeats, so only the directory diff is under test.
	sink.mu.Lock()
	delete(sink.seen, final)
	sink.mu.Unlock()
	if err := os.Remove(final); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	writeFile(t, final)
	sink.expect(t, final)
}

func TestNativeReportsFinalReplay(t *testing.T) {
	dir := t.TempDir()
	w, sink := startWatcher(t, Options{}, dir)
	if w.Mode() != ModeNative {
		t.Fatalf("mode = %s, want native", w.Mode())
	}

	writeFile(t, filepath.Join(dir, "partial.aoe2record"))
	final := filepath.Join(dir, finalName)
	writeFile(t, final)

	c := sink.expect(t, final)
	if c.Mode != string(ModeNative) {
		t.Fatalf("mode = %q, want native", c.Mode)
	}
	sink.expectNone(t, 50*time.Millisecond)
}

func TestMissingTargetSkipped(t *testing.T) {
	good := t.TempDir()
	missing := filepath.Join(t.TempDir(), "gone")

	w, sink := startWatcher(t, Options{UsePolling: true, PollingInterval: 10 * time.Millisecond}, missing, good)
	if active := w.Active(); len(active) != 1 || active[0] != good {
		t.Fatalf("active = %v, want [%s]", active, good)
	}

	final := filepath.Join(good, finalName)
	writeFile(t, final)
	sink.expect(t, final)
}

func TestStartWithoutTargets(t *testing.T) {
	w := New([]catalog.WatchTarget{{Path: filepath.Join(t.TempDir(), "gone")}}, newChanSink(), Options{})
	n, err := w.Start(context.Background())
	if !errors.Is(err, ErrNoTargets) || n != 0 {
		t.Fatalf("Start = %d, %v; want 0, ErrNoTargets", n, err)
	}
}

func TestExistingListsFinalReplaysOldestFirst(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "MP Replay v101.103.2359.0 @2025.03.14 202116.aoe2record")
	newer := filepath.Join(dir, "MP Replay v101.103.2359.0 @2025.03.13 101010.aoe2record")
	writeFile(t, newer)
	writeFile(t, older)
	writeFile(t, filepath.Join(dir, "MP Replay v101.103.2359.0 @2025.03.14 202116 (1).aoe2record"))
	now := time.Now()
	if err := os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, now, now); err != nil {
		t.Fatal(err)
	}

	got, err := Existing(dir)
	if err != nil {
		t.Fatalf("Existing: %v", err)
	}
	if len(got) != 2 || got[0] != older || got[1] != newer {
		t.Fatalf("Existing = %v, want [%s %s]", got, older, newer)
	}
}
