package ingest

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestQueuePreservesOrder(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()
	names := []string{"A", "B", "C"}
	for _, name := range names {
		if err := q.Push(Candidate{Path: filepath.Join(dir, name)}); err != nil {
			t.Fatalf("Push(%s): %v", name, err)
		}
	}
	if got := q.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
	for _, name := range names {
		c, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop returned sentinel, want %s", name)
		}
		if filepath.Base(c.Path) != name {
			t.Fatalf("Pop = %s, want %s", filepath.Base(c.Path), name)
		}
	}
}

func TestQueueRejectsPendingAndInFlightDuplicates(t *testing.T) {
	q := NewQueue()
	path := filepath.Join(t.TempDir(), "match.aoe2record")

	if err := q.Push(Candidate{Path: path}); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := q.Push(Candidate{Path: path}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("pending duplicate err = %v, want ErrDuplicate", err)
	}

	if _, ok := q.Pop(); !ok {
		t.Fatal("expected candidate")
	}
	if err := q.Push(Candidate{Path: path}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("in-flight duplicate err = %v, want ErrDuplicate", err)
	}

	q.Done(path)
	if err := q.Push(Candidate{Path: path}); err != nil {
		t.Fatalf("push after Done: %v", err)
	}
}

func TestQueueStopDrainsThenEnds(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()
	if err := q.Push(Candidate{Path: filepath.Join(dir, "one")}); err != nil {
		t.Fatal(err)
	}
	q.Stop()
	q.Stop()

	if err := q.Push(Candidate{Path: filepath.Join(dir, "two")}); !errors.Is(err, ErrQueueStopped) {
		t.Fatalf("push after stop err = %v, want ErrQueueStopped", err)
	}
	if c, ok := q.Pop(); !ok || filepath.Base(c.Path) != "one" {
		t.Fatalf("Pop = %+v, %v; want queued candidate before sentinel", c, ok)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected sentinel")
	}
	if got := q.Len(); got != 0 {
		t.Fatalf("Len = %d, want 0", got)
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue()
	path := filepath.Join(t.TempDir(), "late")
	got := make(chan Candidate, 1)
	go func() {
		c, _ := q.Pop()
		got <- c
	}()

	select {
	case <-got:
		t.Fatal("Pop returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.Push(Candidate{Path: path}); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-got:
		if c.Path != path {
			t.Fatalf("Pop = %q, want %q", c.Path, path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not wake after push")
	}
}

func TestQueueRejectsEmptyPath(t *testing.T) {
	q := NewQueue()
	if err := q.Push(Candidate{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
