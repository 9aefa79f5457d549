package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"recwatch/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2025, time.March, 14, 20, 21, 16, 0, time.UTC)

	first := history.Entry{
		Path:           "/saves/a.aoe2record",
		Outcome:        history.OutcomeParsed,
		StatusCode:     200,
		RequestID:      "req-1",
		Size:           4096,
		StabilityWait:  10 * time.Second,
		ParseDuration:  1500 * time.Millisecond,
		MatchStartedAt: started,
	}
	if id, err := store.Record(ctx, first); err != nil || id == 0 {
		t.Fatalf("Record: id=%d err=%v", id, err)
	}
	second := history.Entry{
		Path:       "/saves/b.aoe2record",
		Outcome:    history.OutcomeFailed,
		Reason:     "unreachable",
		Detail:     "connection refused",
		Restarts:   2,
		StatusCode: 0,
	}
	if _, err := store.Record(ctx, second); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Path != second.Path || entries[1].Path != first.Path {
		t.Fatalf("expected newest first, got %s then %s", entries[0].Path, entries[1].Path)
	}
	got := entries[1]
	if got.Outcome != history.OutcomeParsed || got.StatusCode != 200 || got.RequestID != "req-1" || got.Size != 4096 {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.StabilityWait != 10*time.Second || got.ParseDuration != 1500*time.Millisecond {
		t.Fatalf("unexpected durations: %+v", got)
	}
	if !got.MatchStartedAt.Equal(started) {
		t.Fatalf("unexpected match start %s", got.MatchStartedAt)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be filled")
	}
	if entries[0].Reason != "unreachable" || entries[0].Restarts != 2 || !entries[0].MatchStartedAt.IsZero() {
		t.Fatalf("unexpected failed entry: %+v", entries[0])
	}

	limited, err := store.Recent(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("Recent(1): %d entries err=%v", len(limited), err)
	}
}

func TestRecordRequiresPath(t *testing.T) {
	store := openStore(t)
	if _, err := store.Record(context.Background(), history.Entry{Outcome: history.OutcomeParsed}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStatsAndPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	entries := []history.Entry{
		{Path: "/a", Outcome: history.OutcomeParsed, CreatedAt: old},
		{Path: "/b", Outcome: history.OutcomeParsed},
		{Path: "/c", Outcome: history.OutcomeDisappeared},
		{Path: "/d", Outcome: history.OutcomeFailed},
	}
	for _, e := range entries {
		if _, err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[history.OutcomeParsed] != 2 || stats[history.OutcomeDisappeared] != 1 || stats[history.OutcomeFailed] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	removed, err := store.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), history.Entry{Path: "/a", Outcome: history.OutcomeParsed}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.Recent(context.Background(), 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d err=%v", len(entries), err)
	}
	if errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatal("unexpected schema mismatch")
	}
}
