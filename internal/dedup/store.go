package dedup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"recwatch/internal/fileutil"
	"recwatch/internal/logging"
)

// StatusProcessed is the only status a record carries.
const StatusProcessed = "processed"

// Results recorded with a processed file.
const (
	ResultParsed = "parsed"
	ResultFailed = "failed"
)

// Outcome describes how the single parse attempt for a file ended.
type Outcome struct {
	Result string
	Detail string
}

// Record is the persisted value for one processed path.
type Record struct {
	Status     string    `json:"status"`
	ObservedAt time.Time `json:"observed_at"`
	Outcome    string    `json:"outcome,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Entry pairs a record with its path for listings.
type Entry struct {
	Path string
	Record
}

// Store answers whether a path was processed and records terminal outcomes.
type Store interface {
	IsProcessed(path string) bool
	MarkProcessed(path string, outcome Outcome) error
}

// ErrNotRecorded reports a Forget for a path with no record.
var ErrNotRecorded = errors.New("path has no processing record")

// FileStore is a Store persisted as a JSON object on disk.
type FileStore struct {
	path    string
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.RWMutex
	records map[string]Record
}

// NewFileStore loads the store at path. Load failures are logged and the
// store starts empty.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	logger = logging.NewComponentLogger(logger, "dedup")
	s := &FileStore{
		path:    path,
		logger:  logger,
		now:     time.Now,
		records: make(map[string]Record),
	}
	if err := s.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load processed-replay state", "dedup_load_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "state starts empty; the file is rewritten on the next record"),
			logging.String(logging.FieldImpact, "replays seen before this start may be parsed again"))
		s.records = make(map[string]Record)
	}
	return s
}

// Key normalizes a path into the form used as the record key: absolute,
// cleaned, and Unicode NFC so decomposed names map to the same record.
func Key(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return norm.NFC.String(filepath.Clean(path))
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

// IsProcessed reports whether path has a record.
func (s *FileStore) IsProcessed(path string) bool {
	key := Key(path)
	if key == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok
}

// Lookup returns the record for path.
func (s *FileStore) Lookup(path string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[Key(path)]
	return rec, ok
}

// MarkProcessed records path and persists the whole mapping before
// returning. When persistence fails the in-memory record is kept and the
// error is returned.
func (s *FileStore) MarkProcessed(path string, outcome Outcome) error {
	key := Key(path)
	if key == "" {
		return errors.New("path cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = Record{
		Status:     StatusProcessed,
		ObservedAt: s.now().UTC(),
		Outcome:    outcome.Result,
		Detail:     outcome.Detail,
	}
	if err := s.save(); err != nil {
		return fmt.Errorf("persist processed state: %w", err)
	}
	s.logger.Debug("recorded processed replay",
		logging.String(logging.FieldReplayPath, key),
		logging.String("outcome", outcome.Result))
	return nil
}

// Forget removes the record for path so the file becomes eligible again.
func (s *FileStore) Forget(path string) error {
	key := Key(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%s: %w", key, ErrNotRecorded)
	}
	delete(s.records, key)
	if err := s.save(); err != nil {
		return fmt.Errorf("persist processed state: %w", err)
	}
	return nil
}

// Clear removes every record.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	if err := s.save(); err != nil {
		return fmt.Errorf("persist processed state: %w", err)
	}
	return nil
}

// Records returns every record, newest first.
func (s *FileStore) Records() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.records))
	for path, rec := range s.records {
		entries = append(entries, Entry{Path: path, Record: rec})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ObservedAt.Equal(entries[j].ObservedAt) {
			return entries[i].ObservedAt.After(entries[j].ObservedAt)
		}
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// Count returns the number of records.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *FileStore) load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var raw map[string]Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse state file: %w", err)
	}
	for path, rec := range raw {
		key := Key(path)
		if key == "" {
			continue
		}
		if rec.Status == "" {
			rec.Status = StatusProcessed
		}
		s.records[key] = rec
	}
	s.logger.Debug("loaded processed-replay state",
		logging.Int("record_count", len(s.records)),
		logging.String("path", s.path))
	return nil
}

func (s *FileStore) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}
