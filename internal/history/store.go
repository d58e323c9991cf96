// Package history records executed batches and reverses the most recent
// one.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DefaultMaxEntries is how many batches are kept before the oldest is evicted
const DefaultMaxEntries = 50

const lockTimeout = 5 * time.Second

var (
	// ErrNothingToUndo is returned when the history is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrLockTimeout is returned when the history file lock cannot be taken.
	ErrLockTimeout = errors.New("timeout acquiring history lock")
)

// Store persists history entries, oldest first
type Store interface {
	Load() ([]types.HistoryEntry, error)
	Append(entry types.HistoryEntry) error
	Pop() (types.HistoryEntry, error)
	Clear() error
}

// entryList is a bounded FIFO shared by the stores.
type entryList struct {
	max     int
	entries []types.HistoryEntry
}

func (l *entryList) push(entry types.HistoryEntry) {
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.max; l.max > 0 && over > 0 {
		l.entries = append([]types.HistoryEntry(nil), l.entries[over:]...)
	}
}

func (l *entryList) pop() (types.HistoryEntry, bool) {
	if len(l.entries) == 0 {
		return types.HistoryEntry{}, false
	}
	last := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	return last, true
}

func (l *entryList) snapshot() []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// MemoryStore keeps history in memory only
type MemoryStore struct {
	mu   sync.Mutex
	list entryList
}

// NewMemoryStore creates a store holding at most maxEntries batches
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{list: entryList{max: maxEntries}}
}

func (s *MemoryStore) Load() ([]types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.snapshot(), nil
}

func (s *MemoryStore) Append(entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.push(entry)
	return nil
}

func (s *MemoryStore) Pop() (types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.list.pop()
	if !ok {
		return entry, ErrNothingToUndo
	}
	return entry, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.entries = nil
	return nil
}

// FileStore keeps history as a JSON array in a single file. The file is
// read on first use and rewritten in full after every change.
type FileStore struct {
	fs   afero.Fs
	path string

	mu     sync.Mutex
	loaded bool
	list   entryList
}

// DefaultPath returns the per-user history file location
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "batch-renamer", "history.json"), nil
}

// NewFileStore creates a store backed by path on fs
func NewFileStore(fs afero.Fs, path string, maxEntries int) *FileStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &FileStore{fs: fs, path: path, list: entryList{max: maxEntries}}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() ([]types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	return s.list.snapshot(), nil
}

func (s *FileStore) Append(entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.list.push(entry)
	return s.persist()
}

// Pop removes the newest entry. The entry is gone from memory even if the
// rewrite fails, so a failed undo is never replayed.
func (s *FileStore) Pop() (types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return types.HistoryEntry{}, err
	}
	entry, ok := s.list.pop()
	if !ok {
		return entry, ErrNothingToUndo
	}
	if err := s.persist(); err != nil {
		log.Warn().Err(err).Str("file", s.path).Msg("Failed to save history after undo")
	}
	return entry, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.list.entries = nil
	return s.persist()
}

func (s *FileStore) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.list.entries = nil
	case err != nil:
		return fmt.Errorf("read history %s: %w", s.path, err)
	default:
		var entries []types.HistoryEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Warn().Err(err).Str("file", s.path).Msg("History file is corrupt, starting empty")
			entries = nil
		}
		s.list.entries = entries
		// Honour the cap even if the file was written with a larger one.
		if over := len(entries) - s.list.max; over > 0 {
			s.list.entries = entries[over:]
		}
	}
	s.loaded = true
	return nil
}

func (s *FileStore) persist() error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	entries := s.list.entries
	if entries == nil {
		entries = []types.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

// lock takes an OS-level lock beside the history file. Only a real
// filesystem can be locked, so in-memory filesystems get a no-op.
func (s *FileStore) lock() (func(), error) {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return func() {}, nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	fileLock := flock.New(s.path + ".lock")
	locked, err := fileLock.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("lock history %s: %w", s.path, err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return func() { _ = fileLock.Unlock() }, nil
}
