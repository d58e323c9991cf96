package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/raulshma/devbox-sub000/internal/fsops"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrSourceOccupied marks an undo step whose original path is taken again.
var ErrSourceOccupied = errors.New("original path is occupied")

// Manager records batches and reverses the newest one
type Manager struct {
	fs    afero.Fs
	store Store
	move  fsops.MoveOptions
}

// NewManager creates a manager that undoes on fs using store
func NewManager(fs afero.Fs, store Store) *Manager {
	return &Manager{
		fs:    fs,
		store: store,
		move:  fsops.MoveOptions{PreservePermissions: true, PreserveTimestamps: true},
	}
}

// Record appends a batch to the history
func (m *Manager) Record(entry types.HistoryEntry) error {
	if err := m.store.Append(entry); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	log.Debug().Int("operations", len(entry.Operations)).Str("directory", entry.Directory).Msg("Recorded batch")
	return nil
}

// Size returns the number of recorded batches
func (m *Manager) Size() (int, error) {
	entries, err := m.store.Load()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// List returns recorded batches, oldest first
func (m *Manager) List() ([]types.HistoryEntry, error) {
	return m.store.Load()
}

// Clear drops every recorded batch
func (m *Manager) Clear() error {
	return m.store.Clear()
}

// Undo pops the newest batch and reverses it using its rollback info. The
// batch leaves the history whatever happens to its files. Results are in
// the batch's operation order; operations are reversed newest first so a
// chain like a->b, b->c unwinds cleanly.
func (m *Manager) Undo(ctx context.Context) ([]types.RenameResult, error) {
	entry, err := m.store.Pop()
	if err != nil {
		return nil, err
	}

	results := make([]types.RenameResult, len(entry.RollbackInfo))
	for i := len(entry.RollbackInfo) - 1; i >= 0; i-- {
		info := entry.RollbackInfo[i]
		if err := ctx.Err(); err != nil {
			results[i] = types.RenameResult{ID: i, SourcePath: info.TargetPath, TargetPath: info.SourcePath}
			results[i].Fail(err)
			continue
		}
		results[i] = m.reverse(i, info)
	}

	s := types.Summarize(results)
	log.Info().
		Str("directory", entry.Directory).
		Int("restored", s.Renamed).
		Int("failed", s.Failed).
		Msg("Undid batch")
	return results, nil
}

// reverse undoes one operation. Its result describes the undo move, so
// SourcePath is where the file was and TargetPath where it goes back to.
func (m *Manager) reverse(id int, info types.RollbackInfo) types.RenameResult {
	res := types.RenameResult{
		ID:             id,
		SourcePath:     info.TargetPath,
		TargetPath:     info.SourcePath,
		ConflictAction: info.ConflictAction,
		BackupPath:     info.BackupPath,
	}

	if info.Merge.Moved() || (info.Success && info.Merge != nil) {
		return m.unmerge(res, info)
	}
	if !info.Success {
		res.ConflictAction = types.ConflictSkipped
		res.ConflictReason = "operation did not succeed, nothing to reverse"
		return res
	}
	if info.SourcePath == info.TargetPath {
		res.Success = true
		return res
	}
	if fsops.Exists(m.fs, info.SourcePath) && !fsops.FreeForCaseRename(m.fs, info.TargetPath, info.SourcePath) {
		res.Fail(fmt.Errorf("%w: %s", ErrSourceOccupied, info.SourcePath))
		return res
	}

	if err := fsops.Move(m.fs, info.TargetPath, info.SourcePath, m.move); err != nil {
		res.Fail(err)
		return res
	}

	if info.ConflictAction == types.ConflictBackedUp && info.BackupPath != "" {
		if err := fsops.Move(m.fs, info.BackupPath, info.TargetPath, m.move); err != nil {
			res.Fail(fmt.Errorf("restore backup %s: %w", info.BackupPath, err))
			return res
		}
	}

	res.Success = true
	log.Debug().Str("from", info.TargetPath).Str("to", info.SourcePath).Msg("Reversed rename")
	return res
}

// unmerge moves merged entries back out of the destination, newest first,
// and restores the destination files they replaced. Entries the destination
// already had are left where they are. A partial merge is reversed as far
// as it got.
func (m *Manager) unmerge(res types.RenameResult, info types.RollbackInfo) types.RenameResult {
	if err := m.fs.MkdirAll(info.SourcePath, 0755); err != nil {
		res.Fail(err)
		return res
	}

	var errs []error
	entries := info.Merge.Entries
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		from := filepath.Join(info.TargetPath, entry.Path)
		to := filepath.Join(info.SourcePath, entry.Path)

		if entry.Dir {
			if err := m.fs.MkdirAll(to, 0755); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if fsops.Exists(m.fs, to) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrSourceOccupied, to))
			continue
		}
		if err := m.fs.MkdirAll(filepath.Dir(to), 0755); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := fsops.Move(m.fs, from, to, m.move); err != nil {
			errs = append(errs, err)
			continue
		}
		if entry.BackupPath != "" {
			if err := fsops.Move(m.fs, entry.BackupPath, from, m.move); err != nil {
				errs = append(errs, fmt.Errorf("restore backup %s: %w", entry.BackupPath, err))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		res.Fail(err)
		return res
	}
	res.Success = true
	log.Debug().Str("from", info.TargetPath).Str("to", info.SourcePath).Int("entries", len(entries)).Msg("Reversed merge")
	return res
}
