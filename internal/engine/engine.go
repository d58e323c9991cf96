// Package engine is the entry point to batch renaming: compute a batch,
// execute it, and undo it later.
package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/raulshma/devbox-sub000/internal/executor"
	"github.com/raulshma/devbox-sub000/internal/history"
	"github.com/raulshma/devbox-sub000/internal/pattern"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Engine wires the pattern engine, executor and history together
type Engine struct {
	fs       afero.Fs
	executor *executor.Executor
	history  *history.Manager
	now      func() time.Time
}

// New creates an engine over fs that records history in store
func New(fs afero.Fs, store history.Store) *Engine {
	return &Engine{
		fs:       fs,
		executor: executor.New(fs),
		history:  history.NewManager(fs, store),
		now:      time.Now,
	}
}

// ComputeBatch computes the operations for paths without touching them.
// Modification times are read so date placeholders use them; a file that
// cannot be stat'ed falls back to the current time.
func (e *Engine) ComputeBatch(paths []string, spec pattern.Spec) ([]types.RenameOperation, error) {
	files := make([]pattern.File, 0, len(paths))
	for _, p := range paths {
		f := pattern.File{Path: p}
		if info, err := e.fs.Stat(p); err == nil {
			mtime := info.ModTime()
			f.ModTime = &mtime
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("file", p).Err(err).Msg("Cannot stat file, dates fall back to now")
		}
		files = append(files, f)
	}
	return pattern.ComputeBatch(files, spec)
}

// ExecuteBatch applies ops and records the batch unless it was a dry run or
// changed nothing. A history write failure is logged; the results still
// describe what happened on disk.
func (e *Engine) ExecuteBatch(ctx context.Context, ops []types.RenameOperation, opts types.ExecOptions) ([]types.RenameResult, error) {
	results, err := e.executor.Execute(ctx, ops, opts)
	if err != nil {
		return nil, err
	}
	if opts.DryRun || !mutated(results) {
		return results, nil
	}

	entry := types.NewHistoryEntry(ops, results, batchDirectory(ops), e.now())
	if err := e.history.Record(entry); err != nil {
		log.Error().Err(err).Msg("Batch applied but could not be recorded for undo")
	}
	return results, nil
}

// Undo reverses the newest recorded batch
func (e *Engine) Undo(ctx context.Context) ([]types.RenameResult, error) {
	return e.history.Undo(ctx)
}

// HistorySize returns the number of recorded batches
func (e *Engine) HistorySize() (int, error) {
	return e.history.Size()
}

// ListHistory returns recorded batches, oldest first
func (e *Engine) ListHistory() ([]types.HistoryEntry, error) {
	return e.history.List()
}

// ClearHistory drops every recorded batch
func (e *Engine) ClearHistory() error {
	return e.history.Clear()
}

func mutated(results []types.RenameResult) bool {
	for _, r := range results {
		if (r.Success && r.SourcePath != r.TargetPath) || r.Merge.Moved() {
			return true
		}
	}
	return false
}

func batchDirectory(ops []types.RenameOperation) string {
	if len(ops) == 0 {
		return ""
	}
	return filepath.Dir(ops[0].SourcePath)
}
