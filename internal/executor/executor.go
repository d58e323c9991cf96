// Package executor turns computed rename operations into filesystem
// mutations, one conflict resolution per operation, either in input order or
// across a bounded worker pool.
package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raulshma/devbox-sub000/internal/conflict"
	"github.com/raulshma/devbox-sub000/internal/fsops"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrTaskTimeout marks an operation abandoned after its task timeout.
	ErrTaskTimeout = errors.New("task timed out")
	// ErrIllegalName marks a new name the filesystem cannot hold.
	ErrIllegalName = errors.New("illegal file name")
)

// Executor applies rename operations to a filesystem
type Executor struct {
	fs afero.Fs
}

// New creates an executor over fs
func New(fs afero.Fs) *Executor {
	return &Executor{fs: fs}
}

// settleGrace is how long a finished pool waits for tasks that overran
// their timeout, so a rename that completed late is still reported.
var settleGrace = 2 * time.Second

type run struct {
	fs       afero.Fs
	opts     types.ExecOptions
	strategy conflict.Strategy
	resolver *conflict.Resolver
	parallel bool
	move     fsops.MoveOptions
	done     atomic.Int64
	total    int

	mu        sync.Mutex
	abandoned []abandonedTask
}

// abandonedTask is an operation whose timeout fired while it was running
type abandonedTask struct {
	id     int
	op     types.RenameOperation
	result <-chan types.RenameResult
}

// Execute applies ops and returns one result per operation, in input order.
// The error is non-nil only when the options themselves are invalid; a
// failure on one file is recorded in its result and never aborts the batch.
func (e *Executor) Execute(ctx context.Context, ops []types.RenameOperation, opts types.ExecOptions) ([]types.RenameResult, error) {
	opts = withDefaults(opts)
	strategy, err := conflict.ParseStrategy(opts.ConflictStrategy)
	if err != nil {
		return nil, err
	}

	r := &run{
		fs:       e.fs,
		opts:     opts,
		strategy: strategy,
		resolver: conflict.NewResolver(e.fs, conflict.Options{
			Strategy:           strategy,
			RenameSuffix:       opts.RenameSuffix,
			MaxRenameAttempts:  opts.MaxRenameAttempts,
			BackupSuffix:       opts.BackupSuffix,
			PreserveTimestamps: opts.PreserveTimestamps,
		}),
		parallel: opts.Parallel || (opts.ParallelThreshold > 0 && len(ops) >= opts.ParallelThreshold),
		move: fsops.MoveOptions{
			PreservePermissions: opts.PreservePermissions,
			PreserveTimestamps:  opts.PreserveTimestamps,
		},
		total: len(ops),
	}

	log.Debug().
		Int("operations", len(ops)).
		Str("strategy", strategy.String()).
		Bool("parallel", r.parallel).
		Bool("dry_run", opts.DryRun).
		Msg("Executing batch")

	if r.parallel {
		return r.runParallel(ctx, ops), nil
	}
	return r.runSequential(ctx, ops), nil
}

func withDefaults(opts types.ExecOptions) types.ExecOptions {
	def := types.DefaultExecOptions()
	if opts.ConflictStrategy == "" {
		opts.ConflictStrategy = def.ConflictStrategy
	}
	if opts.RenameSuffix == "" {
		opts.RenameSuffix = def.RenameSuffix
	}
	if opts.MaxRenameAttempts <= 0 {
		opts.MaxRenameAttempts = def.MaxRenameAttempts
	}
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = def.BackupSuffix
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = def.MaxConcurrency
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = def.TaskTimeout
	}
	return opts
}

func (r *run) runSequential(ctx context.Context, ops []types.RenameOperation) []types.RenameResult {
	results := make([]types.RenameResult, len(ops))
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			results[i] = failed(i, op, err)
		} else {
			results[i] = r.apply(ctx, i, op)
		}
		r.progress()
	}
	return results
}

// runParallel fans operations out to at most MaxConcurrency workers. Each
// result is written to the slot of its operation ID, so completion order
// never leaks into the returned slice.
func (r *run) runParallel(ctx context.Context, ops []types.RenameOperation) []types.RenameResult {
	results := make([]types.RenameResult, len(ops))

	var g errgroup.Group
	g.SetLimit(r.opts.MaxConcurrency)
	for i, op := range ops {
		i, op := i, op
		g.Go(func() error {
			results[i] = r.applyWithTimeout(ctx, i, op)
			r.progress()
			return nil
		})
	}
	_ = g.Wait()
	r.settle(results)
	return results
}

// applyWithTimeout runs one operation under the task timeout. A task that
// overruns is reported failed for now; it starts no further mutation once
// its context is done, and settle picks up a rename that was already in
// flight.
func (r *run) applyWithTimeout(ctx context.Context, id int, op types.RenameOperation) types.RenameResult {
	tctx, cancel := context.WithTimeout(ctx, r.opts.TaskTimeout)

	done := make(chan types.RenameResult, 1)
	go func() {
		defer cancel()
		done <- r.apply(tctx, id, op)
	}()

	select {
	case res := <-done:
		return res
	case <-tctx.Done():
		err := r.interrupted(tctx)
		log.Warn().Str("file", op.SourcePath).Err(err).Msg("Rename abandoned")

		r.mu.Lock()
		r.abandoned = append(r.abandoned, abandonedTask{id: id, op: op, result: done})
		r.mu.Unlock()
		return failed(id, op, err)
	}
}

// settle waits up to settleGrace for abandoned tasks and replaces their
// placeholder results with what they actually did. A task still running
// after that is logged with both paths, as its outcome is unknown.
func (r *run) settle(results []types.RenameResult) {
	if len(r.abandoned) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), settleGrace)
	defer cancel()

	for _, task := range r.abandoned {
		select {
		case res := <-task.result:
			results[task.id] = res
		case <-ctx.Done():
			log.Warn().
				Str("from", task.op.SourcePath).
				Str("to", targetPath(task.op)).
				Msg("Rename still running after its timeout; it may complete and will not be undoable")
			go func(task abandonedTask) {
				if res := <-task.result; res.Success {
					log.Warn().Str("from", res.SourcePath).Str("to", res.TargetPath).Msg("Timed out rename completed late")
				}
			}(task)
		}
	}
}

// interrupted turns a done context into the error reported for the task
func (r *run) interrupted(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTaskTimeout, r.opts.TaskTimeout)
	}
	return err
}

// guard is checked right before every mutation so a task whose context is
// done never starts changing the filesystem.
func (r *run) guard(ctx context.Context) error {
	if ctx.Err() != nil {
		return r.interrupted(ctx)
	}
	return nil
}

func (r *run) progress() {
	done := r.done.Add(1)
	if r.opts.Progress != nil {
		r.opts.Progress(int(done), r.total)
	}
}

func targetPath(op types.RenameOperation) string {
	return filepath.Join(filepath.Dir(op.SourcePath), op.NewName)
}

func failed(id int, op types.RenameOperation, err error) types.RenameResult {
	res := types.RenameResult{ID: id, SourcePath: op.SourcePath, TargetPath: targetPath(op)}
	res.Fail(err)
	return res
}

// CheckName rejects names that cannot be a single directory entry
func CheckName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrIllegalName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrIllegalName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrIllegalName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrIllegalName, name)
	}
	return nil
}

// apply performs a single operation and never returns an error; every
// failure lands in the result.
func (r *run) apply(ctx context.Context, id int, op types.RenameOperation) types.RenameResult {
	res := types.RenameResult{ID: id, SourcePath: op.SourcePath, TargetPath: targetPath(op)}

	if err := CheckName(op.NewName); err != nil {
		res.Fail(err)
		return res
	}
	if _, err := r.fs.Stat(op.SourcePath); err != nil {
		res.Fail(err)
		return res
	}
	if res.TargetPath == filepath.Clean(op.SourcePath) {
		res.Success = true
		return res
	}

	if fsops.FreeForCaseRename(r.fs, op.SourcePath, res.TargetPath) {
		r.finish(&res, r.caseOnlyMove(ctx, op.SourcePath, res.TargetPath))
		return res
	}

	if !fsops.Exists(r.fs, res.TargetPath) {
		r.finish(&res, r.mutate(ctx, op.SourcePath, res.TargetPath))
		return res
	}

	if r.parallel && !r.strategy.ParallelSafe() {
		res.ConflictReason = "destination exists"
		res.Fail(fmt.Errorf("%w: %s", conflict.ErrUnsupportedInParallel, r.strategy))
		return res
	}

	resolution, err := r.resolver.Resolve(op.SourcePath, res.TargetPath, conflict.OperationMove)
	if err != nil {
		res.Fail(err)
		return res
	}
	res.ConflictReason = resolution.Reason

	switch resolution.Action {
	case conflict.ActionSkip:
		res.ConflictAction = types.ConflictSkipped
		return res

	case conflict.ActionProceed:
		res.ConflictAction = types.ConflictOverwritten
		if r.strategy == conflict.Merge {
			record, err := r.mergeDir(ctx, op.SourcePath, res.TargetPath)
			res.Merge = record
			r.finish(&res, err)
			return res
		}
		r.finish(&res, r.mutate(ctx, op.SourcePath, res.TargetPath))

	case conflict.ActionRename:
		res.ConflictAction = types.ConflictRenamed
		res.OriginalDestination = res.TargetPath
		res.TargetPath = resolution.NewDestination
		r.finish(&res, r.mutate(ctx, op.SourcePath, res.TargetPath))

	case conflict.ActionBackup:
		res.ConflictAction = types.ConflictBackedUp
		res.BackupPath = resolution.BackupPath
		if !r.opts.DryRun {
			if err := r.guard(ctx); err != nil {
				res.Fail(err)
				return res
			}
			if err := r.resolver.CreateBackup(res.TargetPath, res.BackupPath); err != nil {
				res.Fail(err)
				return res
			}
		}
		r.finish(&res, r.mutate(ctx, op.SourcePath, res.TargetPath))
	}
	return res
}

func (r *run) finish(res *types.RenameResult, err error) {
	if err != nil {
		res.Fail(err)
		log.Debug().Str("from", res.SourcePath).Str("to", res.TargetPath).Err(err).Msg("Rename failed")
		return
	}
	res.Success = true
}

func (r *run) mutate(ctx context.Context, src, dst string) error {
	if r.opts.DryRun {
		return nil
	}
	if err := r.guard(ctx); err != nil {
		return err
	}
	return fsops.Move(r.fs, src, dst, r.move)
}

// caseOnlyMove goes through a temporary name so case-insensitive
// filesystems see two distinct renames.
func (r *run) caseOnlyMove(ctx context.Context, src, dst string) error {
	if r.opts.DryRun {
		return nil
	}
	if err := r.guard(ctx); err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.~renametmp~%d", src, time.Now().UnixNano())
	for i := 0; fsops.Exists(r.fs, tmp); i++ {
		tmp = fmt.Sprintf("%s.~renametmp~%d", src, i)
	}
	if err := fsops.Move(r.fs, src, tmp, r.move); err != nil {
		return err
	}
	if err := fsops.Move(r.fs, tmp, dst, r.move); err != nil {
		_ = fsops.Move(r.fs, tmp, src, r.move)
		return err
	}
	return nil
}

// mergeDir moves every entry of src into dst, descending into directories
// present on both sides. A file already present in dst is moved aside to a
// backup path first. src is removed once empty. The record lists every move
// made, including those before a failure.
func (r *run) mergeDir(ctx context.Context, src, dst string) (*types.MergeRecord, error) {
	if r.opts.DryRun {
		return nil, nil
	}
	record := &types.MergeRecord{Entries: []types.MergedEntry{}}
	return record, r.mergeTree(ctx, src, dst, "", record)
}

func (r *run) mergeTree(ctx context.Context, src, dst, rel string, record *types.MergeRecord) error {
	entries, err := afero.ReadDir(r.fs, filepath.Join(src, rel))
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := r.guard(ctx); err != nil {
			return err
		}
		name := filepath.Join(rel, entry.Name())
		from := filepath.Join(src, name)
		to := filepath.Join(dst, name)

		existing, err := r.fs.Stat(to)
		switch {
		case err == nil && entry.IsDir() && existing.IsDir():
			record.Entries = append(record.Entries, types.MergedEntry{Path: name, Dir: true})
			if err := r.mergeTree(ctx, src, dst, name, record); err != nil {
				return err
			}
		case err == nil && (entry.IsDir() || existing.IsDir()):
			return fmt.Errorf("cannot merge %s into %s: file and directory collide", from, to)
		case err == nil:
			backup, err := r.resolver.BackupPathFor(to)
			if err != nil {
				return err
			}
			if err := fsops.Move(r.fs, to, backup, r.move); err != nil {
				return err
			}
			if err := fsops.Move(r.fs, from, to, r.move); err != nil {
				_ = fsops.Move(r.fs, backup, to, r.move)
				return err
			}
			record.Entries = append(record.Entries, types.MergedEntry{Path: name, BackupPath: backup})
		default:
			if err := fsops.Move(r.fs, from, to, r.move); err != nil {
				return err
			}
			record.Entries = append(record.Entries, types.MergedEntry{Path: name})
		}
	}
	return r.fs.Remove(filepath.Join(src, rel))
}
