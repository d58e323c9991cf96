package engine

import (
	"context"
	"testing"
	"time"

	"github.com/raulshma/devbox-sub000/internal/history"
	"github.com/raulshma/devbox-sub000/internal/pattern"
	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, files map[string]string) (afero.Fs, *Engine) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0644))
	}
	return fs, New(fs, history.NewMemoryStore(0))
}

func exists(fs afero.Fs, path string) bool {
	ok, _ := afero.Exists(fs, path)
	return ok
}

func TestComputeBatchUsesModTime(t *testing.T) {
	fs, e := setup(t, map[string]string{"/pics/a.jpg": "a"})
	mtime := time.Date(2022, 8, 9, 10, 11, 12, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/pics/a.jpg", mtime, mtime))

	ops, err := e.ComputeBatch([]string{"/pics/a.jpg"}, pattern.Spec{Mode: pattern.ModeTemplate, Template: "{date}_{name}.{ext}"})
	require.NoError(t, err)
	assert.Equal(t, "2022-08-09_a.jpg", ops[0].NewName)

	assert.True(t, exists(fs, "/pics/a.jpg"), "compute must not mutate")
}

func TestComputeBatchValidationFailsBeforeMutation(t *testing.T) {
	_, e := setup(t, map[string]string{"/d/a.txt": "a"})

	_, err := e.ComputeBatch([]string{"/d/a.txt"}, pattern.Spec{Mode: pattern.ModeTemplate, Template: "{name"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestExecuteRecordsAndUndoes(t *testing.T) {
	fs, e := setup(t, map[string]string{
		"/d/file-001.txt":  "1",
		"/d/file-002.txt":  "2",
		"/d/image-001.jpg": "i",
	})
	paths := []string{"/d/file-001.txt", "/d/file-002.txt", "/d/image-001.jpg"}
	spec := pattern.Spec{Mode: pattern.ModeRegex, Regex: pattern.RegexSpec{Pattern: "^FILE", Replacement: "doc", Flags: "i"}}

	ops, err := e.ComputeBatch(paths, spec)
	require.NoError(t, err)

	results, err := e.ExecuteBatch(context.Background(), ops, types.DefaultExecOptions())
	require.NoError(t, err)
	assert.True(t, exists(fs, "/d/doc-001.txt"))
	assert.True(t, exists(fs, "/d/doc-002.txt"))
	assert.Equal(t, "/d/image-001.jpg", results[2].TargetPath)

	size, err := e.HistorySize()
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	entries, err := e.ListHistory()
	require.NoError(t, err)
	assert.Equal(t, "/d", entries[0].Directory)
	assert.Len(t, entries[0].RollbackInfo, 3)

	_, err = e.Undo(context.Background())
	require.NoError(t, err)
	for _, p := range paths {
		assert.True(t, exists(fs, p), p)
	}

	_, err = e.Undo(context.Background())
	assert.ErrorIs(t, err, history.ErrNothingToUndo)
}

func TestDryRunIsNotRecorded(t *testing.T) {
	fs, e := setup(t, map[string]string{"/d/a.txt": "a"})
	ops, err := e.ComputeBatch([]string{"/d/a.txt"}, pattern.Spec{Mode: pattern.ModeCase, Case: pattern.CaseUpper})
	require.NoError(t, err)

	opts := types.DefaultExecOptions()
	opts.DryRun = true
	results, err := e.ExecuteBatch(context.Background(), ops, opts)
	require.NoError(t, err)
	assert.True(t, results[0].Success)
	assert.Equal(t, "/d/A.txt", results[0].TargetPath)
	assert.True(t, exists(fs, "/d/a.txt"))

	size, err := e.HistorySize()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestSkipRerunIsNoOp(t *testing.T) {
	fs, e := setup(t, map[string]string{"/d/a.txt": "a"})
	ops := []types.RenameOperation{{SourcePath: "/d/a.txt", OriginalName: "a.txt", NewName: "b.txt"}}

	_, err := e.ExecuteBatch(context.Background(), ops, types.DefaultExecOptions())
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/d/a.txt", []byte("again"), 0644))
	results, err := e.ExecuteBatch(context.Background(), ops, types.DefaultExecOptions())
	require.NoError(t, err)

	assert.Equal(t, types.ConflictSkipped, results[0].ConflictAction)
	assert.Empty(t, results[0].Error)
	data, err := afero.ReadFile(fs, "/d/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	size, err := e.HistorySize()
	require.NoError(t, err)
	assert.Equal(t, 1, size, "a batch that changed nothing is not recorded")
}

func TestClearHistory(t *testing.T) {
	_, e := setup(t, map[string]string{"/d/a.txt": "a"})
	ops := []types.RenameOperation{{SourcePath: "/d/a.txt", OriginalName: "a.txt", NewName: "b.txt"}}
	_, err := e.ExecuteBatch(context.Background(), ops, types.DefaultExecOptions())
	require.NoError(t, err)

	require.NoError(t, e.ClearHistory())
	size, err := e.HistorySize()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func read(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestMergeAndUndoRestoresBothDirectories(t *testing.T) {
	fs, e := setup(t, map[string]string{
		"/d/src/a.txt":     "a",
		"/d/src/c.txt":     "new c",
		"/d/src/sub/b.txt": "b",
		"/d/dst/keep.txt":  "keep",
		"/d/dst/c.txt":     "old c",
		"/d/dst/sub/d.txt": "d",
	})
	ops := []types.RenameOperation{{SourcePath: "/d/src", OriginalName: "src", NewName: "dst"}}
	o := types.DefaultExecOptions()
	o.ConflictStrategy = "merge"

	results, err := e.ExecuteBatch(context.Background(), ops, o)
	require.NoError(t, err)
	require.True(t, results[0].Success, results[0].Error)
	assert.Equal(t, "new c", read(t, fs, "/d/dst/c.txt"))
	assert.Equal(t, "old c", read(t, fs, "/d/dst/c.txt.bak"))
	assert.False(t, exists(fs, "/d/src"))

	size, err := e.HistorySize()
	require.NoError(t, err)
	require.Equal(t, 1, size)

	undone, err := e.Undo(context.Background())
	require.NoError(t, err)
	require.Len(t, undone, 1)
	assert.True(t, undone[0].Success, undone[0].Error)

	for path, body := range map[string]string{
		"/d/src/a.txt":     "a",
		"/d/src/c.txt":     "new c",
		"/d/src/sub/b.txt": "b",
		"/d/dst/keep.txt":  "keep",
		"/d/dst/c.txt":     "old c",
		"/d/dst/sub/d.txt": "d",
	} {
		assert.Equal(t, body, read(t, fs, path), path)
	}
	for _, path := range []string{"/d/dst/a.txt", "/d/dst/sub/b.txt", "/d/dst/c.txt.bak", "/d/src/keep.txt", "/d/src/sub/d.txt"} {
		assert.False(t, exists(fs, path), path)
	}
}
