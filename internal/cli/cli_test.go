package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
	return dir
}

func historyFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "history.json")
}

func TestRenameHistoryAndUndo(t *testing.T) {
	dir := seedDir(t, "IMG_001.jpg", "IMG_002.jpg")
	hist := historyFile(t)

	_, err := run(t, "rename", dir, "--regex", `^IMG_(\d+)`, "--replace", "photo_$1", "--history-file", hist)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "photo_001.jpg"))
	assert.FileExists(t, filepath.Join(dir, "photo_002.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "IMG_001.jpg"))

	out, err := run(t, "history", "--json", "--history-file", hist)
	require.NoError(t, err)
	var entries []types.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Operations, 2)

	_, err = run(t, "undo", "--history-file", hist)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "IMG_001.jpg"))
	assert.FileExists(t, filepath.Join(dir, "IMG_002.jpg"))

	out, err = run(t, "undo", "--history-file", hist)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to undo")
}

func TestRenameDryRunJSON(t *testing.T) {
	dir := seedDir(t, "a.txt", "b.txt")
	hist := historyFile(t)

	out, err := run(t, "rename", dir, "--template", "{name}_x.{ext}", "--dry-run", "--json", "--history-file", hist)
	require.NoError(t, err)

	var output types.OperationsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	assert.True(t, output.DryRun)
	require.Len(t, output.Renames, 2)
	assert.Equal(t, "a.txt", output.Renames[0].From)
	assert.Equal(t, "a_x.txt", output.Renames[0].To)
	assert.Equal(t, 2, output.Summary.Total)

	assert.FileExists(t, filepath.Join(dir, "a.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "a_x.txt"))
	assert.NoFileExists(t, hist)
}

func TestRenameNumberingDefaultsToBatchSize(t *testing.T) {
	dir := seedDir(t, "c.txt", "a.txt", "b.txt")

	_, err := run(t, "rename", dir, "--number", "--prefix", "n_", "--sort-by-name", "--history-file", historyFile(t))
	require.NoError(t, err)
	for _, name := range []string{"n_1.txt", "n_2.txt", "n_3.txt"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Equal(t, "a.txt", readFile(t, filepath.Join(dir, "n_1.txt")))
}

func TestRenameConflictStrategyFromFlag(t *testing.T) {
	dir := seedDir(t, "b.txt")
	if _, err := os.Stat(filepath.Join(dir, "B.txt")); err == nil {
		t.Skip("case-insensitive filesystem")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "B.txt"), []byte("taken"), 0644))

	_, err := run(t, "rename", dir, "--pattern", "b.txt", "--case", "upper", "--conflict", "rename", "--history-file", historyFile(t))
	require.NoError(t, err)

	assert.Equal(t, "b.txt", readFile(t, filepath.Join(dir, "B_1.txt")))
	assert.Equal(t, "taken", readFile(t, filepath.Join(dir, "B.txt")))
	assert.NoFileExists(t, filepath.Join(dir, "b.txt"))
}

func TestRegexAcceptsCase(t *testing.T) {
	dir := seedDir(t, "img_1.jpg")

	_, err := run(t, "rename", dir, "--regex", "^img", "--replace", "photo", "--case", "upper", "--history-file", historyFile(t))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "PHOTO_1.jpg"))
}

func TestHistoryClear(t *testing.T) {
	dir := seedDir(t, "one.txt")
	hist := historyFile(t)

	_, err := run(t, "rename", dir, "--case", "upper", "--history-file", hist)
	require.NoError(t, err)

	out, err := run(t, "history", "clear", "--history-file", hist)
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared")

	out, err = run(t, "history", "--json", "--history-file", hist)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestRenameValidation(t *testing.T) {
	dir := seedDir(t, "a.txt")
	hist := historyFile(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no transformation", []string{"rename", dir}},
		{"two transformations", []string{"rename", dir, "--regex", "a", "--number"}},
		{"bad date", []string{"rename", dir, "--case", "upper", "--newer-than", "yesterday"}},
		{"bad case", []string{"rename", dir, "--case", "shouty"}},
		{"bad concurrency", []string{"rename", dir, "--case", "upper", "--concurrency", "0"}},
		{"bad strategy", []string{"rename", dir, "--case", "upper", "--conflict", "clobber"}},
		{"bad glob", []string{"rename", dir, "--case", "upper", "--pattern", "["}},
		{"case with template", []string{"rename", dir, "--template", "{name}_x.{ext}", "--case", "upper"}},
		{"case with numbering", []string{"rename", dir, "--number", "--case", "lower"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append(tt.args, "--history-file", hist)...)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
	assert.FileExists(t, filepath.Join(dir, "a.txt"))
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), *got)

	got, err = parseDate("2024-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	_, err = parseDate("03/01/2024")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestLogFileReceivesJSONEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	dir := seedDir(t, "x.txt")
	_, err := run(t, "rename", dir, "--case", "upper", "--log-file", path, "--history-file", historyFile(t))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Starting batch"`)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
