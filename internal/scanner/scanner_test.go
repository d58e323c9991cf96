package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0644))
	}
	return fs
}

func TestScannerMatchesPattern(t *testing.T) {
	fs := tree(t, map[string]string{
		"/lib/b.pdf":     "b",
		"/lib/a.pdf":     "a",
		"/lib/notes.txt": "n",
	})

	files, err := Discover(fs, Criteria{Root: "/lib", Pattern: "*.pdf"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/lib/a.pdf", "/lib/b.pdf"}, files)
}

func TestScannerRespectsMaxDepth(t *testing.T) {
	fs := tree(t, map[string]string{
		"/lib/top.txt":          "t",
		"/lib/one/mid.txt":      "m",
		"/lib/one/two/deep.txt": "d",
	})

	files, err := Discover(fs, Criteria{Root: "/lib", MaxDepth: 1})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/lib/top.txt"}, files)

	files, err = Discover(fs, Criteria{Root: "/lib", MaxDepth: 2})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/lib/one/mid.txt", "/lib/top.txt"}, files)

	files, err = Discover(fs, Criteria{Root: "/lib"})
	assert.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScannerSkipsHiddenFiles(t *testing.T) {
	fs := tree(t, map[string]string{
		"/lib/.hidden.pdf":       "h",
		"/lib/.cache/inside.pdf": "c",
		"/lib/node_modules/x.js": "x",
		"/lib/shown.pdf":         "s",
	})

	files, err := Discover(fs, Criteria{Root: "/lib"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/lib/shown.pdf"}, files)

	files, err = Discover(fs, Criteria{Root: "/lib", IncludeHidden: true})
	assert.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScannerIncludeExclude(t *testing.T) {
	fs := tree(t, map[string]string{
		"/lib/a.jpg":         "a",
		"/lib/b.png":         "b",
		"/lib/c.gif":         "c",
		"/lib/skip/d.jpg":    "d",
		"/lib/draft_e.jpg":   "e",
		"/lib/keep/f.png":    "f",
		"/lib/keep/draft.md": "g",
	})

	files, err := Discover(fs, Criteria{
		Root:    "/lib",
		Include: []string{"*.jpg", "*.png"},
		Exclude: []string{"skip", "draft*"},
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/lib/a.jpg", "/lib/b.png", "/lib/keep/f.png"}, files)
}

func TestScannerSizeAndDateFilters(t *testing.T) {
	fs := tree(t, map[string]string{
		"/lib/small.txt": "x",
		"/lib/large.txt": "xxxxxxxxxx",
		"/lib/old.txt":   "xxxxx",
	})
	old := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/lib/old.txt", old, old))
	require.NoError(t, fs.Chtimes("/lib/small.txt", recent, recent))
	require.NoError(t, fs.Chtimes("/lib/large.txt", recent, recent))

	files, err := Discover(fs, Criteria{Root: "/lib", MinSize: 2, MaxSize: 5})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/lib/old.txt"}, files)

	cutoff := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	files, err = Discover(fs, Criteria{Root: "/lib", NewerThan: &cutoff})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/lib/large.txt", "/lib/small.txt"}, files)

	files, err = Discover(fs, Criteria{Root: "/lib", OlderThan: &cutoff})
	assert.NoError(t, err)
	assert.Equal(t, []string{"/lib/old.txt"}, files)
}

func TestScannerRejectsBadInput(t *testing.T) {
	fs := tree(t, map[string]string{"/lib/a.txt": "a"})

	_, err := New(fs, Criteria{Root: "/lib", Pattern: "[a-"})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = New(fs, Criteria{Root: "/lib/a.txt"})
	assert.Error(t, err)

	_, err = New(fs, Criteria{Root: "/nowhere"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScannerOnDisk(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "test_book.pdf"), []byte("content"), 0644)
	assert.NoError(t, err)

	scanner, err := New(afero.NewOsFs(), Criteria{Root: tmpDir, MaxDepth: 1})
	assert.NoError(t, err)

	files, err := scanner.Scan()
	assert.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tmpDir, "test_book.pdf")}, files)
}
