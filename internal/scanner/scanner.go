package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raulshma/devbox-sub000/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Criteria selects the files a batch works on
type Criteria struct {
	Root string
	// Pattern is a glob matched against base names; empty means "*".
	Pattern string
	// MaxDepth limits recursion; files directly under Root are depth 1 and
	// zero means unlimited.
	MaxDepth      int
	MinSize       int64
	MaxSize       int64
	NewerThan     *time.Time
	OlderThan     *time.Time
	Include       []string
	Exclude       []string
	IncludeHidden bool
}

// Scanner handles file discovery
type Scanner struct {
	fs       afero.Fs
	RootPath string
	criteria Criteria
}

// skipDirs are never descended into
var skipDirs = []string{"node_modules", ".git", "__pycache__"}

// New creates a new Scanner, validating the root and every glob up front
func New(fs afero.Fs, c Criteria) (*Scanner, error) {
	root := c.Root
	if root == "" {
		root = "."
	}
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := fs.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	if c.Pattern == "" {
		c.Pattern = "*"
	}
	for _, glob := range append(append([]string{c.Pattern}, c.Include...), c.Exclude...) {
		if _, err := filepath.Match(glob, ""); err != nil {
			return nil, fmt.Errorf("%w: bad glob %q: %v", types.ErrValidation, glob, err)
		}
	}

	return &Scanner{fs: fs, RootPath: absPath, criteria: c}, nil
}

// Discover returns the absolute paths of the files selected by c, in
// lexical order
func Discover(fs afero.Fs, c Criteria) ([]string, error) {
	s, err := New(fs, c)
	if err != nil {
		return nil, err
	}
	return s.Scan()
}

// Scan walks the directory tree and returns the matching files
func (s *Scanner) Scan() ([]string, error) {
	var files []string

	err := afero.Walk(s.fs, s.RootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error accessing path")
			return nil // Continue walking
		}
		if path == s.RootPath {
			return nil
		}

		relPath, err := filepath.Rel(s.RootPath, path)
		if err != nil {
			return nil
		}
		depth := len(strings.Split(relPath, string(os.PathSeparator)))

		if info.IsDir() {
			if s.shouldSkip(info.Name(), true) || (s.criteria.MaxDepth > 0 && depth >= s.criteria.MaxDepth) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.criteria.MaxDepth > 0 && depth > s.criteria.MaxDepth {
			return nil
		}
		if s.shouldSkip(info.Name(), false) || !s.matches(info) {
			return nil
		}

		files = append(files, path)
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Debug().Int("count", len(files)).Str("root", s.RootPath).Msg("Scanner found files")
	return files, nil
}

func (s *Scanner) matches(info os.FileInfo) bool {
	c := s.criteria
	name := info.Name()

	if ok, _ := filepath.Match(c.Pattern, name); !ok {
		return false
	}
	if len(c.Include) > 0 && !matchAny(c.Include, name) {
		return false
	}
	if c.MinSize > 0 && info.Size() < c.MinSize {
		return false
	}
	if c.MaxSize > 0 && info.Size() > c.MaxSize {
		return false
	}
	if c.NewerThan != nil && !info.ModTime().After(*c.NewerThan) {
		return false
	}
	if c.OlderThan != nil && !info.ModTime().Before(*c.OlderThan) {
		return false
	}
	return true
}

func (s *Scanner) shouldSkip(name string, isDir bool) bool {
	// Skip hidden files/folders
	if !s.criteria.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if matchAny(s.criteria.Exclude, name) {
		return true
	}

	if isDir {
		for _, d := range skipDirs {
			if name == d {
				return true
			}
		}
	}
	return false
}

func matchAny(globs []string, name string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}
