// Package pattern computes new file names. Nothing in here touches the
// filesystem; callers supply everything a name depends on through File.
package pattern

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/raulshma/devbox-sub000/internal/types"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Mode selects the transformation applied to every file of a batch
type Mode string

const (
	ModeRegex     Mode = "regex"
	ModeTemplate  Mode = "template"
	ModeNumbering Mode = "numbering"
	ModeCase      Mode = "case"
)

// File is the input to a name computation
type File struct {
	Path string
	// ModTime is nil when the file was never stat'ed, e.g. for previews.
	ModTime *time.Time
}

// RegexSpec is a pattern/replacement pair with JavaScript-style flags
type RegexSpec struct {
	Pattern     string
	Replacement string
	Flags       string
	// Case optionally recases the stem after substitution.
	Case CaseStyle
}

// Spec describes one batch transformation. Only the field matching Mode is used.
type Spec struct {
	Mode      Mode
	Regex     RegexSpec
	Template  string
	Numbering types.NumberingFormat
	Case      CaseStyle
}

// now is swapped in tests
var now = time.Now

// compiled is a validated Spec ready to produce names
type compiled struct {
	spec   Spec
	re     *regexp.Regexp
	repl   string
	tokens []token
}

func compile(spec Spec) (*compiled, error) {
	c := &compiled{spec: spec}
	switch spec.Mode {
	case ModeRegex:
		re, err := CompileRegex(spec.Regex.Pattern, spec.Regex.Flags)
		if err != nil {
			return nil, err
		}
		if _, err := ParseCaseStyle(string(spec.Regex.Case)); err != nil {
			return nil, err
		}
		c.re = re
		c.repl = translateReplacement(spec.Regex.Replacement)
	case ModeTemplate:
		tokens, err := parseTemplate(spec.Template)
		if err != nil {
			return nil, err
		}
		c.tokens = tokens
	case ModeNumbering:
		if spec.Numbering.Step <= 0 {
			return nil, fmt.Errorf("%w: step must be positive, got %d", ErrNumberingRange, spec.Numbering.Step)
		}
	case ModeCase:
		if spec.Case == CaseNone {
			return nil, fmt.Errorf("%w: case mode requires a case style", ErrInvalidSpec)
		}
		if _, err := ParseCaseStyle(string(spec.Case)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidSpec, spec.Mode)
	}
	return c, nil
}

func (c *compiled) newName(file File, index, total int) string {
	name := filepath.Base(file.Path)
	switch c.spec.Mode {
	case ModeRegex:
		out, _ := applyRegex(c.re, c.repl, name)
		if c.spec.Regex.Case != CaseNone {
			out = ApplyCase(out, c.spec.Regex.Case)
		}
		return out
	case ModeTemplate:
		return renderTemplate(c.tokens, file, index, total)
	case ModeNumbering:
		return numberedName(c.spec.Numbering, name, index)
	case ModeCase:
		return ApplyCase(name, c.spec.Case)
	}
	return name
}

// Validate checks the spec without computing any names
func (s Spec) Validate() error {
	_, err := compile(s)
	return err
}

// ComputeNewName returns the new base name for file, the index-th of total.
func ComputeNewName(file File, spec Spec, index, total int) (string, error) {
	c, err := compile(spec)
	if err != nil {
		return "", err
	}
	if spec.Mode == ModeNumbering {
		if err := checkNumber(spec.Numbering, spec.Numbering.Start+index*spec.Numbering.Step); err != nil {
			return "", err
		}
	}
	return c.newName(file, index, total), nil
}

// ComputeBatch validates spec, then computes one operation per file. For
// numbering, the whole range is checked before any name is produced.
func ComputeBatch(files []File, spec Spec) ([]types.RenameOperation, error) {
	c, err := compile(spec)
	if err != nil {
		return nil, err
	}

	ordered := files
	if spec.Mode == ModeNumbering {
		if err := ValidateNumbering(spec.Numbering, len(files)); err != nil {
			return nil, err
		}
		if spec.Numbering.SortByName {
			ordered = sortByBaseName(files)
		}
	}

	total := len(ordered)
	ops := make([]types.RenameOperation, 0, total)
	for i, f := range ordered {
		ops = append(ops, types.RenameOperation{
			SourcePath:   f.Path,
			OriginalName: filepath.Base(f.Path),
			NewName:      c.newName(f, i, total),
		})
	}
	return ops, nil
}

// sortByBaseName returns a stably sorted copy, ordered by locale collation
func sortByBaseName(files []File) []File {
	sorted := make([]File, len(files))
	copy(sorted, files)
	col := collate.New(language.Und)
	sort.SliceStable(sorted, func(i, j int) bool {
		return col.CompareString(filepath.Base(sorted[i].Path), filepath.Base(sorted[j].Path)) < 0
	})
	return sorted
}

// splitName splits a file name into stem and extension (with the dot).
// Dot files without a further extension are all stem.
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name, ""
	}
	return stem, ext
}
