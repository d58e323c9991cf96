package pattern

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	placeholderNameRegex   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	placeholderFormatRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	digitsRegex            = regexp.MustCompile(`^[0-9]+$`)
)

// token is either literal text or a placeholder
type token struct {
	literal string
	raw     string
	name    string
	format  string
	isVar   bool
}

// ValidateTemplate checks brace balance and placeholder syntax
func ValidateTemplate(template string) error {
	_, err := parseTemplate(template)
	return err
}

func parseTemplate(template string) ([]token, error) {
	if template == "" {
		return nil, fmt.Errorf("%w: empty template", ErrInvalidTemplate)
	}

	var tokens []token
	var lit strings.Builder
	open := -1

	for i, r := range template {
		switch r {
		case '{':
			if open >= 0 {
				return nil, fmt.Errorf("%w: nested '{' at offset %d", ErrInvalidTemplate, i)
			}
			if lit.Len() > 0 {
				tokens = append(tokens, token{literal: lit.String()})
				lit.Reset()
			}
			open = i
		case '}':
			if open < 0 {
				return nil, fmt.Errorf("%w: unmatched '}' at offset %d", ErrInvalidTemplate, i)
			}
			tok, err := parsePlaceholder(template[open : i+1])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			open = -1
		default:
			if open < 0 {
				lit.WriteRune(r)
			}
		}
	}

	if open >= 0 {
		return nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrInvalidTemplate, open)
	}
	if lit.Len() > 0 {
		tokens = append(tokens, token{literal: lit.String()})
	}
	return tokens, nil
}

func parsePlaceholder(raw string) (token, error) {
	body := raw[1 : len(raw)-1]
	name, format, hasFormat := strings.Cut(body, ":")
	if !placeholderNameRegex.MatchString(name) {
		return token{}, fmt.Errorf("%w: illegal placeholder name in %s", ErrInvalidTemplate, raw)
	}
	if hasFormat && !placeholderFormatRegex.MatchString(format) {
		return token{}, fmt.Errorf("%w: illegal format in %s", ErrInvalidTemplate, raw)
	}
	return token{raw: raw, name: name, format: format, isVar: true}, nil
}

func renderTemplate(tokens []token, file File, index, total int) string {
	var b strings.Builder
	for _, tok := range tokens {
		if !tok.isVar {
			b.WriteString(tok.literal)
			continue
		}
		value, ok := resolvePlaceholder(tok.name, file, index)
		if ok && tok.name == "ext" && value == "" {
			// No extension: drop the dot that would have led into it.
			trimmed := strings.TrimSuffix(b.String(), ".")
			b.Reset()
			b.WriteString(trimmed)
			continue
		}
		if !ok {
			// Unknown names are kept as typed.
			b.WriteString(tok.raw)
			continue
		}
		formatted, ok := applyFormat(value, tok.format, total)
		if !ok {
			b.WriteString(tok.raw)
			continue
		}
		b.WriteString(formatted)
	}
	return b.String()
}

func resolvePlaceholder(name string, file File, index int) (string, bool) {
	base := filepath.Base(file.Path)
	stem, ext := splitName(base)

	mtime := now()
	if file.ModTime != nil {
		mtime = *file.ModTime
	}

	switch name {
	case "name":
		return stem, true
	case "ext":
		return strings.TrimPrefix(ext, "."), true
	case "filename":
		return base, true
	case "parent":
		return filepath.Base(filepath.Dir(file.Path)), true
	case "counter":
		return strconv.Itoa(index + 1), true
	case "index":
		return strconv.Itoa(index), true
	case "date":
		return mtime.Format("2006-01-02"), true
	case "time":
		return mtime.Format("15-04-05"), true
	case "year":
		return mtime.Format("2006"), true
	case "month":
		return mtime.Format("01"), true
	case "day":
		return mtime.Format("02"), true
	case "hour":
		return mtime.Format("15"), true
	case "minute":
		return mtime.Format("04"), true
	case "second":
		return mtime.Format("05"), true
	case "timestamp":
		return strconv.FormatInt(mtime.Unix(), 10), true
	}
	return "", false
}

// applyFormat runs value through a named format. ok is false for formats
// nobody recognises so the caller can keep the placeholder verbatim.
func applyFormat(value, format string, total int) (string, bool) {
	switch {
	case format == "":
		return value, true
	case format == "pad":
		return zeroPad(value, len(strconv.Itoa(total))), true
	case digitsRegex.MatchString(format):
		width, err := strconv.Atoi(format)
		if err != nil {
			return "", false
		}
		return zeroPad(value, width), true
	}

	style, err := ParseCaseStyle(format)
	if err != nil || style == CaseNone {
		return "", false
	}
	return ConvertCase(value, style), true
}

// zeroPad left-pads numeric values; other values pass through
func zeroPad(value string, width int) string {
	if !digitsRegex.MatchString(value) || len(value) >= width {
		return value
	}
	return strings.Repeat("0", width-len(value)) + value
}
