package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// flagOrder is the canonical order of accepted flags
const flagOrder = "gimsu"

// NormalizeFlags deduplicates flags and forces "g" on. Replacement is always
// global, so a missing "g" would only make results depend on flag spelling.
func NormalizeFlags(flags string) (string, error) {
	seen := map[rune]bool{'g': true}
	for _, r := range flags {
		if !strings.ContainsRune(flagOrder, r) {
			return "", fmt.Errorf("%w: unsupported flag %q", ErrInvalidPattern, r)
		}
		seen[r] = true
	}

	var b strings.Builder
	for _, r := range flagOrder {
		if seen[r] {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// CompileRegex compiles pattern with normalized flags
func CompileRegex(pattern, flags string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	normalized, err := NormalizeFlags(flags)
	if err != nil {
		return nil, err
	}

	// u is implicit: Go regexps always match UTF-8 code points.
	var inline strings.Builder
	for _, r := range normalized {
		switch r {
		case 'i', 'm', 's':
			inline.WriteRune(r)
		}
	}
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	return re, nil
}

// ApplyRegex replaces every match in name. matched is false when the name
// is returned unchanged because nothing matched.
func ApplyRegex(name, pattern, replacement, flags string) (string, bool, error) {
	re, err := CompileRegex(pattern, flags)
	if err != nil {
		return "", false, err
	}
	out, matched := applyRegex(re, translateReplacement(replacement), name)
	return out, matched, nil
}

func applyRegex(re *regexp.Regexp, repl, name string) (string, bool) {
	if !re.MatchString(name) {
		return name, false
	}
	return re.ReplaceAllString(name, repl), true
}

// translateReplacement rewrites $1, $&, $<name> into the braced ${...}
// form so "$1x" cannot be read as a group named "1x".
func translateReplacement(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(repl) {
			b.WriteString("$$")
			continue
		}

		next := repl[i+1]
		switch {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '&':
			b.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(repl) && j < i+3 && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			b.WriteString("${" + repl[i+1:j] + "}")
			i = j - 1
		case next == '<':
			end := strings.IndexByte(repl[i+2:], '>')
			if end < 0 {
				b.WriteString("$$")
				continue
			}
			b.WriteString("${" + repl[i+2:i+2+end] + "}")
			i += 2 + end
		case next == '{':
			end := strings.IndexByte(repl[i+2:], '}')
			if end < 0 {
				b.WriteString("$$")
				continue
			}
			b.WriteString(repl[i : i+3+end])
			i += 2 + end
		default:
			b.WriteString("$$")
		}
	}
	return b.String()
}
