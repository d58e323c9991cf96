package pattern

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CaseStyle is a string-casing transform
type CaseStyle string

const (
	CaseNone     CaseStyle = ""
	CaseLower    CaseStyle = "lower"
	CaseUpper    CaseStyle = "upper"
	CaseTitle    CaseStyle = "title"
	CaseSentence CaseStyle = "sentence"
	CaseCamel    CaseStyle = "camel"
	CasePascal   CaseStyle = "pascal"
	CaseSnake    CaseStyle = "snake"
	CaseKebab    CaseStyle = "kebab"
)

var caseStyles = []CaseStyle{CaseLower, CaseUpper, CaseTitle, CaseSentence, CaseCamel, CasePascal, CaseSnake, CaseKebab}

// ParseCaseStyle accepts "" (no conversion) or one of the known styles
func ParseCaseStyle(s string) (CaseStyle, error) {
	style := CaseStyle(strings.ToLower(strings.TrimSpace(s)))
	if style == CaseNone {
		return CaseNone, nil
	}
	for _, known := range caseStyles {
		if style == known {
			return style, nil
		}
	}
	return CaseNone, fmt.Errorf("%w: %q", ErrUnknownCase, s)
}

// ApplyCase recases the stem of a file name and leaves the extension alone
func ApplyCase(name string, style CaseStyle) string {
	stem, ext := splitName(name)
	return ConvertCase(stem, style) + ext
}

// ConvertCase recases s. Unknown styles return s unchanged.
func ConvertCase(s string, style CaseStyle) string {
	// Casers carry state, so each call gets its own.
	switch style {
	case CaseLower:
		return cases.Lower(language.Und).String(s)
	case CaseUpper:
		return cases.Upper(language.Und).String(s)
	case CaseTitle:
		return cases.Title(language.Und).String(s)
	case CaseSentence:
		lower := []rune(cases.Lower(language.Und).String(s))
		for i, r := range lower {
			if unicode.IsLetter(r) {
				lower[i] = unicode.ToUpper(r)
				break
			}
		}
		return string(lower)
	case CaseCamel, CasePascal:
		words := splitWords(s)
		title := cases.Title(language.Und)
		lower := cases.Lower(language.Und)
		for i, w := range words {
			if i == 0 && style == CaseCamel {
				words[i] = lower.String(w)
			} else {
				words[i] = title.String(w)
			}
		}
		return strings.Join(words, "")
	case CaseSnake:
		return joinLower(splitWords(s), "_")
	case CaseKebab:
		return joinLower(splitWords(s), "-")
	}
	return s
}

func joinLower(words []string, sep string) string {
	lower := cases.Lower(language.Und)
	for i, w := range words {
		words[i] = lower.String(w)
	}
	return strings.Join(words, sep)
}

// splitWords breaks s on separators and on case boundaries:
// "myHTTPServer v2" -> [my HTTP Server v2].
func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
