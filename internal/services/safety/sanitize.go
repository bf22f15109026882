package safety

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// replacement words never appear on the left-hand side, so a second pass is a no-op.
var substitutions = map[string]string{
	"will":        "may",
	"won't":       "may not",
	"should":      "could",
	"definitely":  "potentially",
	"certainly":   "possibly",
	"undoubtedly": "potentially",
	"guaranteed":  "possible",
}

var substitutable = regexp.MustCompile(`(?i)\b(?:will|won['’]t|should|definitely|certainly|undoubtedly|guaranteed)\b`)

// Sanitize rewrites deterministic phrasing into hedged phrasing, word by word,
// preserving the case of each replaced word.
func Sanitize(text string) string {
	return substitutable.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.ToLower(strings.ReplaceAll(match, "’", "'"))
		replacement, ok := substitutions[key]
		if !ok {
			return match
		}
		return matchCase(match, replacement)
	})
}

func matchCase(original, replacement string) string {
	letters := 0
	upper := 0
	for _, r := range original {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}

	switch {
	case letters > 1 && upper == letters:
		return strings.ToUpper(replacement)
	case startsUpper(original):
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	default:
		return replacement
	}
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// SanitizeTree returns a copy of a display tree with Sanitize applied to every
// string leaf. Non-string leaves are returned unchanged.
func SanitizeTree(node any) any {
	switch v := node.(type) {
	case string:
		return Sanitize(v)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = Sanitize(s)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = Sanitize(s)
		}
		return out
	case []map[string]string:
		out := make([]map[string]string, len(v))
		for i, m := range v {
			out[i] = SanitizeTree(m).(map[string]string)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = SanitizeTree(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = SanitizeTree(child)
		}
		return out
	default:
		return node
	}
}
