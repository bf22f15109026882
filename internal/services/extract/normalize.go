package extract

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxPriceLevels = 8

var (
	bulletLine     = regexp.MustCompile(`^[ \t>]*(?:[-*•+]|\d{1,2}[.)]|[a-zA-Z][.)])[ \t]+(.*)$`)
	sentenceSplit  = regexp.MustCompile(`[.!?;][ \t]+|\r?\n+`)
	emphasis       = regexp.MustCompile(`\*{1,3}|_{2,3}|` + "`+")
	headingMarks   = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	starBullets    = regexp.MustCompile(`(?m)^([ \t]*)\*[ \t]+`)
	repeatedBlanks = regexp.MustCompile(`[ \t]{2,}`)
	manyNewlines   = regexp.MustCompile(`\n{3,}`)
	// only connector words may sit between the label and the number
	priceLevel = regexp.MustCompile(`(?i)\b(support|resistance|pivot|level|zone)s?\b[ \t]*(?:[:=@(]|[-–][ \t])?[ \t]*` +
		`(?:(?:is|at|near|around|about|of|the|sits|holds|holding|located|level|zone|area|seen|from)\b[ \t]*)*` +
		`\(?\$?([0-9][0-9,]*(?:\.[0-9]+)?)\b`)
	// numbers that are indicator periods rather than prices
	periodSuffix = regexp.MustCompile(`(?i)^[ \t]*-?[ \t]*(?:day|period|bar|candle|ema|sma|ma|rsi)\b`)
)

var labelPatterns sync.Map // lowercased label -> *regexp.Regexp

// KeywordRule label assigned when any of its keywords occurs in a body.
type KeywordRule struct {
	Label    string
	Keywords []string
}

// KeywordTable ordered classification table; earlier rules win.
type KeywordTable []KeywordRule

// ListItems splits a section body into items. Bullet and numbered lines are
// items and plain lines following them are continuations; without any bullets
// the body is split into sentences. Never returns nil.
func ListItems(body string) []string {
	items := []string{}
	if strings.TrimSpace(body) == "" {
		return items
	}

	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	hasBullets := false
	for _, line := range lines {
		if bulletLine.MatchString(line) {
			hasBullets = true
			break
		}
	}

	var raw []string
	if hasBullets {
		raw = bulletItems(lines)
	} else {
		raw = sentenceSplit.Split(body, -1)
	}

	seen := make(map[string]bool, len(raw))
	for _, item := range raw {
		item = cleanItem(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		items = append(items, item)
	}

	return items
}

// BulletItems is ListItems restricted to bodies that actually contain a list;
// prose without bullets yields an empty slice.
func BulletItems(body string) []string {
	for _, line := range strings.Split(body, "\n") {
		if bulletLine.MatchString(line) {
			return ListItems(body)
		}
	}
	return []string{}
}

// FirstLine returns the first non-blank line of body with emphasis removed.
func FirstLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			line = m[1]
		}
		if line = cleanItem(line); line != "" {
			return line
		}
	}
	return ""
}

// ContainsAny reports whether body holds any keyword as a whole word, ignoring case.
func ContainsAny(body string, keywords []string) bool {
	lower := strings.ToLower(body)
	for _, kw := range keywords {
		if containsWord(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func bulletItems(lines []string) []string {
	var (
		out          []string
		current      strings.Builder
		open         bool
		bulletIndent int
	)

	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
		}
		current.Reset()
		open = false
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			flush()
			current.WriteString(strings.TrimSpace(m[1]))
			open = true
			bulletIndent = indentOf(line)
			continue
		}
		if trimmed == "" {
			flush()
			continue
		}
		// wrapped item text is indented deeper than its bullet
		if open && indentOf(line) > bulletIndent {
			current.WriteByte(' ')
			current.WriteString(trimmed)
			continue
		}
		flush()
		// lead-in lines such as "Observed:" introduce the list
		if strings.HasSuffix(strings.TrimRight(trimmed, "*_ "), ":") {
			continue
		}
		out = append(out, trimmed)
	}
	flush()

	return out
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func cleanItem(item string) string {
	item = emphasis.ReplaceAllString(item, "")
	item = strings.Join(strings.Fields(item), " ")
	return strings.TrimRight(item, ".; ")
}

// LabeledValue finds the first "label: value" line and returns the trimmed value.
func LabeledValue(body, label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" || body == "" {
		return "", false
	}

	re, err := labelPattern(label)
	if err != nil {
		return "", false
	}

	m := re.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}

	value := strings.TrimSpace(emphasis.ReplaceAllString(m[1], ""))
	if value == "" {
		return "", false
	}
	return value, true
}

func labelPattern(label string) (*regexp.Regexp, error) {
	key := strings.ToLower(label)
	if re, ok := labelPatterns.Load(key); ok {
		return re.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(`(?im)^[ \t>]*(?:[-*•+][ \t]+|\d{1,2}[.)][ \t]+)?(?:[*_]{1,3})?[ \t]*` +
		variantPattern(label) + `[ \t]*(?:[*_]{1,3})?[ \t]*(?::|：)(?:[*_]{1,3})?[ \t]*(.*)$`)
	if err != nil {
		return nil, err
	}
	labelPatterns.Store(key, re)
	return re, nil
}

// Classify returns the label of the first rule with a whole-word,
// case-insensitive keyword hit in body, or fallback.
func Classify(body string, table KeywordTable, fallback string) string {
	lower := strings.ToLower(body)
	for _, rule := range table {
		for _, kw := range rule.Keywords {
			if containsWord(lower, strings.ToLower(kw)) {
				return rule.Label
			}
		}
	}
	return fallback
}

func containsWord(haystack, word string) bool {
	if word == "" {
		return false
	}
	from := 0
	for {
		idx := strings.Index(haystack[from:], word)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(word)
		if !wordRuneBefore(haystack, start) && !wordRuneAt(haystack, end) {
			return true
		}
		from = start + 1
	}
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// CleanMarkdown strips emphasis, inline code and heading marks, turns "*"
// bullets into "-" and collapses blank runs while keeping line breaks.
func CleanMarkdown(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = starBullets.ReplaceAllString(text, "$1- ")
	text = headingMarks.ReplaceAllString(text, "")
	text = emphasis.ReplaceAllString(text, "")
	text = repeatedBlanks.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// PriceLevels collects labelled price levels ("Support: 1.16") with numbers
// normalised through decimal, deduplicated and capped.
func PriceLevels(body string) []string {
	levels := []string{}
	seen := map[string]bool{}

	for _, loc := range priceLevel.FindAllStringSubmatchIndex(body, -1) {
		if periodSuffix.MatchString(body[loc[1]:]) {
			continue
		}
		number := strings.ReplaceAll(body[loc[4]:loc[5]], ",", "")
		d, err := decimal.NewFromString(number)
		if err != nil {
			continue
		}
		kind := strings.ToLower(body[loc[2]:loc[3]])
		level := strings.ToUpper(kind[:1]) + kind[1:] + ": " + d.String()
		if seen[level] {
			continue
		}
		seen[level] = true
		levels = append(levels, level)
		if len(levels) == maxPriceLevels {
			break
		}
	}

	return levels
}
