// Package safety gates model output before it reaches a user: it classifies
// text against a table of prohibited-language rules, rewrites deterministic
// phrasing into hedged phrasing and wraps output in disclaimers.
package safety

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/vadiminshakov/chartsense/internal/domain"
)

// Rule one prohibited-language pattern.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Category domain.Category
	Severity domain.SafetyLevel
	// StrictOnly rules run in strict mode only.
	StrictOnly bool
	// Hedgeable rules do not count when the sentence hedges the match.
	Hedgeable bool
}

var hedgeWords = map[string]bool{
	"may": true, "might": true, "could": true, "possibly": true, "likely": true,
	"probably": true, "perhaps": true, "potentially": true, "if": true, "unless": true,
}

var hedgingFollowers = map[string]bool{
	"likely": true, "probably": true, "possibly": true, "potentially": true,
}

func hard(name string, category domain.Category, pattern string) Rule {
	return Rule{
		Name:     name,
		Pattern:  regexp.MustCompile(`(?i)` + pattern),
		Category: category,
		Severity: domain.SafetyBlocked,
	}
}

func soft(name string, category domain.Category, pattern string, strictOnly, hedgeable bool) Rule {
	return Rule{
		Name:       name,
		Pattern:    regexp.MustCompile(`(?i)` + pattern),
		Category:   category,
		Severity:   domain.SafetyWarning,
		StrictOnly: strictOnly,
		Hedgeable:  hedgeable,
	}
}

// DefaultRules returns the built-in rule table. No rule matches any word that
// Sanitize produces.
func DefaultRules() []Rule {
	return []Rule{
		hard("directive_advice", domain.CategoryFinancialAdvice,
			`\b(?:you|we|i)\s+(?:should|must|need\s+to|ought\s+to)\s+(?:buy|sell|short|long|enter|exit|go\s+long|go\s+short)\b`),
		hard("personal_recommendation", domain.CategoryFinancialAdvice,
			`\bi\s+(?:recommend|suggest|advise)\s+(?:buying|selling|shorting|going\s+long|going\s+short|you\s+buy|you\s+sell)\b`),
		hard("immediate_action", domain.CategoryFinancialAdvice,
			`\b(?:buy|sell|short)\s+(?:right\s+now|now|immediately|here)\b`),
		hard("call_to_trade", domain.CategoryFinancialAdvice,
			`\b(?:this\s+is|it's|it\s+is)\s+a\s+(?:strong\s+)?(?:buy|sell)\b`),

		hard("order_at_price", domain.CategoryTradeInstruction,
			`\b(?:enter|exit|buy|sell|short|long)\s+at\s+\$?\d`),
		hard("stop_loss_level", domain.CategoryTradeInstruction,
			`\bstop[\s-]*loss\s*(?:at|:|@)?\s*\$?\d`),
		hard("take_profit_level", domain.CategoryTradeInstruction,
			`\btake[\s-]*profit\s*(?:\d\s*)?(?:at|:|@)?\s*\$?\d`),
		hard("position_size", domain.CategoryTradeInstruction,
			`\bposition\s+siz(?:e|ing)\s*:?\s*\$?\d`),
		hard("risk_to_make", domain.CategoryTradeInstruction,
			`\brisk\s+\$?\d[\d,.]*%?\s+to\s+(?:make|gain)\s+\$?\d`),
		hard("price_target", domain.CategoryTradeInstruction,
			`\btargets?\s*:?\s*\$?\d`),

		hard("will_reach_price", domain.CategoryPricePrediction,
			`\bwill\s+(?:definitely\s+|certainly\s+|surely\s+)?(?:reach|hit|test|go\s+to|move\s+to|rise\s+to|fall\s+to|drop\s+to|climb\s+to)\s+\$?\d`),
		hard("price_will", domain.CategoryPricePrediction,
			`\bprice\s+will\s+(?:be|reach|hit|go|rise|fall|drop)\b`),
		hard("heading_to_price", domain.CategoryPricePrediction,
			`\b(?:going|heading)\s+to\s+\$?\d`),
		hard("expect_price", domain.CategoryPricePrediction,
			`\bexpect\s+(?:the\s+)?(?:price|it)\s+to\s+(?:reach|hit|be)\b`),

		hard("guarantee", domain.CategoryGuaranteedOutcome,
			`\bguarantee(?:d|s)?\b`),
		hard("absolute_certainty", domain.CategoryGuaranteedOutcome,
			`\b100\s*%\s*(?:certain|sure|guaranteed|accurate)`),
		hard("riskless", domain.CategoryGuaranteedOutcome,
			`\b(?:risk[\s-]free|no\s+risk|sure\s+thing|can(?:not|'t)\s+(?:fail|lose)|can't\s+go\s+wrong)\b`),
		hard("will_certainly", domain.CategoryGuaranteedOutcome,
			`\bwill\s+(?:definitely|certainly|surely|undoubtedly)\b`),
		hard("always_works", domain.CategoryGuaranteedOutcome,
			`\b(?:always|never)\s+(?:works|fails)\b`),

		soft("unhedged_will", domain.CategoryUnhedgedPrediction, `\bwill\b`, false, true),
		soft("unhedged_wont", domain.CategoryUnhedgedPrediction, `\bwon['’]t\b`, false, true),
		soft("certainty_words", domain.CategoryCertaintyLanguage,
			`\b(?:definitely|certainly|undoubtedly|without\s+(?:a\s+)?doubt)\b`, false, false),

		soft("unhedged_should", domain.CategoryUnhedgedPrediction, `\bshould\b`, true, true),
		soft("going_to", domain.CategoryUnhedgedPrediction, `\b(?:is|are)\s+going\s+to\b`, true, true),
		soft("expectation", domain.CategoryUnhedgedPrediction, `\bexpect(?:s|ed)?\b`, true, true),
		soft("strong_certainty", domain.CategoryCertaintyLanguage,
			`\b(?:certain|obviously|clearly|surely|must|sure)\b`, true, false),
	}
}

// matches reports whether the rule fires anywhere in text.
func (r Rule) matches(text string) bool {
	if !r.Hedgeable {
		return r.Pattern.MatchString(text)
	}
	for _, loc := range r.Pattern.FindAllStringIndex(text, -1) {
		if !hedged(text, loc[0], loc[1]) {
			return true
		}
	}
	return false
}

// hedged reports whether the sentence holding text[start:end] hedges it, either
// before the match or with the word right after it ("will likely").
func hedged(text string, start, end int) bool {
	sentenceStart := strings.LastIndexAny(text[:start], ".!?;\n") + 1
	for _, w := range words(text[sentenceStart:start]) {
		if hedgeWords[w] {
			return true
		}
	}

	rest := text[end:]
	if len(rest) > 32 {
		rest = rest[:32]
	}
	next := words(rest)
	return len(next) > 0 && hedgingFollowers[next[0]]
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
