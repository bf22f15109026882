package safety

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/chartsense/internal/domain"
)

var corpus = []string{
	"",
	"   ",
	"Strategy Bias: Bullish, High confidence. Market Structure: uptrend intact, support at 1.16.",
	"You should buy now, price will definitely reach $60,000, guaranteed.",
	"Price may reach $60,000 if momentum continues.",
	"The trend will continue and momentum should stay firm.",
	"Price WILL rise. It Should hold, definitely. Guaranteed!",
	"Buyers won't give up; sellers won’t either.",
	"Enter at $50,000 with a stop loss at $48,000 and take profit at $55,000.",
	"This setup is risk-free and cannot fail.",
	"Price is going to test resistance. We expect a pullback. Clearly overbought.",
	"The market is certainly choppy, undoubtedly so.",
	"RSI may indicate slowing momentum; price could retest support.",
	"\x00\xff garbage \x01",
}

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		confidence float64
		strict     bool
		level      domain.SafetyLevel
		categories []string
	}{
		{
			name:       "structured analysis is safe",
			output:     "Strategy Bias: Bullish, High confidence. Market Structure: uptrend intact, support at 1.16.",
			confidence: 0.9,
			level:      domain.SafetySafe,
			categories: []string{},
		},
		{
			name:       "directive advice with guarantee is blocked with every matched category",
			output:     "You should buy now, price will definitely reach $60,000, guaranteed.",
			confidence: 0.9,
			level:      domain.SafetyBlocked,
			categories: []string{
				"certainty_language",
				"financial_advice",
				"guaranteed_outcome",
				"price_prediction",
				"unhedged_prediction",
			},
		},
		{
			name:       "hedged price mention is safe",
			output:     "Price may reach $60,000 if momentum continues.",
			confidence: 0.7,
			level:      domain.SafetySafe,
			categories: []string{},
		},
		{
			name:       "will followed by a hedge is safe",
			output:     "Price will likely stay in the range.",
			confidence: 0.7,
			level:      domain.SafetySafe,
			categories: []string{},
		},
		{
			name:       "conditional will is safe",
			output:     "If support holds, buyers will step in.",
			confidence: 0.7,
			level:      domain.SafetySafe,
			categories: []string{},
		},
		{
			name:       "unhedged will warns",
			output:     "The trend will continue.",
			confidence: 0.7,
			level:      domain.SafetyWarning,
			categories: []string{"unhedged_prediction"},
		},
		{
			name:       "certainty language warns",
			output:     "This is definitely a bullish setup.",
			confidence: 0.7,
			level:      domain.SafetyWarning,
			categories: []string{"certainty_language"},
		},
		{
			name:       "trade instructions are blocked",
			output:     "Enter at $50,000 with a stop loss at $48,000.",
			confidence: 0.9,
			level:      domain.SafetyBlocked,
			categories: []string{"trade_instruction"},
		},
		{
			name:       "risk-free claim is blocked",
			output:     "The setup is risk-free.",
			confidence: 0.9,
			level:      domain.SafetyBlocked,
			categories: []string{"guaranteed_outcome"},
		},
		{
			name:       "should is only flagged in strict mode (lenient)",
			output:     "Momentum should continue.",
			confidence: 0.7,
			level:      domain.SafetySafe,
			categories: []string{},
		},
		{
			name:       "should is only flagged in strict mode (strict)",
			output:     "Momentum should continue.",
			confidence: 0.7,
			strict:     true,
			level:      domain.SafetyWarning,
			categories: []string{"unhedged_prediction"},
		},
		{
			name:       "low confidence blocks clean text",
			output:     "Neutral structure.",
			confidence: 0.2,
			level:      domain.SafetyBlocked,
			categories: []string{"low_confidence"},
		},
		{
			name:       "empty text with good confidence is safe",
			output:     "",
			confidence: 0.5,
			level:      domain.SafetySafe,
			categories: []string{},
		},
	}

	v := NewValidator(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.output, tt.confidence, tt.strict)
			assert.Equal(t, tt.level, result.Level)
			assert.Equal(t, tt.categories, result.Categories())
			assert.Equal(t, Sanitize(tt.output), result.ModifiedOutput)
			assert.InDelta(t, tt.confidence, result.ConfidenceScore, 1e-9)
		})
	}
}

func TestValidator_HardFloor(t *testing.T) {
	v := NewValidator(nil, nil)

	for _, s := range corpus {
		for _, confidence := range []float64{-1, 0, 0.1, 0.29, 0.2999} {
			for _, strict := range []bool{false, true} {
				result := v.Validate(s, confidence, strict)
				assert.Equal(t, domain.SafetyBlocked, result.Level, "%q at %v", s, confidence)
				assert.True(t, result.TriggeredCategories.Has(domain.CategoryLowConfidence))
			}
		}
	}
}

func TestValidator_NaNConfidence(t *testing.T) {
	v := NewValidator(nil, nil)

	result := v.Validate("Neutral structure.", math.NaN(), false)

	assert.Equal(t, domain.SafetyBlocked, result.Level)
	assert.Equal(t, []string{"low_confidence"}, result.Categories())
	assert.Equal(t, 0.0, result.ConfidenceScore)
}

func TestValidator_ConfidenceClamped(t *testing.T) {
	v := NewValidator(nil, nil)

	assert.Equal(t, 1.0, v.Validate("ok", 7, false).ConfidenceScore)
	assert.Equal(t, 0.0, v.Validate("ok", -2, false).ConfidenceScore)
}

func TestValidator_StrictIsMonotonic(t *testing.T) {
	v := NewValidator(nil, nil)

	for _, s := range corpus {
		for _, confidence := range []float64{0.1, 0.3, 0.5, 0.9} {
			lenient := v.Validate(s, confidence, false)
			strict := v.Validate(s, confidence, true)
			assert.GreaterOrEqual(t, strict.Level.Rank(), lenient.Level.Rank(), "%q at %v", s, confidence)
			for c := range lenient.TriggeredCategories {
				assert.True(t, strict.TriggeredCategories.Has(c))
			}
		}
	}
}

func TestValidator_WithConfidenceFloor(t *testing.T) {
	raised := NewValidator(nil, nil, WithConfidenceFloor(0.5))
	assert.Equal(t, domain.SafetyBlocked, raised.Validate("Neutral structure.", 0.4, false).Level)

	lowered := NewValidator(nil, nil, WithConfidenceFloor(0.1))
	assert.Equal(t, domain.SafetyBlocked, lowered.Validate("Neutral structure.", 0.2, false).Level)
}

func TestValidator_CustomRules(t *testing.T) {
	rules := []Rule{soft("moon", domain.CategoryCertaintyLanguage, `\bto\s+the\s+moon\b`, false, false)}
	v := NewValidator(nil, rules)

	assert.Equal(t, domain.SafetyWarning, v.Validate("BTC to the moon", 0.9, false).Level)
	assert.Equal(t, domain.SafetySafe, v.Validate("You should buy now", 0.9, false).Level)
}

func TestDefaultRules(t *testing.T) {
	names := map[string]bool{}
	hardCategories := map[domain.Category]bool{
		domain.CategoryFinancialAdvice:   true,
		domain.CategoryTradeInstruction:  true,
		domain.CategoryPricePrediction:   true,
		domain.CategoryGuaranteedOutcome: true,
	}

	for _, rule := range DefaultRules() {
		require.NotNil(t, rule.Pattern, rule.Name)
		assert.False(t, names[rule.Name], "duplicate rule %s", rule.Name)
		names[rule.Name] = true

		if hardCategories[rule.Category] {
			assert.Equal(t, domain.SafetyBlocked, rule.Severity, rule.Name)
			assert.False(t, rule.StrictOnly, rule.Name)
		} else {
			assert.Equal(t, domain.SafetyWarning, rule.Severity, rule.Name)
		}
	}
}

func TestValidator_ValidateAndSanitize(t *testing.T) {
	v := NewValidator(nil, nil)

	t.Run("safe output gets a disclaimer", func(t *testing.T) {
		text := "Price may reach $60,000 if momentum continues."
		ok, shown, warnings := v.ValidateAndSanitize(text, 0.7, false)
		assert.True(t, ok)
		assert.Equal(t, Inject(text, PositionTop), shown)
		assert.Empty(t, warnings)
	})

	t.Run("flagged output is sanitized", func(t *testing.T) {
		ok, shown, warnings := v.ValidateAndSanitize("The trend will continue.", 0.7, false)
		assert.True(t, ok)
		assert.Contains(t, shown, "The trend may continue.")
		assert.Equal(t, []string{"Output states future moves without hedging"}, warnings)
	})

	t.Run("existing disclaimer is not duplicated", func(t *testing.T) {
		text := "Not financial advice. Range conditions may persist."
		ok, shown, _ := v.ValidateAndSanitize(text, 0.7, false)
		assert.True(t, ok)
		assert.Equal(t, text, shown)
	})

	t.Run("blocked output never echoes the text", func(t *testing.T) {
		ok, shown, warnings := v.ValidateAndSanitize("You should buy now, guaranteed.", 0.9, false)
		assert.False(t, ok)
		assert.Contains(t, shown, "Analysis Blocked")
		assert.Contains(t, shown, "Financial Advice")
		assert.Contains(t, shown, "Guaranteed Outcome")
		assert.NotContains(t, shown, "buy now")
		assert.Contains(t, warnings, "Output contains language suggesting guaranteed outcomes")
	})

	t.Run("low confidence shows the unavailable notice", func(t *testing.T) {
		ok, shown, warnings := v.ValidateAndSanitize("Neutral structure.", 0.1, false)
		assert.False(t, ok)
		assert.Equal(t, LowConfidenceMessage(), shown)
		assert.Equal(t, []string{"Analysis confidence is too low for safe display"}, warnings)
	})
}
