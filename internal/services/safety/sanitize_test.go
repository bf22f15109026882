package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/chartsense/internal/domain"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "case preserved",
			input:    "Price WILL rise. It Should hold, definitely. Guaranteed!",
			expected: "Price MAY rise. It Could hold, potentially. Possible!",
		},
		{
			name:     "contractions",
			input:    "Buyers won't give up; sellers won’t either.",
			expected: "Buyers may not give up; sellers may not either.",
		},
		{
			name:     "whole words only",
			input:    "Willpower and goodwill shouldered the load.",
			expected: "Willpower and goodwill shouldered the load.",
		},
		{
			name:     "certainty words",
			input:    "certainly and undoubtedly",
			expected: "possibly and potentially",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	for _, s := range corpus {
		once := Sanitize(s)
		assert.Equal(t, once, Sanitize(once), "%q", s)
	}
}

func TestSanitize_AddsNoHardMatches(t *testing.T) {
	for _, s := range corpus {
		sanitized := Sanitize(s)
		for _, rule := range DefaultRules() {
			if rule.Severity != domain.SafetyBlocked {
				continue
			}
			if rule.matches(sanitized) {
				assert.True(t, rule.matches(s), "rule %s introduced by sanitizing %q", rule.Name, s)
			}
		}
	}
}

func TestSanitizeTree(t *testing.T) {
	tree := map[string]any{
		"vision": map[string]any{
			"momentum":   "Momentum will fade",
			"indicators": []string{"RSI will rise", "MACD flat"},
		},
		"analysis": map[string]any{
			"approaches": map[string]any{
				"options":     []map[string]string{{"name": "Trend", "rationale": "It should work"}},
				"recommended": nil,
			},
		},
		"count": 3,
		"mixed": []any{"definitely", 1.5},
	}

	got, ok := SanitizeTree(tree).(map[string]any)
	require.True(t, ok)

	vision := got["vision"].(map[string]any)
	assert.Equal(t, "Momentum may fade", vision["momentum"])
	assert.Equal(t, []string{"RSI may rise", "MACD flat"}, vision["indicators"])

	approaches := got["analysis"].(map[string]any)["approaches"].(map[string]any)
	assert.Equal(t, []map[string]string{{"name": "Trend", "rationale": "It could work"}}, approaches["options"])
	assert.Nil(t, approaches["recommended"])

	assert.Equal(t, 3, got["count"])
	assert.Equal(t, []any{"potentially", 1.5}, got["mixed"])

	// input untouched
	assert.Equal(t, "Momentum will fade", tree["vision"].(map[string]any)["momentum"])
}
