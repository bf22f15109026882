package safety

import (
	"math"
	"strings"
)

var probabilisticTerms = []string{
	"may", "might", "could", "suggests", "indicates", "appears",
	"typically", "often", "sometimes", "potentially", "possible",
}

// AssessConfidence scores how safely an analysis can be shown, from the
// model's own confidence label and how much probabilistic language it uses.
// The result is in [0, 1].
func AssessConfidence(text, label string) float64 {
	score := 0.5
	switch l := strings.ToLower(label); {
	case strings.Contains(l, "high"):
		score = 0.8
	case strings.Contains(l, "medium"), strings.Contains(l, "moderate"):
		score = 0.5
	case strings.Contains(l, "low"):
		score = 0.2
	}

	present := map[string]bool{}
	for _, w := range words(text) {
		present[w] = true
	}

	count := 0
	for _, term := range probabilisticTerms {
		if present[term] {
			count++
		}
	}

	switch {
	case count >= 3:
		score += 0.2
	case count == 0:
		score -= 0.3
	}

	return clamp(score)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
