package domain

import (
	"encoding/json"
	"sort"
)

// SafetyLevel outcome of a safety validation.
type SafetyLevel string

const (
	SafetySafe    SafetyLevel = "safe"
	SafetyWarning SafetyLevel = "warning"
	SafetyBlocked SafetyLevel = "blocked"
)

// Rank orders levels SAFE < WARNING < BLOCKED.
func (l SafetyLevel) Rank() int {
	switch l {
	case SafetyWarning:
		return 1
	case SafetyBlocked:
		return 2
	default:
		return 0
	}
}

// Max returns the stricter of two levels.
func (l SafetyLevel) Max(other SafetyLevel) SafetyLevel {
	if other.Rank() > l.Rank() {
		return other
	}
	if l == "" {
		return SafetySafe
	}
	return l
}

// Category safety rule category.
type Category string

const (
	CategoryFinancialAdvice    Category = "financial_advice"
	CategoryTradeInstruction   Category = "trade_instruction"
	CategoryPricePrediction    Category = "price_prediction"
	CategoryGuaranteedOutcome  Category = "guaranteed_outcome"
	CategoryUnhedgedPrediction Category = "unhedged_prediction"
	CategoryCertaintyLanguage  Category = "certainty_language"
	CategoryLowConfidence      Category = "low_confidence"
)

// Title returns a human readable category name.
func (c Category) Title() string {
	switch c {
	case CategoryFinancialAdvice:
		return "Financial Advice"
	case CategoryTradeInstruction:
		return "Trade Instruction"
	case CategoryPricePrediction:
		return "Price Prediction"
	case CategoryGuaranteedOutcome:
		return "Guaranteed Outcome"
	case CategoryUnhedgedPrediction:
		return "Unhedged Prediction"
	case CategoryCertaintyLanguage:
		return "Certainty Language"
	case CategoryLowConfidence:
		return "Low Confidence"
	default:
		return string(c)
	}
}

// CategorySet set of triggered categories.
type CategorySet map[Category]struct{}

// Add inserts a category.
func (s CategorySet) Add(c Category) {
	s[c] = struct{}{}
}

// Has reports whether c is in the set.
func (s CategorySet) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns categories in lexical order.
func (s CategorySet) Sorted() []Category {
	out := make([]Category, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns sorted category names.
func (s CategorySet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, c := range sorted {
		out[i] = string(c)
	}
	return out
}

// MarshalJSON encodes the set as a sorted list.
func (s CategorySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// SafetyResult classification of one output text.
type SafetyResult struct {
	Level               SafetyLevel `json:"level"`
	ModifiedOutput      string      `json:"modified_output"`
	TriggeredCategories CategorySet `json:"triggered_categories"`
	ConfidenceScore     float64     `json:"confidence_score"`
}

// Categories returns the triggered categories as sorted strings.
func (r SafetyResult) Categories() []string {
	return r.TriggeredCategories.Strings()
}
