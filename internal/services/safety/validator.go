package safety

import (
	"math"

	"github.com/vadiminshakov/chartsense/internal/domain"
	"go.uber.org/zap"
)

// DefaultConfidenceFloor confidence below which output is always blocked.
const DefaultConfidenceFloor = 0.3

// Validator classifies output text against a rule table. Safe for concurrent use.
type Validator struct {
	logger *zap.Logger
	rules  []Rule
	floor  float64
}

// Option configures a Validator.
type Option func(*Validator)

// WithConfidenceFloor raises the confidence floor. Values below
// DefaultConfidenceFloor are ignored so the floor can only get stricter.
func WithConfidenceFloor(floor float64) Option {
	return func(v *Validator) {
		if floor > DefaultConfidenceFloor && floor <= 1 {
			v.floor = floor
		}
	}
}

// NewValidator creates a validator. A nil rules slice means DefaultRules.
func NewValidator(logger *zap.Logger, rules []Rule, opts ...Option) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rules == nil {
		rules = DefaultRules()
	}

	v := &Validator{
		logger: logger,
		rules:  append([]Rule(nil), rules...),
		floor:  DefaultConfidenceFloor,
	}
	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate classifies output. Every matching rule contributes its category and
// the most severe rule decides the level; confidence under the floor (or NaN)
// blocks regardless of the text. Strict mode only adds rules.
func (v *Validator) Validate(output string, confidence float64, strict bool) domain.SafetyResult {
	categories := domain.CategorySet{}
	level := domain.SafetySafe

	for _, rule := range v.rules {
		if rule.StrictOnly && !strict {
			continue
		}
		if !rule.matches(output) {
			continue
		}

		categories.Add(rule.Category)
		level = level.Max(rule.Severity)

		v.logger.Debug("safety rule matched",
			zap.String("rule", rule.Name),
			zap.String("category", string(rule.Category)),
			zap.String("severity", string(rule.Severity)))
	}

	if math.IsNaN(confidence) || confidence < v.floor {
		categories.Add(domain.CategoryLowConfidence)
		level = domain.SafetyBlocked
	}

	if level == domain.SafetyBlocked {
		v.logger.Warn("output blocked",
			zap.Strings("categories", categories.Strings()),
			zap.Float64("confidence", confidence))
	}

	return domain.SafetyResult{
		Level:               level,
		ModifiedOutput:      Sanitize(output),
		TriggeredCategories: categories,
		ConfidenceScore:     clamp(confidence),
	}
}

// ValidateAndSanitize validates output and prepares what may be shown: the
// blocked or low-confidence notice when blocked, otherwise the (sanitized when
// flagged) text with a disclaimer. Warnings describe each triggered category.
func (v *Validator) ValidateAndSanitize(output string, confidence float64, strict bool) (bool, string, []string) {
	result := v.Validate(output, confidence, strict)
	warnings := Warnings(result.TriggeredCategories)

	if result.Level == domain.SafetyBlocked {
		return false, NoticeFor(result), warnings
	}

	shown := output
	if result.Level == domain.SafetyWarning {
		shown = result.ModifiedOutput
	}
	if !HasDisclaimer(shown) {
		shown = Inject(shown, PositionTop)
	}

	return true, shown, warnings
}
