package domain

// Momentum strength classifications.
const (
	StrengthStrongBullish = "Strong Bullish"
	StrengthBullish       = "Bullish"
	StrengthNeutral       = "Neutral"
	StrengthBearish       = "Bearish"
	StrengthStrongBearish = "Strong Bearish"
)

// Strategy bias classifications.
const (
	BiasBullish = "Bullish"
	BiasBearish = "Bearish"
	BiasNeutral = "Neutral"
)

// Confidence labels.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// MarketStructure trend and level assessment.
type MarketStructure struct {
	TrendDescription string   `json:"trend_description"`
	KeyLevels        []string `json:"key_levels"`
	StructuralNotes  []string `json:"structural_notes"`
}

// MomentumAnalysis momentum interpretation.
type MomentumAnalysis struct {
	Assessment  string   `json:"assessment"`
	Indicators  []string `json:"indicators"`
	Divergences []string `json:"divergences"`
	Strength    string   `json:"strength"`
}

// RegimeClassification market regime.
type RegimeClassification struct {
	Regime     string `json:"regime"`
	Reasoning  string `json:"reasoning"`
	Volatility string `json:"volatility"`
}

// StrategyBiasAnalysis directional bias with confidence.
type StrategyBiasAnalysis struct {
	Bias       string   `json:"bias"`
	Confidence string   `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
}

// Approach a general trading approach and why it may fit.
type Approach struct {
	Name      string `json:"name"`
	Rationale string `json:"rationale"`
}

// SuitableApproaches candidate approaches, optionally one marked as recommended.
type SuitableApproaches struct {
	Approaches  []Approach `json:"approaches"`
	Recommended *string    `json:"recommended"`
}

// InvalidationConditions scenarios that would invalidate each bias.
type InvalidationConditions struct {
	BullishInvalidation []string `json:"bullish_invalidation"`
	BearishInvalidation []string `json:"bearish_invalidation"`
	KeyLevels           []string `json:"key_levels"`
}

// RiskConsiderations risks and uncertainty.
type RiskConsiderations struct {
	RiskList           []string `json:"risk_list"`
	ConflictingSignals []string `json:"conflicting_signals"`
	MonitoringPoints   []string `json:"monitoring_points"`
	UncertaintyNote    string   `json:"uncertainty_note"`
}

// ReasoningAnalysis structured reasoning model output.
type ReasoningAnalysis struct {
	MarketStructure    MarketStructure        `json:"market_structure"`
	Momentum           MomentumAnalysis       `json:"momentum"`
	Regime             RegimeClassification   `json:"regime"`
	StrategyBias       StrategyBiasAnalysis   `json:"strategy_bias"`
	SuitableApproaches SuitableApproaches     `json:"suitable_approaches"`
	Invalidation       InvalidationConditions `json:"invalidation"`
	Risks              RiskConsiderations     `json:"risks"`
	RawOutput          string                 `json:"raw_output"`
}

// NewReasoningAnalysis returns a fully defaulted record holding the raw model text.
func NewReasoningAnalysis(raw string) ReasoningAnalysis {
	return ReasoningAnalysis{
		MarketStructure: MarketStructure{
			TrendDescription: NotAvailable,
			KeyLevels:        []string{},
			StructuralNotes:  []string{},
		},
		Momentum: MomentumAnalysis{
			Assessment:  NotAvailable,
			Indicators:  []string{},
			Divergences: []string{},
			Strength:    Unknown,
		},
		Regime: RegimeClassification{
			Regime:     Unknown,
			Reasoning:  NotAvailable,
			Volatility: Unknown,
		},
		StrategyBias: StrategyBiasAnalysis{
			Bias:       Unknown,
			Confidence: Unknown,
			Reasoning:  []string{},
		},
		SuitableApproaches: SuitableApproaches{
			Approaches: []Approach{},
		},
		Invalidation: InvalidationConditions{
			BullishInvalidation: []string{},
			BearishInvalidation: []string{},
			KeyLevels:           []string{},
		},
		Risks: RiskConsiderations{
			RiskList:           []string{},
			ConflictingSignals: []string{},
			MonitoringPoints:   []string{},
			UncertaintyNote:    NotAvailable,
		},
		RawOutput: raw,
	}
}

func (r ReasoningAnalysis) clone() ReasoningAnalysis {
	out := r
	out.MarketStructure.KeyLevels = cloneStrings(r.MarketStructure.KeyLevels)
	out.MarketStructure.StructuralNotes = cloneStrings(r.MarketStructure.StructuralNotes)
	out.Momentum.Indicators = cloneStrings(r.Momentum.Indicators)
	out.Momentum.Divergences = cloneStrings(r.Momentum.Divergences)
	out.StrategyBias.Reasoning = cloneStrings(r.StrategyBias.Reasoning)

	out.SuitableApproaches.Approaches = make([]Approach, len(r.SuitableApproaches.Approaches))
	copy(out.SuitableApproaches.Approaches, r.SuitableApproaches.Approaches)
	if r.SuitableApproaches.Recommended != nil {
		rec := *r.SuitableApproaches.Recommended
		out.SuitableApproaches.Recommended = &rec
	}

	out.Invalidation.BullishInvalidation = cloneStrings(r.Invalidation.BullishInvalidation)
	out.Invalidation.BearishInvalidation = cloneStrings(r.Invalidation.BearishInvalidation)
	out.Invalidation.KeyLevels = cloneStrings(r.Invalidation.KeyLevels)
	out.Risks.RiskList = cloneStrings(r.Risks.RiskList)
	out.Risks.ConflictingSignals = cloneStrings(r.Risks.ConflictingSignals)
	out.Risks.MonitoringPoints = cloneStrings(r.Risks.MonitoringPoints)
	return out
}
