package parser

import (
	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/extract"
)

// Vision section names.
const (
	sectionChartType       = "chart_type"
	sectionTimeframe       = "timeframe"
	sectionPriceStructure  = "price_structure"
	sectionIndicators      = "indicators"
	sectionPatterns        = "patterns"
	sectionMomentumSignals = "momentum_signals"
)

// Reasoning section names.
const (
	sectionMarketStructure = "market_structure"
	sectionMomentum        = "momentum"
	sectionRegime          = "regime"
	sectionStrategyBias    = "strategy_bias"
	sectionApproaches      = "approaches"
	sectionInvalidation    = "invalidation"
	sectionRisks           = "risks"
)

// Risk sub-section names.
const (
	bucketRisks       = "risk_list"
	bucketConflicts   = "conflicting_signals"
	bucketMonitoring  = "monitoring_points"
	bucketUncertainty = "uncertainty"
)

// Invalidation sub-section names.
const (
	bucketBullish   = "bullish"
	bucketBearish   = "bearish"
	bucketKeyLevels = "key_levels"
)

// Tables holds every header and keyword table the parsers use.
type Tables struct {
	Vision      extract.HeaderTable
	Reasoning   extract.HeaderTable
	RiskBuckets extract.HeaderTable

	InvalidationBuckets extract.HeaderTable

	MomentumStrength extract.KeywordTable
	Regime           extract.KeywordTable
	Volatility       extract.KeywordTable
	Bias             extract.KeywordTable
	Confidence       extract.KeywordTable

	MomentumIndicators []string
	DivergenceWords    []string
	ConflictWords      []string
	MonitorWords       []string
}

// DefaultTables returns the tables matching the prompts chartsense sends.
func DefaultTables() Tables {
	return Tables{
		Vision: extract.HeaderTable{
			{Canonical: sectionChartType, Variants: []string{"Chart Type & Timeframe", "Chart Type and Timeframe", "Chart Type"}},
			{Canonical: sectionTimeframe, Variants: []string{"Timeframe", "Time Frame"}},
			{Canonical: sectionPriceStructure, Variants: []string{"Price Structure", "Price Action"}},
			{Canonical: sectionIndicators, Variants: []string{"Technical Indicators", "Indicators Detected", "Indicators"}},
			{Canonical: sectionPatterns, Variants: []string{"Visual Patterns", "Chart Patterns", "Patterns"}},
			{Canonical: sectionMomentumSignals, Variants: []string{"Momentum Signals", "Momentum"}},
		},
		Reasoning: extract.HeaderTable{
			{Canonical: sectionMarketStructure, Variants: []string{"Market Structure", "Structure"}},
			{Canonical: sectionMomentum, Variants: []string{"Momentum"}},
			{Canonical: sectionRegime, Variants: []string{"Market Regime", "Regime"}},
			{Canonical: sectionStrategyBias, Variants: []string{"Strategy Bias", "Strategic Bias", "Directional Bias", "Bias"}},
			{Canonical: sectionApproaches, Variants: []string{"Suitable Approaches", "Suitable Approach", "Trading Approaches", "Approaches"}},
			{Canonical: sectionInvalidation, Variants: []string{"Invalidation"}},
			{Canonical: sectionRisks, Variants: []string{"Risk Considerations", "Risks and Uncertainty", "Risks", "Risk"}},
		},
		RiskBuckets: extract.HeaderTable{
			{Canonical: bucketRisks, Variants: []string{"Potential Risks", "Key Risks", "Risks"}},
			{Canonical: bucketConflicts, Variants: []string{"Conflicting Signals", "Conflicts"}},
			{Canonical: bucketMonitoring, Variants: []string{"What to Monitor", "Monitoring Points", "Monitoring", "Monitor", "Watch"}},
			{Canonical: bucketUncertainty, Variants: []string{"Uncertainty Note", "Uncertainty"}},
		},
		InvalidationBuckets: extract.HeaderTable{
			{Canonical: bucketBullish, Variants: []string{
				"Bullish Scenario Invalidated If", "Bullish Scenario Invalidated", "Bullish Invalidation",
				"Bullish Scenario", "Bullish Case",
			}},
			{Canonical: bucketBearish, Variants: []string{
				"Bearish Scenario Invalidated If", "Bearish Scenario Invalidated", "Bearish Invalidation",
				"Bearish Scenario", "Bearish Case",
			}},
			{Canonical: bucketKeyLevels, Variants: []string{"Key Decision Levels", "Key Decision Level", "Decision Levels", "Key Levels"}},
		},
		MomentumStrength: extract.KeywordTable{
			{Label: domain.StrengthStrongBullish, Keywords: []string{"strong bullish", "strongly bullish", "strong upward", "strong upside"}},
			{Label: domain.StrengthStrongBearish, Keywords: []string{"strong bearish", "strongly bearish", "strong downward", "strong downside"}},
			{Label: domain.StrengthBullish, Keywords: []string{"bullish", "upward momentum", "positive momentum"}},
			{Label: domain.StrengthBearish, Keywords: []string{"bearish", "downward momentum", "negative momentum"}},
			{Label: domain.StrengthNeutral, Keywords: []string{"neutral", "mixed", "flat", "sideways"}},
		},
		Regime: extract.KeywordTable{
			{Label: "Trending Bullish", Keywords: []string{"trending bullish", "bullish trend", "uptrend", "trending up", "trending higher"}},
			{Label: "Trending Bearish", Keywords: []string{"trending bearish", "bearish trend", "downtrend", "trending down", "trending lower"}},
			{Label: "Breakout", Keywords: []string{"breakout", "breaking out", "breakdown"}},
			{Label: "Ranging", Keywords: []string{"ranging", "range-bound", "range bound", "sideways", "consolidation", "consolidating"}},
			{Label: "Trending", Keywords: []string{"trending", "trend"}},
			{Label: "Indecisive", Keywords: []string{"indecisive", "indecision", "choppy", "unclear"}},
		},
		Volatility: extract.KeywordTable{
			{Label: "High", Keywords: []string{"high", "elevated", "expanding", "increasing", "extreme"}},
			{Label: "Moderate", Keywords: []string{"moderate", "medium", "average", "normal"}},
			{Label: "Low", Keywords: []string{"low", "subdued", "compressed", "contracting", "decreasing"}},
		},
		Bias: extract.KeywordTable{
			{Label: domain.BiasBullish, Keywords: []string{"bullish", "upside bias", "long bias"}},
			{Label: domain.BiasBearish, Keywords: []string{"bearish", "downside bias", "short bias"}},
			{Label: domain.BiasNeutral, Keywords: []string{"neutral", "no clear bias", "mixed"}},
		},
		Confidence: extract.KeywordTable{
			{Label: domain.ConfidenceHigh, Keywords: []string{"high"}},
			{Label: domain.ConfidenceMedium, Keywords: []string{"medium", "moderate"}},
			{Label: domain.ConfidenceLow, Keywords: []string{"low"}},
		},
		MomentumIndicators: []string{
			"RSI", "MACD", "EMA", "SMA", "MA", "moving average", "moving averages", "Stochastic",
			"Volume", "Bollinger", "ATR", "OBV", "ADX", "VWAP",
		},
		DivergenceWords: []string{"divergence", "divergences", "diverging", "diverges"},
		ConflictWords:   []string{"conflict", "conflicting", "conflicts", "contradict", "contradicts", "contradictory", "divergence", "mixed"},
		MonitorWords:    []string{"monitor", "monitoring", "watch", "watching", "track", "observe"},
	}
}
