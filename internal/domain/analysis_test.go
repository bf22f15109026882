package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalysis() CompleteAnalysis {
	vision := NewVisionAnalysis("raw vision")
	vision.ChartType = "Candlestick"
	vision.IndicatorsDetected = []string{"RSI 62"}

	reasoning := NewReasoningAnalysis("raw reasoning")
	reasoning.StrategyBias.Bias = BiasBullish
	reasoning.StrategyBias.Confidence = ConfidenceHigh
	reasoning.SuitableApproaches.Approaches = []Approach{{Name: "Trend following", Rationale: "structure intact"}}
	rec := "Trend following"
	reasoning.SuitableApproaches.Recommended = &rec
	reasoning.Risks.RiskList = []string{"News volatility"}

	return NewCompleteAnalysis(vision, reasoning, map[string]any{"asset": "BTC/USD"})
}

func TestCompleteAnalysis_ToDict(t *testing.T) {
	dict := sampleAnalysis().ToDict()

	vision := dict["vision"].(map[string]any)
	assert.Equal(t, "Candlestick", vision["chart_type"])
	assert.Nil(t, vision["timeframe"])
	assert.Equal(t, []any{"RSI 62"}, vision["indicators_detected"])
	assert.Equal(t, "raw vision", vision["raw_output"])

	reasoning := dict["reasoning"].(map[string]any)
	bias := reasoning["strategy_bias"].(map[string]any)
	assert.Equal(t, "Bullish", bias["bias"])
	assert.Equal(t, "High", bias["confidence"])

	risks := reasoning["risks"].(map[string]any)
	assert.Equal(t, []any{"News volatility"}, risks["risk_list"])
	assert.Equal(t, NotAvailable, risks["uncertainty_note"])

	approaches := reasoning["suitable_approaches"].(map[string]any)
	assert.Equal(t, "Trend following", approaches["recommended"])

	assert.Equal(t, map[string]any{"asset": "BTC/USD"}, dict["metadata"])
}

func TestCompleteAnalysis_MarshalJSONMirrorsToDict(t *testing.T) {
	a := sampleAnalysis()

	payload, err := json.Marshal(a)
	require.NoError(t, err)

	expected, err := json.Marshal(a.ToDict())
	require.NoError(t, err)

	assert.JSONEq(t, string(expected), string(payload))
}

func TestCompleteAnalysis_ToDisplayFormat(t *testing.T) {
	display := sampleAnalysis().ToDisplayFormat()

	vision := display["vision"].(map[string]any)
	chartInfo := vision["chart_info"].(map[string]any)
	assert.Equal(t, "Candlestick", chartInfo["type"])
	assert.Equal(t, NotSpecified, chartInfo["timeframe"])
	assert.Equal(t, []string{"RSI 62"}, vision["indicators"])

	analysis := display["analysis"].(map[string]any)
	for _, panel := range []string{"market_structure", "momentum", "regime", "strategy_bias", "approaches", "invalidation", "risks"} {
		assert.Contains(t, analysis, panel)
	}

	regime := analysis["regime"].(map[string]any)
	assert.Equal(t, Unknown, regime["classification"])

	approaches := analysis["approaches"].(map[string]any)
	assert.Equal(t, []map[string]string{{"name": "Trend following", "rationale": "structure intact"}}, approaches["options"])
	assert.Equal(t, "Trend following", approaches["recommended"])

	risks := analysis["risks"].(map[string]any)
	assert.Equal(t, []string{"News volatility"}, risks["risks"])
}

func TestCompleteAnalysis_RecommendedNilInDisplay(t *testing.T) {
	a := NewCompleteAnalysis(NewVisionAnalysis(""), NewReasoningAnalysis(""), nil)

	approaches := a.ToDisplayFormat()["analysis"].(map[string]any)["approaches"].(map[string]any)
	assert.Nil(t, approaches["recommended"])
	assert.NotNil(t, a.Metadata())
}

func TestCompleteAnalysis_Immutable(t *testing.T) {
	vision := NewVisionAnalysis("")
	vision.IndicatorsDetected = []string{"RSI"}
	metadata := map[string]any{"asset": "ETH"}

	a := NewCompleteAnalysis(vision, NewReasoningAnalysis(""), metadata)

	vision.IndicatorsDetected[0] = "mutated"
	metadata["asset"] = "mutated"
	assert.Equal(t, []string{"RSI"}, a.Vision().IndicatorsDetected)
	assert.Equal(t, "ETH", a.Metadata()["asset"])

	got := a.Vision()
	got.IndicatorsDetected[0] = "mutated"
	assert.Equal(t, []string{"RSI"}, a.Vision().IndicatorsDetected)

	display := a.ToDisplayFormat()
	display["vision"].(map[string]any)["indicators"].([]string)[0] = "mutated"
	assert.Equal(t, []string{"RSI"}, a.Vision().IndicatorsDetected)
}

func TestCompleteAnalysis_TextSegments(t *testing.T) {
	segments := sampleAnalysis().TextSegments()

	keys := make(map[string]string, len(segments))
	for _, s := range segments {
		assert.NotEmpty(t, s.Text)
		keys[s.Key] = s.Text
	}

	assert.Equal(t, "News volatility", keys["analysis.risks.risks"])
	assert.Equal(t, "Trend following: structure intact", keys["analysis.approaches.options"])
	assert.Equal(t, "Trend following", keys["analysis.approaches.recommended"])
	assert.Equal(t, "Candlestick", keys["vision.chart_info.type"])
	assert.Equal(t, "RSI 62", keys["vision.indicators"])
	assert.Equal(t, "Bullish", keys["analysis.strategy_bias.bias"])
	assert.NotContains(t, keys, "analysis.strategy_bias.reasoning")
	for key := range keys {
		assert.NotContains(t, key, "metadata")
	}
}

func TestCompleteAnalysis_TextSegmentsCoverEveryDisplayedLeaf(t *testing.T) {
	const marker = "guaranteed"
	tf := marker
	vision := NewVisionAnalysis("")
	vision.ChartType = marker
	vision.Timeframe = &tf
	vision.IndicatorsDetected = []string{marker}
	vision.VisualPatterns = []string{marker}

	reasoning := NewReasoningAnalysis("")
	reasoning.MarketStructure.KeyLevels = []string{marker}
	reasoning.Momentum.Indicators = []string{marker}
	reasoning.Momentum.Divergences = []string{marker}
	rec := marker
	reasoning.SuitableApproaches.Recommended = &rec

	segments := NewCompleteAnalysis(vision, reasoning, nil).TextSegments()
	keys := map[string]bool{}
	for _, s := range segments {
		if s.Text == marker {
			keys[s.Key] = true
		}
	}

	for _, key := range []string{
		"vision.chart_info.type",
		"vision.chart_info.timeframe",
		"vision.indicators",
		"vision.patterns",
		"analysis.market_structure.key_levels",
		"analysis.momentum.indicators",
		"analysis.momentum.divergences",
		"analysis.approaches.recommended",
	} {
		assert.True(t, keys[key], key)
	}
}

func TestSafetyLevel_Max(t *testing.T) {
	assert.Equal(t, SafetyBlocked, SafetyWarning.Max(SafetyBlocked))
	assert.Equal(t, SafetyWarning, SafetyWarning.Max(SafetySafe))
	assert.Equal(t, SafetySafe, SafetyLevel("").Max(SafetySafe))
	assert.Less(t, SafetySafe.Rank(), SafetyWarning.Rank())
	assert.Less(t, SafetyWarning.Rank(), SafetyBlocked.Rank())
}

func TestCategorySet_MarshalJSON(t *testing.T) {
	set := CategorySet{}
	set.Add(CategoryPricePrediction)
	set.Add(CategoryFinancialAdvice)

	payload, err := json.Marshal(SafetyResult{Level: SafetyBlocked, TriggeredCategories: set})
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"level":"blocked","modified_output":"","triggered_categories":["financial_advice","price_prediction"],"confidence_score":0}`,
		string(payload))
	assert.Equal(t, "Financial Advice", CategoryFinancialAdvice.Title())
}
