package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/extract"
)

const visionFixture = `
    Chart Type: Candlestick chart, 4-hour timeframe

    Price Structure:
    - Uptrend visible with higher highs and higher lows
    - Support at EMA 20 (blue line)

    Technical Indicators:
    - EMA 20 (blue) and EMA 50 (orange) both sloping upward
    - RSI at 68, approaching overbought territory

    Visual Patterns:
    - Higher lows pattern intact
    - Consolidation near resistance

    Momentum Signals:
    - RSI showing bearish divergence
`

var reasoningSections = []string{
	"### 1. Market Structure Assessment\n" +
		"Trend: Higher highs and higher lows on the 4H chart\n" +
		"Key Levels: 1.1600, 1.1750\n" +
		"- Price holding above the 50 EMA\n" +
		"- Consolidation under resistance",
	"### 2. Momentum Analysis\n" +
		"Momentum is bullish but fading.\n" +
		"- RSI at 62 with room to extend\n" +
		"- MACD histogram shrinking\n" +
		"- Bearish divergence on RSI versus price",
	"### 3. Market Regime Classification\n" +
		"Classification: Trending Bullish\n" +
		"Reasoning: Structure is intact with higher lows.\n" +
		"- Volatility appears moderate",
	"### 4. Strategy Bias\n" +
		"Bias: Bullish\n" +
		"Confidence: Medium\n" +
		"- Higher lows remain intact\n" +
		"- Momentum may be slowing",
	"### 5. Suitable Approaches\n" +
		"- Trend following (Recommended): pullbacks into support may offer structure\n" +
		"- Wait-and-see: confirmation above resistance could reduce risk",
	"### 6. Invalidation Conditions\n" +
		"- Bullish scenario would be invalidated if: a close below 1.1600\n" +
		"- Bearish scenario would be invalidated if: a close above 1.1750\n" +
		"- Key decision levels: 1.1600, 1.1750",
	"### 7. Risk Considerations\n" +
		"- Momentum divergence conflicts with price strength\n" +
		"- Monitor volume on any breakout attempt\n" +
		"- News events could increase volatility\n" +
		"Uncertainty: Markets are inherently uncertain.",
}

func newTestParser() *Parser {
	return New(nil, DefaultTables())
}

func TestParseVision(t *testing.T) {
	p := newTestParser()

	got := p.ParseVision(visionFixture)

	assert.Equal(t, "Candlestick chart", got.ChartType)
	require.NotNil(t, got.Timeframe)
	assert.Equal(t, "4-hour timeframe", *got.Timeframe)
	assert.Equal(t, "- Uptrend visible with higher highs and higher lows\n- Support at EMA 20 (blue line)", got.PriceStructure)
	assert.Equal(t, []string{
		"EMA 20 (blue) and EMA 50 (orange) both sloping upward",
		"RSI at 68, approaching overbought territory",
	}, got.IndicatorsDetected)
	assert.Equal(t, []string{"Higher lows pattern intact", "Consolidation near resistance"}, got.VisualPatterns)
	assert.Equal(t, "- RSI showing bearish divergence", got.MomentumSignals)
	assert.Equal(t, visionFixture, got.RawOutput)
}

func TestParseVision_SeparateTimeframe(t *testing.T) {
	p := newTestParser()

	got := p.ParseVision("**Chart Type:** Line\n**Timeframe:** 1D\n")

	assert.Equal(t, "Line", got.ChartType)
	require.NotNil(t, got.Timeframe)
	assert.Equal(t, "1D", *got.Timeframe)
	assert.Equal(t, domain.NotAvailable, got.PriceStructure)
}

func TestParseVision_Defaults(t *testing.T) {
	p := newTestParser()

	got := p.ParseVision("")

	assert.Equal(t, domain.Unknown, got.ChartType)
	assert.Nil(t, got.Timeframe)
	assert.Equal(t, domain.NotSpecified, got.TimeframeOrDefault())
	assert.Equal(t, domain.NotAvailable, got.PriceStructure)
	assert.Equal(t, []string{}, got.IndicatorsDetected)
	assert.Equal(t, []string{}, got.VisualPatterns)
	assert.Equal(t, domain.NotAvailable, got.MomentumSignals)
}

func TestParseReasoning(t *testing.T) {
	p := newTestParser()

	got := p.ParseReasoning(strings.Join(reasoningSections, "\n\n"))

	assert.Equal(t, "Higher highs and higher lows on the 4H chart", got.MarketStructure.TrendDescription)
	assert.Equal(t, []string{"1.1600", "1.1750"}, got.MarketStructure.KeyLevels)
	assert.Equal(t, []string{"Price holding above the 50 EMA", "Consolidation under resistance"}, got.MarketStructure.StructuralNotes)

	assert.Equal(t, "Momentum is bullish but fading.", got.Momentum.Assessment)
	assert.Equal(t, []string{
		"RSI at 62 with room to extend",
		"MACD histogram shrinking",
		"Bearish divergence on RSI versus price",
	}, got.Momentum.Indicators)
	assert.Equal(t, []string{"Bearish divergence on RSI versus price"}, got.Momentum.Divergences)
	assert.Equal(t, domain.StrengthBullish, got.Momentum.Strength)

	assert.Equal(t, "Trending Bullish", got.Regime.Regime)
	assert.Equal(t, "Structure is intact with higher lows.", got.Regime.Reasoning)
	assert.Equal(t, "Moderate", got.Regime.Volatility)

	assert.Equal(t, domain.BiasBullish, got.StrategyBias.Bias)
	assert.Equal(t, domain.ConfidenceMedium, got.StrategyBias.Confidence)
	assert.Equal(t, []string{"Higher lows remain intact", "Momentum may be slowing"}, got.StrategyBias.Reasoning)

	assert.Equal(t, []domain.Approach{
		{Name: "Trend following", Rationale: "pullbacks into support may offer structure"},
		{Name: "Wait-and-see", Rationale: "confirmation above resistance could reduce risk"},
	}, got.SuitableApproaches.Approaches)
	require.NotNil(t, got.SuitableApproaches.Recommended)
	assert.Equal(t, "Trend following", *got.SuitableApproaches.Recommended)

	assert.Equal(t, []string{"a close below 1.1600"}, got.Invalidation.BullishInvalidation)
	assert.Equal(t, []string{"a close above 1.1750"}, got.Invalidation.BearishInvalidation)
	assert.Equal(t, []string{"1.1600", "1.1750"}, got.Invalidation.KeyLevels)

	assert.Equal(t, []string{"News events could increase volatility"}, got.Risks.RiskList)
	assert.Equal(t, []string{"Momentum divergence conflicts with price strength"}, got.Risks.ConflictingSignals)
	assert.Equal(t, []string{"Monitor volume on any breakout attempt"}, got.Risks.MonitoringPoints)
	assert.Equal(t, "Markets are inherently uncertain.", got.Risks.UncertaintyNote)
}

func TestParseReasoning_OrderIndependent(t *testing.T) {
	p := newTestParser()

	base := p.ParseReasoning(strings.Join(reasoningSections, "\n\n"))
	base.RawOutput = ""

	permutations := [][]int{
		{6, 5, 4, 3, 2, 1, 0},
		{3, 0, 6, 1, 5, 2, 4},
		{1, 2, 3, 4, 5, 6, 0},
	}

	for _, order := range permutations {
		parts := make([]string, 0, len(order))
		for _, i := range order {
			parts = append(parts, reasoningSections[i])
		}

		got := p.ParseReasoning(strings.Join(parts, "\n\n"))
		got.RawOutput = ""
		assert.Equal(t, base, got, "order %v", order)
	}
}

func TestParseReasoning_InlineScenario(t *testing.T) {
	p := newTestParser()

	got := p.ParseReasoning("Strategy Bias: Bullish, High confidence. Market Structure: uptrend intact, support at 1.16.")

	assert.Equal(t, domain.BiasBullish, got.StrategyBias.Bias)
	assert.Equal(t, domain.ConfidenceHigh, got.StrategyBias.Confidence)
	assert.Equal(t, "uptrend intact, support at 1.16.", got.MarketStructure.TrendDescription)
	assert.Equal(t, []string{"Support: 1.16"}, got.MarketStructure.KeyLevels)
}

func TestParseReasoning_Garbage(t *testing.T) {
	p := newTestParser()

	got := p.ParseReasoning("garbage text with no structure")

	assert.Equal(t, domain.NewReasoningAnalysis("garbage text with no structure"), got)
	assert.Equal(t, domain.Unknown, got.Regime.Regime)
	assert.Equal(t, domain.Unknown, got.StrategyBias.Bias)
	assert.Equal(t, domain.NotAvailable, got.MarketStructure.TrendDescription)
	assert.Nil(t, got.SuitableApproaches.Recommended)
}

func TestParse_Totality(t *testing.T) {
	p := newTestParser()

	inputs := []string{
		"",
		"   \n\t  ",
		"\x00\xff\xfe binary \x01 garbage",
		"日本語のテキスト: 相場は不明",
		"###\n**\n1.\n- \n:",
		"Momentum:\nStrategy Bias:\nRisks:",
		strings.Repeat("Market Structure: ", 50),
	}

	for _, in := range inputs {
		vision := p.ParseVision(in)
		assert.NotEmpty(t, vision.ChartType)
		assert.NotNil(t, vision.IndicatorsDetected)
		assert.NotNil(t, vision.VisualPatterns)
		assert.NotEmpty(t, vision.PriceStructure)
		assert.NotEmpty(t, vision.MomentumSignals)
		assert.Equal(t, in, vision.RawOutput)

		r := p.ParseReasoning(in)
		assert.NotEmpty(t, r.MarketStructure.TrendDescription)
		assert.NotNil(t, r.MarketStructure.KeyLevels)
		assert.NotNil(t, r.MarketStructure.StructuralNotes)
		assert.NotEmpty(t, r.Momentum.Assessment)
		assert.NotNil(t, r.Momentum.Indicators)
		assert.NotNil(t, r.Momentum.Divergences)
		assert.NotEmpty(t, r.Momentum.Strength)
		assert.NotEmpty(t, r.Regime.Regime)
		assert.NotEmpty(t, r.Regime.Reasoning)
		assert.NotEmpty(t, r.Regime.Volatility)
		assert.NotEmpty(t, r.StrategyBias.Bias)
		assert.NotEmpty(t, r.StrategyBias.Confidence)
		assert.NotNil(t, r.StrategyBias.Reasoning)
		assert.NotNil(t, r.SuitableApproaches.Approaches)
		assert.NotNil(t, r.Invalidation.BullishInvalidation)
		assert.NotNil(t, r.Invalidation.BearishInvalidation)
		assert.NotNil(t, r.Invalidation.KeyLevels)
		assert.NotNil(t, r.Risks.RiskList)
		assert.NotNil(t, r.Risks.ConflictingSignals)
		assert.NotNil(t, r.Risks.MonitoringPoints)
		assert.NotEmpty(t, r.Risks.UncertaintyNote)
		assert.Equal(t, in, r.RawOutput)
	}
}

func TestParseCompleteAnalysis(t *testing.T) {
	p := newTestParser()
	metadata := map[string]any{"asset": "EUR/USD"}

	analysis := p.ParseCompleteAnalysis(visionFixture, strings.Join(reasoningSections, "\n\n"), metadata)
	metadata["asset"] = "mutated"

	assert.Equal(t, "Candlestick chart", analysis.Vision().ChartType)
	assert.Equal(t, domain.BiasBullish, analysis.Reasoning().StrategyBias.Bias)
	assert.Equal(t, "EUR/USD", analysis.Metadata()["asset"])
}

func TestParser_CustomTables(t *testing.T) {
	tables := DefaultTables()
	tables.Bias = append(extract.KeywordTable{{Label: "Long", Keywords: []string{"long"}}}, tables.Bias...)

	p := New(nil, tables)
	got := p.ParseReasoning("Strategy Bias: long, bullish")

	assert.Equal(t, "Long", got.StrategyBias.Bias)
	assert.Equal(t, domain.BiasBullish, newTestParser().ParseReasoning("Strategy Bias: long, bullish").StrategyBias.Bias)
}

const numberedReasoning = `
## 1. Market Structure Assessment

The chart displays an intact uptrend structure. Price is testing resistance.

Key levels:
- Support: EMA 20
- Resistance: Recent swing high

## 2. Momentum Analysis

Momentum indicators present a mixed picture.

RSI (68):
- Approaching overbought
- Showing bearish divergence

## 3. Market Regime Classification

Classification: Trending (Bullish) with Consolidation

Reasoning: Higher high/higher low structure defines bullish trend

Volatility: Moderate

## 4. Strategy Bias

Bias: Neutral to Bearish

Confidence Level: Medium

Reasoning:
- Bearish divergence on RSI
- Declining volume
- Multiple rejections at resistance

## 5. Suitable Approaches

A. Mean-Reversion Approach
Rationale: Bearish divergence suggests pullback

B. Wait-and-See Approach (Recommended)
Rationale: Conflicting signals suggest waiting

## 6. Invalidation Conditions

Bullish Scenario Invalidated If:
- Break below EMA 20
- Lower low forms

Bearish Scenario Invalidated If:
- Break above resistance with volume
- New higher high confirmed

Key Decision Levels:
- Upside: Resistance at swing high
- Downside: EMA 20 support

## 7. Risk Considerations

Potential Risks:
- Whipsaw risk near resistance
- Divergence may not lead to reversal

Conflicting Signals:
- Bearish momentum vs bullish structure

What to Monitor:
- Price action at resistance
- Volume behavior
- EMA 20 support
`

func TestParseReasoning_SubHeadedSections(t *testing.T) {
	p := newTestParser()

	got := p.ParseReasoning(numberedReasoning)

	assert.Equal(t, "The chart displays an intact uptrend structure. Price is testing resistance.",
		got.MarketStructure.TrendDescription)
	assert.Equal(t, []string{"Support: EMA 20", "Resistance: Recent swing high"}, got.MarketStructure.KeyLevels)
	assert.Empty(t, got.MarketStructure.StructuralNotes)

	assert.Equal(t, "Momentum indicators present a mixed picture.", got.Momentum.Assessment)
	assert.Equal(t, []string{"Showing bearish divergence"}, got.Momentum.Divergences)

	assert.Equal(t, "Higher high/higher low structure defines bullish trend", got.Regime.Reasoning)
	assert.Equal(t, "Moderate", got.Regime.Volatility)

	assert.Equal(t, domain.BiasBearish, got.StrategyBias.Bias)
	assert.Equal(t, domain.ConfidenceMedium, got.StrategyBias.Confidence)
	assert.Equal(t, []string{
		"Bearish divergence on RSI",
		"Declining volume",
		"Multiple rejections at resistance",
	}, got.StrategyBias.Reasoning)

	assert.Equal(t, []domain.Approach{
		{Name: "Mean-Reversion", Rationale: "Bearish divergence suggests pullback"},
		{Name: "Wait-and-See", Rationale: "Conflicting signals suggest waiting"},
	}, got.SuitableApproaches.Approaches)
	require.NotNil(t, got.SuitableApproaches.Recommended)
	assert.Equal(t, "Wait-and-See", *got.SuitableApproaches.Recommended)

	assert.Equal(t, []string{"Break below EMA 20", "Lower low forms"}, got.Invalidation.BullishInvalidation)
	assert.Equal(t, []string{"Break above resistance with volume", "New higher high confirmed"}, got.Invalidation.BearishInvalidation)
	assert.Equal(t, []string{"Upside: Resistance at swing high", "Downside: EMA 20 support"}, got.Invalidation.KeyLevels)

	assert.Equal(t, []string{"Whipsaw risk near resistance", "Divergence may not lead to reversal"}, got.Risks.RiskList)
	assert.Equal(t, []string{"Bearish momentum vs bullish structure"}, got.Risks.ConflictingSignals)
	assert.Equal(t, []string{"Price action at resistance", "Volume behavior", "EMA 20 support"}, got.Risks.MonitoringPoints)
}

func TestParseReasoning_Approaches(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		approaches  []domain.Approach
		recommended string
	}{
		{
			name: "first of two markers wins",
			body: "- Breakout (Recommended): range is tightening\n" +
				"- Mean reversion (Recommended): price is stretched",
			approaches: []domain.Approach{
				{Name: "Breakout", Rationale: "range is tightening"},
				{Name: "Mean reversion", Rationale: "price is stretched"},
			},
			recommended: "Breakout",
		},
		{
			name: "rationale and suitability lines attach to the approach above",
			body: "1. Trend-following Approach\nRationale: structure is intact\nSuitable if: pullbacks hold support\n" +
				"2. Wait-and-see\nRationale: signals conflict",
			approaches: []domain.Approach{
				{Name: "Trend-following", Rationale: "structure is intact; pullbacks hold support"},
				{Name: "Wait-and-see", Rationale: "signals conflict"},
			},
		},
		{
			name:       "orphan rationale is ignored",
			body:       "Rationale: nothing above it\n- Range trading: bounded price",
			approaches: []domain.Approach{{Name: "Range trading", Rationale: "bounded price"}},
		},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ParseReasoning("## Suitable Approaches\n" + tt.body).SuitableApproaches

			assert.Equal(t, tt.approaches, got.Approaches)
			if tt.recommended == "" {
				assert.Nil(t, got.Recommended)
				return
			}
			require.NotNil(t, got.Recommended)
			assert.Equal(t, tt.recommended, *got.Recommended)
		})
	}
}

func TestParseReasoning_LeadInLinesLeaveProse(t *testing.T) {
	p := newTestParser()

	got := p.ParseReasoning("## Momentum\nMomentum is fading.\n\nRSI (68):\n- Near overbought")

	assert.Equal(t, "Momentum is fading.", got.Momentum.Assessment)
	assert.NotContains(t, got.Momentum.Assessment, "RSI (68):")
}
