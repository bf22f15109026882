package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// CompleteAnalysis vision and reasoning records plus request metadata.
// The record is built once and only exposes copies of its state.
type CompleteAnalysis struct {
	vision    VisionAnalysis
	reasoning ReasoningAnalysis
	metadata  map[string]any
}

// TextSegment one displayed piece of analysis text, keyed by its display path.
type TextSegment struct {
	Key  string
	Text string
}

// NewCompleteAnalysis assembles a complete analysis. Inputs are copied.
func NewCompleteAnalysis(vision VisionAnalysis, reasoning ReasoningAnalysis, metadata map[string]any) CompleteAnalysis {
	return CompleteAnalysis{
		vision:    vision.clone(),
		reasoning: reasoning.clone(),
		metadata:  cloneMetadata(metadata),
	}
}

// Vision returns a copy of the vision record.
func (a CompleteAnalysis) Vision() VisionAnalysis {
	return a.vision.clone()
}

// Reasoning returns a copy of the reasoning record.
func (a CompleteAnalysis) Reasoning() ReasoningAnalysis {
	return a.reasoning.clone()
}

// Metadata returns a copy of the request metadata.
func (a CompleteAnalysis) Metadata() map[string]any {
	return cloneMetadata(a.metadata)
}

// ToDict returns the full nested mapping using the transport field names.
func (a CompleteAnalysis) ToDict() map[string]any {
	return map[string]any{
		"vision":    structToMap(a.vision),
		"reasoning": structToMap(a.reasoning),
		"metadata":  cloneMetadata(a.metadata),
	}
}

// MarshalJSON mirrors ToDict.
func (a CompleteAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDict())
}

// ToDisplayFormat regroups the analysis by presentation panel.
func (a CompleteAnalysis) ToDisplayFormat() map[string]any {
	v := a.vision
	r := a.reasoning

	approaches := make([]map[string]string, 0, len(r.SuitableApproaches.Approaches))
	for _, ap := range r.SuitableApproaches.Approaches {
		approaches = append(approaches, map[string]string{
			"name":      ap.Name,
			"rationale": ap.Rationale,
		})
	}

	var recommended any
	if r.SuitableApproaches.Recommended != nil {
		recommended = *r.SuitableApproaches.Recommended
	}

	return map[string]any{
		"vision": map[string]any{
			"chart_info": map[string]any{
				"type":      v.ChartType,
				"timeframe": v.TimeframeOrDefault(),
			},
			"price_structure": v.PriceStructure,
			"indicators":      cloneStrings(v.IndicatorsDetected),
			"patterns":        cloneStrings(v.VisualPatterns),
			"momentum":        v.MomentumSignals,
		},
		"analysis": map[string]any{
			"market_structure": map[string]any{
				"trend":      r.MarketStructure.TrendDescription,
				"key_levels": cloneStrings(r.MarketStructure.KeyLevels),
				"notes":      cloneStrings(r.MarketStructure.StructuralNotes),
			},
			"momentum": map[string]any{
				"assessment":  r.Momentum.Assessment,
				"indicators":  cloneStrings(r.Momentum.Indicators),
				"divergences": cloneStrings(r.Momentum.Divergences),
				"strength":    r.Momentum.Strength,
			},
			"regime": map[string]any{
				"classification": r.Regime.Regime,
				"reasoning":      r.Regime.Reasoning,
				"volatility":     r.Regime.Volatility,
			},
			"strategy_bias": map[string]any{
				"bias":       r.StrategyBias.Bias,
				"confidence": r.StrategyBias.Confidence,
				"reasoning":  cloneStrings(r.StrategyBias.Reasoning),
			},
			"approaches": map[string]any{
				"options":     approaches,
				"recommended": recommended,
			},
			"invalidation": map[string]any{
				"bullish":    cloneStrings(r.Invalidation.BullishInvalidation),
				"bearish":    cloneStrings(r.Invalidation.BearishInvalidation),
				"key_levels": cloneStrings(r.Invalidation.KeyLevels),
			},
			"risks": map[string]any{
				"risks":       cloneStrings(r.Risks.RiskList),
				"conflicts":   cloneStrings(r.Risks.ConflictingSignals),
				"monitor":     cloneStrings(r.Risks.MonitoringPoints),
				"uncertainty": r.Risks.UncertaintyNote,
			},
		},
		"metadata": cloneMetadata(a.metadata),
	}
}

// TextSegments lists every displayed text leaf of the analysis, one segment
// per display field, keyed by its display path. Metadata is not displayed text.
func (a CompleteAnalysis) TextSegments() []TextSegment {
	display := a.ToDisplayFormat()
	delete(display, "metadata")

	var segments []TextSegment
	collectSegments("", display, &segments)
	return segments
}

func collectSegments(path string, v any, out *[]TextSegment) {
	var text string
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			next := k
			if path != "" {
				next = path + "." + k
			}
			collectSegments(next, val[k], out)
		}
		return
	case string:
		text = val
	case []string:
		text = strings.Join(val, "\n")
	case []map[string]string:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			lines = append(lines, joinItem(item))
		}
		text = strings.Join(lines, "\n")
	default:
		return
	}

	if strings.TrimSpace(text) != "" {
		*out = append(*out, TextSegment{Key: path, Text: text})
	}
}

// joinItem renders an approach as "name: rationale"; other maps as their values.
func joinItem(item map[string]string) string {
	if name, ok := item["name"]; ok {
		if item["rationale"] == "" {
			return name
		}
		return name + ": " + item["rationale"]
	}
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, item[k])
	}
	return strings.Join(parts, " ")
}

func structToMap(v any) map[string]any {
	payload, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
