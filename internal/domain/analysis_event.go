package domain

import (
	"time"
)

// AnalysisEvent journal entry describing the outcome of one chart analysis.
// It never carries model text, only classifications.
type AnalysisEvent struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"ts"`
	Asset          string    `json:"asset,omitempty"`
	Timeframe      string    `json:"timeframe,omitempty"`
	VisionModel    string    `json:"vision_model,omitempty"`
	ReasoningModel string    `json:"reasoning_model,omitempty"`
	Level          string    `json:"level"`
	Categories     []string  `json:"categories,omitempty"`
	Bias           string    `json:"bias,omitempty"`
	Confidence     float64   `json:"confidence"`
	Regime         string    `json:"regime,omitempty"`
}

// NewAnalysisEvent creates a new AnalysisEvent.
func NewAnalysisEvent(
	id string,
	timestamp time.Time,
	asset string,
	timeframe string,
	visionModel string,
	reasoningModel string,
	level SafetyLevel,
	categories []string,
	bias string,
	confidence float64,
	regime string,
) AnalysisEvent {
	return AnalysisEvent{
		ID:             id,
		Timestamp:      timestamp.UTC(),
		Asset:          asset,
		Timeframe:      timeframe,
		VisionModel:    NormalizeModelName(visionModel),
		ReasoningModel: NormalizeModelName(reasoningModel),
		Level:          string(level),
		Categories:     categories,
		Bias:           bias,
		Confidence:     confidence,
		Regime:         regime,
	}
}

// AnalysisEventRecord bundles an analysis event with its journal index.
type AnalysisEventRecord struct {
	Index uint64
	Event AnalysisEvent
}
