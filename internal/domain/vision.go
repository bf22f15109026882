package domain

const (
	// Unknown is the default for classifications that could not be derived.
	Unknown = "Unknown"
	// NotAvailable is the default for free-text fields whose section is missing.
	NotAvailable = "Not available"
	// NotSpecified is how a missing timeframe is rendered.
	NotSpecified = "Not specified"
)

// VisionAnalysis objective chart facts extracted from the vision model output.
type VisionAnalysis struct {
	ChartType          string   `json:"chart_type"`
	Timeframe          *string  `json:"timeframe"`
	PriceStructure     string   `json:"price_structure"`
	IndicatorsDetected []string `json:"indicators_detected"`
	VisualPatterns     []string `json:"visual_patterns"`
	MomentumSignals    string   `json:"momentum_signals"`
	RawOutput          string   `json:"raw_output"`
}

// NewVisionAnalysis returns a fully defaulted record holding the raw model text.
func NewVisionAnalysis(raw string) VisionAnalysis {
	return VisionAnalysis{
		ChartType:          Unknown,
		PriceStructure:     NotAvailable,
		IndicatorsDetected: []string{},
		VisualPatterns:     []string{},
		MomentumSignals:    NotAvailable,
		RawOutput:          raw,
	}
}

// TimeframeOrDefault returns the timeframe or "Not specified".
func (v VisionAnalysis) TimeframeOrDefault() string {
	if v.Timeframe == nil || *v.Timeframe == "" {
		return NotSpecified
	}
	return *v.Timeframe
}

func (v VisionAnalysis) clone() VisionAnalysis {
	out := v
	if v.Timeframe != nil {
		tf := *v.Timeframe
		out.Timeframe = &tf
	}
	out.IndicatorsDetected = cloneStrings(v.IndicatorsDetected)
	out.VisualPatterns = cloneStrings(v.VisualPatterns)
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
