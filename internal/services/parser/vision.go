package parser

import (
	"strings"

	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/extract"
	"go.uber.org/zap"
)

// ParseVision builds a vision record from raw vision model output.
func (p *Parser) ParseVision(raw string) (analysis domain.VisionAnalysis) {
	analysis = domain.NewVisionAnalysis(raw)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("vision parsing panicked, returning defaults", zap.Any("panic", r))
			analysis = domain.NewVisionAnalysis(raw)
		}
	}()

	sections := p.vision.Extract(raw)
	p.logMissing("vision", sections, p.vision.Canonical())

	if body, ok := sections.Lookup(sectionChartType); ok {
		chartType, timeframe := splitChartType(extract.FirstLine(body))
		if chartType != "" {
			analysis.ChartType = chartType
		}
		if timeframe != "" {
			analysis.Timeframe = &timeframe
		}
	}

	if analysis.Timeframe == nil {
		if body, ok := sections.Lookup(sectionTimeframe); ok {
			if tf := extract.FirstLine(body); tf != "" {
				analysis.Timeframe = &tf
			}
		}
	}

	if body, ok := sections.Lookup(sectionPriceStructure); ok {
		analysis.PriceStructure = orDefault(extract.CleanMarkdown(body), domain.NotAvailable)
	}
	if body, ok := sections.Lookup(sectionIndicators); ok {
		analysis.IndicatorsDetected = extract.ListItems(body)
	}
	if body, ok := sections.Lookup(sectionPatterns); ok {
		analysis.VisualPatterns = extract.ListItems(body)
	}
	if body, ok := sections.Lookup(sectionMomentumSignals); ok {
		analysis.MomentumSignals = orDefault(extract.CleanMarkdown(body), domain.NotAvailable)
	}

	return analysis
}

// splitChartType splits "Candlestick, 4H" into chart type and timeframe.
func splitChartType(line string) (string, string) {
	chartType, timeframe, found := strings.Cut(line, ",")
	if !found {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(chartType), strings.TrimSpace(timeframe)
}
