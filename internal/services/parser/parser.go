// Package parser turns raw vision and reasoning model output into fully
// populated analysis records. Parsing never fails: whatever cannot be read
// from the text keeps its documented default.
package parser

import (
	"strings"

	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/extract"
	"go.uber.org/zap"
)

// Parser parses model output with a fixed set of tables. Safe for concurrent use.
type Parser struct {
	logger       *zap.Logger
	tables       Tables
	vision       *extract.HeaderSet
	reasoning    *extract.HeaderSet
	riskBuckets  *extract.HeaderSet
	invalidation *extract.HeaderSet
}

// New creates a parser with the given tables.
func New(logger *zap.Logger, tables Tables) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Parser{
		logger:       logger,
		tables:       tables,
		vision:       extract.NewHeaderSet(tables.Vision),
		reasoning:    extract.NewHeaderSet(tables.Reasoning),
		riskBuckets:  extract.NewHeaderSet(tables.RiskBuckets),
		invalidation: extract.NewHeaderSet(tables.InvalidationBuckets),
	}
}

// ParseCompleteAnalysis parses both model outputs and assembles them with metadata.
func (p *Parser) ParseCompleteAnalysis(visionText, reasoningText string, metadata map[string]any) domain.CompleteAnalysis {
	vision := p.ParseVision(visionText)
	reasoning := p.ParseReasoning(reasoningText)

	return domain.NewCompleteAnalysis(vision, reasoning, metadata)
}

func (p *Parser) logMissing(kind string, sections extract.Sections, names []string) {
	var missing []string
	for _, name := range names {
		if _, ok := sections.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		p.logger.Debug("sections missing, using defaults",
			zap.String("output", kind),
			zap.Strings("sections", missing))
	}
}

// classifyFirst classifies candidates in order and returns the first hit.
func classifyFirst(table extract.KeywordTable, fallback string, candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if label := extract.Classify(c, table, fallback); label != fallback {
			return label
		}
	}
	return fallback
}

// prose returns the cleaned non-list part of a body, or the whole body cleaned
// when it is nothing but a list. Lead-in lines such as "Key levels:" are dropped.
func prose(body string, skipLabels ...string) string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if isListLine(line) || isLeadIn(line) || hasLabel(line, skipLabels) {
			continue
		}
		kept = append(kept, line)
	}

	if text := extract.CleanMarkdown(strings.Join(kept, "\n")); text != "" {
		return text
	}
	return extract.CleanMarkdown(body)
}

func isListLine(line string) bool {
	return len(extract.BulletItems(line)) > 0
}

func isLeadIn(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, "*_ \t\r"), ":")
}

// items lists body items, skipping "label: value" items for the given labels.
func items(body string, skipLabels ...string) []string {
	out := []string{}
	for _, item := range extract.ListItems(body) {
		if hasLabel(item, skipLabels) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func hasLabel(line string, labels []string) bool {
	for _, label := range labels {
		if _, ok := extract.LabeledValue(line, label); ok {
			return true
		}
	}
	return false
}

// splitValues splits a labelled value such as "1.16, 1.20; 1.25" into parts.
func splitValues(value string) []string {
	out := []string{}
	for _, part := range valueSeparator.Split(value, -1) {
		part = strings.TrimRight(strings.TrimSpace(part), ".")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// afterLabel drops a leading "label:" from an item when something follows it.
func afterLabel(item string) string {
	idx := strings.Index(item, ":")
	if idx < 0 {
		return item
	}
	if rest := strings.TrimSpace(item[idx+1:]); rest != "" {
		return rest
	}
	return item
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
