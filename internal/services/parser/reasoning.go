package parser

import (
	"regexp"
	"strings"

	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/extract"
	"go.uber.org/zap"
)

var (
	valueSeparator    = regexp.MustCompile(`[;,][ \t]+|[ \t]+and[ \t]+`)
	confidenceBefore  = regexp.MustCompile(`(?i)\b(high|medium|moderate|low)\b[ \t*_]+confidence\b`)
	confidenceAfter   = regexp.MustCompile(`(?i)\bconfidence(?:[ \t]+level)?[ \t*_]*(?:is|of|:)?[ \t*_]*(high|medium|moderate|low)\b`)
	recommendedMarker = regexp.MustCompile(`(?i)\((?:recommended|preferred)\)|\[(?:recommended|preferred)\]|[ \t]recommended:`)
	approachSuffix    = regexp.MustCompile(`(?i)[ \t]+approach$`)
	approachSplit     = regexp.MustCompile(`[ \t]*(?::|[ \t]-[ \t]|[ \t]–[ \t]|[ \t]—[ \t])[ \t]*`)
)

var (
	volatilityWords = []string{"volatility", "volatile"}
	levelLabels     = []string{"Support", "Resistance", "Pivot"}
	rationaleLabels = []string{"Rationale", "Suitable if", "Suitable when"}
	keyLevelWords   = []string{"key level", "key levels", "key decision level", "key decision levels", "decision level", "decision levels"}
)

// ParseReasoning builds a reasoning record from raw reasoning model output.
func (p *Parser) ParseReasoning(raw string) (analysis domain.ReasoningAnalysis) {
	analysis = domain.NewReasoningAnalysis(raw)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("reasoning parsing panicked, returning defaults", zap.Any("panic", r))
			analysis = domain.NewReasoningAnalysis(raw)
		}
	}()

	sections := p.reasoning.Extract(raw)
	p.logMissing("reasoning", sections, p.reasoning.Canonical())

	if body, ok := sections.Lookup(sectionMarketStructure); ok {
		p.parseMarketStructure(body, &analysis.MarketStructure)
	}
	if body, ok := sections.Lookup(sectionMomentum); ok {
		p.parseMomentum(body, &analysis.Momentum)
	}
	if body, ok := sections.Lookup(sectionRegime); ok {
		p.parseRegime(body, &analysis.Regime)
	}
	if body, ok := sections.Lookup(sectionStrategyBias); ok {
		p.parseStrategyBias(body, &analysis.StrategyBias)
	}
	if body, ok := sections.Lookup(sectionApproaches); ok {
		p.parseApproaches(body, &analysis.SuitableApproaches)
	}
	if body, ok := sections.Lookup(sectionInvalidation); ok {
		p.parseInvalidation(body, &analysis.Invalidation)
	}
	if body, ok := sections.Lookup(sectionRisks); ok {
		p.parseRisks(body, &analysis.Risks)
	}

	return analysis
}

func (p *Parser) parseMarketStructure(body string, out *domain.MarketStructure) {
	if trend, ok := extract.LabeledValue(body, "Trend"); ok {
		out.TrendDescription = trend
	} else {
		out.TrendDescription = orDefault(prose(body, "Key Levels"), domain.NotAvailable)
	}

	labelled := []string{}
	notes := []string{}
	for _, item := range extract.BulletItems(body) {
		switch {
		case hasLabel(item, []string{"Trend", "Key Levels"}):
		case hasLabel(item, levelLabels):
			labelled = append(labelled, item)
		case strings.Contains(out.TrendDescription, item):
			// prose already shown as the trend description
		default:
			notes = append(notes, item)
		}
	}

	if levels, ok := extract.LabeledValue(body, "Key Levels"); ok {
		out.KeyLevels = splitValues(levels)
	} else if len(labelled) > 0 {
		out.KeyLevels = labelled
	} else {
		out.KeyLevels = extract.PriceLevels(body)
	}
	out.StructuralNotes = notes
}

func (p *Parser) parseMomentum(body string, out *domain.MomentumAnalysis) {
	if assessment, ok := extract.LabeledValue(body, "Assessment"); ok {
		out.Assessment = assessment
	} else {
		out.Assessment = orDefault(prose(body), domain.NotAvailable)
	}

	indicators := []string{}
	divergences := []string{}
	for _, item := range extract.ListItems(body) {
		if extract.ContainsAny(item, p.tables.DivergenceWords) {
			divergences = append(divergences, item)
		}
		if extract.ContainsAny(item, p.tables.MomentumIndicators) {
			indicators = append(indicators, item)
		}
	}
	out.Indicators = indicators
	out.Divergences = divergences

	strength, _ := extract.LabeledValue(body, "Strength")
	out.Strength = classifyFirst(p.tables.MomentumStrength, domain.Unknown, strength, body)
}

func (p *Parser) parseRegime(body string, out *domain.RegimeClassification) {
	regime, _ := extract.LabeledValue(body, "Regime")
	classification, _ := extract.LabeledValue(body, "Classification")
	out.Regime = classifyFirst(p.tables.Regime, domain.Unknown, regime, classification, extract.FirstLine(body), body)

	if reasoning, ok := extract.LabeledValue(body, "Reasoning"); ok {
		out.Reasoning = reasoning
	} else {
		out.Reasoning = orDefault(prose(body, "Regime", "Classification", "Volatility"), domain.NotAvailable)
	}

	volatility, _ := extract.LabeledValue(body, "Volatility")
	candidates := []string{volatility}
	for _, item := range extract.ListItems(body) {
		if extract.ContainsAny(item, volatilityWords) {
			candidates = append(candidates, item)
		}
	}
	out.Volatility = classifyFirst(p.tables.Volatility, domain.Unknown, candidates...)
}

func (p *Parser) parseStrategyBias(body string, out *domain.StrategyBiasAnalysis) {
	bias, _ := extract.LabeledValue(body, "Bias")
	strategyBias, _ := extract.LabeledValue(body, "Strategy Bias")
	out.Bias = classifyFirst(p.tables.Bias, domain.Unknown, bias, strategyBias, extract.FirstLine(body), body)

	out.Confidence = p.confidence(body)
	out.Reasoning = items(body, "Bias", "Strategy Bias", "Confidence", "Confidence Level")
}

func (p *Parser) confidence(body string) string {
	if value, ok := extract.LabeledValue(body, "Confidence"); ok {
		if label := extract.Classify(value, p.tables.Confidence, domain.Unknown); label != domain.Unknown {
			return label
		}
	}
	if m := confidenceBefore.FindStringSubmatch(body); m != nil {
		return extract.Classify(m[1], p.tables.Confidence, domain.Unknown)
	}
	if m := confidenceAfter.FindStringSubmatch(body); m != nil {
		return extract.Classify(m[1], p.tables.Confidence, domain.Unknown)
	}
	return domain.Unknown
}

func (p *Parser) parseApproaches(body string, out *domain.SuitableApproaches) {
	approaches := []domain.Approach{}
	var recommended *string

	for _, item := range items(body, "Recommended", "Recommended Approach") {
		// "Rationale: ..." on its own line belongs to the approach above it
		if hasLabel(item, rationaleLabels) {
			if n := len(approaches); n > 0 {
				approaches[n-1].Rationale = joinRationale(approaches[n-1].Rationale, afterLabel(item))
			}
			continue
		}

		marked := recommendedMarker.MatchString(item)
		name, rationale := splitApproach(recommendedMarker.ReplaceAllString(item, " "))
		if name == "" {
			continue
		}
		approaches = append(approaches, domain.Approach{Name: name, Rationale: rationale})
		if marked && recommended == nil {
			n := name
			recommended = &n
		}
	}

	if recommended == nil {
		for _, label := range []string{"Recommended", "Recommended Approach"} {
			if value, ok := extract.LabeledValue(body, label); ok {
				v := strings.TrimRight(value, ". ")
				recommended = &v
				break
			}
		}
	}

	out.Approaches = approaches
	out.Recommended = recommended
}

// splitApproach splits "Trend following: aligns with structure" into name and
// rationale. A trailing "Approach" is dropped from the name.
func splitApproach(item string) (string, string) {
	item = strings.Join(strings.Fields(item), " ")
	name, rationale := item, ""
	if loc := approachSplit.FindStringIndex(item); loc != nil {
		name, rationale = strings.TrimSpace(item[:loc[0]]), strings.TrimSpace(item[loc[1]:])
	}
	if trimmed := strings.TrimSpace(approachSuffix.ReplaceAllString(name, "")); trimmed != "" {
		name = trimmed
	}
	return name, rationale
}

func joinRationale(current, more string) string {
	if current == "" {
		return more
	}
	return current + "; " + more
}

func (p *Parser) parseInvalidation(body string, out *domain.InvalidationConditions) {
	buckets := p.invalidation.Extract(body)
	bullishBody, hasBullish := buckets.Lookup(bucketBullish)
	bearishBody, hasBearish := buckets.Lookup(bucketBearish)
	levelsBody, _ := buckets.Lookup(bucketKeyLevels)

	if hasBullish || hasBearish {
		out.BullishInvalidation = extract.ListItems(bullishBody)
		out.BearishInvalidation = extract.ListItems(bearishBody)
		out.KeyLevels = bucketLevels(levelsBody)
		if len(out.KeyLevels) == 0 {
			out.KeyLevels = extract.PriceLevels(body)
		}
		return
	}

	bullish := []string{}
	bearish := []string{}
	keyLevels := []string{}

	for _, item := range extract.ListItems(body) {
		switch {
		case extract.ContainsAny(item, keyLevelWords):
			keyLevels = append(keyLevels, splitValues(afterLabel(item))...)
		case extract.ContainsAny(item, []string{"bullish"}):
			bullish = append(bullish, afterLabel(item))
		case extract.ContainsAny(item, []string{"bearish"}):
			bearish = append(bearish, afterLabel(item))
		}
	}

	if len(keyLevels) == 0 {
		keyLevels = extract.PriceLevels(body)
	}

	out.BullishInvalidation = bullish
	out.BearishInvalidation = bearish
	out.KeyLevels = keyLevels
}

// bucketLevels keeps listed levels whole and splits an inline "1.16, 1.20" value.
func bucketLevels(body string) []string {
	if listed := extract.BulletItems(body); len(listed) > 0 {
		return listed
	}
	levels := []string{}
	for _, item := range extract.ListItems(body) {
		levels = append(levels, splitValues(item)...)
	}
	return levels
}

func (p *Parser) parseRisks(body string, out *domain.RiskConsiderations) {
	buckets := p.riskBuckets.Extract(body)

	if note, ok := extract.LabeledValue(body, "Uncertainty"); ok {
		out.UncertaintyNote = note
	} else if note, ok := buckets.Lookup(bucketUncertainty); ok && note != "" {
		out.UncertaintyNote = extract.CleanMarkdown(note)
	}

	risks, hasRisks := buckets.Lookup(bucketRisks)
	conflicts, hasConflicts := buckets.Lookup(bucketConflicts)
	monitoring, hasMonitoring := buckets.Lookup(bucketMonitoring)

	if hasRisks || hasConflicts || hasMonitoring {
		out.RiskList = extract.ListItems(risks)
		out.ConflictingSignals = extract.ListItems(conflicts)
		out.MonitoringPoints = extract.ListItems(monitoring)
		return
	}

	riskList := []string{}
	conflicting := []string{}
	monitor := []string{}
	for _, item := range items(body, "Uncertainty") {
		switch {
		case extract.ContainsAny(item, p.tables.ConflictWords):
			conflicting = append(conflicting, item)
		case extract.ContainsAny(item, p.tables.MonitorWords):
			monitor = append(monitor, item)
		default:
			riskList = append(riskList, item)
		}
	}
	out.RiskList = riskList
	out.ConflictingSignals = conflicting
	out.MonitoringPoints = monitor
}
