// Package orchestrator runs one chart through intake, both model stages,
// parsing and the safety gate.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/chartsense/internal/clients"
	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/chartimage"
	"github.com/vadiminshakov/chartsense/internal/services/parser"
	"github.com/vadiminshakov/chartsense/internal/services/promptbuilder"
	"github.com/vadiminshakov/chartsense/internal/services/safety"
)

const defaultTotalTimeout = 150 * time.Second

// Journal records analysis outcomes.
type Journal interface {
	Save(event domain.AnalysisEvent) (uint64, error)
}

// Request is one chart to analyze.
type Request struct {
	Image   []byte
	Context map[string]string
}

// Result is the outcome of an analysis. A blocked result is a successful call
// with Success false; Analysis is nil and Message explains why.
type Result struct {
	ID           string             `json:"id"`
	Success      bool               `json:"success"`
	Level        domain.SafetyLevel `json:"level"`
	Categories   []string           `json:"categories"`
	Warnings     []string           `json:"warnings"`
	Message      string             `json:"message,omitempty"`
	Analysis     map[string]any     `json:"analysis,omitempty"`
	Metadata     map[string]any     `json:"metadata"`
	Confidence   float64            `json:"confidence"`
	JournalIndex uint64             `json:"journal_index,omitempty"`

	// Record is the nested transport form, sanitized like Analysis.
	Record map[string]any `json:"-"`
}

// Orchestrator wires the pipeline stages together. Safe for concurrent use.
type Orchestrator struct {
	logger       *zap.Logger
	vision       clients.ChatClient
	reasoning    clients.ChatClient
	prompts      *promptbuilder.PromptBuilder
	parser       *parser.Parser
	validator    *safety.Validator
	journal      Journal
	limits       chartimage.Limits
	strict       bool
	totalTimeout time.Duration
	now          func() time.Time
	newID        func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithJournal records every finished analysis.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

// WithValidator replaces the default safety validator.
func WithValidator(v *safety.Validator) Option {
	return func(o *Orchestrator) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithParser replaces the default parser.
func WithParser(p *parser.Parser) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.parser = p
		}
	}
}

// WithImageLimits sets upload bounds.
func WithImageLimits(l chartimage.Limits) Option {
	return func(o *Orchestrator) {
		o.limits = l
	}
}

// WithStrictSafety toggles the strict rule set.
func WithStrictSafety(strict bool) Option {
	return func(o *Orchestrator) {
		o.strict = strict
	}
}

// WithTotalTimeout bounds a whole analysis, both model calls included.
func WithTotalTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.totalTimeout = d
		}
	}
}

// WithClock overrides time and id generation.
func WithClock(now func() time.Time, newID func() string) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
		if newID != nil {
			o.newID = newID
		}
	}
}

// New creates an orchestrator around the two model clients.
func New(vision, reasoning clients.ChatClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:       zap.NewNop(),
		vision:       vision,
		reasoning:    reasoning,
		limits:       chartimage.DefaultLimits(),
		strict:       true,
		totalTimeout: defaultTotalTimeout,
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.prompts == nil {
		o.prompts = promptbuilder.NewPromptBuilder(o.logger)
	}
	if o.parser == nil {
		o.parser = parser.New(o.logger, parser.DefaultTables())
	}
	if o.validator == nil {
		o.validator = safety.NewValidator(o.logger, nil)
	}
	return o
}

// Analyze runs the full pipeline. Errors are returned for invalid images and
// upstream failures; safety outcomes are reported in the Result.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.totalTimeout)
	defer cancel()

	id := o.newID()
	logger := o.logger.With(zap.String("analysis_id", id))
	userCtx := SanitizeContext(logger, req.Context)

	info, err := chartimage.Inspect(req.Image, o.limits)
	if err != nil {
		logger.Warn("chart image rejected", zap.Error(err))
		return nil, errors.Wrap(err, "inspect chart image")
	}

	metadata := o.metadata(id, userCtx, info)
	pctx := promptbuilder.Context{
		Asset:       userCtx[ContextAsset],
		Timeframe:   userCtx[ContextTimeframe],
		Description: userCtx[ContextDescription],
	}

	logger.Info("running vision analysis", zap.String("model", o.vision.Model()))
	visionText, err := o.vision.ChatWithImage(ctx, promptbuilder.VisionSystemPrompt,
		o.prompts.BuildVisionPrompt(pctx), req.Image, info.MIMEType)
	if err != nil {
		return nil, errors.Wrap(err, "vision analysis")
	}

	logger.Info("running reasoning analysis", zap.String("model", o.reasoning.Model()))
	reasoningText, err := o.reasoning.Chat(ctx, promptbuilder.ReasoningSystemPrompt,
		o.prompts.BuildReasoningPrompt(visionText, pctx))
	if err != nil {
		return nil, errors.Wrap(err, "reasoning analysis")
	}

	analysis := o.parser.ParseCompleteAnalysis(visionText, reasoningText, metadata)
	result := o.gate(logger, id, analysis)
	result.Metadata = analysis.Metadata()

	if o.journal != nil {
		o.record(logger, result, userCtx, analysis)
	}

	return result, nil
}

// gate validates every displayed segment and decides what may be shown.
func (o *Orchestrator) gate(logger *zap.Logger, id string, analysis domain.CompleteAnalysis) *Result {
	segments := analysis.TextSegments()
	texts := make([]string, 0, len(segments))
	for _, s := range segments {
		texts = append(texts, s.Text)
	}
	confidence := safety.AssessConfidence(strings.Join(texts, "\n"), analysis.Reasoning().StrategyBias.Confidence)

	if len(segments) == 0 {
		segments = []domain.TextSegment{{Key: "empty"}}
	}

	categories := domain.CategorySet{}
	level := domain.SafetySafe
	for _, s := range segments {
		res := o.validator.Validate(s.Text, confidence, o.strict)
		level = level.Max(res.Level)
		for c := range res.TriggeredCategories {
			categories.Add(c)
		}
		if res.Level != domain.SafetySafe {
			logger.Debug("segment flagged", zap.String("segment", s.Key), zap.String("level", string(res.Level)))
		}
	}

	result := &Result{
		ID:         id,
		Success:    level != domain.SafetyBlocked,
		Level:      level,
		Categories: categories.Strings(),
		Warnings:   safety.Warnings(categories),
		Confidence: confidence,
	}

	switch level {
	case domain.SafetyBlocked:
		logger.Warn("analysis blocked", zap.Strings("categories", result.Categories))
		result.Message = safety.NoticeFor(domain.SafetyResult{Level: level, TriggeredCategories: categories})
	case domain.SafetyWarning:
		logger.Warn("analysis sanitized", zap.Strings("categories", result.Categories))
		result.Analysis = safety.SanitizeTree(analysis.ToDisplayFormat()).(map[string]any)
		result.Record = safety.SanitizeTree(analysis.ToDict()).(map[string]any)
	default:
		result.Analysis = analysis.ToDisplayFormat()
		result.Record = analysis.ToDict()
	}

	return result
}

func (o *Orchestrator) metadata(id string, userCtx map[string]string, info chartimage.Info) map[string]any {
	metadata := map[string]any{
		"analysis_id":     id,
		"timestamp":       o.now().UTC().Format(time.RFC3339),
		"vision_model":    domain.NormalizeModelName(o.vision.Model()),
		"reasoning_model": domain.NormalizeModelName(o.reasoning.Model()),
		"image_format":    info.Format,
		"image_width":     info.Width,
		"image_height":    info.Height,
		"image_bytes":     info.Bytes,
		"strict_safety":   o.strict,
	}
	for k, v := range userCtx {
		metadata[k] = v
	}
	return metadata
}

// record journals the outcome. Journal failures are logged, not returned.
func (o *Orchestrator) record(logger *zap.Logger, result *Result, userCtx map[string]string, analysis domain.CompleteAnalysis) {
	reasoning := analysis.Reasoning()
	event := domain.NewAnalysisEvent(
		result.ID,
		o.now(),
		userCtx[ContextAsset],
		userCtx[ContextTimeframe],
		o.vision.Model(),
		o.reasoning.Model(),
		result.Level,
		result.Categories,
		reasoning.StrategyBias.Bias,
		result.Confidence,
		reasoning.Regime.Regime,
	)

	idx, err := o.journal.Save(event)
	if err != nil {
		logger.Error("failed to journal analysis", zap.Error(err))
		return
	}
	result.JournalIndex = idx
}
