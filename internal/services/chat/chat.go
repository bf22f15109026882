// Package chat answers follow-up questions about a finished analysis. The
// conversation is stateless: callers send the analysis and recent turns with
// every question, and every reply passes the safety gate.
package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/chartsense/internal/clients"
	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/promptbuilder"
	"github.com/vadiminshakov/chartsense/internal/services/safety"
)

const (
	maxHistory      = 10
	maxMessageRunes = 2000
	maxFieldRunes   = 500
	defaultTimeout  = 120 * time.Second
	// replies carry no confidence label of their own; score them like /api/validate
	replyConfidence = 0.5
)

// ErrEmptyMessage is returned for a blank question.
var ErrEmptyMessage = errors.New("message is required")

// Request is one follow-up question. AnalysisContext is an analysis as
// returned by the API, in display or transport form.
type Request struct {
	Message         string                   `json:"message"`
	History         []promptbuilder.ChatTurn `json:"history"`
	AnalysisContext map[string]any           `json:"analysis_context"`
}

// Reply is the gated answer. A blocked reply has Success false and Message
// holds the notice instead.
type Reply struct {
	Success    bool               `json:"success"`
	Reply      string             `json:"reply,omitempty"`
	Message    string             `json:"message,omitempty"`
	Level      domain.SafetyLevel `json:"level"`
	Categories []string           `json:"categories"`
	Warnings   []string           `json:"warnings"`
	Timestamp  string             `json:"timestamp"`
}

// Service answers follow-up questions with a text model.
type Service struct {
	logger    *zap.Logger
	client    clients.ChatClient
	prompts   *promptbuilder.PromptBuilder
	validator *safety.Validator
	strict    bool
	timeout   time.Duration
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithValidator replaces the default safety validator.
func WithValidator(v *safety.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithStrictSafety toggles the strict rule set.
func WithStrictSafety(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithTimeout bounds one model call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the reply timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a chat service around a text model client.
func New(client clients.ChatClient, opts ...Option) *Service {
	s := &Service{
		logger:  zap.NewNop(),
		client:  client,
		strict:  true,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.prompts = promptbuilder.NewPromptBuilder(s.logger)
	if s.validator == nil {
		s.validator = safety.NewValidator(s.logger, nil)
	}
	return s
}

// Reply asks the model and gates its answer. Errors are returned for blank
// questions and upstream failures.
func (s *Service) Reply(ctx context.Context, req Request) (*Reply, error) {
	message := truncate(strings.TrimSpace(req.Message), maxMessageRunes)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	history := recentTurns(req.History)
	system := s.prompts.BuildChatSystemPrompt(Summarize(req.AnalysisContext))
	prompt := s.prompts.BuildChatPrompt(history, message)

	s.logger.Info("answering follow-up question", zap.Int("turns", len(history)), zap.String("model", s.client.Model()))
	answer, err := s.client.Chat(ctx, system, prompt)
	if err != nil {
		return nil, errors.Wrap(err, "chat reply")
	}

	res := s.validator.Validate(answer, replyConfidence, s.strict)
	reply := &Reply{
		Success:    res.Level != domain.SafetyBlocked,
		Level:      res.Level,
		Categories: res.Categories(),
		Warnings:   safety.Warnings(res.TriggeredCategories),
		Timestamp:  s.now().UTC().Format(time.RFC3339),
	}

	switch res.Level {
	case domain.SafetyBlocked:
		s.logger.Warn("chat reply blocked", zap.Strings("categories", reply.Categories))
		reply.Message = safety.NoticeFor(res)
	case domain.SafetyWarning:
		s.logger.Warn("chat reply sanitized", zap.Strings("categories", reply.Categories))
		reply.Reply = withDisclaimer(res.ModifiedOutput)
	default:
		reply.Reply = withDisclaimer(answer)
	}

	return reply, nil
}

// Summarize reads the fields a question is answered against from an analysis
// in either display or transport form. Values are trimmed and capped.
func Summarize(analysis map[string]any) promptbuilder.AnalysisSummary {
	if len(analysis) == 0 {
		return promptbuilder.AnalysisSummary{}
	}
	return promptbuilder.AnalysisSummary{
		ChartType:      lookup(analysis, "vision.chart_type", "vision.chart_info.type"),
		Timeframe:      lookup(analysis, "vision.timeframe", "vision.chart_info.timeframe"),
		PriceStructure: lookup(analysis, "vision.price_structure"),
		Trend:          lookup(analysis, "reasoning.market_structure.trend_description", "analysis.market_structure.trend"),
		Momentum:       lookup(analysis, "reasoning.momentum.assessment", "analysis.momentum.assessment"),
		Regime:         lookup(analysis, "reasoning.regime.regime", "analysis.regime.classification"),
		Bias:           lookup(analysis, "reasoning.strategy_bias.bias", "analysis.strategy_bias.bias"),
		Confidence:     lookup(analysis, "reasoning.strategy_bias.confidence", "analysis.strategy_bias.confidence"),
	}
}

func lookup(tree map[string]any, paths ...string) string {
	for _, path := range paths {
		var node any = tree
		for _, key := range strings.Split(path, ".") {
			m, ok := node.(map[string]any)
			if !ok {
				node = nil
				break
			}
			node = m[key]
		}
		if s, ok := node.(string); ok && strings.TrimSpace(s) != "" {
			return truncate(strings.TrimSpace(s), maxFieldRunes)
		}
	}
	return ""
}

// recentTurns keeps the last turns with a known role and some content.
func recentTurns(turns []promptbuilder.ChatTurn) []promptbuilder.ChatTurn {
	out := make([]promptbuilder.ChatTurn, 0, len(turns))
	for _, t := range turns {
		content := truncate(strings.TrimSpace(t.Content), maxMessageRunes)
		if content == "" {
			continue
		}
		if t.Role != promptbuilder.ChatRoleUser && t.Role != promptbuilder.ChatRoleAssistant {
			continue
		}
		out = append(out, promptbuilder.ChatTurn{Role: t.Role, Content: content})
	}
	if len(out) > maxHistory {
		out = out[len(out)-maxHistory:]
	}
	return out
}

func withDisclaimer(text string) string {
	if safety.HasDisclaimer(text) {
		return text
	}
	return text + "\n\n" + safety.ShortDisclaimer
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
