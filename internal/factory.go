package internal

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vadiminshakov/chartsense/config"
	"github.com/vadiminshakov/chartsense/internal/clients"
	"github.com/vadiminshakov/chartsense/internal/services/chartimage"
	"github.com/vadiminshakov/chartsense/internal/services/chat"
	"github.com/vadiminshakov/chartsense/internal/services/orchestrator"
	"github.com/vadiminshakov/chartsense/internal/services/safety"
	"github.com/vadiminshakov/chartsense/internal/storage/analyses"
)

// Pipeline bundles the services built from one configuration.
type Pipeline struct {
	Orchestrator *orchestrator.Orchestrator
	Chat         *chat.Service
	Validator    *safety.Validator
	Vision       clients.ChatClient
	Reasoning    clients.ChatClient
	// Journal is nil when journaling is disabled.
	Journal *analyses.WALStore
}

// Close releases the journal.
func (p *Pipeline) Close() error {
	if p.Journal == nil {
		return nil
	}
	return p.Journal.Close()
}

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if lvl == zapcore.DebugLevel {
		cfg.Development = true
		cfg.Encoding = "console"
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}

// ImageLimits converts the image section of cfg.
func ImageLimits(cfg config.ImageConfig) chartimage.Limits {
	return chartimage.Limits{
		MaxBytes:  cfg.MaxBytes,
		MinWidth:  cfg.MinWidth,
		MinHeight: cfg.MinHeight,
		MaxWidth:  cfg.MaxWidth,
		MaxHeight: cfg.MaxHeight,
	}
}

// NewPipeline wires model clients, the safety validator, the optional journal,
// the orchestrator and the follow-up chat. withJournal false skips the journal even when enabled.
func NewPipeline(cfg *config.Config, logger *zap.Logger, withJournal bool) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	vision := newModelClient(cfg.LLM, cfg.LLM.VisionModel, cfg.LLM.VisionTimeout, logger)
	reasoning := newModelClient(cfg.LLM, cfg.LLM.ReasoningModel, cfg.LLM.ReasoningTimeout, logger)

	validator := safety.NewValidator(logger.Named("safety"), nil,
		safety.WithConfidenceFloor(cfg.Safety.ConfidenceFloor))

	p := &Pipeline{
		Validator: validator,
		Vision:    vision,
		Reasoning: reasoning,
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithValidator(validator),
		orchestrator.WithImageLimits(ImageLimits(cfg.Image)),
		orchestrator.WithStrictSafety(cfg.Safety.Strict),
		orchestrator.WithTotalTimeout(cfg.LLM.TotalTimeout),
	}

	if withJournal && cfg.Journal.Enabled {
		journal, err := analyses.NewWALStore(cfg.Journal.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open analyses journal")
		}
		p.Journal = journal
		opts = append(opts, orchestrator.WithJournal(journal))
	}

	p.Orchestrator = orchestrator.New(vision, reasoning, opts...)
	p.Chat = chat.New(reasoning,
		chat.WithLogger(logger.Named("chat")),
		chat.WithValidator(validator),
		chat.WithStrictSafety(cfg.Safety.Strict),
		chat.WithTimeout(cfg.LLM.ReasoningTimeout),
	)
	return p, nil
}

func newModelClient(cfg config.LLMConfig, model string, timeout time.Duration, logger *zap.Logger) *clients.OpenAICompatibleClient {
	return clients.NewOpenAICompatibleClient(cfg.APIURL, cfg.APIKey, model,
		clients.WithTimeout(timeout),
		clients.WithMaxRetries(cfg.MaxRetries),
		clients.WithRetryDelay(cfg.RetryDelay),
		clients.WithTemperature(cfg.Temperature),
		clients.WithMaxTokens(cfg.MaxTokens),
		clients.WithLogger(logger.Named("llm").With(zap.String("model", model))),
	)
}
