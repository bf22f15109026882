package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/chartsense/internal"
	"github.com/vadiminshakov/chartsense/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Starts the chartsense HTTP API with chart analysis, text validation and the analysis event stream.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	pipeline, err := internal.NewPipeline(cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Warn("failed to close journal", zap.Error(err))
		}
	}()

	var journal web.JournalReader
	if pipeline.Journal != nil {
		journal = pipeline.Journal
	}

	srv := web.NewServer(cfg.Server.Addr, pipeline.Orchestrator, pipeline.Validator, journal,
		web.WithLogger(logger.Named("web")),
		web.WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		web.WithMaxUploadBytes(cfg.Image.MaxBytes),
		web.WithModels(cfg.LLM.VisionModel, cfg.LLM.ReasoningModel),
		web.WithChat(pipeline.Chat),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting chartsense",
		zap.String("addr", cfg.Server.Addr),
		zap.String("vision_model", cfg.LLM.VisionModel),
		zap.String("reasoning_model", cfg.LLM.ReasoningModel),
		zap.Bool("strict_safety", cfg.Safety.Strict),
		zap.Bool("journal", pipeline.Journal != nil))

	if len(cfg.Server.AutoTLSDomains) > 0 {
		return srv.StartWithAutoTLS(ctx, cfg.Server.AutoTLSDomains, cfg.Server.CertCacheDir)
	}
	return srv.Start(ctx)
}
