package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/chartsense/internal"
	"github.com/vadiminshakov/chartsense/internal/render"
	"github.com/vadiminshakov/chartsense/internal/services/orchestrator"
	"github.com/vadiminshakov/chartsense/internal/services/safety"
)

var (
	analyzeAsset       string
	analyzeTimeframe   string
	analyzeDescription string
	analyzeJSON        bool
	analyzeDisclaimer  string
	analyzeNoJournal   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze one chart screenshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeAsset, "asset", "", "asset shown on the chart, e.g. BTC/USD")
	f.StringVar(&analyzeTimeframe, "timeframe", "", "chart timeframe, e.g. 4H")
	f.StringVar(&analyzeDescription, "description", "", "free-form notes passed to the models")
	f.BoolVar(&analyzeJSON, "json", false, "print the nested analysis as JSON")
	f.StringVar(&analyzeDisclaimer, "disclaimer", "", "disclaimer position: top, bottom or both (overrides config)")
	f.BoolVar(&analyzeNoJournal, "no-journal", false, "do not record the analysis in the journal")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	position := cfg.Safety.DisclaimerPosition
	if analyzeDisclaimer != "" {
		position = analyzeDisclaimer
	}
	pos, err := safety.ParsePosition(position)
	if err != nil {
		return err
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "read %s", args[0])
	}

	pipeline, err := internal.NewPipeline(cfg, logger, !analyzeNoJournal)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Orchestrator.Analyze(ctx, orchestrator.Request{
		Image: image,
		Context: map[string]string{
			orchestrator.ContextAsset:       analyzeAsset,
			orchestrator.ContextTimeframe:   analyzeTimeframe,
			orchestrator.ContextDescription: analyzeDescription,
		},
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonView(res))
	}

	text := render.Result(res)
	if res.Success {
		text = safety.Inject(text, pos)
	}
	_, err = fmt.Fprintln(out, text)
	return err
}

// jsonView exposes the nested record form instead of the display tree.
func jsonView(res *orchestrator.Result) map[string]any {
	view := map[string]any{
		"id":         res.ID,
		"success":    res.Success,
		"level":      res.Level,
		"categories": res.Categories,
		"warnings":   res.Warnings,
		"confidence": res.Confidence,
		"metadata":   res.Metadata,
	}
	if res.Message != "" {
		view["message"] = res.Message
	}
	if res.Record != nil {
		view["analysis"] = res.Record
	}
	return view
}
