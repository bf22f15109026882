// Command chartsense analyzes trading chart screenshots with a vision model
// and a reasoning model, then gates the result through a safety filter.
//
// Usage:
//
//	chartsense analyze chart.png --asset BTC/USD --timeframe 4H
//	chartsense serve --config config.gen.yaml
//	chartsense validate "text to check"
//	chartsense setup
//
// The API key is read from LLM_API_KEY or HF_API_KEY when not set in the config file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/chartsense/config"
	"github.com/vadiminshakov/chartsense/internal"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "chartsense",
	Short:         "Educational chart analysis with a safety gate",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("YAML config file (defaults to %s when present)", config.DefaultPath))

	rootCmd.AddCommand(analyzeCmd, serveCmd, validateCmd, setupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config file and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger, err := internal.NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
