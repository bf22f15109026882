package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/chartsense/internal/services/safety"
)

var errBlocked = errors.New("output blocked by safety filter")

var (
	validateConfidence float64
	validateStrict     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [text]",
	Short: "Run text through the safety filter",
	Long:  `Validates text given as arguments, or read from stdin when no arguments are given, and prints what may be shown.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().Float64Var(&validateConfidence, "confidence", 0.5, "confidence score of the text")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "also apply strict-only rules")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "read stdin")
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text to validate")
	}

	v := safety.NewValidator(logger.Named("safety"), nil, safety.WithConfidenceFloor(cfg.Safety.ConfidenceFloor))
	ok, output, warnings := v.ValidateAndSanitize(text, validateConfidence, validateStrict)

	for _, w := range warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)

	if !ok {
		return errBlocked
	}
	return nil
}
