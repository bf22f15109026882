package main

import (
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/chartsense/config"
	"github.com/vadiminshakov/chartsense/internal/setup"
)

var setupOutput string

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setup.RunTUI(setupOutput)
	},
}

func init() {
	setupCmd.Flags().StringVarP(&setupOutput, "output", "o", config.DefaultPath, "where to write the config")
}
