package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gjeldshjelp/debt-cli/internal/config"
)

// noConfig marks commands that run without loading config or a logger.
const noConfig = "no-config"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "debt-cli",
	Short: "Collect, normalize and aggregate Norwegian debt collection data",
	Long:  "Extracts debt records from collector pages and PDF statements, validates them against the canonical schema, stores per-site snapshots, and aggregates them per person for export.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configure(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// configure loads config for cmd and installs the global logger. A
// --log-level given on the command line wins over config and environment.
func configure(cmd *cobra.Command) error {
	if _, ok := cmd.Annotations[noConfig]; ok {
		return nil
	}

	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		c.Log.Level = f.Value.String()
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	cfg = c

	zap.L().Debug("config loaded",
		zap.String("command", cmd.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.String("pdf_provider", cfg.PDF.Provider),
	)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error); overrides log.level")
}
