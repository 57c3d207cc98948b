package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/riskwatch/riskwatch/internal/config"
	"github.com/riskwatch/riskwatch/internal/logger"
)

var (
	cfgPath string
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "riskwatch",
	Short: "Vendor risk news pipeline and dashboard guard",
	Long: `riskwatch ingests vendor risk news into a local SQLite store,
classifies it against configurable vendor and risk rules, and guards the
dashboard's protected KPI page against accidental edits.

Run "riskwatch daemon start" for the periodic pipeline, or invoke the
individual steps (ingest, reclassify, backup) directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger.Init(logger.Config{
			Level:  logger.ParseLevel(level),
			Format: cfg.LogFormat,
			Output: os.Stderr,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.riskwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
