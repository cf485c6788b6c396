package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arkado/chainwatch/pkg/config"
	"github.com/arkado/chainwatch/pkg/logging"
)

var (
	configPath string

	cfg *config.Config
	log *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chainwatch",
	Short: "Ensemble anomaly detection for supply-chain telemetry",
	Long: `chainwatch combines several anomaly detectors (isolation forest,
z-score, MAD, k-means) into one calibrated decision over telemetry such as
temperatures, quantities, costs and lead times.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log = newLogger(cfg.Logging)
		logging.SetGlobal(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ./chainwatch.yaml)")
	rootCmd.AddCommand(trainCmd, detectCmd, evalCmd)
}

func newLogger(lc config.LoggingConfig) *logging.Logger {
	level := zerolog.InfoLevel
	switch lc.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	if lc.Format == "json" {
		return logging.NewWithWriter(os.Stderr, level)
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return logging.NewWithWriter(console, level)
}
