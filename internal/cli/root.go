// Package cli wires the costpilot commands: one-shot detection, the serve
// loop and the waste score helper.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

var (
	envFile      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "costpilot",
	Short: "CostPilot - cloud cost anomaly detection and remediation",
	Long: `CostPilot detects cloud cost anomalies (spikes, idle resources,
overprovisioning, stopped-but-billed instances) across AWS, GCP and Azure,
and drives each anomaly through a remediation pipeline that files a
Terraform change proposal and notifies the team.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load before reading configuration")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig reads configuration, applying CLI overrides
func loadConfig() (*config.Config, *logger.Logger, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, log, nil
}
