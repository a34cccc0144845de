package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"martaudit/internal/config"
	"martaudit/internal/logging"
	"martaudit/pkg/models"
)

var (
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "martaudit",
		Short: "Audit data-warehouse mart tables for quality defects",
		Long: "MartAudit generates SQL data-quality checks for dbt mart models using a " +
			"language model, executes them against the warehouse, and reports defects.",
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.martaudit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(home + "/.martaudit")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is okay for now
	}
}

// loadConfig loads the effective configuration for a command. The
// --config flag wins, then MARTAUDIT_CONFIG, then whichever file viper
// discovered in the working directory or ~/.martaudit.
func loadConfig() (*models.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	if os.Getenv("MARTAUDIT_CONFIG") == "" {
		if discovered := viper.ConfigFileUsed(); discovered != "" {
			return config.LoadFile(discovered)
		}
	}
	return config.Load()
}

// newLogger builds the run logger: stdout plus the audit log file when
// one is configured
func newLogger(cfg *models.Config) (*logging.Logger, func(), error) {
	outputs := []io.Writer{os.Stdout}
	cleanup := func() {}

	if cfg.Audit.LogFile != "" {
		f, err := os.OpenFile(cfg.Audit.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		outputs = append(outputs, f)
		cleanup = func() { f.Close() }
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Level:   logging.ParseLevel(logLevel),
		Outputs: outputs,
	})
	return logger, cleanup, nil
}
