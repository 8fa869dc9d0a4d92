// The tendly binary serves the task garden API and carries the operational
// tooling for its local cache.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alsoknownaszac/tendly/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	flagConfig   string
	flagDataDir  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "tendly",
	Short:         "Gamified task garden with a reconciled remote mirror",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "tendly.yml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "override the data directory")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the log level (trace..error)")
	rootCmd.PersistentFlags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "datadir":
			name = "data-dir"
		case "loglevel":
			name = "log-level"
		}
		return pflag.NormalizedName(name)
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
