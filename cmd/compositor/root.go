package main

import (
	"fmt"
	"os"
	"time"

	"github.com/phanxgames/compositor"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "compositor",
	Short: "Transactional display-node compositor",
	Long:  `compositor keeps a client-side display tree and a host visual tree consistent through batched transactions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetCount("verbose")
		setupLogger(verbose)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "compositor.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")
}

func setupLogger(verbosity int) {
	zerolog.SetGlobalLevel(verbosityLevel(verbosity))
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}).With().Timestamp().Logger()
	compositor.SetLogger(logger)
}

func verbosityLevel(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// logLevel picks the global level once a config is loaded: -v flags win
// over the config's logLevel.
func logLevel(verbosity int, cfg compositor.Config) (zerolog.Level, error) {
	if verbosity > 0 {
		return verbosityLevel(verbosity), nil
	}
	return cfg.Level()
}

// loadConfig reads --config, applies --mode when given and sets the log
// level.
func loadConfig(cmd *cobra.Command) (compositor.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := compositor.LoadConfigFile(path)
	if err != nil {
		return cfg, err
	}
	verbose, _ := cmd.Flags().GetCount("verbose")
	lvl, err := logLevel(verbose, cfg)
	if err != nil {
		return cfg, err
	}
	zerolog.SetGlobalLevel(lvl)
	if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
		mode, err := compositor.ParseCompositionMode(f.Value.String())
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	return cfg, nil
}
