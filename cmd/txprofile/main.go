package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/txprofile/internal/pipeline"
	"github.com/ajitpratap0/txprofile/pkg/config"
	"github.com/ajitpratap0/txprofile/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(newViper())
}

// newViper reads TXPROFILE_* variables, with dashes in keys mapped to underscores
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TXPROFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func buildRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "txprofile",
		Short: "Profile, downcast and chart a card transactions CSV",
		Long: `txprofile loads a card transactions CSV, reports the memory footprint of
every selected column, downcasts the storage, exports the filtered columns
and renders five charts into the results directory.

Example:
  txprofile --input transactions_data.csv --output-dir results`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, v.GetString("cpuprofile"), v.GetString("memprofile"))
		},
	}

	flags := root.Flags()
	flags.StringP("config", "c", "", "Path to a YAML configuration file (optional)")
	flags.StringP("input", "i", "", "Path to the transactions CSV")
	flags.StringP("output-dir", "o", "", "Directory receiving reports, exports and charts")
	flags.Int("batch-size", 0, "Number of rows read and coerced at a time")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log encoding (console, json)")
	flags.String("cpuprofile", "", "Write a CPU profile of the run to file")
	flags.String("memprofile", "", "Write a heap profile to file after the run")
	_ = v.BindPFlags(flags)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "txprofile v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	return root
}

// resolveConfig layers defaults, the optional config file, then flags and
// TXPROFILE_* environment variables
func resolveConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Default()

	if path := v.GetString("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	}

	if v.IsSet("input") {
		cfg.Source.Path = v.GetString("input")
	}
	if v.IsSet("output-dir") {
		cfg.Output.Dir = v.GetString("output-dir")
	}
	if v.IsSet("batch-size") {
		cfg.Source.BatchSize = v.GetInt("batch-size")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("log-format") {
		cfg.Logging.Format = v.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, cpuProfile, memProfile string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(logger.Config{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Format,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pipeline.Version = version
	log := logger.With(zap.String("component", "txprofile-cli"))

	prof := &profiling{cpuFile: cpuProfile, memFile: memProfile, logger: log}
	if err := prof.start(); err != nil {
		return err
	}
	defer prof.stop()

	result, err := pipeline.New(cfg, log).Run(ctx)
	if err != nil {
		return fmt.Errorf("txprofile run failed: %w", err)
	}

	log.Info("results written",
		zap.String("run_id", result.RunID),
		zap.String("output_dir", cfg.Output.Dir),
		zap.Int("rows", result.Rows))
	return nil
}
