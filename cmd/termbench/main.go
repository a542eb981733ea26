// Package main is the entry point for the termbench CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termbench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/logger"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "termbench:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "termbench",
		Short: "Benchmark automatic term extraction against a gold standard",
		Long: `termbench indexes a zipped corpus, ranks candidate terms with an extraction
algorithm, and scores the ranking against a gold-standard term list, reporting
precision at each rank cutoff and overall recall.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (TB_* environment variables override it)")

	cmd.AddCommand(runCmd(&configPath))
	cmd.AddCommand(collectCmd(&configPath))
	cmd.AddCommand(historyCmd(&configPath))
	cmd.AddCommand(versionCmd())
	return cmd
}

// loadConfig reads the config and installs the default logger.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "%v", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "termbench %s (%s)\n", version, commit)
		},
	}
}
