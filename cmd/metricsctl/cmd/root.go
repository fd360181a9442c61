// Package cmd contains the admin commands for contribution-metrics, built
// using the Cobra library. Commands share the server's environment
// configuration.
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"contribution-metrics/internal/app"
	"contribution-metrics/internal/platform/config"
	"contribution-metrics/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:   "metricsctl",
	Short: "Administer a contribution-metrics deployment.",
	Long: `metricsctl runs maintenance tasks against the same stores the server uses:
schema migrations, GitHub organization syncs and token refreshes.
Configuration is read from the environment.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.AddCommand(migrateCmd, syncCmd, refreshTokenCmd, genKeyCmd)
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return logger.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Format, "metricsctl")
}

// withApp builds the application for a single command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.FromEnv()
	ctx := cmd.Context()
	a, err := app.Build(ctx, cfg, newLogger(cmd, cfg), prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
