package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/dreamseed/internal/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "dreamseed",
	Short:         "Dream DNA extraction and reconciliation service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		// Only the service logs to stdout; CLI commands keep stdout for results.
		out := os.Stderr
		if cmd == serveCmd {
			out = os.Stdout
		}
		setupLogging(cfg.LogLevel, out)
	},
}

var cfg config.Config

func main() {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd, extractCmd, reclassifyCmd, dedupCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(level string, w io.Writer) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
