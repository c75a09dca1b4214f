// Command villagesim runs the hamlet village simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
	dbPath   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "villagesim",
	Short: "Hamlet - a small village that hunts, cooks, builds and gossips",
	Long: `villagesim simulates a village day by day.

Villagers hunt, cook, look after the injured and build, each activity
shaped by how much it has come to mean to them. Trust and rumors move
between them as they work and gather in the evening.

The village is saved to SQLite and resumed on the next run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLevel(logLevel)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "data/village.db", "SQLite database path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
