package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	debugMode  bool
)

func setupLogger(debugMode bool) {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "wordkeep",
		Short:         "Local-first vocabulary tracker with spaced repetition",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			return nil
		},
	}
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the configuration file")
	rootCommand.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	rootCommand.AddCommand(newAddCommand())
	rootCommand.AddCommand(newListCommand())
	rootCommand.AddCommand(newDueCommand())
	rootCommand.AddCommand(newReviewCommand())
	rootCommand.AddCommand(newBackupCommand())
	rootCommand.AddCommand(newSyncCommand())
	rootCommand.AddCommand(newStatsCommand())
	rootCommand.AddCommand(newExportCommand())

	return rootCommand
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
