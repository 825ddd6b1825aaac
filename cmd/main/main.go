package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	streamType string
)

var rootCmd = &cobra.Command{
	Use:   "stream-operators",
	Short: "Run map, filter and accumulate operators over live price streams",
	Long: `stream-operators subscribes to price streams and applies operators to every update.
Operators either ask the reasoning service for each result (direct) or have it write
a small function once and run that locally (generate).`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/stream-operators.yaml", "path to config file (defaults are used when missing)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level (DEBUG, INFO, WARNING, ERROR)")
	rootCmd.PersistentFlags().StringVar(&streamType, "stream", "", "override stream.type (swim or simulated)")

	rootCmd.AddCommand(readAdhocCmd, readStreamingCmd, executeCmd, serveCmd, operatorsCmd)
	for _, cmd := range operatorCommands() {
		rootCmd.AddCommand(cmd)
	}
}

// -----------------------------------------------------------------------------

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
