package main

import (
	"delivery-fee-service/internal/config"
	"delivery-fee-service/internal/platform/logging"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

var logLevel string

func main() {
	config.LoadDotEnv()

	rootCmd := &cobra.Command{
		Use:           "deliveryctl",
		Short:         "Operate the delivery fee service: schema, tenants and quotes",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.Get("LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(quoteCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes to stderr so command output stays clean on stdout.
func newLogger() *slog.Logger {
	return logging.NewWithWriter(os.Stderr, logging.Config{Level: logLevel})
}
