// Package cli wires configuration, infrastructure and the payment engine
// into the payment-bot commands.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"payment-bot/config"
	"payment-bot/internal/infra/logging"
)

// loadEnv is swapped in tests.
var loadEnv = config.LoadEnv

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "payment-bot",
		Short: "Payment bot - create, track and reconcile gateway payments",
		Long: `payment-bot creates payment orders with a gateway (Razorpay, Stripe or the
built-in sandbox), records them as PENDING and confirms each exactly once
when the gateway reports it paid.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadConfig reads configuration and builds the logger every command uses.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return cfg, log, nil
}
