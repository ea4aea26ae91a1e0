package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"payment-bot/internal/app/http/middleware"
	"payment-bot/internal/app/payments"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the payment store schema and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate %s store: %w", cfg.StoreDriver, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s store is up to date\n", cfg.StoreDriver)
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [order-id]",
		Short: "Reconcile one payment with the gateway",
		Long: `Reconcile one payment with the gateway, confirming it if the gateway
reports the order paid. Safe to run any number of times.

Examples:
  payment-bot check order_NGfyB7nXqYxa3A`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.engine.Reconcile(cmd.Context(), payments.ReconcileRequest{
				OrderID: args[0],
				Source:  payments.SourceCLI,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "order:   %s\noutcome: %s\n", res.OrderID, res.Outcome)
			if res.GatewayStatus != "" {
				fmt.Fprintf(out, "gateway: %s\n", res.GatewayStatus)
			}
			if res.Payment != nil {
				fmt.Fprintf(out, "status:  %s\namount:  %s %s\n",
					res.Payment.Status, rt.engine.Format(res.Payment.Amount), res.Payment.Currency)
			}
			if res.Outcome == payments.OutcomeDiscrepancy {
				fmt.Fprintf(out, "expected %d, gateway reported %d (minor units)\n", res.ExpectedMinor, res.ReportedMinor)
			}

			switch res.Outcome.Category() {
			case payments.CategoryTransient, payments.CategoryLogical:
				return fmt.Errorf("check %s: %s", res.OrderID, res.Outcome)
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [user-id]",
		Short: "List a user's most recent payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			list, err := rt.engine.History(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("history for %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No payment history found.")
				return nil
			}
			for _, p := range list {
				fmt.Fprintf(out, "%s  %-7s  %12s %s  %s\n",
					p.CreatedAt.Format("2006-01-02 15:04"), p.Status,
					rt.engine.Format(p.Amount), p.Currency, p.OrderID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum payments to list (defaults to HISTORY_LIMIT)")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Issue an API token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, args[0], role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "user", "role claim (user or admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
