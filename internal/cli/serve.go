package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	adminapi "payment-bot/internal/api/admin"
	"payment-bot/internal/api/billing"
	chatapi "payment-bot/internal/api/chat"
	razorpaywebhooks "payment-bot/internal/api/razorpaywebhook"
	sandboxapi "payment-bot/internal/api/sandbox"
	stripewebhooks "payment-bot/internal/api/stripewebhook"
	"payment-bot/internal/api/users"
	"payment-bot/internal/app/conversation"
	routes "payment-bot/internal/app/http"
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, chat endpoints and gateway webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			if migrate {
				if err := rt.migrate(ctx); err != nil {
					return err
				}
			}

			if cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}
			r := gin.Default()

			// CORS before routes
			r.Use(cors.New(cors.Config{
				AllowOrigins:     []string{cfg.CORSOrigin},
				AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
				ExposeHeaders:    []string{"Content-Length"},
				AllowCredentials: true,
				MaxAge:           12 * time.Hour,
			}))

			routes.RegisterRoutes(r, rt.handlers())

			srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
			errCh := make(chan error, 1)
			go func() {
				log.WithField("port", cfg.Port).WithField("gateway", cfg.Gateway).Info("payment-bot listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "migrate the store schema before serving")
	return cmd
}

// handlers builds the HTTP handlers over the runtime. Webhook and sandbox
// routes are only mounted for the gateway in use.
func (rt *runtime) handlers() routes.Handlers {
	h := routes.Handlers{
		JWTSecret: rt.cfg.JWTSecret,
		Billing:   billing.NewHandler(rt.engine, rt.log),
		Chat:      chatapi.NewHandler(conversation.NewDispatcher(rt.engine, rt.log)),
		Users:     users.NewHandler(rt.sessions),
		Admin:     adminapi.NewHandler(rt.engine, rt.cfg.Gateway, rt.log),
	}
	switch {
	case rt.sandbox != nil:
		h.Sandbox = sandboxapi.NewHandler(rt.sandbox)
	case rt.razorpay != nil:
		h.RazorpayWebhook = razorpaywebhooks.NewHandler(rt.razorpay, rt.engine, rt.log)
	case rt.stripe != nil:
		h.StripeWebhook = stripewebhooks.NewHandler(rt.stripe, rt.engine, rt.log)
	}
	return h
}
