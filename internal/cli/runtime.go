package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"payment-bot/config"
	"payment-bot/database"
	"payment-bot/internal/app/payments"
	"payment-bot/internal/domain/billing"
	"payment-bot/internal/domain/session"
	"payment-bot/internal/infra/kafka"
	"payment-bot/internal/infra/razorpay"
	"payment-bot/internal/infra/redisstore"
	"payment-bot/internal/infra/sandbox"
	"payment-bot/internal/infra/store/gormstore"
	"payment-bot/internal/infra/store/memstore"
	"payment-bot/internal/infra/store/mongostore"
	"payment-bot/internal/infra/stripe"
)

// runtime holds every client built from configuration. Exactly one of the
// gateway adapters is set.
type runtime struct {
	cfg *config.Config
	log logrus.FieldLogger

	engine   *payments.Engine
	sessions *session.Tracker

	db    *gorm.DB
	mongo *mongostore.PaymentStore

	sandbox  *sandbox.Gateway
	razorpay *razorpay.Gateway
	stripe   *stripe.Gateway

	closers []func() error
}

func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildRuntime connects the store, session backend, gateway and notifier
// selected by cfg and assembles the engine over them. On error everything
// opened so far is closed.
func buildRuntime(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (_ *runtime, err error) {
	rt := &runtime{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	currency, err := billing.NewCurrency(cfg.Currency, cfg.CurrencyExponent)
	if err != nil {
		return nil, err
	}
	policy, err := billing.NewAmountPolicy(cfg.MinAmount, cfg.MaxAmount)
	if err != nil {
		return nil, err
	}

	store, err := rt.openStore(ctx)
	if err != nil {
		return nil, err
	}

	sessionBackend := session.Backend(session.NewMemoryBackend())
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rt.closers = append(rt.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		sessionBackend = redisstore.NewSessionBackend(rdb, cfg.SessionTTL)
		store = redisstore.NewCachedStore(store, rdb, cfg.HistoryCacheTTL, log)
		log.WithField("addr", cfg.RedisAddr).Info("using redis sessions and history cache")
	}
	rt.sessions = session.NewTracker(sessionBackend)

	gateway, err := rt.openGateway(currency)
	if err != nil {
		return nil, err
	}

	var notifier payments.Notifier = &payments.LogNotifier{Log: log}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewSyncProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		kn := kafka.NewNotifier(producer, cfg.KafkaTopicPrefix, log)
		rt.closers = append(rt.closers, kn.Close)
		notifier = kn
	}

	rt.engine = payments.NewEngine(payments.Deps{
		Store:        store,
		Gateway:      gateway,
		Sessions:     rt.sessions,
		Notifier:     notifier,
		Policy:       policy,
		Currency:     currency,
		HistoryLimit: cfg.HistoryLimit,
		Log:          log,
	})
	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context) (billing.Store, error) {
	cfg := rt.cfg
	switch cfg.StoreDriver {
	case config.StoreMemory:
		rt.log.Warn("using in-memory payment store; payments are lost on restart")
		return memstore.NewPaymentStore(), nil

	case config.StorePostgres, config.StoreSQLite:
		db, err := database.Open(cfg.StoreDriver, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		rt.db = db
		if sqlDB, err := db.DB(); err == nil {
			rt.closers = append(rt.closers, sqlDB.Close)
		}
		return gormstore.NewPaymentStore(db), nil

	case config.StoreMongo:
		client, store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.DatabaseName)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() error {
			return client.Disconnect(context.Background())
		})
		rt.mongo = store
		return store, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func (rt *runtime) openGateway(currency billing.Currency) (billing.Gateway, error) {
	cfg := rt.cfg
	switch cfg.Gateway {
	case config.GatewaySandbox:
		rt.sandbox = sandbox.NewGateway(currency, cfg.PaymentLinkBase)
		return rt.sandbox, nil

	case config.GatewayRazorpay:
		rt.razorpay = razorpay.NewGateway(razorpay.Config{
			KeyID:         cfg.RazorpayKeyID,
			KeySecret:     cfg.RazorpayKeySecret,
			WebhookSecret: cfg.RazorpayWebhookSecret,
			LinkBase:      cfg.PaymentLinkBase,
			Currency:      currency,
		})
		return rt.razorpay, nil

	case config.GatewayStripe:
		rt.stripe = stripe.NewGateway(stripe.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			AppURL:        cfg.AppURL,
			Currency:      currency,
			SessionTTL:    cfg.PaymentTimeout,
		})
		return rt.stripe, nil
	}
	return nil, fmt.Errorf("unknown gateway %q", cfg.Gateway)
}

// migrate prepares the configured store's schema or indexes.
func (rt *runtime) migrate(ctx context.Context) error {
	switch {
	case rt.db != nil:
		return database.Migrate(rt.db)
	case rt.mongo != nil:
		return rt.mongo.EnsureIndexes(ctx)
	}
	return nil
}
