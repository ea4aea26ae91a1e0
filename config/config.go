package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	GatewayRazorpay = "razorpay"
	GatewayStripe   = "stripe"
	GatewaySandbox  = "sandbox"

	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

type Config struct {
	Port       string
	AppEnv     string
	CORSOrigin string
	JWTSecret  string

	Gateway               string
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	PaymentLinkBase       string
	StripeSecretKey       string
	StripeWebhookSecret   string
	AppURL                string

	StoreDriver  string
	DBURL        string
	MongoURI     string
	DatabaseName string

	RedisAddr       string
	SessionTTL      time.Duration
	HistoryCacheTTL time.Duration

	KafkaBrokers     []string
	KafkaTopicPrefix string

	Currency         string
	CurrencyExponent int32
	MinAmount        decimal.Decimal
	MaxAmount        decimal.Decimal
	HistoryLimit     int
	PaymentTimeout   time.Duration

	LogLevel  string
	LogFormat string
}

// LoadEnv reads .env (when present) and the process environment.
func LoadEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found. Using system environment variables.")
	}

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		AppEnv:     getEnv("APP_ENV", "development"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		Gateway:               strings.ToLower(getEnv("GATEWAY", GatewaySandbox)),
		RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		PaymentLinkBase:       getEnv("PAYMENT_LINK_BASE", "https://rzp.io/i/"),
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		AppURL:                getEnv("APP_URL", "http://localhost:3000"),

		StoreDriver:  strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		DBURL:        getEnv("DB_URL", ""),
		MongoURI:     getEnv("MONGODB_URI", ""),
		DatabaseName: getEnv("DATABASE_NAME", "payment_bot"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "payments"),

		Currency:  strings.ToUpper(getEnv("CURRENCY", "INR")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.JWTSecret, err = mustEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.HistoryCacheTTL, err = durationEnv("HISTORY_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PaymentTimeout, err = durationEnv("PAYMENT_TIMEOUT", time.Hour); err != nil {
		return nil, err
	}
	if cfg.MinAmount, err = decimalEnv("MIN_AMOUNT", "1"); err != nil {
		return nil, err
	}
	if cfg.MaxAmount, err = decimalEnv("MAX_AMOUNT", "100000"); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = intEnv("HISTORY_LIMIT", 10); err != nil {
		return nil, err
	}
	exp, err := intEnv("CURRENCY_EXPONENT", 2)
	if err != nil {
		return nil, err
	}
	cfg.CurrencyExponent = int32(exp)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected gateway and store have what they need.
func (c *Config) Validate() error {
	switch c.Gateway {
	case GatewayRazorpay:
		if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
			return fmt.Errorf("GATEWAY=razorpay requires RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET")
		}
	case GatewayStripe:
		if c.StripeSecretKey == "" {
			return fmt.Errorf("GATEWAY=stripe requires STRIPE_SECRET_KEY")
		}
	case GatewaySandbox:
		if c.IsProduction() {
			return fmt.Errorf("GATEWAY=sandbox is not allowed when APP_ENV=production")
		}
	default:
		return fmt.Errorf("unknown GATEWAY %q", c.Gateway)
	}

	switch c.StoreDriver {
	case StorePostgres, StoreSQLite:
		if c.DBURL == "" {
			return fmt.Errorf("STORE_DRIVER=%s requires DB_URL", c.StoreDriver)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("STORE_DRIVER=mongo requires MONGODB_URI")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required environment variable: %s", key)
	}
	return v, nil
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func decimalEnv(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
