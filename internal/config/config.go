package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultWebhookSecret     = "change-me-webhook-secret"
	defaultManageTokenSecret = "change-me-manage-token-secret"
	defaultInternalToken     = "change-me-internal-token"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:"file:slotkeeper.db?_pragma=busy_timeout(5000)"`

	SchedulingBaseURL       string        `envconfig:"SCHEDULING_BASE_URL" default:"https://eu-central-1.hapio.net/v1"`
	SchedulingAPIToken      string        `envconfig:"SCHEDULING_API_TOKEN"`
	SchedulingWebhookSecret string        `envconfig:"SCHEDULING_WEBHOOK_SECRET" default:"change-me-webhook-secret"`
	SchedulingTimeout       time.Duration `envconfig:"SCHEDULING_TIMEOUT" default:"20s"`
	DefaultLocationID       string        `envconfig:"DEFAULT_LOCATION_ID"`

	StripeSecretKey  string        `envconfig:"STRIPE_SECRET_KEY"`
	PaymentCurrency  string        `envconfig:"PAYMENT_CURRENCY" default:"usd"`
	PaymentMinCents  int64         `envconfig:"PAYMENT_MIN_CENTS" default:"50"`
	PaymentTimeout   time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"20s"`
	BusinessTimezone string        `envconfig:"BUSINESS_TIMEZONE" default:"UTC"`

	RescheduleCutoff time.Duration `envconfig:"RESCHEDULE_CUTOFF" default:"72h"`
	CatalogFile      string        `envconfig:"CATALOG_FILE" default:"services.yaml"`

	ManageTokenSecret string        `envconfig:"MANAGE_TOKEN_SECRET" default:"change-me-manage-token-secret"`
	ManageTokenTTL    time.Duration `envconfig:"MANAGE_TOKEN_TTL" default:"2160h"`
	InternalToken     string        `envconfig:"INTERNAL_TOKEN" default:"change-me-internal-token"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	NotifyExchange string `envconfig:"NOTIFY_EXCHANGE" default:"booking.notifications"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.PaymentCurrency = strings.ToLower(strings.TrimSpace(cfg.PaymentCurrency))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.SchedulingTimeout <= 0 {
		return fmt.Errorf("SCHEDULING_TIMEOUT must be > 0")
	}
	if cfg.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be > 0")
	}
	if cfg.RescheduleCutoff <= 0 {
		return fmt.Errorf("RESCHEDULE_CUTOFF must be > 0")
	}
	if cfg.ManageTokenTTL <= 0 {
		return fmt.Errorf("MANAGE_TOKEN_TTL must be > 0")
	}
	if cfg.PaymentMinCents <= 0 {
		return fmt.Errorf("PAYMENT_MIN_CENTS must be > 0")
	}
	if cfg.PaymentCurrency == "" {
		return fmt.Errorf("PAYMENT_CURRENCY must not be empty")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if _, err := time.LoadLocation(cfg.BusinessTimezone); err != nil {
		return fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", cfg.BusinessTimezone, err)
	}
	format := strings.ToLower(cfg.LogFormat)
	if format != "text" && format != "json" {
		return fmt.Errorf("LOG_FORMAT must be one of: text, json")
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.SchedulingWebhookSecret, defaultWebhookSecret) {
			return fmt.Errorf("in prod/release SCHEDULING_WEBHOOK_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.ManageTokenSecret, defaultManageTokenSecret) {
			return fmt.Errorf("in prod/release MANAGE_TOKEN_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.InternalToken, defaultInternalToken) {
			return fmt.Errorf("in prod/release INTERNAL_TOKEN must be set and not default")
		}
		if strings.TrimSpace(cfg.SchedulingAPIToken) == "" {
			return fmt.Errorf("in prod/release SCHEDULING_API_TOKEN must be set")
		}
		if strings.TrimSpace(cfg.StripeSecretKey) == "" {
			return fmt.Errorf("in prod/release STRIPE_SECRET_KEY must be set")
		}
	}

	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
