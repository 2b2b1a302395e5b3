package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/linkupapp/linkup/internal/crypto"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	StripeWebhookSecret          string        `env:"STRIPE_WEBHOOK_SECRET"`
	StripeWebhookSecretEncrypted string        `env:"STRIPE_WEBHOOK_SECRET_ENCRYPTED"`
	EncryptionKey                string        `env:"ENCRYPTION_KEY" validate:"required_with=StripeWebhookSecretEncrypted"`
	StripeSecretKey              string        `env:"STRIPE_SECRET_KEY"`
	StripeAPITimeout             time.Duration `env:"STRIPE_API_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	SignatureTolerance time.Duration `env:"WEBHOOK_SIGNATURE_TOLERANCE" envDefault:"5m" validate:"gt=0"`
	MaxEventAge        time.Duration `env:"WEBHOOK_MAX_EVENT_AGE" envDefault:"72h" validate:"gt=0"`

	RecentEventCacheSize int           `env:"RECENT_EVENT_CACHE_SIZE" envDefault:"10000" validate:"gt=0"`
	RecentEventSweepAt   int           `env:"RECENT_EVENT_CACHE_SWEEP_THRESHOLD" envDefault:"1000" validate:"gt=0"`
	LedgerRetention      time.Duration `env:"LEDGER_RETENTION" envDefault:"720h" validate:"gt=0"`

	AlertProvider         string        `env:"ALERT_PROVIDER" envDefault:"log" validate:"oneof=log resend redis"`
	AlertTimeout          time.Duration `env:"ALERT_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	ResendAPIKey          string        `env:"RESEND_API_KEY" validate:"required_if=AlertProvider resend"`
	AlertEmailFrom        string        `env:"ALERT_EMAIL_FROM" validate:"required_if=AlertProvider resend,omitempty,email"`
	AlertEmailTo          []string      `env:"ALERT_EMAIL_TO" envSeparator:"," validate:"required_if=AlertProvider resend,dive,email"`
	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING" validate:"required_if=AlertProvider redis"`
	AlertRedisChannel     string        `env:"ALERT_REDIS_CHANNEL" envDefault:"linkup:alerts"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasPlain := strings.TrimSpace(c.StripeWebhookSecret) != ""
	hasSealed := strings.TrimSpace(c.StripeWebhookSecretEncrypted) != ""
	switch {
	case hasPlain && hasSealed:
		return fmt.Errorf("set only one of STRIPE_WEBHOOK_SECRET and STRIPE_WEBHOOK_SECRET_ENCRYPTED")
	case !hasPlain && !hasSealed:
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET or STRIPE_WEBHOOK_SECRET_ENCRYPTED is required")
	}

	if strings.TrimSpace(c.EncryptionKey) != "" {
		if _, err := crypto.NewSealer(c.EncryptionKey, crypto.PurposeWebhookSecret); err != nil {
			return fmt.Errorf("ENCRYPTION_KEY: %w", err)
		}
	}

	if c.LedgerRetention <= c.MaxEventAge {
		return fmt.Errorf("LEDGER_RETENTION (%s) must exceed WEBHOOK_MAX_EVENT_AGE (%s)", c.LedgerRetention, c.MaxEventAge)
	}
	if c.SignatureTolerance > c.MaxEventAge {
		return fmt.Errorf("WEBHOOK_SIGNATURE_TOLERANCE must not exceed WEBHOOK_MAX_EVENT_AGE")
	}

	return nil
}
