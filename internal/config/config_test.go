package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:          "postgres://localhost:5432/linkup",
		StripeWebhookSecret:  "whsec_test",
		StripeAPITimeout:     10 * time.Second,
		SignatureTolerance:   5 * time.Minute,
		MaxEventAge:          72 * time.Hour,
		RecentEventCacheSize: 10_000,
		RecentEventSweepAt:   1_000,
		LedgerRetention:      720 * time.Hour,
		AlertProvider:        "log",
		AlertTimeout:         5 * time.Second,
		AlertRedisChannel:    "linkup:alerts",
		LogFormat:            "text",
		Port:                 "8080",
	}
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	if err := validConfig().validate(); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/linkup")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxEventAge != 72*time.Hour {
		t.Fatalf("MaxEventAge = %s, want 72h", cfg.MaxEventAge)
	}
	if cfg.SignatureTolerance != 5*time.Minute {
		t.Fatalf("SignatureTolerance = %s, want 5m", cfg.SignatureTolerance)
	}
	if cfg.RecentEventCacheSize != 10_000 || cfg.RecentEventSweepAt != 1_000 {
		t.Fatalf("cache settings = %d/%d", cfg.RecentEventCacheSize, cfg.RecentEventSweepAt)
	}
	if cfg.AlertProvider != "log" {
		t.Fatalf("AlertProvider = %q, want log", cfg.AlertProvider)
	}
}

func TestValidateWebhookSecretSources(t *testing.T) {
	t.Parallel()

	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "plain secret",
			mutate: func(*Config) {},
		},
		{
			name: "sealed secret with key",
			mutate: func(c *Config) {
				c.StripeWebhookSecret = ""
				c.StripeWebhookSecretEncrypted = "sealed"
				c.EncryptionKey = key
			},
		},
		{
			name: "no secret",
			mutate: func(c *Config) {
				c.StripeWebhookSecret = ""
			},
			wantErr: "is required",
		},
		{
			name: "both secrets",
			mutate: func(c *Config) {
				c.StripeWebhookSecretEncrypted = "sealed"
				c.EncryptionKey = key
			},
			wantErr: "only one",
		},
		{
			name: "sealed secret without key",
			mutate: func(c *Config) {
				c.StripeWebhookSecret = ""
				c.StripeWebhookSecretEncrypted = "sealed"
			},
			wantErr: "required_with",
		},
		{
			name: "short key",
			mutate: func(c *Config) {
				c.StripeWebhookSecret = ""
				c.StripeWebhookSecretEncrypted = "sealed"
				c.EncryptionKey = "short"
			},
			wantErr: "ENCRYPTION_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLedgerRetentionExceedsMaxAge(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.LedgerRetention = 48 * time.Hour

	err := cfg.validate()
	if err == nil || !strings.Contains(err.Error(), "LEDGER_RETENTION") {
		t.Fatalf("validate() error = %v, want retention error", err)
	}
}

func TestValidateAlertProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.AlertProvider = "pagerduty" },
			wantErr: "oneof",
		},
		{
			name:    "resend without api key",
			mutate:  func(c *Config) { c.AlertProvider = "resend" },
			wantErr: "required_if",
		},
		{
			name: "resend configured",
			mutate: func(c *Config) {
				c.AlertProvider = "resend"
				c.ResendAPIKey = "re_test"
				c.AlertEmailFrom = "alerts@linkup.test"
				c.AlertEmailTo = []string{"ops@linkup.test"}
			},
		},
		{
			name:    "redis without connection string",
			mutate:  func(c *Config) { c.AlertProvider = "redis" },
			wantErr: "RedisConnectionString",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
