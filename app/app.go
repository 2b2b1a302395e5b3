package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/linkupapp/linkup/internal/alerts"
	"github.com/linkupapp/linkup/internal/cache"
	"github.com/linkupapp/linkup/internal/config"
	"github.com/linkupapp/linkup/internal/crypto"
	"github.com/linkupapp/linkup/internal/db"
	"github.com/linkupapp/linkup/internal/handlers"
	"github.com/linkupapp/linkup/internal/ledger"
	"github.com/linkupapp/linkup/internal/logging"
	"github.com/linkupapp/linkup/internal/notify"
	"github.com/linkupapp/linkup/internal/observability"
	"github.com/linkupapp/linkup/internal/pricing"
	"github.com/linkupapp/linkup/internal/secrets"
	"github.com/linkupapp/linkup/internal/services"
	"github.com/linkupapp/linkup/internal/stripe"
	"github.com/linkupapp/linkup/internal/webhook"
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *pgxpool.Pool
	AlertSender alerts.Sender
	Engine      *webhook.Engine
	Handlers    *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	secretSource, err := newSecretSource(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize webhook secret: %w", err)
	}

	recent, err := cache.NewRecentEvents(cfg.RecentEventCacheSize, cfg.MaxEventAge, cfg.RecentEventSweepAt)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize recent event cache: %w", err)
	}
	eventLedger := ledger.New(recent, logger)

	renderer, err := notify.NewRenderer()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load notification templates: %w", err)
	}
	fees, err := pricing.DefaultSchedule()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}

	gateway := stripe.NewGateway(cfg.StripeSecretKey, observability.NewHTTPClient(cfg.StripeAPITimeout), cfg.StripeAPITimeout)
	if cfg.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set; subscription lookups will fail and be retried")
	}

	alertSender, err := alerts.NewSender(alerts.Config{
		Provider:     cfg.AlertProvider,
		Timeout:      cfg.AlertTimeout,
		ResendAPIKey: cfg.ResendAPIKey,
		EmailFrom:    cfg.AlertEmailFrom,
		EmailTo:      cfg.AlertEmailTo,
		RedisURL:     cfg.RedisConnectionString,
		RedisChannel: cfg.AlertRedisChannel,
		HTTPClient:   observability.NewHTTPClient(cfg.AlertTimeout),
	}, logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize alert sender: %w", err)
	}
	dispatcher := alerts.NewDispatcher(alertSender, cfg.AlertTimeout, logger)

	paymentEvents := services.NewPaymentEventService(renderer, gateway, dispatcher, fees)
	router, err := webhook.NewRouter(webhook.DefaultRoutes(paymentEvents))
	if err != nil {
		closeAlertSender(logger, alertSender)
		database.Close()
		return nil, fmt.Errorf("failed to build event router: %w", err)
	}

	engine := webhook.NewEngine(
		secretSource,
		eventLedger,
		router,
		webhook.NewPostgresTransactor(db.NewTxManager(database)),
		webhook.Config{
			SignatureTolerance: cfg.SignatureTolerance,
			MaxEventAge:        cfg.MaxEventAge,
		},
		logger.With("component", "webhook_engine"),
	)

	h, err := handlers.New(handlers.Dependencies{
		DB:     database,
		Engine: engine,
		Logger: logger,
	})
	if err != nil {
		closeAlertSender(logger, alertSender)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		DB:          database,
		AlertSender: alertSender,
		Engine:      engine,
		Handlers:    h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.AlertSender != nil {
		closeAlertSender(a.Logger, a.AlertSender)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	sentry.Flush(2 * time.Second)
}

func newSecretSource(cfg *config.Config) (secrets.Source, error) {
	if cfg.StripeWebhookSecretEncrypted == "" {
		return secrets.NewCached(secrets.Static(cfg.StripeWebhookSecret)), nil
	}
	sealer, err := crypto.NewSealer(cfg.EncryptionKey, crypto.PurposeWebhookSecret)
	if err != nil {
		return nil, err
	}
	return secrets.NewCached(secrets.Encrypted{
		Sealed: cfg.StripeWebhookSecretEncrypted,
		Sealer: sealer,
	}), nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	console := consoleHandler(os.Stdout, cfg)
	if cfg.SentryDSN == "" {
		return slog.New(console), nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelInfo},
	}.NewSentryHandler(context.Background())

	return slog.New(logging.MultiHandler(console, sentryHandler)), nil
}

func consoleHandler(w io.Writer, cfg *config.Config) slog.Handler {
	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel, ReplaceAttr: logging.RedactSecrets})
	}
	return tint.NewHandler(w, &tint.Options{Level: cfg.LogLevel, ReplaceAttr: logging.RedactSecrets})
}

func closeAlertSender(logger *slog.Logger, sender alerts.Sender) {
	closer, ok := sender.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil && logger != nil {
		logger.Warn("failed to close alert sender", "error", err)
	}
}
