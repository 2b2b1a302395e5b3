// Package webhook is the entry point for Stripe deliveries: it authenticates
// the payload, enforces idempotency and runs the routed handler inside one
// transaction.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/linkupapp/linkup/internal/ledger"
	"github.com/linkupapp/linkup/internal/logging"
	"github.com/linkupapp/linkup/internal/observability"
	"github.com/linkupapp/linkup/internal/secrets"
	"github.com/linkupapp/linkup/internal/stripe"
)

type Config struct {
	// SignatureTolerance bounds the signature timestamp skew.
	SignatureTolerance time.Duration
	// MaxEventAge acknowledges and skips events created longer ago.
	MaxEventAge time.Duration
}

type Engine struct {
	secrets    secrets.Source
	ledger     *ledger.Ledger
	router     *Router
	transactor Transactor
	config     Config
	logger     *slog.Logger
	now        func() time.Time
}

func NewEngine(secretSource secrets.Source, eventLedger *ledger.Ledger, router *Router, transactor Transactor, config Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		secrets:    secretSource,
		ledger:     eventLedger,
		router:     router,
		transactor: transactor,
		config:     config,
		logger:     logger.With("component", "webhook_engine"),
		now:        time.Now,
	}
}

// Process handles one delivery. A nil error means Stripe should receive a
// 2xx; StatusCode maps any returned error to the response status.
func (e *Engine) Process(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	span := sentry.StartSpan(
		ctx,
		"webhook.engine.process",
		sentry.WithOpName("webhook.process"),
		sentry.WithDescription("Engine.Process"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	outcome, err := e.process(ctx, payload, signature)

	meter := observability.MeterFromContext(ctx)
	meter.Count("webhook.engine.outcome", 1, sentry.WithAttributes(
		attribute.String("outcome", outcome.String()),
		attribute.Int("http.status_code", StatusCode(err)),
	))
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		if errors.Is(err, ErrInvalidSignature) {
			span.Status = sentry.SpanStatusUnauthenticated
		}
	} else {
		span.Status = sentry.SpanStatusOK
	}
	return outcome, err
}

func (e *Engine) process(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	logger := logging.FromContext(ctx, e.logger)

	if swept := e.ledger.Sweep(); swept > 0 {
		logger.DebugContext(ctx, "swept expired recent events", "count", swept)
	}

	secret, err := e.secrets.Secret(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "webhook signing secret unavailable", "error", err)
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}

	event, err := stripe.VerifyEvent(payload, signature, secret, e.config.SignatureTolerance)
	if err != nil {
		logger.WarnContext(ctx, "rejected webhook delivery", "error", err, "security_event", true)
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	ctx, logger = logging.With(ctx, logger, "event_id", event.ID, "event_type", event.Type)

	if err := stripe.CheckFreshness(event, e.now(), e.config.MaxEventAge); err != nil {
		logger.InfoContext(ctx, "skipping stale webhook event", "reason", err.Error())
		return OutcomeStale, nil
	}

	handler, ok := e.router.Lookup(event.Type)
	if !ok {
		logger.InfoContext(ctx, "unhandled Stripe event type")
		return OutcomeUnhandled, nil
	}

	outcome := OutcomeProcessed
	err = e.transactor.WithinTransaction(ctx, func(ctx context.Context, tx EventTx) error {
		switch e.ledger.Admit(ctx, tx, event.ID, string(event.Type)) {
		case ledger.Duplicate:
			outcome = OutcomeDuplicate
			return nil
		case ledger.Indeterminate:
			return ErrLedgerUnavailable
		}
		if err := e.router.Dispatch(ctx, handler, tx, event, logger); err != nil {
			return fmt.Errorf("%w: %w", ErrHandlerFailed, err)
		}
		return nil
	})
	if err != nil {
		e.ledger.Forget(event.ID)
		if errors.Is(err, ErrLedgerUnavailable) {
			return OutcomeFailed, err
		}
		logger.ErrorContext(ctx, "failed to process Stripe webhook", "error", err)
		if !errors.Is(err, ErrHandlerFailed) {
			err = fmt.Errorf("%w: %w", ErrHandlerFailed, err)
		}
		return OutcomeFailed, err
	}

	if outcome == OutcomeDuplicate {
		logger.InfoContext(ctx, "webhook already processed")
	}
	return outcome, nil
}
