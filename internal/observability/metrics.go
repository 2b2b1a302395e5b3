// Package observability carries sentry meters through request contexts and
// builds traced outbound HTTP clients.
package observability

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
)

type meterContextKey struct{}

// WithMeter stores meter in ctx. A nil meter stores a fresh one so later
// lookups share the same attributes.
func WithMeter(ctx context.Context, meter sentry.Meter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter == nil {
		meter = sentry.NewMeter(ctx)
	}
	return context.WithValue(ctx, meterContextKey{}, meter.WithCtx(ctx))
}

// MeterFromContext returns the meter stored by WithMeter, or a new meter
// bound to ctx when none is present.
func MeterFromContext(ctx context.Context) sentry.Meter {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter, ok := ctx.Value(meterContextKey{}).(sentry.Meter); ok && meter != nil {
		return meter.WithCtx(ctx)
	}
	return sentry.NewMeter(ctx).WithCtx(ctx)
}

// WithEvent tags every later measurement in ctx with the webhook event type.
func WithEvent(ctx context.Context, provider, eventType string) context.Context {
	meter := MeterFromContext(ctx)
	meter.SetAttributes(
		attribute.String("webhook.provider", provider),
		attribute.String("webhook.event_type", eventType),
	)
	return WithMeter(ctx, meter)
}
