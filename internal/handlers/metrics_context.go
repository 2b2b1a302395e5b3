package handlers

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/linkupapp/linkup/internal/observability"
)

// MetricsContext stores a meter pre-tagged with request attributes so the
// engine and handlers can count without knowing about HTTP.
func (h *Handlers) MetricsContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		info := describeRequest(r)

		meter := sentry.NewMeter(ctx).WithCtx(ctx)
		meter.SetAttributes(
			attribute.String("http.request_id", info.ID),
			attribute.String("http.route", info.Route),
			attribute.String("network.client.ip", info.ClientIP),
			attribute.Bool("webhook.signed", info.Signed),
		)

		next.ServeHTTP(w, r.WithContext(observability.WithMeter(ctx, meter)))
	})
}
