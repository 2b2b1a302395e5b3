package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/linkupapp/linkup/internal/logging"
	"github.com/linkupapp/linkup/internal/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// RequestLogger echoes a request id, stores a request-scoped logger in the
// context and records one log line and one set of metrics per request.
func (h *Handlers) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := describeRequest(r)
		w.Header().Set("X-Request-ID", info.ID)
		r.Header.Set("X-Request-ID", info.ID)

		logger := h.logger.With(info.logAttrs()...)
		ctx := logging.WithLogger(r.Context(), logger)

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		status := recorder.statusCode()
		elapsed := time.Since(start)
		recordRequestMetrics(r.WithContext(ctx), info, status, elapsed)

		attrs := []any{
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"bytes", recorder.bytes,
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Warn("request failed", attrs...)
		case info.Path == "/health":
			logger.Debug("health check completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	})
}

func recordRequestMetrics(r *http.Request, info requestInfo, status int, elapsed time.Duration) {
	meter := observability.MeterFromContext(r.Context())
	attrs := []attribute.Builder{
		attribute.String("http.method", info.Method),
		attribute.String("http.route", info.Route),
		attribute.Int("http.status_code", status),
	}
	meter.Count("http.server.requests", 1, sentry.WithAttributes(attrs...))
	meter.Distribution(
		"http.server.duration",
		float64(elapsed.Milliseconds()),
		sentry.WithUnit(sentry.UnitMillisecond),
		sentry.WithAttributes(
			attribute.String("http.route", info.Route),
			attribute.String("http.status_class", fmt.Sprintf("%dxx", status/100)),
		),
	)
	if status >= http.StatusInternalServerError {
		meter.Count("http.server.errors", 1, sentry.WithAttributes(attrs...))
	}
}
