package alerts

import (
	"context"
	"log/slog"
)

// LogSender writes alerts to the structured log. It is the default when no
// delivery channel is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "alerts")}
}

func (s *LogSender) Send(ctx context.Context, alert Alert) error {
	attrs := []any{"kind", alert.Kind, "subject", alert.Subject, "alert", true}
	for key, value := range alert.Fields {
		attrs = append(attrs, key, value)
	}
	s.logger.WarnContext(ctx, alert.Body, attrs...)
	return nil
}
