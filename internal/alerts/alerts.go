// Package alerts delivers operator alerts for payment events that need human
// attention, such as new disputes. Delivery is best-effort.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Alert is one operator-facing message.
type Alert struct {
	Kind    string            `json:"kind"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Fields  map[string]string `json:"fields,omitempty"`
	At      time.Time         `json:"at"`
}

// Text renders the alert body followed by its fields in key order.
func (a Alert) Text() string {
	var b strings.Builder
	b.WriteString(a.Body)
	if len(a.Fields) == 0 {
		return b.String()
	}

	keys := make([]string, 0, len(a.Fields))
	for key := range a.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b.WriteString("\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "\n%s: %s", key, a.Fields[key])
	}
	return b.String()
}

type Sender interface {
	Send(ctx context.Context, alert Alert) error
}

type Config struct {
	Provider     string
	Timeout      time.Duration
	ResendAPIKey string
	EmailFrom    string
	EmailTo      []string
	RedisURL     string
	RedisChannel string
	HTTPClient   *http.Client
}

func NewSender(cfg Config, logger *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case "log", "":
		return NewLogSender(logger), nil
	case "resend":
		return NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailTo, cfg.HTTPClient)
	case "redis":
		return NewRedisSender(cfg.RedisURL, cfg.RedisChannel)
	default:
		return nil, fmt.Errorf("ALERT_PROVIDER must be one of 'log', 'resend', or 'redis'")
	}
}

// Dispatcher sends alerts with a bounded timeout and never reports failure
// to its caller. Failures are logged.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger
}

func NewDispatcher(sender Sender, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		logger:  logger.With("component", "alerts"),
	}
}

func (d *Dispatcher) Notify(ctx context.Context, alert Alert) {
	if d == nil || d.sender == nil {
		return
	}
	if alert.At.IsZero() {
		alert.At = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, alert); err != nil {
		d.logger.WarnContext(ctx, "failed to deliver operator alert",
			"error", err,
			"kind", alert.Kind,
			"subject", alert.Subject,
		)
	}
}
