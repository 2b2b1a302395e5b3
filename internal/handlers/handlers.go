package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/linkupapp/linkup/internal/logging"
	"github.com/linkupapp/linkup/internal/webhook"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

// WebhookProcessor is the engine behind the Stripe endpoint.
type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte, signature string) (webhook.Outcome, error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers provides the HTTP surface of the webhook service.
type Handlers struct {
	db     Pinger
	engine WebhookProcessor
	logger *slog.Logger
}

type Dependencies struct {
	DB     Pinger
	Engine WebhookProcessor
	Logger *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("handlers dependencies: engine is required")
	}

	return &Handlers{
		db:     deps.DB,
		engine: deps.Engine,
		logger: logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}
