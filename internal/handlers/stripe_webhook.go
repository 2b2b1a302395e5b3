package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/linkupapp/linkup/internal/stripe"
	"github.com/linkupapp/linkup/internal/webhook"
)

func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("Stripe webhook payload too large", "limit", tooLarge.Limit)
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.Error("failed to read Stripe webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	outcome, err := h.engine.Process(ctx, payload, r.Header.Get(stripe.SignatureHeader))
	if status := webhook.StatusCode(err); status != http.StatusOK {
		if status == http.StatusBadRequest {
			http.Error(w, "Invalid webhook", status)
			return
		}
		http.Error(w, "Processing failed", status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"outcome": outcome.String(),
	}); err != nil {
		logger.Error("failed to encode webhook response", "error", err)
	}
}
