package webhook

import (
	"context"
	"log/slog"
	"testing"

	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/linkupapp/linkup/internal/services"
)

func noopHandler(context.Context, services.Tx, *stripeapi.Event, *slog.Logger) error {
	return nil
}

func TestNewRouterValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		routes  []Route
		wantErr bool
	}{
		{name: "valid", routes: []Route{{Type: "charge.refunded", Handler: noopHandler}}},
		{name: "empty table", routes: nil, wantErr: true},
		{name: "missing type", routes: []Route{{Handler: noopHandler}}, wantErr: true},
		{name: "missing handler", routes: []Route{{Type: "charge.refunded"}}, wantErr: true},
		{
			name: "duplicate type",
			routes: []Route{
				{Type: "charge.refunded", Handler: noopHandler},
				{Type: "charge.refunded", Handler: noopHandler},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRouter(tt.routes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewRouter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultRoutesAreValid(t *testing.T) {
	t.Parallel()

	router, err := NewRouter(DefaultRoutes(&services.PaymentEventService{}))
	if err != nil {
		t.Fatalf("NewRouter(DefaultRoutes) error = %v", err)
	}
	for _, eventType := range []stripeapi.EventType{
		"payment_intent.succeeded",
		"checkout.session.completed",
		"customer.subscription.deleted",
		"invoice.payment_succeeded",
		"charge.dispute.closed",
		"payout.failed",
	} {
		if _, ok := router.Lookup(eventType); !ok {
			t.Fatalf("Lookup(%q) missing", eventType)
		}
	}
	if _, ok := router.Lookup("customer.created"); ok {
		t.Fatalf("Lookup(customer.created) should be unrouted")
	}
	if got := len(router.Types()); got != 17 {
		t.Fatalf("Types() = %d entries, want 17", got)
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: 200},
		{err: ErrInvalidSignature, want: 400},
		{err: ErrSecretUnavailable, want: 500},
		{err: ErrLedgerUnavailable, want: 500},
		{err: ErrHandlerFailed, want: 500},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Fatalf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
