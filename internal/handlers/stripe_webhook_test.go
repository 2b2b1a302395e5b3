package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linkupapp/linkup/internal/webhook"
)

type fakeProcessor struct {
	outcome   webhook.Outcome
	err       error
	payload   []byte
	signature string
	calls     int
}

func (f *fakeProcessor) Process(_ context.Context, payload []byte, signature string) (webhook.Outcome, error) {
	f.calls++
	f.payload = payload
	f.signature = signature
	return f.outcome, f.err
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error {
	return f.err
}

func newTestHandlers(t *testing.T, engine WebhookProcessor, db Pinger) *Handlers {
	t.Helper()

	h, err := New(Dependencies{
		DB:     db,
		Engine: engine,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func TestStripeWebhookStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		outcome    webhook.Outcome
		err        error
		wantStatus int
	}{
		{name: "processed", outcome: webhook.OutcomeProcessed, wantStatus: http.StatusOK},
		{name: "duplicate", outcome: webhook.OutcomeDuplicate, wantStatus: http.StatusOK},
		{name: "stale", outcome: webhook.OutcomeStale, wantStatus: http.StatusOK},
		{name: "unhandled", outcome: webhook.OutcomeUnhandled, wantStatus: http.StatusOK},
		{name: "bad signature", err: fmt.Errorf("%w: no match", webhook.ErrInvalidSignature), wantStatus: http.StatusBadRequest},
		{name: "ledger down", err: webhook.ErrLedgerUnavailable, wantStatus: http.StatusInternalServerError},
		{name: "handler failed", err: fmt.Errorf("%w: timeout", webhook.ErrHandlerFailed), wantStatus: http.StatusInternalServerError},
		{name: "secret missing", err: webhook.ErrSecretUnavailable, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &fakeProcessor{outcome: tt.outcome, err: tt.err}
			h := newTestHandlers(t, engine, fakePinger{})

			req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")
			rec := httptest.NewRecorder()

			h.StripeWebhook(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if engine.signature != "t=1,v1=abc" || string(engine.payload) != `{"id":"evt_1"}` {
				t.Fatalf("engine received payload=%q signature=%q", engine.payload, engine.signature)
			}
		})
	}
}

func TestStripeWebhookRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	engine := &fakeProcessor{outcome: webhook.OutcomeProcessed}
	h := newTestHandlers(t, engine, fakePinger{})

	body := bytes.Repeat([]byte("a"), maxWebhookBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if engine.calls != 0 {
		t.Fatalf("engine called for oversized body")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{name: "healthy", wantStatus: http.StatusOK},
		{name: "database down", pingErr: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandlers(t, &fakeProcessor{}, fakePinger{err: tt.pingErr})
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(Dependencies{Engine: &fakeProcessor{}}); err == nil {
		t.Fatalf("New() without db should fail")
	}
	if _, err := New(Dependencies{DB: fakePinger{}}); err == nil {
		t.Fatalf("New() without engine should fail")
	}
}
