package stripe

import (
	"errors"
	"fmt"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const testSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte, secret string, at time.Time) string {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
		Scheme:    "v1",
	})
	return signed.Header
}

func eventPayload(id, eventType string, created time.Time) []byte {
	return fmt.Appendf(nil,
		`{"id":%q,"object":"event","api_version":"2020-08-27","created":%d,"type":%q,"data":{"object":{"id":"obj_1"}}}`,
		id, created.Unix(), eventType,
	)
}

func TestVerifyEvent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	payload := eventPayload("evt_test", "payment_intent.succeeded", now)

	tests := []struct {
		name    string
		header  string
		secret  string
		wantErr error
	}{
		{name: "missing header", header: "", secret: testSecret, wantErr: ErrMissingSignature},
		{name: "secret not loaded", header: signedHeader(t, payload, testSecret, now), secret: "", wantErr: ErrMissingSecret},
		{name: "wrong secret", header: signedHeader(t, payload, "whsec_other", now), secret: testSecret, wantErr: ErrBadSignature},
		{name: "timestamp outside tolerance", header: signedHeader(t, payload, testSecret, now.Add(-time.Hour)), secret: testSecret, wantErr: ErrBadSignature},
		{name: "garbage header", header: "t=1,v1=deadbeef", secret: testSecret, wantErr: ErrBadSignature},
		{name: "valid", header: signedHeader(t, payload, testSecret, now), secret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event, err := VerifyEvent(payload, tt.header, tt.secret, 5*time.Minute)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if event != nil {
					t.Fatalf("expected no event on failure, got %+v", event)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if event.ID != "evt_test" || event.Type != "payment_intent.succeeded" {
				t.Fatalf("unexpected event: %+v", event)
			}
		})
	}
}

func TestVerifyEventRejectsTamperedPayload(t *testing.T) {
	t.Parallel()

	now := time.Now()
	payload := eventPayload("evt_test", "charge.refunded", now)
	header := signedHeader(t, payload, testSecret, now)
	tampered := eventPayload("evt_test", "charge.dispute.closed", now)

	if _, err := VerifyEvent(tampered, header, testSecret, 5*time.Minute); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestCheckFreshness(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		created time.Time
		maxAge  time.Duration
		stale   bool
	}{
		{name: "fresh", created: now.Add(-time.Minute), maxAge: time.Hour},
		{name: "exactly max age", created: now.Add(-time.Hour), maxAge: time.Hour},
		{name: "stale", created: now.Add(-2 * time.Hour), maxAge: time.Hour, stale: true},
		{name: "disabled", created: now.Add(-100 * time.Hour), maxAge: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckFreshness(&stripeapi.Event{Created: tt.created.Unix()}, now, tt.maxAge)
			if got := errors.Is(err, ErrStaleEvent); got != tt.stale {
				t.Fatalf("stale = %v, want %v (err %v)", got, tt.stale, err)
			}
		})
	}
}
