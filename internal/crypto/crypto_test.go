package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestNewSealerKeys(t *testing.T) {
	t.Parallel()

	rawKey := strings.Repeat("k", 32)

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "missing key", key: "", wantErr: ErrMissingKey},
		{name: "short key", key: "short", wantErr: ErrInvalidKey},
		{name: "base64 of wrong length", key: base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key")), wantErr: ErrInvalidKey},
		{name: "raw key", key: rawKey},
		{name: "base64 key", key: base64.StdEncoding.EncodeToString([]byte(rawKey))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sealer, err := NewSealer(tt.key, PurposeWebhookSecret)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if sealer == nil {
				t.Fatal("expected sealer instance")
			}
		})
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	sealer, err := NewSealer(strings.Repeat("k", 32), PurposeWebhookSecret)
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}

	first, err := sealer.Seal("whsec_test")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	second, err := sealer.Seal("whsec_test")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if first == second {
		t.Fatal("sealed values should differ per nonce")
	}

	plaintext, err := sealer.Open(first)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if plaintext != "whsec_test" {
		t.Fatalf("unexpected plaintext: got %q", plaintext)
	}
}

func TestOpenRejectsForeignValues(t *testing.T) {
	t.Parallel()

	key := strings.Repeat("a", 32)
	webhook, err := NewSealer(key, PurposeWebhookSecret)
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}
	other, err := NewSealer(key, "some-other-setting")
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}
	otherKey, err := NewSealer(strings.Repeat("b", 32), PurposeWebhookSecret)
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}

	sealed, err := other.Seal("whsec_test")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if _, err := webhook.Open(sealed); !errors.Is(err, ErrPurposeMismatch) {
		t.Fatalf("expected ErrPurposeMismatch for other purpose, got %v", err)
	}

	sealed, err = webhook.Seal("whsec_test")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if _, err := otherKey.Open(sealed); !errors.Is(err, ErrPurposeMismatch) {
		t.Fatalf("expected ErrPurposeMismatch for other key, got %v", err)
	}

	if _, err := webhook.Open(base64.RawURLEncoding.EncodeToString([]byte("tiny"))); !errors.Is(err, ErrSealedTooShort) {
		t.Fatalf("expected ErrSealedTooShort, got %v", err)
	}
	if _, err := webhook.Open("%%%"); err == nil {
		t.Fatal("expected decode error")
	}
}
