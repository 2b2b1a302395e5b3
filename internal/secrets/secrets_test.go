package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/linkupapp/linkup/internal/crypto"
)

type countingSource struct {
	calls   int
	results []error
	secret  string
}

func (s *countingSource) Secret(context.Context) (string, error) {
	s.calls++
	if len(s.results) > 0 {
		err := s.results[0]
		s.results = s.results[1:]
		if err != nil {
			return "", err
		}
	}
	return s.secret, nil
}

func TestStatic(t *testing.T) {
	t.Parallel()

	if _, err := Static("  ").Secret(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	secret, err := Static(" whsec_abc ").Secret(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if secret != "whsec_abc" {
		t.Fatalf("unexpected secret %q", secret)
	}
}

func TestEncrypted(t *testing.T) {
	t.Parallel()

	sealer, err := crypto.NewSealer(strings.Repeat("k", 32), crypto.PurposeWebhookSecret)
	if err != nil {
		t.Fatalf("failed to build sealer: %v", err)
	}
	sealed, err := sealer.Seal("whsec_sealed")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	secret, err := Encrypted{Sealed: sealed, Sealer: sealer}.Secret(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if secret != "whsec_sealed" {
		t.Fatalf("unexpected secret %q", secret)
	}

	if _, err := (Encrypted{Sealed: "garbage", Sealer: sealer}).Secret(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for garbage, got %v", err)
	}
	if _, err := (Encrypted{Sealed: sealed}).Secret(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable without sealer, got %v", err)
	}
}

func TestCachedLoadsOnce(t *testing.T) {
	t.Parallel()

	source := &countingSource{secret: "whsec_once"}
	cached := NewCached(source)

	for range 3 {
		secret, err := cached.Secret(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if secret != "whsec_once" {
			t.Fatalf("unexpected secret %q", secret)
		}
	}
	if source.calls != 1 {
		t.Fatalf("expected one source call, got %d", source.calls)
	}
}

func TestCachedRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	source := &countingSource{
		secret:  "whsec_later",
		results: []error{errors.New("parameter store timeout")},
	}
	cached := NewCached(source)

	if _, err := cached.Secret(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on first load, got %v", err)
	}

	secret, err := cached.Secret(context.Background())
	if err != nil {
		t.Fatalf("expected second load to succeed, got %v", err)
	}
	if secret != "whsec_later" {
		t.Fatalf("unexpected secret %q", secret)
	}
	if source.calls != 2 {
		t.Fatalf("expected two source calls, got %d", source.calls)
	}
}
