// Package stripe verifies inbound Stripe webhooks and wraps the read-only
// gateway lookups the webhook handlers need.
package stripe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const SignatureHeader = "Stripe-Signature"

var (
	ErrMissingSignature = errors.New("missing stripe signature header")
	ErrMissingSecret    = errors.New("webhook signing secret not loaded")
	ErrBadSignature     = errors.New("webhook signature validation failed")
	ErrStaleEvent       = errors.New("webhook event older than maximum age")
)

// VerifyEvent authenticates payload against the Stripe-Signature header and
// returns the parsed event. The signature timestamp must fall inside
// tolerance. API version mismatches are accepted; handlers read only the
// fields they need.
func VerifyEvent(payload []byte, header, secret string, tolerance time.Duration) (*stripeapi.Event, error) {
	if strings.TrimSpace(header) == "" {
		return nil, ErrMissingSignature
	}
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("%w: event id and type are required", ErrBadSignature)
	}

	return &event, nil
}

// CheckFreshness rejects events created more than maxAge before now. A
// non-positive maxAge disables the check.
func CheckFreshness(event *stripeapi.Event, now time.Time, maxAge time.Duration) error {
	if event == nil || maxAge <= 0 {
		return nil
	}
	age := now.Sub(EventTime(event))
	if age > maxAge {
		return fmt.Errorf("%w: age %s exceeds %s", ErrStaleEvent, age.Truncate(time.Second), maxAge)
	}
	return nil
}

func EventTime(event *stripeapi.Event) time.Time {
	return time.Unix(event.Created, 0).UTC()
}
