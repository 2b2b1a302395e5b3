package webhook

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidSignature rejects a delivery that failed authentication.
	// Stripe must not retry it.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrSecretUnavailable means the signing secret could not be loaded.
	ErrSecretUnavailable = errors.New("webhook signing secret unavailable")
	// ErrLedgerUnavailable means event uniqueness could not be checked.
	ErrLedgerUnavailable = errors.New("processed event ledger unavailable")
	// ErrHandlerFailed wraps any failure inside the event transaction.
	ErrHandlerFailed = errors.New("webhook handler failed")
)

// Outcome describes how an accepted delivery was resolved.
type Outcome int

const (
	// OutcomeFailed accompanies a non-nil error from Process.
	OutcomeFailed Outcome = iota
	OutcomeProcessed
	OutcomeDuplicate
	OutcomeStale
	OutcomeUnhandled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeStale:
		return "stale"
	case OutcomeUnhandled:
		return "unhandled"
	default:
		return "failed"
	}
}

// StatusCode maps a Process error to the HTTP status returned to Stripe.
// Only authentication failures are permanent; everything else asks for a
// redelivery.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidSignature):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
