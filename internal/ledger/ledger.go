// Package ledger decides whether an inbound webhook event may be processed.
// It consults the in-process recent-event cache first and the durable
// processed-event table second.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/linkupapp/linkup/internal/cache"
	"github.com/linkupapp/linkup/internal/db"
)

type Decision int

const (
	// Accepted means the event is new and its handler should run.
	Accepted Decision = iota
	// Duplicate means the event was already processed and must be acked
	// without side effects.
	Duplicate
	// Indeterminate means uniqueness could not be established at all. The
	// request must fail so the sender retries.
	Indeterminate
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Recorder inserts an event id into the durable ledger. Implementations
// return db.ErrDuplicateEvent or db.ErrLedgerUnavailable for the two
// classified failures.
type Recorder interface {
	InsertProcessedEvent(ctx context.Context, eventID, eventType string, receivedAt time.Time) error
}

type Ledger struct {
	recent *cache.RecentEvents
	logger *slog.Logger
	now    func() time.Time
}

func New(recent *cache.RecentEvents, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		recent: recent,
		logger: logger.With("component", "ledger"),
		now:    time.Now,
	}
}

// Admit records eventID and returns the decision. A transient insert failure
// other than a unique violation or missing table still admits the event;
// only the cache then guards against a redelivery.
func (l *Ledger) Admit(ctx context.Context, recorder Recorder, eventID, eventType string) Decision {
	now := l.now()
	if l.recent != nil && l.recent.Seen(eventID, now) {
		return Duplicate
	}

	err := recorder.InsertProcessedEvent(ctx, eventID, eventType, now)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrDuplicateEvent):
		l.remember(eventID, now)
		return Duplicate
	case errors.Is(err, db.ErrLedgerUnavailable):
		l.logger.ErrorContext(ctx, "processed event ledger unavailable, refusing event",
			"error", err,
			"event_id", eventID,
			"event_type", eventType,
			"page", true,
		)
		return Indeterminate
	default:
		l.logger.ErrorContext(ctx, "failed to record processed event, relying on in-process cache",
			"error", err,
			"event_id", eventID,
			"event_type", eventType,
		)
	}

	l.remember(eventID, now)
	return Accepted
}

// Forget drops eventID from the cache after its transaction rolled back so a
// redelivery to this instance is processed again.
func (l *Ledger) Forget(eventID string) {
	if l.recent != nil {
		l.recent.Forget(eventID)
	}
}

// Sweep evicts expired cache entries when the cache is large enough.
func (l *Ledger) Sweep() int {
	if l.recent == nil {
		return 0
	}
	return l.recent.Sweep(l.now())
}

func (l *Ledger) remember(eventID string, at time.Time) {
	if l.recent != nil {
		l.recent.Remember(eventID, at)
	}
}
