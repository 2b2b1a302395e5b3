// Package cache keeps the in-process record of recently admitted webhook
// events. It is a best-effort first tier in front of the durable ledger.
package cache

import (
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultSize           = 10_000
	DefaultSweepThreshold = 1_000
)

var ErrInvalidSize = errors.New("recent event cache size must be positive")

// RecentEvents maps event ids to the time they were first received. Entries
// older than the retention window are treated as absent and swept lazily.
type RecentEvents struct {
	entries        *lru.Cache[string, time.Time]
	retention      time.Duration
	sweepThreshold int
}

// NewRecentEvents builds a cache holding at most size ids for twice maxAge.
// Events older than maxAge are rejected as stale before reaching the cache,
// so nothing past that window can be a live duplicate.
func NewRecentEvents(size int, maxAge time.Duration, sweepThreshold int) (*RecentEvents, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	entries, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, err
	}
	if sweepThreshold <= 0 {
		sweepThreshold = DefaultSweepThreshold
	}
	return &RecentEvents{
		entries:        entries,
		retention:      2 * maxAge,
		sweepThreshold: sweepThreshold,
	}, nil
}

// Seen reports whether eventID was remembered within the retention window
// relative to now.
func (r *RecentEvents) Seen(eventID string, now time.Time) bool {
	receivedAt, ok := r.entries.Get(eventID)
	if !ok {
		return false
	}
	if r.expired(receivedAt, now) {
		r.entries.Remove(eventID)
		return false
	}
	return true
}

func (r *RecentEvents) Remember(eventID string, receivedAt time.Time) {
	r.entries.Add(eventID, receivedAt)
}

func (r *RecentEvents) Forget(eventID string) {
	r.entries.Remove(eventID)
}

// Sweep drops expired entries once the cache holds at least the sweep
// threshold. It returns the number of entries removed.
func (r *RecentEvents) Sweep(now time.Time) int {
	if r.entries.Len() < r.sweepThreshold {
		return 0
	}

	removed := 0
	for _, eventID := range r.entries.Keys() {
		receivedAt, ok := r.entries.Peek(eventID)
		if !ok || !r.expired(receivedAt, now) {
			continue
		}
		if r.entries.Remove(eventID) {
			removed++
		}
	}
	return removed
}

func (r *RecentEvents) Len() int {
	return r.entries.Len()
}

func (r *RecentEvents) expired(receivedAt, now time.Time) bool {
	return r.retention > 0 && now.Sub(receivedAt) > r.retention
}
