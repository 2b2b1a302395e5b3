package cache

import (
	"errors"
	"testing"
	"time"
)

func TestNewRecentEventsRejectsNonPositiveSize(t *testing.T) {
	t.Parallel()

	if _, err := NewRecentEvents(0, time.Hour, 10); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestRecentEventsSeenWithinRetention(t *testing.T) {
	t.Parallel()

	recent, err := NewRecentEvents(10, time.Hour, 10)
	if err != nil {
		t.Fatalf("NewRecentEvents() error = %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	recent.Remember("evt_1", now)

	if !recent.Seen("evt_1", now.Add(90*time.Minute)) {
		t.Fatal("expected evt_1 to be seen inside the retention window")
	}
	if recent.Seen("evt_2", now) {
		t.Fatal("did not expect unknown event to be seen")
	}
}

func TestRecentEventsExpiresAfterTwiceMaxAge(t *testing.T) {
	t.Parallel()

	recent, err := NewRecentEvents(10, time.Hour, 10)
	if err != nil {
		t.Fatalf("NewRecentEvents() error = %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	recent.Remember("evt_1", now)

	if recent.Seen("evt_1", now.Add(2*time.Hour+time.Second)) {
		t.Fatal("expected evt_1 to expire after twice the max age")
	}
	if recent.Len() != 0 {
		t.Fatalf("expected expired entry to be removed, len = %d", recent.Len())
	}
}

func TestRecentEventsForget(t *testing.T) {
	t.Parallel()

	recent, err := NewRecentEvents(10, time.Hour, 10)
	if err != nil {
		t.Fatalf("NewRecentEvents() error = %v", err)
	}
	now := time.Now()

	recent.Remember("evt_1", now)
	recent.Forget("evt_1")

	if recent.Seen("evt_1", now) {
		t.Fatal("expected forgotten event to be absent")
	}
}

func TestRecentEventsSweep(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		threshold   int
		wantRemoved int
		wantLen     int
	}{
		{name: "below threshold keeps everything", threshold: 10, wantRemoved: 0, wantLen: 3},
		{name: "at threshold drops expired", threshold: 3, wantRemoved: 2, wantLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recent, err := NewRecentEvents(10, time.Hour, tt.threshold)
			if err != nil {
				t.Fatalf("NewRecentEvents() error = %v", err)
			}
			recent.Remember("old_1", base)
			recent.Remember("old_2", base.Add(time.Minute))
			recent.Remember("fresh", base.Add(3*time.Hour))

			removed := recent.Sweep(base.Add(3*time.Hour + time.Minute))
			if removed != tt.wantRemoved {
				t.Fatalf("Sweep() removed %d, want %d", removed, tt.wantRemoved)
			}
			if recent.Len() != tt.wantLen {
				t.Fatalf("Len() = %d, want %d", recent.Len(), tt.wantLen)
			}
		})
	}
}

func TestRecentEventsEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	recent, err := NewRecentEvents(2, time.Hour, 10)
	if err != nil {
		t.Fatalf("NewRecentEvents() error = %v", err)
	}
	now := time.Now()

	recent.Remember("evt_1", now)
	recent.Remember("evt_2", now)
	recent.Remember("evt_3", now)

	if recent.Seen("evt_1", now) {
		t.Fatal("expected oldest entry to be evicted at capacity")
	}
	if !recent.Seen("evt_3", now) {
		t.Fatal("expected newest entry to be present")
	}
}
