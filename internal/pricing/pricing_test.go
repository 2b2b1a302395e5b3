package pricing

import (
	"testing"
)

func TestDefaultScheduleTiers(t *testing.T) {
	t.Parallel()

	schedule, err := DefaultSchedule()
	if err != nil {
		t.Fatalf("DefaultSchedule() error = %v", err)
	}

	tests := []struct {
		followers int64
		want      int
	}{
		{followers: -5, want: 10},
		{followers: 0, want: 10},
		{followers: 999, want: 10},
		{followers: 1000, want: 8},
		{followers: 9999, want: 8},
		{followers: 10000, want: 6},
		{followers: 100000, want: 5},
		{followers: 25_000_000, want: 5},
	}

	for _, tt := range tests {
		if got := schedule.FeePercent(tt.followers); got != tt.want {
			t.Fatalf("FeePercent(%d) = %d, want %d", tt.followers, got, tt.want)
		}
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	schedule, err := DefaultSchedule()
	if err != nil {
		t.Fatalf("DefaultSchedule() error = %v", err)
	}

	tests := []struct {
		name      string
		gross     int64
		followers int64
		want      Split
	}{
		{
			name:      "small creator",
			gross:     500,
			followers: 12,
			want:      Split{GrossCents: 500, FeePercent: 10, PlatformFeeCents: 50, CreatorNetCents: 450},
		},
		{
			name:      "rounds half up",
			gross:     1025,
			followers: 20000,
			want:      Split{GrossCents: 1025, FeePercent: 6, PlatformFeeCents: 62, CreatorNetCents: 963},
		},
		{
			name:      "negative gross clamps to zero",
			gross:     -100,
			followers: 0,
			want:      Split{GrossCents: 0, FeePercent: 10, PlatformFeeCents: 0, CreatorNetCents: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := schedule.Apply(tt.gross, tt.followers); got != tt.want {
				t.Fatalf("Apply() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseScheduleValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: "channel_fee_tiers: []\n"},
		{name: "percent above range", content: "channel_fee_tiers:\n  - percent: 120\n"},
		{name: "final tier bounded", content: "channel_fee_tiers:\n  - below_followers: 10\n    percent: 5\n"},
		{name: "not increasing", content: "channel_fee_tiers:\n  - below_followers: 10\n    percent: 5\n  - below_followers: 10\n    percent: 4\n  - percent: 3\n"},
		{name: "malformed yaml", content: "channel_fee_tiers: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := ParseSchedule([]byte(tt.content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
