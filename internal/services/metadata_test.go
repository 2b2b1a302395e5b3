package services

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestMetadataUUID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{name: "canonical", value: "0b8f3c2e-6d1a-4a57-9c1e-2f4b5d6e7f80", ok: true},
		{name: "surrounding spaces", value: "  0b8f3c2e-6d1a-4a57-9c1e-2f4b5d6e7f80 ", ok: true},
		{name: "empty", value: ""},
		{name: "nil uuid", value: "00000000-0000-0000-0000-000000000000"},
		{name: "urn form", value: "urn:uuid:0b8f3c2e-6d1a-4a57-9c1e-2f4b5d6e7f80"},
		{name: "braced", value: "{0b8f3c2e-6d1a-4a57-9c1e-2f4b5d6e7f80}"},
		{name: "no hyphens", value: "0b8f3c2e6d1a4a579c1e2f4b5d6e7f80"},
		{name: "garbage", value: "'; DROP TABLE profiles; --"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, ok := metadataUUID(map[string]string{"id": tt.value}, "id")
			if ok != tt.ok {
				t.Fatalf("metadataUUID(%q) ok = %v, want %v", tt.value, ok, tt.ok)
			}
		})
	}
}

func TestProfileFromMetadataFallsBackToUserID(t *testing.T) {
	t.Parallel()

	id := "0b8f3c2e-6d1a-4a57-9c1e-2f4b5d6e7f80"
	got, ok := profileFromMetadata(map[string]string{metaUserID: id})
	if !ok || got.String() != id {
		t.Fatalf("profileFromMetadata() = %s, %v", got, ok)
	}
}

func TestMetadataTime(t *testing.T) {
	t.Parallel()

	got := metadataTime(map[string]string{metaSessionAt: "2026-05-01T18:30:00+02:00"}, metaSessionAt)
	want := time.Date(2026, 5, 1, 16, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("metadataTime() = %s, want %s", got, want)
	}
	if !metadataTime(map[string]string{metaSessionAt: "tomorrow"}, metaSessionAt).IsZero() {
		t.Fatal("expected zero time for unparseable value")
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	if got := sanitizeText("Your card was <b>declined</b>.<script>alert(1)</script>"); got != "Your card was declined." {
		t.Fatalf("sanitizeText() = %q", got)
	}
	if got := sanitizeText("  insufficient \n\t funds  "); got != "insufficient funds" {
		t.Fatalf("sanitizeText() = %q", got)
	}

	long := sanitizeText(strings.Repeat("é", 800))
	if utf8.RuneCountInString(long) != maxStoredTextRunes {
		t.Fatalf("expected %d runes, got %d", maxStoredTextRunes, utf8.RuneCountInString(long))
	}
}
