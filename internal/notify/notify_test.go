package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/linkupapp/linkup/internal/models"
)

func TestNewRendererCoversEveryKind(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	names := []string{
		string(models.NotificationPaymentReceived),
		string(models.NotificationBookingConfirmed),
		string(models.NotificationPassPurchased),
		string(models.NotificationMembershipStarted),
		string(models.NotificationMembershipCanceled),
		string(models.NotificationPlatformUpgraded),
		string(models.NotificationChannelSubscribed),
		string(models.NotificationChannelCanceled),
		string(models.NotificationVerificationExpired),
		string(models.NotificationDisputeOpened),
		string(models.NotificationPayoutPaid),
		string(models.NotificationPayoutFailed),
		string(models.NotificationIdentityCheckComplete),
		"invoice_failed_membership",
		"invoice_failed_platform",
		"invoice_failed_channel",
		"invoice_failed_verification",
		"dispute_closed_won",
		"dispute_closed_lost",
	}
	for _, name := range names {
		title, body, err := renderer.Render(name, Data{Name: "Yoga Basics", Amount: "$10.00"})
		if err != nil {
			t.Fatalf("Render(%s) error = %v", name, err)
		}
		if title == "" || body == "" {
			t.Fatalf("Render(%s) produced empty copy", name)
		}
	}
}

func TestRenderOptionalFields(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	_, body, err := renderer.Render("dispute_opened", Data{Amount: "$25.00"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(body, "reason") || strings.Contains(body, "Respond by") {
		t.Fatalf("expected optional clauses to be omitted, got %q", body)
	}

	_, body, err = renderer.Render("dispute_opened", Data{
		Amount: "$25.00",
		Reason: "fraudulent",
		Date:   time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(body, "reason: fraudulent") || !strings.Contains(body, "April 2, 2026") {
		t.Fatalf("expected optional clauses, got %q", body)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, _, err := renderer.Render("does_not_exist", Data{}); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestParseRendererRejectsIncompleteTemplates(t *testing.T) {
	t.Parallel()

	if _, err := parseRenderer([]byte("broken:\n  title: \"Only a title\"\n")); err == nil {
		t.Fatal("expected error for template without body")
	}
	if _, err := parseRenderer([]byte("")); err == nil {
		t.Fatal("expected error for empty template set")
	}
	if _, err := parseRenderer([]byte("bad:\n  title: \"{{.Name\"\n  body: \"x\"\n")); err == nil {
		t.Fatal("expected parse error for malformed template")
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	recipient := uuid.New()
	actor := uuid.New()

	n, err := renderer.Build(Message{
		EventID:    "evt_1",
		Kind:       models.NotificationChannelSubscribed,
		Recipient:  recipient,
		Actor:      actor,
		EntityType: "channel",
		EntityID:   "chan_1",
		Data:       Data{Name: "Daily Drills"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n.RecipientProfileID != recipient || !n.ActorProfileID.Valid || n.ActorProfileID.UUID != actor {
		t.Fatalf("unexpected participants: %+v", n)
	}
	if want := "evt_1:channel_subscribed:" + recipient.String(); n.DedupKey != want {
		t.Fatalf("DedupKey = %q, want %q", n.DedupKey, want)
	}
	if !strings.Contains(n.Body, "Daily Drills") {
		t.Fatalf("unexpected body %q", n.Body)
	}

	if _, err := renderer.Build(Message{Kind: models.NotificationPayoutPaid}); err == nil {
		t.Fatal("expected error without recipient")
	}
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minor    int64
		currency string
		want     string
	}{
		{minor: 1250, currency: "usd", want: "$12.50"},
		{minor: 5, currency: "USD", want: "$0.05"},
		{minor: -300, currency: "usd", want: "-$3.00"},
		{minor: 999, currency: "eur", want: "9.99 EUR"},
		{minor: 500, currency: "jpy", want: "500 JPY"},
	}

	for _, tt := range tests {
		if got := FormatAmount(tt.minor, tt.currency); got != tt.want {
			t.Fatalf("FormatAmount(%d, %q) = %q, want %q", tt.minor, tt.currency, got, tt.want)
		}
	}
}
