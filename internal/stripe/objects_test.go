package stripe

import (
	"encoding/json"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v84"
)

func TestDecodeInvoiceSubscriptionLocations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantSub  string
		wantType string
	}{
		{
			name:     "parent subscription details",
			raw:      `{"id":"in_1","parent":{"subscription_details":{"subscription":"sub_new","metadata":{"subscription_type":"channel"}}}}`,
			wantSub:  "sub_new",
			wantType: "channel",
		},
		{
			name:     "top level subscription",
			raw:      `{"id":"in_2","subscription":"sub_old","subscription_details":{"metadata":{"subscription_type":"membership"}}}`,
			wantSub:  "sub_old",
			wantType: "membership",
		},
		{
			name:     "expanded subscription object",
			raw:      `{"id":"in_3","subscription":{"id":"sub_expanded"},"metadata":{"subscription_type":"platform"}}`,
			wantSub:  "sub_expanded",
			wantType: "platform",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event := &stripeapi.Event{Type: "invoice.paid", Data: &stripeapi.EventData{Raw: json.RawMessage(tt.raw)}}
			invoice, err := DecodeObject[Invoice](event)
			if err != nil {
				t.Fatalf("DecodeObject() error = %v", err)
			}
			if got := invoice.SubscriptionID(); got != tt.wantSub {
				t.Fatalf("SubscriptionID() = %q, want %q", got, tt.wantSub)
			}
			if got := invoice.SubscriptionMetadata()["subscription_type"]; got != tt.wantType {
				t.Fatalf("subscription_type = %q, want %q", got, tt.wantType)
			}
		})
	}
}

func TestDecodeObjectWithoutData(t *testing.T) {
	t.Parallel()

	if _, err := DecodeObject[Invoice](&stripeapi.Event{Type: "invoice.paid"}); err == nil {
		t.Fatal("expected error for event without data")
	}
}

func TestSubscriptionPeriodBounds(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	sub := &stripeapi.Subscription{
		Items: &stripeapi.SubscriptionItemList{
			Data: []*stripeapi.SubscriptionItem{
				{CurrentPeriodStart: start.Unix(), CurrentPeriodEnd: end.Unix()},
				{CurrentPeriodStart: start.Add(time.Hour).Unix(), CurrentPeriodEnd: end.Add(-time.Hour).Unix()},
			},
		},
	}

	gotStart, gotEnd := SubscriptionPeriodBounds(sub)
	if !gotStart.Equal(start) || !gotEnd.Equal(end) {
		t.Fatalf("bounds = %s..%s, want %s..%s", gotStart, gotEnd, start, end)
	}

	gotStart, gotEnd = SubscriptionPeriodBounds(nil)
	if !gotStart.IsZero() || !gotEnd.IsZero() {
		t.Fatal("expected zero bounds for nil subscription")
	}
}
