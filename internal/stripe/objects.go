package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v84"
)

// DecodeObject unmarshals the event's data.object into T.
func DecodeObject[T any](event *stripeapi.Event) (*T, error) {
	if event == nil || event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("event has no data object")
	}
	var object T
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		return nil, fmt.Errorf("failed to decode %s object: %w", event.Type, err)
	}
	return &object, nil
}

// ExpandableID reads a reference that Stripe sends either as a bare id or as
// an expanded object.
type ExpandableID string

func (e *ExpandableID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = ""
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*e = ExpandableID(id)
		return nil
	}
	var object struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}
	*e = ExpandableID(object.ID)
	return nil
}

// Invoice is the subset of an invoice the handlers read. Newer API versions
// nest the subscription under parent.subscription_details; older ones carry
// it at the top level.
type Invoice struct {
	ID                 string            `json:"id"`
	Customer           ExpandableID      `json:"customer"`
	Subscription       ExpandableID      `json:"subscription"`
	AmountPaid         int64             `json:"amount_paid"`
	AmountDue          int64             `json:"amount_due"`
	Currency           string            `json:"currency"`
	AttemptCount       int64             `json:"attempt_count"`
	NextPaymentAttempt int64             `json:"next_payment_attempt"`
	Metadata           map[string]string `json:"metadata"`
	Parent             *struct {
		SubscriptionDetails *struct {
			Subscription ExpandableID      `json:"subscription"`
			Metadata     map[string]string `json:"metadata"`
		} `json:"subscription_details"`
	} `json:"parent"`
	SubscriptionDetails *struct {
		Metadata map[string]string `json:"metadata"`
	} `json:"subscription_details"`
}

func (i *Invoice) SubscriptionID() string {
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil && i.Parent.SubscriptionDetails.Subscription != "" {
		return string(i.Parent.SubscriptionDetails.Subscription)
	}
	return string(i.Subscription)
}

// SubscriptionMetadata returns the metadata of the subscription that
// produced the invoice, falling back to the invoice's own metadata.
func (i *Invoice) SubscriptionMetadata() map[string]string {
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil && len(i.Parent.SubscriptionDetails.Metadata) > 0 {
		return i.Parent.SubscriptionDetails.Metadata
	}
	if i.SubscriptionDetails != nil && len(i.SubscriptionDetails.Metadata) > 0 {
		return i.SubscriptionDetails.Metadata
	}
	return i.Metadata
}

// SubscriptionPeriodBounds returns the billing period of a subscription.
// Current API versions carry it on each item rather than the subscription.
func SubscriptionPeriodBounds(sub *stripeapi.Subscription) (start, end time.Time) {
	if sub == nil || sub.Items == nil {
		return time.Time{}, time.Time{}
	}
	for _, item := range sub.Items.Data {
		if item == nil {
			continue
		}
		if item.CurrentPeriodStart > 0 && (start.IsZero() || time.Unix(item.CurrentPeriodStart, 0).Before(start)) {
			start = time.Unix(item.CurrentPeriodStart, 0).UTC()
		}
		if item.CurrentPeriodEnd > 0 && time.Unix(item.CurrentPeriodEnd, 0).After(end) {
			end = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		}
	}
	return start, end
}

// UnixTime converts a Stripe timestamp, treating zero as unset.
func UnixTime(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}
