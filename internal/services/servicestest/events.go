package servicestest

import (
	"encoding/json"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// Envelope describes a Stripe event delivery for tests.
type Envelope struct {
	ID      string
	Type    string
	Account string
	Created time.Time
	Object  any
}

// Payload renders the event body as Stripe sends it.
func (e Envelope) Payload() []byte {
	created := e.Created
	if created.IsZero() {
		created = time.Now()
	}
	body := map[string]any{
		"id":          e.ID,
		"object":      "event",
		"api_version": stripeapi.APIVersion,
		"created":     created.Unix(),
		"type":        e.Type,
		"livemode":    false,
		"data":        map[string]any{"object": e.Object},
	}
	if e.Account != "" {
		body["account"] = e.Account
	}
	payload, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("marshal test event: %v", err))
	}
	return payload
}

// Event decodes Payload the same way the verifier does.
func (e Envelope) Event() *stripeapi.Event {
	var event stripeapi.Event
	if err := json.Unmarshal(e.Payload(), &event); err != nil {
		panic(fmt.Sprintf("decode test event: %v", err))
	}
	return &event
}

// Sign returns a valid Stripe-Signature header for payload.
func Sign(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
		Scheme:    "v1",
	}).Header
}
