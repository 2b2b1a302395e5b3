package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusSucceeded   PaymentStatus = "succeeded"
	PaymentStatusFailed      PaymentStatus = "failed"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusDisputed    PaymentStatus = "disputed"
	PaymentStatusDisputeLost PaymentStatus = "dispute_lost"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a single drop-in reservation of a service.
type Booking struct {
	ID                      uuid.UUID     `json:"id"`
	ServiceID               uuid.UUID     `json:"service_id"`
	BusinessID              uuid.UUID     `json:"business_id"`
	ProfileID               uuid.UUID     `json:"profile_id"`
	SessionAt               time.Time     `json:"session_at"`
	AmountCents             int64         `json:"amount_cents"`
	Currency                string        `json:"currency"`
	Status                  BookingStatus `json:"status"`
	StripeCheckoutSessionID string        `json:"stripe_checkout_session_id"`
	StripePaymentIntentID   string        `json:"stripe_payment_intent_id"`
}

// Pass is a multi-entry pass bought against a pass offering.
type Pass struct {
	ID                      uuid.UUID `json:"id"`
	OfferingID              uuid.UUID `json:"offering_id"`
	BusinessID              uuid.UUID `json:"business_id"`
	ProfileID               uuid.UUID `json:"profile_id"`
	EntriesTotal            int       `json:"entries_total"`
	EntriesRemaining        int       `json:"entries_remaining"`
	ExpiresAt               time.Time `json:"expires_at"`
	StripeCheckoutSessionID string    `json:"stripe_checkout_session_id"`
}

type PassOffering struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
	Entries    int       `json:"entries"`
	ValidDays  int       `json:"valid_days"`
}

// PaymentSplit records the platform/creator split of one paid invoice.
type PaymentSplit struct {
	StripeInvoiceID    string    `json:"stripe_invoice_id"`
	ChannelID          uuid.UUID `json:"channel_id"`
	CreatorProfileID   uuid.UUID `json:"creator_profile_id"`
	GrossCents         int64     `json:"gross_cents"`
	PlatformFeePercent int       `json:"platform_fee_percent"`
	PlatformFeeCents   int64     `json:"platform_fee_cents"`
	CreatorNetCents    int64     `json:"creator_net_cents"`
	Currency           string    `json:"currency"`
}

// DisputeClosed reports whether a Stripe dispute status is final.
func DisputeClosed(status string) bool {
	switch status {
	case "won", "lost", "warning_closed":
		return true
	default:
		return false
	}
}

type Dispute struct {
	StripeDisputeID string    `json:"stripe_dispute_id"`
	StripeChargeID  string    `json:"stripe_charge_id"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	EvidenceDueBy   time.Time `json:"evidence_due_by"`
}

type PayoutStatus string

const (
	PayoutStatusPaid   PayoutStatus = "paid"
	PayoutStatusFailed PayoutStatus = "failed"
)

type Payout struct {
	StripePayoutID  string       `json:"stripe_payout_id"`
	StripeAccountID string       `json:"stripe_account_id"`
	ProfileID       uuid.UUID    `json:"profile_id"`
	AmountCents     int64        `json:"amount_cents"`
	Currency        string       `json:"currency"`
	Status          PayoutStatus `json:"status"`
	FailureMessage  string       `json:"failure_message"`
	ArrivalDate     time.Time    `json:"arrival_date"`
}
