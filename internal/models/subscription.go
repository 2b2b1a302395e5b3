package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionType is the discriminator carried in Stripe metadata that
// selects which internal table a subscription belongs to.
type SubscriptionType string

const (
	SubscriptionTypeMembership   SubscriptionType = "membership"
	SubscriptionTypePlatform     SubscriptionType = "platform"
	SubscriptionTypeChannel      SubscriptionType = "channel"
	SubscriptionTypeVerification SubscriptionType = "verification"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// Delinquent reports whether the status means the subscriber is no longer in
// good standing.
func (s SubscriptionStatus) Delinquent() bool {
	switch s {
	case SubscriptionStatusPastDue, SubscriptionStatusUnpaid, SubscriptionStatusCanceled:
		return true
	default:
		return false
	}
}

// Current reports whether the status is a paid-up one.
func (s SubscriptionStatus) Current() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

type PlatformTier string

const (
	PlatformTierFree PlatformTier = "free"
	PlatformTierPro  PlatformTier = "pro"
)

// SubscriptionPeriod is the mutable billing state mirrored from Stripe.
type SubscriptionPeriod struct {
	StripeSubscriptionID string             `json:"stripe_subscription_id"`
	Status               SubscriptionStatus `json:"status"`
	CurrentPeriodStart   time.Time          `json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CanceledAt           time.Time          `json:"canceled_at"`
}

type Membership struct {
	ID                      uuid.UUID `json:"id"`
	BusinessID              uuid.UUID `json:"business_id"`
	ServiceID               uuid.UUID `json:"service_id"`
	ProfileID               uuid.UUID `json:"profile_id"`
	StripeCheckoutSessionID string    `json:"stripe_checkout_session_id"`
	SubscriptionPeriod
}

type ChannelSubscription struct {
	ID                  uuid.UUID `json:"id"`
	ChannelID           uuid.UUID `json:"channel_id"`
	CreatorProfileID    uuid.UUID `json:"creator_profile_id"`
	SubscriberProfileID uuid.UUID `json:"subscriber_profile_id"`
	SubscriptionPeriod
}

type PlatformUpgrade struct {
	ProfileID        uuid.UUID    `json:"profile_id"`
	Tier             PlatformTier `json:"tier"`
	StripeCustomerID string       `json:"stripe_customer_id"`
	SubscriptionPeriod
}
