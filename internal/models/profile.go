package models

import (
	"time"

	"github.com/google/uuid"
)

type Business struct {
	ID             uuid.UUID `json:"id"`
	OwnerProfileID uuid.UUID `json:"owner_profile_id"`
	Name           string    `json:"name"`
}

type Service struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
}

type Channel struct {
	ID               uuid.UUID `json:"id"`
	CreatorProfileID uuid.UUID `json:"creator_profile_id"`
	Name             string    `json:"name"`
}

// VerificationState is the identity-verification slice of a profile.
type VerificationState struct {
	ProfileID                  uuid.UUID `json:"profile_id"`
	VerifiedBadge              bool      `json:"verified_badge"`
	IdentityVerifiedAt         time.Time `json:"identity_verified_at"`
	VerificationSubscriptionID string    `json:"verification_subscription_id"`
}

// HasCompletedIdentityCheck reports whether the profile ever passed an
// identity verification session.
func (v *VerificationState) HasCompletedIdentityCheck() bool {
	return v != nil && !v.IdentityVerifiedAt.IsZero()
}

type NotificationKind string

const (
	NotificationPaymentReceived       NotificationKind = "payment_received"
	NotificationBookingConfirmed      NotificationKind = "booking_confirmed"
	NotificationPassPurchased         NotificationKind = "pass_purchased"
	NotificationMembershipStarted     NotificationKind = "membership_started"
	NotificationMembershipCanceled    NotificationKind = "membership_canceled"
	NotificationPlatformUpgraded      NotificationKind = "platform_upgraded"
	NotificationChannelSubscribed     NotificationKind = "channel_subscribed"
	NotificationChannelCanceled       NotificationKind = "channel_canceled"
	NotificationVerificationExpired   NotificationKind = "verification_expired"
	NotificationInvoiceFailed         NotificationKind = "invoice_failed"
	NotificationDisputeOpened         NotificationKind = "dispute_opened"
	NotificationDisputeClosed         NotificationKind = "dispute_closed"
	NotificationPayoutPaid            NotificationKind = "payout_paid"
	NotificationPayoutFailed          NotificationKind = "payout_failed"
	NotificationIdentityCheckComplete NotificationKind = "identity_check_complete"
)

// Notification is one row of the shared notifications table.
type Notification struct {
	RecipientProfileID uuid.UUID        `json:"recipient_profile_id"`
	ActorProfileID     uuid.NullUUID    `json:"actor_profile_id"`
	Kind               NotificationKind `json:"kind"`
	Title              string           `json:"title"`
	Body               string           `json:"body"`
	EntityType         string           `json:"entity_type"`
	EntityID           string           `json:"entity_id"`
	DedupKey           string           `json:"dedup_key"`
}
