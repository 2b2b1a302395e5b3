package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/linkupapp/linkup/internal/models"
)

// UpdateMembershipPeriod mirrors the billing period onto the membership keyed
// by its Stripe subscription and returns the updated row. Canceled is final:
// a canceled row only accepts another cancellation and otherwise reports
// models.ErrNotFound.
func (t *Tx) UpdateMembershipPeriod(ctx context.Context, period models.SubscriptionPeriod) (*models.Membership, error) {
	query := `
		UPDATE memberships
		SET status = $1,
		    current_period_start = COALESCE($2, current_period_start),
		    current_period_end = COALESCE($3, current_period_end),
		    cancel_at_period_end = $4,
		    canceled_at = COALESCE($5, canceled_at)
		WHERE stripe_subscription_id = $6
		  AND (status <> 'canceled' OR $1 = 'canceled')
		RETURNING id, business_id, service_id, profile_id
	`
	membership := models.Membership{SubscriptionPeriod: period}
	err := t.tx.QueryRow(ctx, query,
		period.Status,
		timestamptz(period.CurrentPeriodStart),
		timestamptz(period.CurrentPeriodEnd),
		period.CancelAtPeriodEnd,
		timestamptz(period.CanceledAt),
		period.StripeSubscriptionID,
	).Scan(&membership.ID, &membership.BusinessID, &membership.ServiceID, &membership.ProfileID)
	if err != nil {
		return nil, notFound(err)
	}
	return &membership, nil
}

func (t *Tx) GetMembership(ctx context.Context, subscriptionID string) (*models.Membership, error) {
	query := `
		SELECT id, business_id, service_id, profile_id, status, stripe_subscription_id
		FROM memberships
		WHERE stripe_subscription_id = $1
	`
	var membership models.Membership
	err := t.tx.QueryRow(ctx, query, subscriptionID).Scan(
		&membership.ID,
		&membership.BusinessID,
		&membership.ServiceID,
		&membership.ProfileID,
		&membership.Status,
		&membership.StripeSubscriptionID,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &membership, nil
}

func (t *Tx) UpdateChannelSubscriptionPeriod(ctx context.Context, period models.SubscriptionPeriod) (*models.ChannelSubscription, error) {
	query := `
		UPDATE channel_subscriptions
		SET status = $1,
		    current_period_start = COALESCE($2, current_period_start),
		    current_period_end = COALESCE($3, current_period_end),
		    cancel_at_period_end = $4,
		    canceled_at = COALESCE($5, canceled_at)
		WHERE stripe_subscription_id = $6
		  AND (status <> 'canceled' OR $1 = 'canceled')
		RETURNING id, channel_id, creator_profile_id, subscriber_profile_id
	`
	sub := models.ChannelSubscription{SubscriptionPeriod: period}
	err := t.tx.QueryRow(ctx, query,
		period.Status,
		timestamptz(period.CurrentPeriodStart),
		timestamptz(period.CurrentPeriodEnd),
		period.CancelAtPeriodEnd,
		timestamptz(period.CanceledAt),
		period.StripeSubscriptionID,
	).Scan(&sub.ID, &sub.ChannelID, &sub.CreatorProfileID, &sub.SubscriberProfileID)
	if err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (t *Tx) GetChannelSubscription(ctx context.Context, subscriptionID string) (*models.ChannelSubscription, error) {
	query := `
		SELECT id, channel_id, creator_profile_id, subscriber_profile_id, status, stripe_subscription_id
		FROM channel_subscriptions
		WHERE stripe_subscription_id = $1
	`
	var sub models.ChannelSubscription
	err := t.tx.QueryRow(ctx, query, subscriptionID).Scan(
		&sub.ID,
		&sub.ChannelID,
		&sub.CreatorProfileID,
		&sub.SubscriberProfileID,
		&sub.Status,
		&sub.StripeSubscriptionID,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// UpdatePlatformSubscription mirrors status and period end onto the profile
// that owns the platform subscription. It returns that profile's id. Like
// the membership update it leaves a canceled subscription canceled.
func (t *Tx) UpdatePlatformSubscription(ctx context.Context, period models.SubscriptionPeriod) (uuid.UUID, error) {
	query := `
		UPDATE profiles
		SET platform_subscription_status = $1,
		    platform_period_end = COALESCE($2, platform_period_end)
		WHERE platform_subscription_id = $3
		  AND (platform_subscription_status IS DISTINCT FROM 'canceled' OR $1 = 'canceled')
		RETURNING id
	`
	var profileID uuid.UUID
	err := t.tx.QueryRow(ctx, query,
		period.Status,
		timestamptz(period.CurrentPeriodEnd),
		period.StripeSubscriptionID,
	).Scan(&profileID)
	if err != nil {
		return uuid.Nil, notFound(err)
	}
	return profileID, nil
}

// DowngradePlatformTier returns the owning profile to the free tier. The
// subscription reference is kept so late events still resolve the profile.
func (t *Tx) DowngradePlatformTier(ctx context.Context, subscriptionID string) (uuid.UUID, error) {
	query := `
		UPDATE profiles
		SET platform_tier = $1, platform_subscription_status = $2
		WHERE platform_subscription_id = $3
		RETURNING id
	`
	var profileID uuid.UUID
	err := t.tx.QueryRow(ctx, query,
		models.PlatformTierFree,
		models.SubscriptionStatusCanceled,
		subscriptionID,
	).Scan(&profileID)
	if err != nil {
		return uuid.Nil, notFound(err)
	}
	return profileID, nil
}

func (t *Tx) GetVerificationStateBySubscription(ctx context.Context, subscriptionID string) (*models.VerificationState, error) {
	query := `
		SELECT id, verified_badge, identity_verified_at, verification_subscription_id
		FROM profiles
		WHERE verification_subscription_id = $1
	`
	var (
		state      models.VerificationState
		verifiedAt pgtype.Timestamptz
		subRef     pgtype.Text
	)
	err := t.tx.QueryRow(ctx, query, subscriptionID).Scan(&state.ProfileID, &state.VerifiedBadge, &verifiedAt, &subRef)
	if err != nil {
		return nil, notFound(err)
	}
	state.IdentityVerifiedAt = timeOrZero(verifiedAt)
	state.VerificationSubscriptionID = stringOrEmpty(subRef)
	return &state, nil
}

// LinkVerificationSubscription attaches a verification subscription to the
// profile. The badge is only granted when the identity check already passed.
func (t *Tx) LinkVerificationSubscription(ctx context.Context, profileID uuid.UUID, subscriptionID string) (bool, error) {
	query := `
		UPDATE profiles
		SET verification_subscription_id = $1,
		    verified_badge = (identity_verified_at IS NOT NULL)
		WHERE id = $2
	`
	cmdTag, err := t.tx.Exec(ctx, query, subscriptionID, profileID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (t *Tx) SetVerifiedBadge(ctx context.Context, profileID uuid.UUID, badge bool) error {
	query := `UPDATE profiles SET verified_badge = $1 WHERE id = $2`
	_, err := t.tx.Exec(ctx, query, badge, profileID)
	return err
}

// ClearVerification drops both the badge and the subscription reference.
func (t *Tx) ClearVerification(ctx context.Context, profileID uuid.UUID) error {
	query := `
		UPDATE profiles
		SET verified_badge = FALSE, verification_subscription_id = NULL
		WHERE id = $1
	`
	_, err := t.tx.Exec(ctx, query, profileID)
	return err
}
