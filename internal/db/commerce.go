package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/linkupapp/linkup/internal/models"
)

// CreateBooking inserts a confirmed drop-in booking. The checkout session id
// is unique, so a replayed checkout leaves the existing row untouched and
// reports false.
func (t *Tx) CreateBooking(ctx context.Context, booking *models.Booking) (bool, error) {
	query := `
		INSERT INTO bookings (service_id, business_id, profile_id, session_at, amount_cents, currency,
		                      status, stripe_checkout_session_id, stripe_payment_intent_id, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (stripe_checkout_session_id) DO NOTHING
		RETURNING id
	`
	rows, err := t.tx.Query(ctx, query,
		booking.ServiceID,
		booking.BusinessID,
		booking.ProfileID,
		timestamptz(booking.SessionAt),
		booking.AmountCents,
		booking.Currency,
		booking.Status,
		booking.StripeCheckoutSessionID,
		text(booking.StripePaymentIntentID),
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	inserted := false
	if rows.Next() {
		if err := rows.Scan(&booking.ID); err != nil {
			return false, err
		}
		inserted = true
	}
	return inserted, rows.Err()
}

func (t *Tx) CreatePass(ctx context.Context, pass *models.Pass) (bool, error) {
	query := `
		INSERT INTO passes (offering_id, business_id, profile_id, entries_total, entries_remaining,
		                    expires_at, stripe_checkout_session_id)
		VALUES ($1, $2, $3, $4, $4, $5, $6)
		ON CONFLICT (stripe_checkout_session_id) DO NOTHING
		RETURNING id
	`
	rows, err := t.tx.Query(ctx, query,
		pass.OfferingID,
		pass.BusinessID,
		pass.ProfileID,
		pass.EntriesTotal,
		timestamptz(pass.ExpiresAt),
		pass.StripeCheckoutSessionID,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	inserted := false
	if rows.Next() {
		if err := rows.Scan(&pass.ID); err != nil {
			return false, err
		}
		pass.EntriesRemaining = pass.EntriesTotal
		inserted = true
	}
	return inserted, rows.Err()
}

// UpsertMembership creates or refreshes the membership keyed by its Stripe
// subscription and reports whether a new row was created. A canceled row is
// left untouched.
func (t *Tx) UpsertMembership(ctx context.Context, membership *models.Membership) (bool, error) {
	query := `
		INSERT INTO memberships (business_id, service_id, profile_id, status, stripe_subscription_id,
		                         stripe_checkout_session_id, current_period_start, current_period_end,
		                         cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (stripe_subscription_id) DO UPDATE
		SET status = EXCLUDED.status,
		    current_period_start = COALESCE(EXCLUDED.current_period_start, memberships.current_period_start),
		    current_period_end = COALESCE(EXCLUDED.current_period_end, memberships.current_period_end),
		    cancel_at_period_end = EXCLUDED.cancel_at_period_end
		WHERE memberships.status <> 'canceled'
		RETURNING id, (xmax = 0) AS inserted
	`
	var inserted bool
	err := t.tx.QueryRow(ctx, query,
		membership.BusinessID,
		membership.ServiceID,
		membership.ProfileID,
		membership.Status,
		membership.StripeSubscriptionID,
		text(membership.StripeCheckoutSessionID),
		timestamptz(membership.CurrentPeriodStart),
		timestamptz(membership.CurrentPeriodEnd),
		membership.CancelAtPeriodEnd,
	).Scan(&membership.ID, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (t *Tx) UpsertChannelSubscription(ctx context.Context, sub *models.ChannelSubscription) (bool, error) {
	query := `
		INSERT INTO channel_subscriptions (channel_id, creator_profile_id, subscriber_profile_id, status,
		                                   stripe_subscription_id, current_period_start, current_period_end,
		                                   cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stripe_subscription_id) DO UPDATE
		SET status = EXCLUDED.status,
		    current_period_start = COALESCE(EXCLUDED.current_period_start, channel_subscriptions.current_period_start),
		    current_period_end = COALESCE(EXCLUDED.current_period_end, channel_subscriptions.current_period_end),
		    cancel_at_period_end = EXCLUDED.cancel_at_period_end
		WHERE channel_subscriptions.status <> 'canceled'
		RETURNING id, (xmax = 0) AS inserted
	`
	var inserted bool
	err := t.tx.QueryRow(ctx, query,
		sub.ChannelID,
		sub.CreatorProfileID,
		sub.SubscriberProfileID,
		sub.Status,
		sub.StripeSubscriptionID,
		timestamptz(sub.CurrentPeriodStart),
		timestamptz(sub.CurrentPeriodEnd),
		sub.CancelAtPeriodEnd,
	).Scan(&sub.ID, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ApplyPlatformUpgrade grants the paid tier and links the platform
// subscription to the profile.
func (t *Tx) ApplyPlatformUpgrade(ctx context.Context, upgrade *models.PlatformUpgrade) (bool, error) {
	query := `
		UPDATE profiles
		SET platform_tier = $1, platform_subscription_id = $2, platform_subscription_status = $3,
		    platform_period_end = $4, stripe_customer_id = COALESCE($5, stripe_customer_id)
		WHERE id = $6
	`
	cmdTag, err := t.tx.Exec(ctx, query,
		upgrade.Tier,
		upgrade.StripeSubscriptionID,
		upgrade.Status,
		timestamptz(upgrade.CurrentPeriodEnd),
		text(upgrade.StripeCustomerID),
		upgrade.ProfileID,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (t *Tx) InsertPaymentSplit(ctx context.Context, split *models.PaymentSplit) (bool, error) {
	query := `
		INSERT INTO payment_splits (stripe_invoice_id, channel_id, creator_profile_id, gross_cents,
		                            platform_fee_percent, platform_fee_cents, creator_net_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stripe_invoice_id) DO NOTHING
	`
	cmdTag, err := t.tx.Exec(ctx, query,
		split.StripeInvoiceID,
		split.ChannelID,
		split.CreatorProfileID,
		split.GrossCents,
		split.PlatformFeePercent,
		split.PlatformFeeCents,
		split.CreatorNetCents,
		split.Currency,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}
