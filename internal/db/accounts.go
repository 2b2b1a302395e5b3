package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UpdateConnectedAccount mirrors the capability flags of a Stripe Connect
// account onto the profile that owns it.
func (t *Tx) UpdateConnectedAccount(ctx context.Context, accountID string, chargesEnabled, payoutsEnabled bool) (bool, error) {
	query := `
		UPDATE profiles
		SET stripe_charges_enabled = $1, stripe_payouts_enabled = $2
		WHERE stripe_account_id = $3
	`
	cmdTag, err := t.tx.Exec(ctx, query, chargesEnabled, payoutsEnabled, accountID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (t *Tx) FindProfileByConnectedAccount(ctx context.Context, accountID string) (uuid.UUID, error) {
	var profileID uuid.UUID
	query := `SELECT id FROM profiles WHERE stripe_account_id = $1`
	if err := t.tx.QueryRow(ctx, query, accountID).Scan(&profileID); err != nil {
		return uuid.Nil, notFound(err)
	}
	return profileID, nil
}

// MarkIdentityVerified flags the profile matched by its stored verification
// session. The first verification timestamp is kept on repeats.
func (t *Tx) MarkIdentityVerified(ctx context.Context, sessionID string, verifiedAt time.Time) (uuid.UUID, error) {
	query := `
		UPDATE profiles
		SET identity_verified_at = COALESCE(identity_verified_at, $1),
		    verified_badge = verified_badge OR verification_subscription_id IS NOT NULL
		WHERE identity_verification_session_id = $2
		RETURNING id
	`
	var profileID uuid.UUID
	if err := t.tx.QueryRow(ctx, query, timestamptz(verifiedAt), sessionID).Scan(&profileID); err != nil {
		return uuid.Nil, notFound(err)
	}
	return profileID, nil
}
