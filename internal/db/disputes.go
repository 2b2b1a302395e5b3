package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/linkupapp/linkup/internal/models"
)

// UpsertDispute records the latest state of a dispute and reports whether it
// was seen for the first time. A stored final status is never overwritten;
// late events for a closed dispute get models.ErrDisputeClosed.
func (t *Tx) UpsertDispute(ctx context.Context, dispute *models.Dispute) (bool, error) {
	query := `
		INSERT INTO disputes (stripe_dispute_id, stripe_charge_id, status, reason, amount_cents, currency, evidence_due_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stripe_dispute_id) DO UPDATE
		SET status = EXCLUDED.status,
		    reason = EXCLUDED.reason,
		    amount_cents = EXCLUDED.amount_cents,
		    evidence_due_by = COALESCE(EXCLUDED.evidence_due_by, disputes.evidence_due_by),
		    updated_at = NOW()
		WHERE disputes.status NOT IN ('won', 'lost', 'warning_closed')
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err := t.tx.QueryRow(ctx, query,
		dispute.StripeDisputeID,
		dispute.StripeChargeID,
		dispute.Status,
		dispute.Reason,
		dispute.AmountCents,
		dispute.Currency,
		timestamptz(dispute.EvidenceDueBy),
	).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, models.ErrDisputeClosed
	}
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (t *Tx) UpsertPayout(ctx context.Context, payout *models.Payout) (bool, error) {
	query := `
		INSERT INTO payouts (stripe_payout_id, stripe_account_id, profile_id, amount_cents, currency,
		                     status, failure_message, arrival_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (stripe_payout_id) DO UPDATE
		SET status = EXCLUDED.status,
		    failure_message = EXCLUDED.failure_message,
		    arrival_date = COALESCE(EXCLUDED.arrival_date, payouts.arrival_date),
		    updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err := t.tx.QueryRow(ctx, query,
		payout.StripePayoutID,
		payout.StripeAccountID,
		payout.ProfileID,
		payout.AmountCents,
		payout.Currency,
		payout.Status,
		text(payout.FailureMessage),
		timestamptz(payout.ArrivalDate),
	).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}
