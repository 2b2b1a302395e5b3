package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/linkupapp/linkup/internal/models"
)

// MarkPaymentSucceeded moves a payment to succeeded unless it already
// progressed to a refund or dispute state.
func (t *Tx) MarkPaymentSucceeded(ctx context.Context, paymentIntentID, chargeID string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, stripe_charge_id = COALESCE($2, stripe_charge_id),
		    failure_reason = NULL, updated_at = NOW()
		WHERE stripe_payment_intent_id = $3 AND status IN ('pending', 'failed', 'succeeded')
	`
	cmdTag, err := t.tx.Exec(ctx, query, models.PaymentStatusSucceeded, text(chargeID), paymentIntentID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (t *Tx) MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE stripe_payment_intent_id = $3 AND status IN ('pending', 'failed')
	`
	cmdTag, err := t.tx.Exec(ctx, query, models.PaymentStatusFailed, text(reason), paymentIntentID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

// SetPaymentStatusByCharge mirrors a refund or dispute status onto the
// payment owning chargeID. A lost dispute is final and never overwritten.
func (t *Tx) SetPaymentStatusByCharge(ctx context.Context, chargeID string, status models.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE stripe_charge_id = $2 AND status <> 'dispute_lost'
	`
	cmdTag, err := t.tx.Exec(ctx, query, status, chargeID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (t *Tx) FindSellerByCharge(ctx context.Context, chargeID string) (uuid.UUID, error) {
	var sellerID pgtype.UUID
	query := `SELECT seller_profile_id FROM payments WHERE stripe_charge_id = $1`
	if err := t.tx.QueryRow(ctx, query, chargeID).Scan(&sellerID); err != nil {
		return uuid.Nil, notFound(err)
	}
	if !sellerID.Valid {
		return uuid.Nil, models.ErrNotFound
	}
	return uuid.UUID(sellerID.Bytes), nil
}

func (t *Tx) MarkIdentityCheckPaid(ctx context.Context, profileID uuid.UUID, paymentIntentID string) (bool, error) {
	query := `
		UPDATE profiles
		SET identity_check_paid = TRUE, identity_check_payment_intent_id = $1
		WHERE id = $2
	`
	cmdTag, err := t.tx.Exec(ctx, query, paymentIntentID, profileID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (t *Tx) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, paymentIntentID string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $1, stripe_payment_intent_id = COALESCE($2, stripe_payment_intent_id),
		    confirmed_at = COALESCE(confirmed_at, NOW())
		WHERE id = $3 AND status IN ('pending', 'confirmed')
	`
	cmdTag, err := t.tx.Exec(ctx, query, models.BookingStatusConfirmed, text(paymentIntentID), bookingID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}
