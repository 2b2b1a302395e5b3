package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/linkupapp/linkup/internal/alerts"
	"github.com/linkupapp/linkup/internal/models"
	"github.com/linkupapp/linkup/internal/notify"
	"github.com/linkupapp/linkup/internal/stripe"
)

// HandleChargeRefunded marks fully refunded charges. Partial refunds leave
// the payment status alone.
func (s *PaymentEventService) HandleChargeRefunded(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	charge, err := stripe.DecodeObject[stripeapi.Charge](event)
	if err != nil {
		return err
	}
	if charge.ID == "" {
		return fmt.Errorf("missing charge ID")
	}
	logger = logger.With("charge_id", charge.ID)

	if !charge.Refunded {
		logger.InfoContext(ctx, "partial refund recorded by stripe only", "amount_refunded", charge.AmountRefunded)
		return nil
	}

	updated, err := tx.SetPaymentStatusByCharge(ctx, charge.ID, models.PaymentStatusRefunded)
	if err != nil {
		return fmt.Errorf("failed to mark payment refunded: %w", err)
	}
	if !updated {
		logger.InfoContext(ctx, "no payment matched refunded charge")
	}
	return nil
}

func decodeDispute(event *stripeapi.Event) (*models.Dispute, error) {
	dispute, err := stripe.DecodeObject[stripeapi.Dispute](event)
	if err != nil {
		return nil, err
	}
	if dispute.ID == "" || dispute.Charge == nil || dispute.Charge.ID == "" {
		return nil, fmt.Errorf("dispute without ID or charge")
	}

	record := &models.Dispute{
		StripeDisputeID: dispute.ID,
		StripeChargeID:  dispute.Charge.ID,
		Status:          string(dispute.Status),
		Reason:          sanitizeText(string(dispute.Reason)),
		AmountCents:     dispute.Amount,
		Currency:        string(dispute.Currency),
	}
	if dispute.EvidenceDetails != nil {
		record.EvidenceDueBy = stripe.UnixTime(dispute.EvidenceDetails.DueBy)
	}
	return record, nil
}

// HandleDisputeCreated records the dispute, flags the payment, tells the
// seller and alerts operators once the transaction commits.
func (s *PaymentEventService) HandleDisputeCreated(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	dispute, err := decodeDispute(event)
	if err != nil {
		return err
	}
	logger = logger.With("dispute_id", dispute.StripeDisputeID, "charge_id", dispute.StripeChargeID)

	if closed, err := recordDispute(ctx, tx, dispute, logger); closed || err != nil {
		return err
	}
	if _, err := tx.SetPaymentStatusByCharge(ctx, dispute.StripeChargeID, models.PaymentStatusDisputed); err != nil {
		return fmt.Errorf("failed to mark payment disputed: %w", err)
	}

	sellerID, err := s.sellerForCharge(ctx, tx, dispute.StripeChargeID)
	if err != nil {
		return err
	}

	amount := notify.FormatAmount(dispute.AmountCents, dispute.Currency)
	s.alert(tx, alerts.Alert{
		Kind:    "dispute_opened",
		Subject: "Dispute opened for " + amount,
		Body:    "A customer opened a dispute. Evidence must be submitted in the Stripe dashboard.",
		Fields: map[string]string{
			"dispute_id": dispute.StripeDisputeID,
			"charge_id":  dispute.StripeChargeID,
			"reason":     dispute.Reason,
			"seller_id":  sellerID.String(),
			"event_id":   event.ID,
		},
	})
	logger.WarnContext(ctx, "dispute opened", "reason", dispute.Reason, "amount_cents", dispute.AmountCents)

	return s.notify(ctx, tx, notify.Message{
		EventID:    event.ID,
		Kind:       models.NotificationDisputeOpened,
		Recipient:  sellerID,
		EntityType: "dispute",
		EntityID:   dispute.StripeDisputeID,
		Data: notify.Data{
			Amount: amount,
			Reason: dispute.Reason,
			Date:   dispute.EvidenceDueBy,
		},
	}, logger)
}

// HandleDisputeUpdated mirrors the dispute status while it is open.
func (s *PaymentEventService) HandleDisputeUpdated(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	dispute, err := decodeDispute(event)
	if err != nil {
		return err
	}
	logger = logger.With("dispute_id", dispute.StripeDisputeID, "status", dispute.Status)

	if closed, err := recordDispute(ctx, tx, dispute, logger); closed || err != nil {
		return err
	}
	logger.InfoContext(ctx, "dispute updated")
	return nil
}

// HandleDisputeClosed settles the payment's final status from the outcome and
// tells the seller.
func (s *PaymentEventService) HandleDisputeClosed(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	dispute, err := decodeDispute(event)
	if err != nil {
		return err
	}
	logger = logger.With("dispute_id", dispute.StripeDisputeID, "charge_id", dispute.StripeChargeID, "status", dispute.Status)

	if closed, err := recordDispute(ctx, tx, dispute, logger); closed || err != nil {
		return err
	}

	finalStatus := models.PaymentStatusSucceeded
	template := "dispute_closed_won"
	if stripeapi.DisputeStatus(dispute.Status) == stripeapi.DisputeStatusLost {
		finalStatus = models.PaymentStatusDisputeLost
		template = "dispute_closed_lost"
	}
	if _, err := tx.SetPaymentStatusByCharge(ctx, dispute.StripeChargeID, finalStatus); err != nil {
		return fmt.Errorf("failed to settle disputed payment: %w", err)
	}

	sellerID, err := s.sellerForCharge(ctx, tx, dispute.StripeChargeID)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "dispute closed", "payment_status", finalStatus)

	return s.notify(ctx, tx, notify.Message{
		EventID:    event.ID,
		Kind:       models.NotificationDisputeClosed,
		Template:   template,
		Recipient:  sellerID,
		EntityType: "dispute",
		EntityID:   dispute.StripeDisputeID,
		Data:       notify.Data{Amount: notify.FormatAmount(dispute.AmountCents, dispute.Currency)},
	}, logger)
}

// recordDispute upserts the dispute. It reports closed when the stored
// dispute already has a final status, in which case the event is stale and
// nothing else may change.
func recordDispute(ctx context.Context, tx Tx, dispute *models.Dispute, logger *slog.Logger) (bool, error) {
	_, err := tx.UpsertDispute(ctx, dispute)
	if errors.Is(err, models.ErrDisputeClosed) {
		logger.InfoContext(ctx, "dispute already closed, ignoring late event", "incoming_status", dispute.Status)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record dispute: %w", err)
	}
	return false, nil
}

// sellerForCharge returns uuid.Nil when no payment or seller is on record.
func (s *PaymentEventService) sellerForCharge(ctx context.Context, tx Tx, chargeID string) (uuid.UUID, error) {
	sellerID, err := tx.FindSellerByCharge(ctx, chargeID)
	if isNotFound(err) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to find seller for charge: %w", err)
	}
	return sellerID, nil
}
