package services

import (
	"context"
	"fmt"
	"log/slog"

	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/linkupapp/linkup/internal/models"
	"github.com/linkupapp/linkup/internal/notify"
	"github.com/linkupapp/linkup/internal/stripe"
)

// HandlePaymentIntentSucceeded marks the payment captured. Identity-check
// fees take a separate path that only flags the profile.
func (s *PaymentEventService) HandlePaymentIntentSucceeded(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	intent, err := stripe.DecodeObject[stripeapi.PaymentIntent](event)
	if err != nil {
		return err
	}
	if intent.ID == "" {
		return fmt.Errorf("missing payment intent ID")
	}
	logger = logger.With("payment_intent_id", intent.ID)

	if intent.Metadata[metaPurpose] == purposeIdentityVerification {
		return s.markIdentityCheckPaid(ctx, tx, intent, logger)
	}

	chargeID := ""
	if intent.LatestCharge != nil {
		chargeID = intent.LatestCharge.ID
	}
	updated, err := tx.MarkPaymentSucceeded(ctx, intent.ID, chargeID)
	if err != nil {
		return fmt.Errorf("failed to mark payment succeeded: %w", err)
	}
	if !updated {
		logger.InfoContext(ctx, "no open payment matched succeeded intent")
	}

	if bookingID, ok := metadataUUID(intent.Metadata, metaBookingID); ok {
		confirmed, err := tx.ConfirmBooking(ctx, bookingID, intent.ID)
		if err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}
		if !confirmed {
			logger.WarnContext(ctx, "booking not confirmable", "booking_id", bookingID)
		}
	}

	buyerID, buyerOK := metadataUUID(intent.Metadata, metaBuyerID)
	sellerID, sellerOK := metadataUUID(intent.Metadata, metaSellerID)
	if !buyerOK || !sellerOK {
		return nil
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    event.ID,
		Kind:       models.NotificationPaymentReceived,
		Recipient:  sellerID,
		Actor:      buyerID,
		EntityType: "payment",
		EntityID:   intent.ID,
		Data: notify.Data{
			Name:   sanitizeText(intent.Description),
			Amount: notify.FormatAmount(intent.Amount, string(intent.Currency)),
		},
	}, logger)
}

func (s *PaymentEventService) markIdentityCheckPaid(ctx context.Context, tx Tx, intent *stripeapi.PaymentIntent, logger *slog.Logger) error {
	profileID, ok := profileFromMetadata(intent.Metadata)
	if !ok {
		logger.WarnContext(ctx, "identity check payment without valid profile id")
		return nil
	}

	updated, err := tx.MarkIdentityCheckPaid(ctx, profileID, intent.ID)
	if err != nil {
		return fmt.Errorf("failed to flag identity check payment: %w", err)
	}
	if !updated {
		logger.WarnContext(ctx, "identity check payment for unknown profile", "profile_id", profileID)
		return nil
	}
	logger.InfoContext(ctx, "identity check fee captured", "profile_id", profileID)
	return nil
}

// HandlePaymentIntentFailed records the failure with a sanitized reason.
func (s *PaymentEventService) HandlePaymentIntentFailed(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	intent, err := stripe.DecodeObject[stripeapi.PaymentIntent](event)
	if err != nil {
		return err
	}
	if intent.ID == "" {
		return fmt.Errorf("missing payment intent ID")
	}
	logger = logger.With("payment_intent_id", intent.ID)

	reason := ""
	if intent.LastPaymentError != nil {
		reason = sanitizeText(intent.LastPaymentError.Msg)
	}

	if intent.Metadata[metaPurpose] == purposeIdentityVerification {
		logger.InfoContext(ctx, "identity check payment failed", "reason", reason)
		return nil
	}

	updated, err := tx.MarkPaymentFailed(ctx, intent.ID, reason)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if !updated {
		logger.InfoContext(ctx, "no open payment matched failed intent")
		return nil
	}
	logger.InfoContext(ctx, "payment failed", "reason", reason)
	return nil
}
