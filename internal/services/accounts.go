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

func (s *PaymentEventService) HandleAccountUpdated(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	account, err := stripe.DecodeObject[stripeapi.Account](event)
	if err != nil {
		return err
	}
	if account.ID == "" {
		return fmt.Errorf("missing account ID")
	}
	logger = logger.With("account_id", account.ID)

	updated, err := tx.UpdateConnectedAccount(ctx, account.ID, account.ChargesEnabled, account.PayoutsEnabled)
	if err != nil {
		return fmt.Errorf("failed to update connected account: %w", err)
	}
	if !updated {
		logger.InfoContext(ctx, "connected account not linked to a profile")
		return nil
	}
	logger.InfoContext(ctx, "connected account capabilities updated",
		"charges_enabled", account.ChargesEnabled,
		"payouts_enabled", account.PayoutsEnabled,
	)
	return nil
}

// HandleIdentityVerified flags the profile whose stored verification session
// matches the event.
func (s *PaymentEventService) HandleIdentityVerified(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	session, err := stripe.DecodeObject[stripeapi.IdentityVerificationSession](event)
	if err != nil {
		return err
	}
	if session.ID == "" {
		return fmt.Errorf("missing verification session ID")
	}
	logger = logger.With("verification_session_id", session.ID)

	profileID, err := tx.MarkIdentityVerified(ctx, session.ID, stripe.EventTime(event))
	if isNotFound(err) {
		logger.WarnContext(ctx, "verification session not linked to a profile")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark identity verified: %w", err)
	}
	logger.InfoContext(ctx, "identity verified", "profile_id", profileID)

	return s.notify(ctx, tx, notify.Message{
		EventID:    event.ID,
		Kind:       models.NotificationIdentityCheckComplete,
		Recipient:  profileID,
		EntityType: "verification_session",
		EntityID:   session.ID,
	}, logger)
}

// HandleIdentityRequiresInput only logs; the user resolves it with Stripe
// directly.
func (s *PaymentEventService) HandleIdentityRequiresInput(ctx context.Context, _ Tx, event *stripeapi.Event, logger *slog.Logger) error {
	session, err := stripe.DecodeObject[stripeapi.IdentityVerificationSession](event)
	if err != nil {
		return err
	}

	attrs := []any{"verification_session_id", session.ID}
	if session.LastError != nil {
		attrs = append(attrs,
			"code", string(session.LastError.Code),
			"reason", sanitizeText(session.LastError.Reason),
		)
	}
	logger.InfoContext(ctx, "identity verification requires input", attrs...)
	return nil
}
