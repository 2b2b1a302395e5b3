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

func (s *PaymentEventService) HandlePayoutPaid(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	return s.recordPayout(ctx, tx, event, models.PayoutStatusPaid, logger)
}

func (s *PaymentEventService) HandlePayoutFailed(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	return s.recordPayout(ctx, tx, event, models.PayoutStatusFailed, logger)
}

// recordPayout stores a connected-account payout. The account comes from the
// event envelope since payout objects do not name it.
func (s *PaymentEventService) recordPayout(ctx context.Context, tx Tx, event *stripeapi.Event, status models.PayoutStatus, logger *slog.Logger) error {
	payout, err := stripe.DecodeObject[stripeapi.Payout](event)
	if err != nil {
		return err
	}
	if payout.ID == "" {
		return fmt.Errorf("missing payout ID")
	}
	logger = logger.With("payout_id", payout.ID, "account_id", event.Account)

	if event.Account == "" {
		logger.InfoContext(ctx, "platform payout, nothing to record")
		return nil
	}
	profileID, err := tx.FindProfileByConnectedAccount(ctx, event.Account)
	if isNotFound(err) {
		logger.WarnContext(ctx, "payout for connected account without profile")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find payout profile: %w", err)
	}

	record := &models.Payout{
		StripePayoutID:  payout.ID,
		StripeAccountID: event.Account,
		ProfileID:       profileID,
		AmountCents:     payout.Amount,
		Currency:        string(payout.Currency),
		Status:          status,
		ArrivalDate:     stripe.UnixTime(payout.ArrivalDate),
	}
	if status == models.PayoutStatusFailed {
		record.FailureMessage = sanitizeText(payout.FailureMessage)
	}
	if _, err := tx.UpsertPayout(ctx, record); err != nil {
		return fmt.Errorf("failed to record payout: %w", err)
	}

	kind := models.NotificationPayoutPaid
	if status == models.PayoutStatusFailed {
		kind = models.NotificationPayoutFailed
		logger.WarnContext(ctx, "payout failed", "failure_code", payout.FailureCode)
	}
	return s.notify(ctx, tx, notify.Message{
		EventID:    event.ID,
		Kind:       kind,
		Recipient:  profileID,
		EntityType: "payout",
		EntityID:   payout.ID,
		Data: notify.Data{
			Amount: notify.FormatAmount(payout.Amount, string(payout.Currency)),
			Reason: record.FailureMessage,
			Date:   record.ArrivalDate,
		},
	}, logger)
}
