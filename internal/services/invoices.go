package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/linkupapp/linkup/internal/models"
	"github.com/linkupapp/linkup/internal/notify"
	"github.com/linkupapp/linkup/internal/stripe"
)

func decodeInvoice(event *stripeapi.Event) (*stripe.Invoice, error) {
	invoice, err := stripe.DecodeObject[stripe.Invoice](event)
	if err != nil {
		return nil, err
	}
	if invoice.ID == "" {
		return nil, fmt.Errorf("missing invoice ID")
	}
	return invoice, nil
}

// HandleInvoicePaid records the platform/creator split for paid channel
// subscription invoices. The fee tier uses the creator's follower count at
// the time the invoice is processed.
func (s *PaymentEventService) HandleInvoicePaid(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	invoice, err := decodeInvoice(event)
	if err != nil {
		return err
	}
	subType := subscriptionType(invoice.SubscriptionMetadata())
	subscriptionID := invoice.SubscriptionID()
	logger = logger.With("invoice_id", invoice.ID, "subscription_id", subscriptionID, "subscription_type", subType)

	if subType != models.SubscriptionTypeChannel {
		logger.DebugContext(ctx, "paid invoice needs no split")
		return nil
	}
	if subscriptionID == "" {
		logger.WarnContext(ctx, "channel invoice without subscription reference")
		return nil
	}
	if invoice.AmountPaid <= 0 {
		logger.InfoContext(ctx, "zero-amount channel invoice, no split recorded")
		return nil
	}

	sub, err := tx.GetChannelSubscription(ctx, subscriptionID)
	if isNotFound(err) {
		logger.InfoContext(ctx, "no stored channel subscription for paid invoice")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load channel subscription: %w", err)
	}

	followers, err := tx.GetFollowerCount(ctx, sub.CreatorProfileID)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to load follower count: %w", err)
	}

	split := s.fees.Apply(invoice.AmountPaid, followers)
	inserted, err := tx.InsertPaymentSplit(ctx, &models.PaymentSplit{
		StripeInvoiceID:    invoice.ID,
		ChannelID:          sub.ChannelID,
		CreatorProfileID:   sub.CreatorProfileID,
		GrossCents:         split.GrossCents,
		PlatformFeePercent: split.FeePercent,
		PlatformFeeCents:   split.PlatformFeeCents,
		CreatorNetCents:    split.CreatorNetCents,
		Currency:           invoice.Currency,
	})
	if err != nil {
		return fmt.Errorf("failed to record payment split: %w", err)
	}
	if !inserted {
		logger.InfoContext(ctx, "payment split already recorded")
		return nil
	}

	logger.InfoContext(ctx, "payment split recorded",
		"followers", followers,
		"fee_percent", split.FeePercent,
		"platform_fee_cents", split.PlatformFeeCents,
	)
	return nil
}

// HandleInvoicePaymentFailed tells the subscriber their renewal failed and
// marks platform subscriptions past due.
func (s *PaymentEventService) HandleInvoicePaymentFailed(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	invoice, err := decodeInvoice(event)
	if err != nil {
		return err
	}
	metadata := invoice.SubscriptionMetadata()
	subType := subscriptionType(metadata)
	subscriptionID := invoice.SubscriptionID()
	logger = logger.With("invoice_id", invoice.ID, "subscription_id", subscriptionID, "subscription_type", subType)

	if subscriptionID == "" {
		logger.InfoContext(ctx, "failed invoice not tied to a subscription")
		return nil
	}

	var recipient uuid.UUID
	switch subType {
	case models.SubscriptionTypeMembership:
		membership, err := tx.GetMembership(ctx, subscriptionID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to load membership: %w", err)
		}
		if membership != nil {
			recipient = membership.ProfileID
		}
	case models.SubscriptionTypeChannel:
		sub, err := tx.GetChannelSubscription(ctx, subscriptionID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to load channel subscription: %w", err)
		}
		if sub != nil {
			recipient = sub.SubscriberProfileID
		}
	case models.SubscriptionTypePlatform:
		profileID, err := tx.UpdatePlatformSubscription(ctx, models.SubscriptionPeriod{
			StripeSubscriptionID: subscriptionID,
			Status:               models.SubscriptionStatusPastDue,
		})
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to mark platform subscription past due: %w", err)
		}
		recipient = profileID
	case models.SubscriptionTypeVerification:
		state, err := tx.GetVerificationStateBySubscription(ctx, subscriptionID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to load verification state: %w", err)
		}
		if state != nil {
			recipient = state.ProfileID
		}
	default:
		logger.InfoContext(ctx, "failed invoice without handled subscription type")
		return nil
	}

	if recipient == uuid.Nil {
		logger.InfoContext(ctx, "no subscriber resolved for failed invoice")
		return nil
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    event.ID,
		Kind:       models.NotificationInvoiceFailed,
		Template:   "invoice_failed_" + string(subType),
		Recipient:  recipient,
		EntityType: "invoice",
		EntityID:   invoice.ID,
		Data:       notify.Data{Amount: notify.FormatAmount(invoice.AmountDue, invoice.Currency)},
	}, logger)
}
