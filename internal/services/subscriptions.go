package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/linkupapp/linkup/internal/models"
	"github.com/linkupapp/linkup/internal/notify"
	"github.com/linkupapp/linkup/internal/stripe"
)

func periodFromSubscription(sub *stripeapi.Subscription) models.SubscriptionPeriod {
	start, end := stripe.SubscriptionPeriodBounds(sub)
	return models.SubscriptionPeriod{
		StripeSubscriptionID: sub.ID,
		Status:               models.SubscriptionStatus(sub.Status),
		CurrentPeriodStart:   start,
		CurrentPeriodEnd:     end,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CanceledAt:           stripe.UnixTime(sub.CanceledAt),
	}
}

func subscriptionType(metadata map[string]string) models.SubscriptionType {
	return models.SubscriptionType(strings.TrimSpace(metadata[metaSubscriptionType]))
}

func decodeSubscription(event *stripeapi.Event) (*stripeapi.Subscription, error) {
	sub, err := stripe.DecodeObject[stripeapi.Subscription](event)
	if err != nil {
		return nil, err
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("missing subscription ID")
	}
	return sub, nil
}

// HandleSubscriptionUpdated mirrors period boundaries and cancellation
// markers. Verification subscriptions instead degrade or restore the
// verified badge.
func (s *PaymentEventService) HandleSubscriptionUpdated(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	sub, err := decodeSubscription(event)
	if err != nil {
		return err
	}
	period := periodFromSubscription(sub)
	subType := subscriptionType(sub.Metadata)
	logger = logger.With("subscription_id", sub.ID, "subscription_type", subType, "status", period.Status)

	switch subType {
	case models.SubscriptionTypeMembership:
		_, err = tx.UpdateMembershipPeriod(ctx, period)
	case models.SubscriptionTypeChannel:
		_, err = tx.UpdateChannelSubscriptionPeriod(ctx, period)
	case models.SubscriptionTypePlatform:
		_, err = tx.UpdatePlatformSubscription(ctx, period)
	case models.SubscriptionTypeVerification:
		return s.syncVerifiedBadge(ctx, tx, period, logger)
	default:
		logger.InfoContext(ctx, "subscription update without handled subscription type")
		return nil
	}

	if isNotFound(err) {
		logger.InfoContext(ctx, "no open subscription matched update")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update %s subscription: %w", subType, err)
	}
	return nil
}

// syncVerifiedBadge removes the badge while the subscription is delinquent
// and restores it once current again, but only for profiles that passed an
// identity check at some point.
func (s *PaymentEventService) syncVerifiedBadge(ctx context.Context, tx Tx, period models.SubscriptionPeriod, logger *slog.Logger) error {
	state, err := tx.GetVerificationStateBySubscription(ctx, period.StripeSubscriptionID)
	if isNotFound(err) {
		logger.InfoContext(ctx, "no profile linked to verification subscription")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load verification state: %w", err)
	}
	logger = logger.With("profile_id", state.ProfileID)

	switch {
	case period.Status.Delinquent():
		if !state.VerifiedBadge {
			return nil
		}
		if err := tx.SetVerifiedBadge(ctx, state.ProfileID, false); err != nil {
			return fmt.Errorf("failed to remove verified badge: %w", err)
		}
		logger.InfoContext(ctx, "verified badge suspended")
	case period.Status.Current():
		if state.VerifiedBadge {
			return nil
		}
		if !state.HasCompletedIdentityCheck() {
			logger.InfoContext(ctx, "verification subscription current but identity never verified, badge not restored")
			return nil
		}
		if err := tx.SetVerifiedBadge(ctx, state.ProfileID, true); err != nil {
			return fmt.Errorf("failed to restore verified badge: %w", err)
		}
		logger.InfoContext(ctx, "verified badge restored")
	}
	return nil
}

// HandleSubscriptionDeleted ends the subscription in its table and tells the
// affected party.
func (s *PaymentEventService) HandleSubscriptionDeleted(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	sub, err := decodeSubscription(event)
	if err != nil {
		return err
	}
	period := periodFromSubscription(sub)
	period.Status = models.SubscriptionStatusCanceled
	if period.CanceledAt.IsZero() {
		period.CanceledAt = stripe.EventTime(event)
	}
	subType := subscriptionType(sub.Metadata)
	logger = logger.With("subscription_id", sub.ID, "subscription_type", subType)

	switch subType {
	case models.SubscriptionTypeVerification:
		return s.expireVerification(ctx, tx, event.ID, sub.ID, logger)
	case models.SubscriptionTypePlatform:
		profileID, err := tx.DowngradePlatformTier(ctx, sub.ID)
		if isNotFound(err) {
			logger.InfoContext(ctx, "no profile linked to platform subscription")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to downgrade platform tier: %w", err)
		}
		logger.InfoContext(ctx, "platform tier downgraded", "profile_id", profileID)
		return nil
	case models.SubscriptionTypeChannel:
		return s.cancelChannelSubscription(ctx, tx, event.ID, period, logger)
	case models.SubscriptionTypeMembership:
		return s.cancelMembership(ctx, tx, event.ID, period, logger)
	default:
		logger.InfoContext(ctx, "subscription deletion without handled subscription type")
		return nil
	}
}

func (s *PaymentEventService) expireVerification(ctx context.Context, tx Tx, eventID, subscriptionID string, logger *slog.Logger) error {
	state, err := tx.GetVerificationStateBySubscription(ctx, subscriptionID)
	if isNotFound(err) {
		logger.InfoContext(ctx, "no profile linked to verification subscription")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load verification state: %w", err)
	}

	if err := tx.ClearVerification(ctx, state.ProfileID); err != nil {
		return fmt.Errorf("failed to clear verification: %w", err)
	}
	logger.InfoContext(ctx, "verification cleared", "profile_id", state.ProfileID)

	return s.notify(ctx, tx, notify.Message{
		EventID:    eventID,
		Kind:       models.NotificationVerificationExpired,
		Recipient:  state.ProfileID,
		EntityType: "verification_subscription",
		EntityID:   subscriptionID,
	}, logger)
}

func (s *PaymentEventService) cancelChannelSubscription(ctx context.Context, tx Tx, eventID string, period models.SubscriptionPeriod, logger *slog.Logger) error {
	sub, err := tx.UpdateChannelSubscriptionPeriod(ctx, period)
	if isNotFound(err) {
		logger.InfoContext(ctx, "no stored channel subscription matched deletion")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to cancel channel subscription: %w", err)
	}

	name := "your channel"
	if channel, err := tx.GetChannel(ctx, sub.ChannelID); err == nil {
		name = channel.Name
	} else if !isNotFound(err) {
		return fmt.Errorf("failed to load channel: %w", err)
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    eventID,
		Kind:       models.NotificationChannelCanceled,
		Recipient:  sub.CreatorProfileID,
		Actor:      sub.SubscriberProfileID,
		EntityType: "channel",
		EntityID:   sub.ChannelID.String(),
		Data:       notify.Data{Name: name},
	}, logger)
}

func (s *PaymentEventService) cancelMembership(ctx context.Context, tx Tx, eventID string, period models.SubscriptionPeriod, logger *slog.Logger) error {
	membership, err := tx.UpdateMembershipPeriod(ctx, period)
	if isNotFound(err) {
		logger.InfoContext(ctx, "no stored membership matched deletion")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to cancel membership: %w", err)
	}

	business, err := tx.GetBusiness(ctx, membership.BusinessID)
	if isNotFound(err) {
		logger.WarnContext(ctx, "membership business no longer exists", "business_id", membership.BusinessID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load business: %w", err)
	}

	name := business.Name
	if service, err := tx.GetService(ctx, membership.ServiceID); err == nil {
		name = service.Name
	} else if !isNotFound(err) {
		return fmt.Errorf("failed to load service: %w", err)
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    eventID,
		Kind:       models.NotificationMembershipCanceled,
		Recipient:  business.OwnerProfileID,
		Actor:      membership.ProfileID,
		EntityType: "membership",
		EntityID:   membership.ID.String(),
		Data:       notify.Data{Name: name},
	}, logger)
}
