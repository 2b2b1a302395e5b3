package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/linkupapp/linkup/internal/models"
	"github.com/linkupapp/linkup/internal/notify"
	"github.com/linkupapp/linkup/internal/stripe"
)

// Checkout product kinds, carried as product_type on one-off purchases or
// derived from subscription_type on subscription-mode checkouts.
const (
	checkoutDropIn               = "drop_in"
	checkoutClassPass            = "class_pass"
	checkoutMembership           = "membership"
	checkoutPlatformSubscription = "platform_subscription"
	checkoutChannelSubscription  = "channel_subscription"
	checkoutVerification         = "verification_subscription"
)

var errSkipCheckout = errors.New("checkout skipped")

type checkoutContext struct {
	eventID string
	created time.Time
	session *stripeapi.CheckoutSession
	logger  *slog.Logger
}

type checkoutHandler func(s *PaymentEventService, ctx context.Context, tx Tx, c *checkoutContext) error

var checkoutHandlers = map[string]checkoutHandler{
	checkoutDropIn:               (*PaymentEventService).completeDropIn,
	checkoutClassPass:            (*PaymentEventService).completeClassPass,
	checkoutMembership:           (*PaymentEventService).completeMembership,
	checkoutPlatformSubscription: (*PaymentEventService).completePlatformSubscription,
	checkoutChannelSubscription:  (*PaymentEventService).completeChannelSubscription,
	checkoutVerification:         (*PaymentEventService).completeVerificationSubscription,
}

var subscriptionCheckoutKinds = map[models.SubscriptionType]string{
	models.SubscriptionTypeMembership:   checkoutMembership,
	models.SubscriptionTypePlatform:     checkoutPlatformSubscription,
	models.SubscriptionTypeChannel:      checkoutChannelSubscription,
	models.SubscriptionTypeVerification: checkoutVerification,
}

func checkoutKind(metadata map[string]string) string {
	if kind := strings.TrimSpace(metadata[metaProductType]); kind != "" {
		return kind
	}
	return subscriptionCheckoutKinds[models.SubscriptionType(strings.TrimSpace(metadata[metaSubscriptionType]))]
}

// HandleCheckoutSessionCompleted creates the commercial record the checkout
// paid for and notifies the counterparty. Identifiers other than the buyer
// are resolved from stored records rather than trusted from metadata.
func (s *PaymentEventService) HandleCheckoutSessionCompleted(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error {
	session, err := stripe.DecodeObject[stripeapi.CheckoutSession](event)
	if err != nil {
		return err
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	kind := checkoutKind(session.Metadata)
	logger = logger.With("checkout_session_id", session.ID, "checkout_kind", kind)

	handler, ok := checkoutHandlers[kind]
	if !ok {
		logger.InfoContext(ctx, "checkout session has no handled product type")
		return nil
	}

	err = handler(s, ctx, tx, &checkoutContext{
		eventID: event.ID,
		created: stripe.EventTime(event),
		session: session,
		logger:  logger,
	})
	if errors.Is(err, errSkipCheckout) {
		return nil
	}
	return err
}

func (s *PaymentEventService) completeDropIn(ctx context.Context, tx Tx, c *checkoutContext) error {
	buyerID, serviceID, err := c.buyerAnd(metaServiceID)
	if err != nil {
		return err
	}

	service, err := tx.GetService(ctx, serviceID)
	if err != nil {
		return c.lookupFailed(ctx, "service", err)
	}
	business, err := tx.GetBusiness(ctx, service.BusinessID)
	if err != nil {
		return c.lookupFailed(ctx, "business", err)
	}

	status := models.BookingStatusPending
	if c.paid() {
		status = models.BookingStatusConfirmed
	}
	booking := &models.Booking{
		ServiceID:               service.ID,
		BusinessID:              business.ID,
		ProfileID:               buyerID,
		SessionAt:               metadataTime(c.session.Metadata, metaSessionAt),
		AmountCents:             c.session.AmountTotal,
		Currency:                string(c.session.Currency),
		Status:                  status,
		StripeCheckoutSessionID: c.session.ID,
		StripePaymentIntentID:   c.paymentIntentID(),
	}
	created, err := tx.CreateBooking(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	if !created {
		c.logger.InfoContext(ctx, "booking already recorded for checkout session")
		return nil
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    c.eventID,
		Kind:       models.NotificationBookingConfirmed,
		Recipient:  business.OwnerProfileID,
		Actor:      buyerID,
		EntityType: "booking",
		EntityID:   booking.ID.String(),
		Data:       notify.Data{Name: service.Name, Date: booking.SessionAt},
	}, c.logger)
}

func (s *PaymentEventService) completeClassPass(ctx context.Context, tx Tx, c *checkoutContext) error {
	if !c.paid() {
		c.logger.WarnContext(ctx, "class pass checkout completed without payment", "payment_status", c.session.PaymentStatus)
		return errSkipCheckout
	}
	buyerID, offeringID, err := c.buyerAnd(metaPassOfferingID)
	if err != nil {
		return err
	}

	offering, err := tx.GetPassOffering(ctx, offeringID)
	if err != nil {
		return c.lookupFailed(ctx, "pass offering", err)
	}
	business, err := tx.GetBusiness(ctx, offering.BusinessID)
	if err != nil {
		return c.lookupFailed(ctx, "business", err)
	}

	pass := &models.Pass{
		OfferingID:              offering.ID,
		BusinessID:              business.ID,
		ProfileID:               buyerID,
		EntriesTotal:            offering.Entries,
		StripeCheckoutSessionID: c.session.ID,
	}
	if offering.ValidDays > 0 {
		pass.ExpiresAt = c.created.AddDate(0, 0, offering.ValidDays)
	}
	created, err := tx.CreatePass(ctx, pass)
	if err != nil {
		return fmt.Errorf("failed to create pass: %w", err)
	}
	if !created {
		c.logger.InfoContext(ctx, "pass already recorded for checkout session")
		return nil
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    c.eventID,
		Kind:       models.NotificationPassPurchased,
		Recipient:  business.OwnerProfileID,
		Actor:      buyerID,
		EntityType: "pass",
		EntityID:   pass.ID.String(),
		Data:       notify.Data{Name: offering.Name, Count: offering.Entries},
	}, c.logger)
}

func (s *PaymentEventService) completeMembership(ctx context.Context, tx Tx, c *checkoutContext) error {
	buyerID, serviceID, err := c.buyerAnd(metaServiceID)
	if err != nil {
		return err
	}
	subscriptionID, err := c.subscriptionID(ctx)
	if err != nil {
		return err
	}

	service, err := tx.GetService(ctx, serviceID)
	if err != nil {
		return c.lookupFailed(ctx, "service", err)
	}
	business, err := tx.GetBusiness(ctx, service.BusinessID)
	if err != nil {
		return c.lookupFailed(ctx, "business", err)
	}

	period, err := s.subscriptionPeriod(ctx, subscriptionID)
	if err != nil {
		return err
	}
	membership := &models.Membership{
		BusinessID:              business.ID,
		ServiceID:               service.ID,
		ProfileID:               buyerID,
		StripeCheckoutSessionID: c.session.ID,
		SubscriptionPeriod:      period,
	}
	created, err := tx.UpsertMembership(ctx, membership)
	if err != nil {
		return fmt.Errorf("failed to record membership: %w", err)
	}
	if !created {
		c.logger.InfoContext(ctx, "membership already recorded", "subscription_id", subscriptionID)
		return nil
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    c.eventID,
		Kind:       models.NotificationMembershipStarted,
		Recipient:  business.OwnerProfileID,
		Actor:      buyerID,
		EntityType: "membership",
		EntityID:   membership.ID.String(),
		Data:       notify.Data{Name: service.Name},
	}, c.logger)
}

func (s *PaymentEventService) completePlatformSubscription(ctx context.Context, tx Tx, c *checkoutContext) error {
	if c.session.PaymentStatus != stripeapi.CheckoutSessionPaymentStatusPaid {
		c.logger.WarnContext(ctx, "platform upgrade checkout not paid, entitlement withheld", "payment_status", c.session.PaymentStatus)
		return errSkipCheckout
	}
	profileID, ok := profileFromMetadata(c.session.Metadata)
	if !ok {
		c.logger.WarnContext(ctx, "platform upgrade checkout without valid profile id")
		return errSkipCheckout
	}
	subscriptionID, err := c.subscriptionID(ctx)
	if err != nil {
		return err
	}

	tier := models.PlatformTier(strings.TrimSpace(c.session.Metadata[metaTier]))
	if tier == "" {
		tier = models.PlatformTierPro
	}
	if tier != models.PlatformTierPro {
		c.logger.WarnContext(ctx, "platform upgrade checkout for unknown tier", "tier", tier)
		return errSkipCheckout
	}

	period, err := s.subscriptionPeriod(ctx, subscriptionID)
	if err != nil {
		return err
	}
	upgraded, err := tx.ApplyPlatformUpgrade(ctx, &models.PlatformUpgrade{
		ProfileID:          profileID,
		Tier:               tier,
		StripeCustomerID:   c.customerID(),
		SubscriptionPeriod: period,
	})
	if err != nil {
		return fmt.Errorf("failed to apply platform upgrade: %w", err)
	}
	if !upgraded {
		c.logger.WarnContext(ctx, "platform upgrade for unknown profile", "profile_id", profileID)
		return nil
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    c.eventID,
		Kind:       models.NotificationPlatformUpgraded,
		Recipient:  profileID,
		EntityType: "platform_subscription",
		EntityID:   subscriptionID,
		Data:       notify.Data{Name: "Pro"},
	}, c.logger)
}

func (s *PaymentEventService) completeChannelSubscription(ctx context.Context, tx Tx, c *checkoutContext) error {
	subscriberID, channelID, err := c.buyerAnd(metaChannelID)
	if err != nil {
		return err
	}
	subscriptionID, err := c.subscriptionID(ctx)
	if err != nil {
		return err
	}

	channel, err := tx.GetChannel(ctx, channelID)
	if err != nil {
		return c.lookupFailed(ctx, "channel", err)
	}
	if channel.CreatorProfileID == subscriberID {
		c.logger.WarnContext(ctx, "creator subscribed to own channel", "channel_id", channel.ID)
	}

	period, err := s.subscriptionPeriod(ctx, subscriptionID)
	if err != nil {
		return err
	}
	sub := &models.ChannelSubscription{
		ChannelID:           channel.ID,
		CreatorProfileID:    channel.CreatorProfileID,
		SubscriberProfileID: subscriberID,
		SubscriptionPeriod:  period,
	}
	created, err := tx.UpsertChannelSubscription(ctx, sub)
	if err != nil {
		return fmt.Errorf("failed to record channel subscription: %w", err)
	}
	if !created {
		c.logger.InfoContext(ctx, "channel subscription already recorded", "subscription_id", subscriptionID)
		return nil
	}

	return s.notify(ctx, tx, notify.Message{
		EventID:    c.eventID,
		Kind:       models.NotificationChannelSubscribed,
		Recipient:  channel.CreatorProfileID,
		Actor:      subscriberID,
		EntityType: "channel",
		EntityID:   channel.ID.String(),
		Data:       notify.Data{Name: channel.Name},
	}, c.logger)
}

func (s *PaymentEventService) completeVerificationSubscription(ctx context.Context, tx Tx, c *checkoutContext) error {
	profileID, ok := profileFromMetadata(c.session.Metadata)
	if !ok {
		c.logger.WarnContext(ctx, "verification checkout without valid profile id")
		return errSkipCheckout
	}
	subscriptionID, err := c.subscriptionID(ctx)
	if err != nil {
		return err
	}

	linked, err := tx.LinkVerificationSubscription(ctx, profileID, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to link verification subscription: %w", err)
	}
	if !linked {
		c.logger.WarnContext(ctx, "verification subscription for unknown profile", "profile_id", profileID)
	}
	return nil
}

// subscriptionPeriod fetches the live subscription so the stored record
// starts with real period bounds. Without a gateway the subscription is
// recorded as active and later subscription events fill in the period.
func (s *PaymentEventService) subscriptionPeriod(ctx context.Context, subscriptionID string) (models.SubscriptionPeriod, error) {
	period := models.SubscriptionPeriod{
		StripeSubscriptionID: subscriptionID,
		Status:               models.SubscriptionStatusActive,
	}
	if s.gateway == nil {
		return period, nil
	}

	sub, err := s.gateway.Subscription(ctx, subscriptionID)
	if err != nil {
		return period, fmt.Errorf("failed to look up subscription: %w", err)
	}
	return periodFromSubscription(sub), nil
}

// buyerAnd returns the buying profile and the catalog id stored under key.
// A missing or malformed id skips the checkout.
func (c *checkoutContext) buyerAnd(key string) (uuid.UUID, uuid.UUID, error) {
	buyerID, ok := profileFromMetadata(c.session.Metadata)
	if !ok {
		c.logger.Warn("checkout without valid profile id")
		return uuid.Nil, uuid.Nil, errSkipCheckout
	}
	id, ok := metadataUUID(c.session.Metadata, key)
	if !ok {
		c.logger.Warn("checkout without valid reference", "key", key)
		return uuid.Nil, uuid.Nil, errSkipCheckout
	}
	return buyerID, id, nil
}

func (c *checkoutContext) subscriptionID(ctx context.Context) (string, error) {
	if c.session.Subscription == nil || c.session.Subscription.ID == "" {
		c.logger.WarnContext(ctx, "subscription checkout without subscription id")
		return "", errSkipCheckout
	}
	return c.session.Subscription.ID, nil
}

func (c *checkoutContext) lookupFailed(ctx context.Context, what string, err error) error {
	if isNotFound(err) {
		c.logger.WarnContext(ctx, "checkout references unknown "+what)
		return errSkipCheckout
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func (c *checkoutContext) paid() bool {
	switch c.session.PaymentStatus {
	case stripeapi.CheckoutSessionPaymentStatusPaid, stripeapi.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true
	default:
		return false
	}
}

func (c *checkoutContext) paymentIntentID() string {
	if c.session.PaymentIntent == nil {
		return ""
	}
	return c.session.PaymentIntent.ID
}

func (c *checkoutContext) customerID() string {
	if c.session.Customer == nil {
		return ""
	}
	return c.session.Customer.ID
}
