// Package services holds the webhook type handlers. Each handler runs inside
// the transaction opened for one Stripe event and mutates state only through
// the Tx it is given.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/linkupapp/linkup/internal/alerts"
	"github.com/linkupapp/linkup/internal/models"
	"github.com/linkupapp/linkup/internal/notify"
	"github.com/linkupapp/linkup/internal/observability"
	"github.com/linkupapp/linkup/internal/pricing"
)

// HandlerFunc processes one event inside its transaction. A returned error
// rolls the transaction back and asks the sender to redeliver.
type HandlerFunc func(ctx context.Context, tx Tx, event *stripeapi.Event, logger *slog.Logger) error

type PaymentStore interface {
	MarkPaymentSucceeded(ctx context.Context, paymentIntentID, chargeID string) (bool, error)
	MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) (bool, error)
	SetPaymentStatusByCharge(ctx context.Context, chargeID string, status models.PaymentStatus) (bool, error)
	FindSellerByCharge(ctx context.Context, chargeID string) (uuid.UUID, error)
	MarkIdentityCheckPaid(ctx context.Context, profileID uuid.UUID, paymentIntentID string) (bool, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, paymentIntentID string) (bool, error)
}

type CatalogReader interface {
	GetService(ctx context.Context, serviceID uuid.UUID) (*models.Service, error)
	GetBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error)
	GetPassOffering(ctx context.Context, offeringID uuid.UUID) (*models.PassOffering, error)
	GetChannel(ctx context.Context, channelID uuid.UUID) (*models.Channel, error)
	GetFollowerCount(ctx context.Context, profileID uuid.UUID) (int64, error)
	ProfileExists(ctx context.Context, profileID uuid.UUID) (bool, error)
}

type CommerceStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) (bool, error)
	CreatePass(ctx context.Context, pass *models.Pass) (bool, error)
	UpsertMembership(ctx context.Context, membership *models.Membership) (bool, error)
	UpsertChannelSubscription(ctx context.Context, sub *models.ChannelSubscription) (bool, error)
	ApplyPlatformUpgrade(ctx context.Context, upgrade *models.PlatformUpgrade) (bool, error)
	InsertPaymentSplit(ctx context.Context, split *models.PaymentSplit) (bool, error)
}

type SubscriptionStore interface {
	UpdateMembershipPeriod(ctx context.Context, period models.SubscriptionPeriod) (*models.Membership, error)
	GetMembership(ctx context.Context, subscriptionID string) (*models.Membership, error)
	UpdateChannelSubscriptionPeriod(ctx context.Context, period models.SubscriptionPeriod) (*models.ChannelSubscription, error)
	GetChannelSubscription(ctx context.Context, subscriptionID string) (*models.ChannelSubscription, error)
	UpdatePlatformSubscription(ctx context.Context, period models.SubscriptionPeriod) (uuid.UUID, error)
	DowngradePlatformTier(ctx context.Context, subscriptionID string) (uuid.UUID, error)
	GetVerificationStateBySubscription(ctx context.Context, subscriptionID string) (*models.VerificationState, error)
	LinkVerificationSubscription(ctx context.Context, profileID uuid.UUID, subscriptionID string) (bool, error)
	SetVerifiedBadge(ctx context.Context, profileID uuid.UUID, badge bool) error
	ClearVerification(ctx context.Context, profileID uuid.UUID) error
}

type AccountStore interface {
	UpdateConnectedAccount(ctx context.Context, accountID string, chargesEnabled, payoutsEnabled bool) (bool, error)
	FindProfileByConnectedAccount(ctx context.Context, accountID string) (uuid.UUID, error)
	MarkIdentityVerified(ctx context.Context, sessionID string, verifiedAt time.Time) (uuid.UUID, error)
}

type DisputeStore interface {
	UpsertDispute(ctx context.Context, dispute *models.Dispute) (bool, error)
	UpsertPayout(ctx context.Context, payout *models.Payout) (bool, error)
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, n *models.Notification) (bool, error)
}

// Tx is everything a handler may do inside the event transaction.
type Tx interface {
	PaymentStore
	CatalogReader
	CommerceStore
	SubscriptionStore
	AccountStore
	DisputeStore
	NotificationStore

	// AfterCommit registers work that must only happen once the
	// transaction committed, such as operator alerts.
	AfterCommit(fn func(ctx context.Context))
}

// SubscriptionFetcher reads full subscription objects from Stripe.
type SubscriptionFetcher interface {
	Subscription(ctx context.Context, subscriptionID string) (*stripeapi.Subscription, error)
}

// AlertNotifier delivers best-effort operator alerts.
type AlertNotifier interface {
	Notify(ctx context.Context, alert alerts.Alert)
}

// PaymentEventService implements the handler for every Stripe event type the
// engine routes.
type PaymentEventService struct {
	renderer *notify.Renderer
	gateway  SubscriptionFetcher
	alerts   AlertNotifier
	fees     *pricing.Schedule
}

// NewPaymentEventService wires the handler dependencies. gateway and
// alertNotifier may be nil; subscription periods are then taken from event
// payloads only and alerts are dropped.
func NewPaymentEventService(renderer *notify.Renderer, gateway SubscriptionFetcher, alertNotifier AlertNotifier, fees *pricing.Schedule) *PaymentEventService {
	return &PaymentEventService{
		renderer: renderer,
		gateway:  gateway,
		alerts:   alertNotifier,
		fees:     fees,
	}
}

// notify renders msg and inserts it. Rendering problems are logged and
// skipped; insert errors are returned since they abort the transaction.
func (s *PaymentEventService) notify(ctx context.Context, tx Tx, msg notify.Message, logger *slog.Logger) error {
	meter := observability.MeterFromContext(ctx)
	if msg.Recipient == uuid.Nil {
		meter.Count("webhook.notification.skipped", 1, sentry.WithAttributes(
			attribute.String("kind", string(msg.Kind)),
			attribute.String("reason", "missing_recipient"),
		))
		logger.DebugContext(ctx, "skipping notification without recipient", "kind", msg.Kind)
		return nil
	}

	n, err := s.renderer.Build(msg)
	if err != nil {
		meter.Count("webhook.notification.skipped", 1, sentry.WithAttributes(
			attribute.String("kind", string(msg.Kind)),
			attribute.String("reason", "render_failed"),
		))
		logger.WarnContext(ctx, "failed to render notification", "error", err, "kind", msg.Kind)
		return nil
	}

	inserted, err := tx.InsertNotification(ctx, n)
	if err != nil {
		return err
	}
	if inserted {
		meter.Count("webhook.notification.inserted", 1, sentry.WithAttributes(
			attribute.String("kind", string(msg.Kind)),
		))
	}
	return nil
}

func (s *PaymentEventService) alert(tx Tx, alert alerts.Alert) {
	if s.alerts == nil {
		return
	}
	tx.AfterCommit(func(ctx context.Context) {
		s.alerts.Notify(ctx, alert)
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
