package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/linkupapp/linkup/internal/observability"
	"github.com/linkupapp/linkup/internal/services"
)

// Route binds one Stripe event type to its handler.
type Route struct {
	Type    stripeapi.EventType
	Handler services.HandlerFunc
}

// Router is the static event-type dispatch table.
type Router struct {
	handlers map[stripeapi.EventType]services.HandlerFunc
}

// NewRouter validates routes: every entry needs a type and a handler, and a
// type may be declared only once.
func NewRouter(routes []Route) (*Router, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("router needs at least one route")
	}
	handlers := make(map[stripeapi.EventType]services.HandlerFunc, len(routes))
	for i, route := range routes {
		if route.Type == "" {
			return nil, fmt.Errorf("route %d has no event type", i)
		}
		if route.Handler == nil {
			return nil, fmt.Errorf("route %q has no handler", route.Type)
		}
		if _, exists := handlers[route.Type]; exists {
			return nil, fmt.Errorf("route %q declared twice", route.Type)
		}
		handlers[route.Type] = route.Handler
	}
	return &Router{handlers: handlers}, nil
}

// DefaultRoutes is the production routing table.
func DefaultRoutes(svc *services.PaymentEventService) []Route {
	return []Route{
		{Type: "payment_intent.succeeded", Handler: svc.HandlePaymentIntentSucceeded},
		{Type: "payment_intent.payment_failed", Handler: svc.HandlePaymentIntentFailed},
		{Type: "checkout.session.completed", Handler: svc.HandleCheckoutSessionCompleted},
		{Type: "customer.subscription.updated", Handler: svc.HandleSubscriptionUpdated},
		{Type: "customer.subscription.deleted", Handler: svc.HandleSubscriptionDeleted},
		{Type: "invoice.paid", Handler: svc.HandleInvoicePaid},
		{Type: "invoice.payment_succeeded", Handler: svc.HandleInvoicePaid},
		{Type: "invoice.payment_failed", Handler: svc.HandleInvoicePaymentFailed},
		{Type: "account.updated", Handler: svc.HandleAccountUpdated},
		{Type: "identity.verification_session.verified", Handler: svc.HandleIdentityVerified},
		{Type: "identity.verification_session.requires_input", Handler: svc.HandleIdentityRequiresInput},
		{Type: "charge.refunded", Handler: svc.HandleChargeRefunded},
		{Type: "charge.dispute.created", Handler: svc.HandleDisputeCreated},
		{Type: "charge.dispute.updated", Handler: svc.HandleDisputeUpdated},
		{Type: "charge.dispute.closed", Handler: svc.HandleDisputeClosed},
		{Type: "payout.paid", Handler: svc.HandlePayoutPaid},
		{Type: "payout.failed", Handler: svc.HandlePayoutFailed},
	}
}

func (r *Router) Lookup(eventType stripeapi.EventType) (services.HandlerFunc, bool) {
	handler, ok := r.handlers[eventType]
	return handler, ok
}

// Types lists the routed event types in sorted order.
func (r *Router) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for eventType := range r.handlers {
		types = append(types, string(eventType))
	}
	sort.Strings(types)
	return types
}

// Dispatch runs handler for event inside tx. A handler panic is converted to
// an error so the transaction rolls back like any other failure.
func (r *Router) Dispatch(ctx context.Context, handler services.HandlerFunc, tx services.Tx, event *stripeapi.Event, logger *slog.Logger) (err error) {
	span := sentry.StartSpan(
		ctx,
		"webhook.router.dispatch",
		sentry.WithOpName("webhook.router"),
		sentry.WithDescription(string(event.Type)),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	ctx = observability.WithEvent(ctx, "stripe", string(event.Type))
	meter := observability.MeterFromContext(ctx)
	meter.Count("webhook.router.received", 1)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
		if err != nil {
			meter.Count("webhook.router.failed", 1, sentry.WithAttributes(attribute.String("reason", "handler_failed")))
			span.Status = sentry.SpanStatusInternalError
			return
		}
		meter.Count("webhook.router.processed", 1)
		span.Status = sentry.SpanStatusOK
	}()

	return handler(ctx, tx, event, logger)
}
