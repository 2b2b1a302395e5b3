package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripeapi "github.com/stripe/stripe-go/v84"
)

const defaultLookupTimeout = 10 * time.Second

var ErrGatewayNotConfigured = errors.New("stripe api key not configured")

// Gateway performs read-only Stripe API lookups for webhook handlers. Each
// call carries its own timeout.
type Gateway struct {
	client  *stripeapi.Client
	timeout time.Duration
}

// NewGateway builds a gateway client. An empty secret key yields a gateway
// whose lookups fail with ErrGatewayNotConfigured.
func NewGateway(secretKey string, httpClient *http.Client, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	g := &Gateway{timeout: timeout}
	if secretKey == "" {
		return g
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	backends := stripeapi.NewBackendsWithConfig(&stripeapi.BackendConfig{
		HTTPClient: httpClient,
	})
	g.client = stripeapi.NewClient(secretKey, stripeapi.WithBackends(backends))
	return g
}

// Subscription fetches the full subscription object, used when a checkout
// event only carries the subscription id.
func (g *Gateway) Subscription(ctx context.Context, subscriptionID string) (*stripeapi.Subscription, error) {
	if g == nil || g.client == nil {
		return nil, ErrGatewayNotConfigured
	}
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscription id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	subscription, err := g.client.V1Subscriptions.Retrieve(ctx, subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve subscription %s: %w", subscriptionID, err)
	}
	return subscription, nil
}
