package checkout

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// SessionCreator creates hosted checkout sessions at the payment provider.
type SessionCreator interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeSessionCreator struct {
	client *session.Client
}

// NewStripeSessionCreator returns a SessionCreator bound to one secret key.
// The package level stripe.Key is never touched.
func NewStripeSessionCreator(secretKey string) SessionCreator {
	return &stripeSessionCreator{
		client: &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}
}

func (c *stripeSessionCreator) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return c.client.New(params)
}
