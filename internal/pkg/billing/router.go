package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
)

// Dispatch routes a verified event to its handler. Event types without a
// handler are acknowledged so the provider stops redelivering them.
func (s *Service) Dispatch(ctx context.Context, ev Event) error {
	switch stripe.EventType(ev.Type) {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var sess checkoutSession
		if err := decode(ev, &sess); err != nil {
			return err
		}
		if sess.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusUnpaid) {
			// Delayed payment methods complete later with async_payment_succeeded.
			log.Infow("[Billing] checkout completed without payment, waiting", "event_id", ev.ID, "session", sess.ID)
			return nil
		}
		if sess.isFundraiserPurchase() {
			return s.handleFundraiserPurchase(ctx, ev, &sess)
		}
		return s.handleSubscriptionCheckout(ctx, ev, &sess)

	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub subscriptionObject
		if err := decode(ev, &sub); err != nil {
			return err
		}
		return s.handleSubscriptionUpdated(ctx, ev, &sub)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub subscriptionObject
		if err := decode(ev, &sub); err != nil {
			return err
		}
		return s.handleSubscriptionDeleted(ctx, ev, &sub)

	case stripe.EventTypeInvoicePaid:
		var inv invoiceObject
		if err := decode(ev, &inv); err != nil {
			return err
		}
		return s.handleInvoicePaid(ctx, ev, &inv)

	case stripe.EventTypeChargeRefunded:
		var ch chargeObject
		if err := decode(ev, &ch); err != nil {
			return err
		}
		return s.handleChargeRefunded(ctx, ev, &ch)

	case stripe.EventTypeAccountUpdated:
		var acct accountObject
		if err := decode(ev, &acct); err != nil {
			return err
		}
		return s.handleAccountUpdated(ctx, ev, &acct)

	default:
		log.Infow("[Billing] unhandled event type acknowledged", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
}

func decode(ev Event, v interface{}) error {
	if len(ev.Data) == 0 {
		return fmt.Errorf("event %s has no data object", ev.ID)
	}
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", ev.Type, err)
	}
	return nil
}
