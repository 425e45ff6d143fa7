package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// handleChargeRefunded records full and partial refunds against the purchase
// behind the charge. Refunds for charges that are not fundraiser purchases are
// acknowledged.
func (s *Service) handleChargeRefunded(ctx context.Context, ev Event, ch *chargeObject) error {
	paymentIntent := strings.TrimSpace(ch.PaymentIntent)
	if paymentIntent == "" {
		log.Infow("[Billing] refunded charge without payment intent ignored", "event_id", ev.ID, "charge", ch.ID)
		return nil
	}
	full := ch.Refunded || (ch.Amount > 0 && ch.AmountRefunded >= ch.Amount)
	if !full && ch.AmountRefunded <= 0 {
		log.Infow("[Billing] refund event without refunded amount ignored", "event_id", ev.ID, "charge", ch.ID)
		return nil
	}

	purchase, err := s.repo.GetPurchaseByPaymentIntent(ctx, paymentIntent)
	if err != nil {
		if isNotFound(err) {
			log.Infow("[Billing] refund for untracked charge", "event_id", ev.ID, "payment_intent", paymentIntent)
			return nil
		}
		return fmt.Errorf("failed to load purchase for payment intent %s: %w", paymentIntent, err)
	}
	if purchase.IsRefunded() {
		return nil
	}

	refunded := MinorToMajor(ch.AmountRefunded)
	if full && refunded.LessThan(purchase.GrossAmount) {
		refunded = purchase.GrossAmount
	}
	changed, err := s.repo.ApplyRefund(ctx, purchase.ID, refunded, full, s.now())
	if err != nil {
		return fmt.Errorf("failed to apply refund to purchase %d: %w", purchase.ID, err)
	}
	if !changed {
		return nil
	}
	if full {
		log.Infow("[Billing] purchase refunded", "event_id", ev.ID, "purchase_id", purchase.ID)
	} else {
		log.Infow("[Billing] purchase partially refunded",
			"event_id", ev.ID, "purchase_id", purchase.ID, "amount_refunded", refunded.StringFixed(2))
	}
	return nil
}
