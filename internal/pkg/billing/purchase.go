package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"

	"github.com/eagleone34/kindercause-sub000/app/models"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/notification"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/slug"
)

const (
	anonymousPurchaser   = "Anonymous"
	fulfillmentPrefix    = "tkt_"
	fulfillmentTokenSize = 32
)

// handleFundraiserPurchase records a marketplace payment for a fundraiser.
// Any failure up to and including the insert is returned so the provider
// redelivers; the receipt is best effort.
func (s *Service) handleFundraiserPurchase(ctx context.Context, ev Event, sess *checkoutSession) error {
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("%w: checkout session id", ErrMissingMetadata)
	}

	fundraiserID, err := strconv.ParseUint(sess.meta(MetaFundraiserID), 10, 64)
	if err != nil || fundraiserID == 0 {
		return fmt.Errorf("%w: invalid fundraiser_id %q", ErrMissingMetadata, sess.meta(MetaFundraiserID))
	}

	fundraiser, err := s.repo.GetFundraiser(ctx, uint(fundraiserID))
	if err != nil {
		return fmt.Errorf("failed to load fundraiser %d: %w", fundraiserID, err)
	}

	purchase, err := s.buildPurchase(sess, fundraiser)
	if err != nil {
		return err
	}

	res, err := s.repo.RecordPurchase(ctx, purchase)
	if err != nil {
		return fmt.Errorf("failed to record purchase for session %s: %w", sess.ID, err)
	}
	if !res.Created {
		log.Infow("[Billing] purchase already recorded", "event_id", ev.ID, "session", sess.ID)
		return nil
	}
	if res.Oversold {
		log.Warnw("[Billing] fundraiser oversold",
			"event_id", ev.ID, "fundraiser_id", fundraiser.ID, "capacity", fundraiser.Capacity, "quantity", purchase.Quantity)
	}

	log.Infow("[Billing] purchase recorded",
		"event_id", ev.ID, "session", sess.ID, "fundraiser_id", fundraiser.ID,
		"type", purchase.PurchaseType, "gross", purchase.GrossAmount.StringFixed(2))

	s.notify(ctx, receiptMessage(purchase, fundraiser, s.cfg.Currency))
	return nil
}

func (s *Service) buildPurchase(sess *checkoutSession, fundraiser *models.Fundraiser) (*models.Purchase, error) {
	purchaseType, err := purchaseTypeFor(sess.meta(MetaPurchaseType), fundraiser)
	if err != nil {
		return nil, err
	}

	quantity := 1
	if purchaseType == models.PurchaseTypeTicket {
		if q, err := strconv.Atoi(sess.meta(MetaQuantity)); err == nil && q > 0 {
			quantity = q
		}
	}

	fees := FeeSchedule{
		PlatformPercent: fundraiser.Organization.FeePercent(s.cfg.PlatformFeePercent),
		ProviderPercent: s.cfg.ProviderFeePercent,
		ProviderFlat:    s.cfg.ProviderFeeFlat,
	}
	split := fees.Split(MinorToMajor(sess.AmountTotal))

	p := &models.Purchase{
		FundraiserID:      fundraiser.ID,
		OrganizationID:    fundraiser.OrganizationID,
		CheckoutSessionID: sess.ID,
		PaymentIntentID:   sess.PaymentIntent,
		PurchaseType:      purchaseType,
		PurchaserName:     purchaserName(sess),
		PurchaserEmail:    models.NormalizeEmail(sess.email()),
		PurchaserPhone:    strings.TrimSpace(sess.CustomerDetails.Phone),
		GrossAmount:       split.Gross,
		ProviderFee:       split.ProviderFee,
		PlatformFee:       split.PlatformFee,
		NetAmount:         split.Net,
		Quantity:          quantity,
		Status:            models.PurchaseStatusCompleted,
	}
	if sess.Mode == string(stripe.CheckoutSessionModeSubscription) {
		p.IsRecurring = true
		p.RecurringSeriesID = sess.Subscription
	}

	if purchaseType == models.PurchaseTypeTicket {
		token, err := newFulfillmentToken()
		if err != nil {
			return nil, err
		}
		p.FulfillmentToken = &token
	}
	return p, nil
}

func purchaseTypeFor(raw string, fundraiser *models.Fundraiser) (string, error) {
	switch strings.ToLower(raw) {
	case models.PurchaseTypeTicket:
		return models.PurchaseTypeTicket, nil
	case models.PurchaseTypeDonation:
		return models.PurchaseTypeDonation, nil
	case "":
		if fundraiser.IsTicketed() {
			return models.PurchaseTypeTicket, nil
		}
		return models.PurchaseTypeDonation, nil
	default:
		return "", fmt.Errorf("%w: unknown purchase type %q", ErrMissingMetadata, raw)
	}
}

// purchaserName prefers the name typed into the checkout form, then the
// card holder name reported by the provider.
func purchaserName(sess *checkoutSession) string {
	if name := sess.customField("purchaser_name", "name", "full_name"); name != "" {
		return name
	}
	if name := strings.TrimSpace(sess.CustomerDetails.Name); name != "" {
		return name
	}
	return anonymousPurchaser
}

func newFulfillmentToken() (string, error) {
	s, err := slug.GenerateSecure(fulfillmentTokenSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate fulfillment token: %w", err)
	}
	return fulfillmentPrefix + s, nil
}

func receiptMessage(p *models.Purchase, f *models.Fundraiser, currency string) notification.Message {
	data := map[string]string{
		"name":       p.PurchaserName,
		"fundraiser": f.Title,
		"amount":     p.GrossAmount.StringFixed(2) + " " + strings.ToUpper(currency),
		"quantity":   strconv.Itoa(p.Quantity),
	}
	if p.FulfillmentToken != nil {
		data["ticket_token"] = *p.FulfillmentToken
	}
	return notification.Message{
		Kind: notification.KindPurchaseReceipt,
		To:   p.PurchaserEmail,
		Data: data,
	}
}
