package billing

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidSignature is returned when the webhook payload cannot be
	// authenticated. Nothing is parsed or stored in that case.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMissingMetadata marks a provider payload that lacks the linkage the
	// handler needs to write the authoritative record.
	ErrMissingMetadata = errors.New("missing checkout metadata")
)

// Checkout session metadata keys shared with the checkout builder.
const (
	MetaFundraiserID     = "fundraiser_id"
	MetaOrganizationID   = "organization_id"
	MetaPurchaseType     = "type"
	MetaQuantity         = "quantity"
	MetaPriceID          = "price_id"
	MetaPlanName         = "plan_name"
	MetaOrganizationName = "organization_name"
)

// Event is the verified, provider-neutral envelope handed to the router.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Data    json.RawMessage
}

// WebhookResult describes how a delivered event was handled.
type WebhookResult struct {
	EventID   string
	EventType string
	Duplicate bool
}

type checkoutSession struct {
	ID                string `json:"id"`
	Mode              string `json:"mode"`
	PaymentStatus     string `json:"payment_status"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	PaymentIntent     string `json:"payment_intent"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	CustomerDetails   struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer_details"`
	CustomFields []struct {
		Key  string `json:"key"`
		Text struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"custom_fields"`
	Metadata map[string]string `json:"metadata"`
}

func (s *checkoutSession) meta(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(s.Metadata[key])
}

func (s *checkoutSession) customField(keys ...string) string {
	for _, key := range keys {
		for _, f := range s.CustomFields {
			if f.Key == key {
				if v := strings.TrimSpace(f.Text.Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func (s *checkoutSession) email() string {
	if e := strings.TrimSpace(s.CustomerDetails.Email); e != "" {
		return e
	}
	return strings.TrimSpace(s.CustomerEmail)
}

// isFundraiserPurchase is the single routing decision for checkout
// completions: a fundraiser reference in the metadata means a marketplace
// purchase, anything else is a tenant subscription checkout.
func (s *checkoutSession) isFundraiserPurchase() bool {
	return s.meta(MetaFundraiserID) != ""
}

type subscriptionObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Items    struct {
		Data []struct {
			Price struct {
				ID       string `json:"id"`
				Nickname string `json:"nickname"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (s *subscriptionObject) price() (string, string) {
	for _, item := range s.Items.Data {
		if item.Price.ID != "" {
			return item.Price.ID, item.Price.Nickname
		}
	}
	return "", ""
}

type invoiceObject struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	AmountPaid   int64  `json:"amount_paid"`
}

type chargeObject struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	Refunded       bool   `json:"refunded"`
}

type accountObject struct {
	ID             string `json:"id"`
	ChargesEnabled bool   `json:"charges_enabled"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}
