package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PurchaseTypeTicket   = "ticket"
	PurchaseTypeDonation = "donation"
)

const (
	PurchaseStatusCompleted         = "completed"
	PurchaseStatusPartiallyRefunded = "partially_refunded"
	PurchaseStatusRefunded          = "refunded"
)

// Purchase is one completed (or later refunded) payment for a fundraiser.
// CheckoutSessionID is the idempotency key: there is at most one row per
// provider checkout session.
type Purchase struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	FundraiserID      uint            `gorm:"not null;index" json:"fundraiser_id"`
	OrganizationID    uint            `gorm:"not null;index" json:"organization_id"`
	CheckoutSessionID string          `gorm:"type:varchar(191);not null;uniqueIndex" json:"checkout_session_id"`
	PaymentIntentID   string          `gorm:"type:varchar(191);default:'';index" json:"payment_intent_id"`
	PurchaseType      string          `gorm:"type:varchar(20);not null" json:"purchase_type"`
	PurchaserName     string          `gorm:"type:varchar(200);not null" json:"purchaser_name"`
	PurchaserEmail    string          `gorm:"type:varchar(200);default:''" json:"purchaser_email"`
	PurchaserPhone    string          `gorm:"type:varchar(50);default:''" json:"purchaser_phone"`
	GrossAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"gross_amount"`
	ProviderFee       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"provider_fee"`
	PlatformFee       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"platform_fee"`
	NetAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	Quantity          int             `gorm:"not null;default:1" json:"quantity"`
	IsRecurring       bool            `gorm:"default:false" json:"is_recurring"`
	RecurringSeriesID string          `gorm:"type:varchar(191);default:''" json:"recurring_series_id"`
	FulfillmentToken  *string         `gorm:"type:varchar(64);uniqueIndex" json:"fulfillment_token,omitempty"`
	Status            string          `gorm:"type:varchar(20);not null;default:'completed';index" json:"status"`
	AmountRefunded    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_refunded"`
	RefundedAt        *time.Time      `gorm:"type:timestamp;default:null" json:"refunded_at,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsRefunded reports a full refund. Partially refunded purchases still count.
func (p *Purchase) IsRefunded() bool {
	return p.Status == PurchaseStatusRefunded
}
