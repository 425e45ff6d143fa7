package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription status values stored on an organization. An empty value means
// the organization never had a subscription.
const (
	SubscriptionStatusNone     = ""
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Connected payout account states.
const (
	ConnectedAccountNone    = ""
	ConnectedAccountPending = "pending"
	ConnectedAccountActive  = "active"
)

// Organization is a tenant account. The subscription linkage lives directly on
// this row and is written by the webhook reconciliation handlers.
type Organization struct {
	ID                       uint             `gorm:"primaryKey" json:"id"`
	OwnerUserID              uint             `gorm:"not null;uniqueIndex" json:"owner_user_id"`
	Owner                    *User            `gorm:"foreignKey:OwnerUserID" json:"-"`
	Name                     string           `gorm:"type:varchar(200);not null" json:"name"`
	Slug                     string           `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	StripeCustomerID         *string          `gorm:"type:varchar(191);index" json:"stripe_customer_id,omitempty"`
	StripeConnectedAccountID *string          `gorm:"type:varchar(191);index" json:"stripe_connected_account_id,omitempty"`
	ConnectedAccountStatus   string           `gorm:"type:varchar(20);default:''" json:"connected_account_status"`
	SubscriptionStatus       string           `gorm:"type:varchar(20);default:'';index" json:"subscription_status"`
	StripePriceID            string           `gorm:"type:varchar(191);default:''" json:"stripe_price_id"`
	PlanName                 string           `gorm:"type:varchar(100);default:''" json:"plan_name"`
	PlatformFeePercent       *decimal.Decimal `gorm:"type:decimal(5,2);default:null" json:"platform_fee_percent,omitempty"`
	CreatedAt                time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// ConnectedAccountID returns the linked payout account id, onboarded or not.
func (o *Organization) ConnectedAccountID() string {
	if o == nil || o.StripeConnectedAccountID == nil {
		return ""
	}
	return *o.StripeConnectedAccountID
}

// PayoutAccountID returns the account that may receive transfers. It is ""
// until the account can accept charges and payouts.
func (o *Organization) PayoutAccountID() string {
	if o == nil || o.ConnectedAccountStatus != ConnectedAccountActive {
		return ""
	}
	return o.ConnectedAccountID()
}

// FeePercent returns the organization's platform fee percentage, falling back
// to def when none is configured.
func (o *Organization) FeePercent(def decimal.Decimal) decimal.Decimal {
	if o == nil || o.PlatformFeePercent == nil {
		return def
	}
	return *o.PlatformFeePercent
}
