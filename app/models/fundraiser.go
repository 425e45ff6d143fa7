package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	FundraiserKindTicketedEvent    = "ticketed_event"
	FundraiserKindDonationCampaign = "donation_campaign"
)

const (
	FundraiserStatusDraft     = "draft"
	FundraiserStatusActive    = "active"
	FundraiserStatusCancelled = "cancelled"
)

// Fundraiser is a ticketed event or a donation campaign owned by one
// organization. TicketsSold and CurrentAmount are only ever changed through
// atomic increments when a purchase is recorded.
type Fundraiser struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrganizationID uint            `gorm:"not null;index" json:"organization_id"`
	Organization   *Organization   `gorm:"foreignKey:OrganizationID" json:"-"`
	Kind           string          `gorm:"type:varchar(30);not null" json:"kind"`
	Status         string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Title          string          `gorm:"type:varchar(200);not null" json:"title"`
	Slug           string          `gorm:"type:varchar(120);not null;uniqueIndex" json:"slug"`
	TicketPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"ticket_price"`
	Capacity       int             `gorm:"not null;default:0" json:"capacity"`
	TicketsSold    int             `gorm:"not null;default:0" json:"tickets_sold"`
	GoalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"goal_amount"`
	CurrentAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"current_amount"`
	AllowRecurring bool            `gorm:"default:false" json:"allow_recurring"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (f *Fundraiser) IsTicketed() bool {
	return f.Kind == FundraiserKindTicketedEvent
}

func (f *Fundraiser) IsActive() bool {
	return f.Status == FundraiserStatusActive
}

// RemainingCapacity returns how many tickets can still be sold. It may be
// negative when an oversell already happened.
func (f *Fundraiser) RemainingCapacity() int {
	return f.Capacity - f.TicketsSold
}
