package billing

import (
	"context"
	"time"

	"github.com/eagleone34/kindercause-sub000/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseResult reports what RecordPurchase did.
type PurchaseResult struct {
	// Created is false when a purchase for the checkout session already existed.
	Created bool
	// Oversold is true when the ticket counter went past the capacity.
	Oversold bool
}

// SubscriptionUpdate holds the organization fields a lifecycle event writes.
// Nil pointers leave the column untouched.
type SubscriptionUpdate struct {
	Status     *SubscriptionState
	CustomerID *string
	PriceID    *string
	PlanName   *string
}

// Repository provides DB operations used by the reconciliation handlers.
type Repository interface {
	GetFundraiser(ctx context.Context, id uint) (*models.Fundraiser, error)
	RecordPurchase(ctx context.Context, p *models.Purchase) (PurchaseResult, error)
	GetPurchaseByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Purchase, error)
	ApplyRefund(ctx context.Context, id uint, refunded decimal.Decimal, full bool, at time.Time) (bool, error)

	GetOrganizationByOwner(ctx context.Context, userID uint) (*models.Organization, error)
	GetOrganizationByCustomerID(ctx context.Context, customerID string) (*models.Organization, error)
	GetOrganizationByConnectedAccount(ctx context.Context, accountID string) (*models.Organization, error)
	CreateOrganization(ctx context.Context, org *models.Organization) error
	UpdateSubscription(ctx context.Context, orgID uint, upd SubscriptionUpdate) error
	UpdateConnectedAccountStatus(ctx context.Context, orgID uint, status string) error

	CreateWebhookEventIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetFundraiser(ctx context.Context, id uint) (*models.Fundraiser, error) {
	var f models.Fundraiser
	err := r.db.WithContext(ctx).Preload("Organization").First(&f, id).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// RecordPurchase inserts the purchase keyed by its checkout session id and, in
// the same transaction, bumps the fundraiser counters. A replayed session is a
// no-op and leaves the counters alone.
func (r *gormRepository) RecordPurchase(ctx context.Context, p *models.Purchase) (PurchaseResult, error) {
	var res PurchaseResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ins := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checkout_session_id"}},
			DoNothing: true,
		}).Create(p)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			return nil
		}
		res.Created = true

		fundraisers := tx.Model(&models.Fundraiser{})
		if p.PurchaseType == models.PurchaseTypeTicket {
			upd := fundraisers.
				Where("id = ? AND tickets_sold + ? <= capacity", p.FundraiserID, p.Quantity).
				Updates(map[string]interface{}{
					"tickets_sold":   gorm.Expr("tickets_sold + ?", p.Quantity),
					"current_amount": gorm.Expr("current_amount + ?", p.GrossAmount),
				})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected > 0 {
				return nil
			}
			// The buyer already paid. Record the sale and let the caller flag it.
			res.Oversold = true
		}

		return tx.Model(&models.Fundraiser{}).
			Where("id = ?", p.FundraiserID).
			Updates(counterUpdates(p)).Error
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	return res, nil
}

func counterUpdates(p *models.Purchase) map[string]interface{} {
	updates := map[string]interface{}{
		"current_amount": gorm.Expr("current_amount + ?", p.GrossAmount),
	}
	if p.PurchaseType == models.PurchaseTypeTicket {
		updates["tickets_sold"] = gorm.Expr("tickets_sold + ?", p.Quantity)
	}
	return updates
}

func (r *gormRepository) GetPurchaseByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ApplyRefund records the cumulative refunded amount of a purchase. A full
// refund is terminal; partial refunds only ever move the amount forward, so
// replayed or out-of-order deliveries cannot lower it.
func (r *gormRepository) ApplyRefund(ctx context.Context, id uint, refunded decimal.Decimal, full bool, at time.Time) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status <> ?", id, models.PurchaseStatusRefunded)

	var tx *gorm.DB
	if full {
		tx = q.Updates(map[string]interface{}{
			"status":          models.PurchaseStatusRefunded,
			"amount_refunded": refunded,
			"refunded_at":     &at,
		})
	} else {
		tx = q.Where("amount_refunded < ?", refunded).
			Updates(map[string]interface{}{
				"status":          models.PurchaseStatusPartiallyRefunded,
				"amount_refunded": refunded,
			})
	}
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) GetOrganizationByOwner(ctx context.Context, userID uint) (*models.Organization, error) {
	return r.firstOrganization(ctx, "owner_user_id = ?", userID)
}

func (r *gormRepository) GetOrganizationByCustomerID(ctx context.Context, customerID string) (*models.Organization, error) {
	return r.firstOrganization(ctx, "stripe_customer_id = ?", customerID)
}

func (r *gormRepository) GetOrganizationByConnectedAccount(ctx context.Context, accountID string) (*models.Organization, error) {
	return r.firstOrganization(ctx, "stripe_connected_account_id = ?", accountID)
}

func (r *gormRepository) firstOrganization(ctx context.Context, query string, arg interface{}) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).Preload("Owner").Where(query, arg).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *gormRepository) CreateOrganization(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(org).Error
}

func (r *gormRepository) UpdateSubscription(ctx context.Context, orgID uint, upd SubscriptionUpdate) error {
	updates := map[string]interface{}{}
	if upd.Status != nil {
		updates["subscription_status"] = string(*upd.Status)
	}
	if upd.CustomerID != nil {
		updates["stripe_customer_id"] = *upd.CustomerID
	}
	if upd.PriceID != nil {
		updates["stripe_price_id"] = *upd.PriceID
	}
	if upd.PlanName != nil {
		updates["plan_name"] = *upd.PlanName
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", orgID).Updates(updates).Error
}

func (r *gormRepository) UpdateConnectedAccountStatus(ctx context.Context, orgID uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Organization{}).
		Where("id = ?", orgID).
		Update("connected_account_status", status).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
