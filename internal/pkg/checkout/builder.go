// Package checkout builds provider hosted checkout sessions. It never writes
// local state: purchases and subscriptions are created only when the provider
// confirms the payment through a webhook.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/eagleone34/kindercause-sub000/app/models"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/billing"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/config"
)

var (
	ErrInvalidRequest        = errors.New("invalid checkout request")
	ErrFundraiserUnavailable = errors.New("fundraiser not available")
	ErrInsufficientCapacity  = errors.New("not enough tickets left")
	ErrUnknownPlan           = errors.New("unknown plan")
	ErrProvider              = errors.New("payment provider error")
)

const (
	maxTicketsPerCheckout = 50
	// Stripe rejects charges below 50 cents.
	minChargeMinor = 50
)

// Request is a public checkout for one fundraiser.
type Request struct {
	FundraiserSlug string          `json:"-" validate:"required,max=120"`
	Kind           string          `json:"type" validate:"required,oneof=ticket donation"`
	Amount         decimal.Decimal `json:"amount" validate:"-"`
	Quantity       int             `json:"quantity" validate:"gte=0,lte=50"`
	Recurring      bool            `json:"recurring"`
	Email          string          `json:"email" validate:"omitempty,email,max=200"`
}

// PlanRequest is a SaaS plan checkout for an organization owner.
type PlanRequest struct {
	PriceID          string `json:"price_id" validate:"required,max=191"`
	UserID           uint   `json:"-"`
	Email            string `json:"email" validate:"required_without=UserID,omitempty,email,max=200"`
	OrganizationName string `json:"organization_name" validate:"max=200"`
}

// Session is the redirect target returned to the caller.
type Session struct {
	ID                  string `json:"id"`
	URL                 string `json:"url"`
	Mode                string `json:"mode"`
	ApplicationFeeMinor int64  `json:"application_fee,omitempty"`
}

// Builder constructs checkout sessions from fundraiser and plan intents.
type Builder struct {
	cfg      *config.Config
	store    FundraiserStore
	creator  SessionCreator
	validate *validator.Validate
}

func NewBuilder(cfg *config.Config, store FundraiserStore, creator SessionCreator) *Builder {
	return &Builder{
		cfg:      cfg,
		store:    store,
		creator:  creator,
		validate: validator.New(),
	}
}

// BuildFundraiserSession validates the request against the fundraiser and
// creates a checkout session. The capacity check here is advisory: concurrent
// buyers can still pass it for the same last ticket.
func (b *Builder) BuildFundraiserSession(ctx context.Context, req Request) (*Session, error) {
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	if err := b.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	f, err := b.store.GetFundraiserBySlug(ctx, req.FundraiserSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFundraiserUnavailable
		}
		return nil, err
	}
	if !f.IsActive() {
		return nil, ErrFundraiserUnavailable
	}

	var unitMinor int64
	quantity := 1
	switch req.Kind {
	case models.PurchaseTypeTicket:
		if !f.IsTicketed() {
			return nil, fmt.Errorf("%w: fundraiser does not sell tickets", ErrInvalidRequest)
		}
		if req.Quantity > 0 {
			quantity = req.Quantity
		}
		if quantity > maxTicketsPerCheckout {
			return nil, fmt.Errorf("%w: at most %d tickets per checkout", ErrInvalidRequest, maxTicketsPerCheckout)
		}
		if quantity > f.RemainingCapacity() {
			return nil, ErrInsufficientCapacity
		}
		unitMinor = billing.MajorToMinor(f.TicketPrice)
	case models.PurchaseTypeDonation:
		if f.IsTicketed() {
			return nil, fmt.Errorf("%w: fundraiser does not accept donations", ErrInvalidRequest)
		}
		unitMinor = billing.MajorToMinor(req.Amount)
	}
	if unitMinor < minChargeMinor {
		return nil, fmt.Errorf("%w: amount must be at least %s", ErrInvalidRequest, billing.MinorToMajor(minChargeMinor).StringFixed(2))
	}

	recurring := req.Recurring && f.AllowRecurring
	mode := stripe.CheckoutSessionModePayment
	if recurring {
		mode = stripe.CheckoutSessionModeSubscription
	}

	feePercent := f.Organization.FeePercent(b.cfg.PlatformFeePercent)
	totalMinor := unitMinor * int64(quantity)

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(mode)),
		SuccessURL: stripe.String(b.fundraiserURL(f.Slug) + "/thanks?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(b.fundraiserURL(f.Slug)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: b.priceData(f, unitMinor, recurring),
				Quantity:  stripe.Int64(int64(quantity)),
			},
		},
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
		CustomFields: []*stripe.CheckoutSessionCustomFieldParams{
			{
				Key:      stripe.String("purchaser_name"),
				Type:     stripe.String(string(stripe.CheckoutSessionCustomFieldTypeText)),
				Optional: stripe.Bool(true),
				Label: &stripe.CheckoutSessionCustomFieldLabelParams{
					Type:   stripe.String(string(stripe.CheckoutSessionCustomFieldLabelTypeCustom)),
					Custom: stripe.String("Full name"),
				},
			},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	metadata := map[string]string{
		billing.MetaFundraiserID:   strconv.FormatUint(uint64(f.ID), 10),
		billing.MetaOrganizationID: strconv.FormatUint(uint64(f.OrganizationID), 10),
		billing.MetaPurchaseType:   req.Kind,
		billing.MetaQuantity:       strconv.Itoa(quantity),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	var applicationFee int64
	if destination := f.Organization.PayoutAccountID(); destination != "" {
		applicationFee = billing.ApplicationFeeMinor(totalMinor, feePercent)
		if recurring {
			pct, _ := feePercent.Float64()
			params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
				ApplicationFeePercent: stripe.Float64(pct),
				TransferData: &stripe.CheckoutSessionSubscriptionDataTransferDataParams{
					Destination: stripe.String(destination),
				},
				Metadata: metadata,
			}
		} else {
			params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
				ApplicationFeeAmount: stripe.Int64(applicationFee),
				TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
					Destination: stripe.String(destination),
				},
			}
		}
	} else if recurring {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: metadata}
	}

	sess, err := b.creator.CreateSession(ctx, params)
	if err != nil {
		log.Errorw("[Checkout] session creation failed", "fundraiser_id", f.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	log.Infow("[Checkout] session created", "session", sess.ID, "fundraiser_id", f.ID, "mode", mode, "quantity", quantity)

	return &Session{ID: sess.ID, URL: sess.URL, Mode: string(mode), ApplicationFeeMinor: applicationFee}, nil
}

func (b *Builder) priceData(f *models.Fundraiser, unitMinor int64, recurring bool) *stripe.CheckoutSessionLineItemPriceDataParams {
	name := f.Title
	if f.Organization != nil && f.Organization.Name != "" {
		name = f.Title + " - " + f.Organization.Name
	}
	pd := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(strings.ToLower(b.cfg.Currency)),
		UnitAmount: stripe.Int64(unitMinor),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(name),
		},
	}
	if recurring {
		pd.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}
	return pd
}

func (b *Builder) fundraiserURL(slug string) string {
	return strings.TrimRight(b.cfg.BaseURL, "/") + "/f/" + url.PathEscape(slug)
}

// BuildPlanSession starts a subscription checkout for one of the configured
// plans. The webhook links the result to a user by client_reference_id or
// by the email entered on the payment page.
func (b *Builder) BuildPlanSession(ctx context.Context, req PlanRequest) (*Session, error) {
	req.PriceID = strings.TrimSpace(req.PriceID)
	req.Email = strings.TrimSpace(req.Email)
	if err := b.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	planName, ok := b.cfg.PlanName(req.PriceID)
	if !ok {
		return nil, ErrUnknownPlan
	}

	base := strings.TrimRight(b.cfg.BaseURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(base + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(base + "/pricing"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	if req.UserID > 0 {
		params.ClientReferenceID = stripe.String(strconv.FormatUint(uint64(req.UserID), 10))
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata(billing.MetaPriceID, req.PriceID)
	params.AddMetadata(billing.MetaPlanName, planName)
	if name := strings.TrimSpace(req.OrganizationName); name != "" {
		params.AddMetadata(billing.MetaOrganizationName, name)
	}

	sess, err := b.creator.CreateSession(ctx, params)
	if err != nil {
		log.Errorw("[Checkout] plan session creation failed", "price_id", req.PriceID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	log.Infow("[Checkout] plan session created", "session", sess.ID, "price_id", req.PriceID)
	return &Session{ID: sess.ID, URL: sess.URL, Mode: string(stripe.CheckoutSessionModeSubscription)}, nil
}
