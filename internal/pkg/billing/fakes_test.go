package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"github.com/eagleone34/kindercause-sub000/app/models"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/config"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/notification"
)

const testWebhookSecret = "whsec_test_secret"

// fakeStore is an in-memory Repository and IdentityStore.
type fakeStore struct {
	mu sync.Mutex

	nextID      uint
	users       map[uint]*models.User
	orgs        map[uint]*models.Organization
	fundraisers map[uint]*models.Fundraiser
	purchases   map[string]*models.Purchase
	events      map[string]*models.WebhookEvent

	recordErr   error
	eventLogErr error
	// createOrgErrs are returned by the next CreateOrganization calls, in order.
	createOrgErrs []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:      100,
		users:       map[uint]*models.User{},
		orgs:        map[uint]*models.Organization{},
		fundraisers: map[uint]*models.Fundraiser{},
		purchases:   map[string]*models.Purchase{},
		events:      map[string]*models.WebhookEvent{},
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addUser(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.id()
	}
	f.users[u.ID] = &u
	return &u
}

func (f *fakeStore) addOrg(o models.Organization) *models.Organization {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == 0 {
		o.ID = f.id()
	}
	f.orgs[o.ID] = &o
	return &o
}

func (f *fakeStore) addFundraiser(fr models.Fundraiser) *models.Fundraiser {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fr.ID == 0 {
		fr.ID = f.id()
	}
	f.fundraisers[fr.ID] = &fr
	return &fr
}

func (f *fakeStore) fundraiser(id uint) models.Fundraiser {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.fundraisers[id]
}

func (f *fakeStore) org(id uint) models.Organization {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.orgs[id]
}

func (f *fakeStore) purchaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.purchases)
}

func (f *fakeStore) GetFundraiser(_ context.Context, id uint) (*models.Fundraiser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, ok := f.fundraisers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *fr
	if org, ok := f.orgs[fr.OrganizationID]; ok {
		o := *org
		out.Organization = &o
	}
	return &out, nil
}

func (f *fakeStore) RecordPurchase(_ context.Context, p *models.Purchase) (PurchaseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return PurchaseResult{}, f.recordErr
	}
	if _, ok := f.purchases[p.CheckoutSessionID]; ok {
		return PurchaseResult{}, nil
	}
	res := PurchaseResult{Created: true}
	p.ID = f.id()
	stored := *p
	f.purchases[p.CheckoutSessionID] = &stored

	fr := f.fundraisers[p.FundraiserID]
	if p.PurchaseType == models.PurchaseTypeTicket {
		if fr.TicketsSold+p.Quantity > fr.Capacity {
			res.Oversold = true
		}
		fr.TicketsSold += p.Quantity
	}
	fr.CurrentAmount = fr.CurrentAmount.Add(p.GrossAmount)
	return res, nil
}

func (f *fakeStore) GetPurchaseByPaymentIntent(_ context.Context, paymentIntentID string) (*models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.purchases {
		if p.PaymentIntentID == paymentIntentID {
			out := *p
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) ApplyRefund(_ context.Context, id uint, refunded decimal.Decimal, full bool, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.purchases {
		if p.ID != id || p.Status == models.PurchaseStatusRefunded {
			continue
		}
		if full {
			p.Status = models.PurchaseStatusRefunded
			p.AmountRefunded = refunded
			p.RefundedAt = &at
			return true, nil
		}
		if !p.AmountRefunded.LessThan(refunded) {
			return false, nil
		}
		p.Status = models.PurchaseStatusPartiallyRefunded
		p.AmountRefunded = refunded
		return true, nil
	}
	return false, nil
}

func (f *fakeStore) findOrg(match func(o *models.Organization) bool) (*models.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orgs {
		if match(o) {
			out := *o
			if u, ok := f.users[o.OwnerUserID]; ok {
				owner := *u
				out.Owner = &owner
			}
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) GetOrganizationByOwner(_ context.Context, userID uint) (*models.Organization, error) {
	return f.findOrg(func(o *models.Organization) bool { return o.OwnerUserID == userID })
}

func (f *fakeStore) GetOrganizationByCustomerID(_ context.Context, customerID string) (*models.Organization, error) {
	return f.findOrg(func(o *models.Organization) bool {
		return o.StripeCustomerID != nil && *o.StripeCustomerID == customerID
	})
}

func (f *fakeStore) GetOrganizationByConnectedAccount(_ context.Context, accountID string) (*models.Organization, error) {
	return f.findOrg(func(o *models.Organization) bool { return o.ConnectedAccountID() == accountID })
}

func (f *fakeStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createOrgErrs) > 0 {
		err := f.createOrgErrs[0]
		f.createOrgErrs = f.createOrgErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, o := range f.orgs {
		if o.OwnerUserID == org.OwnerUserID || o.Slug == org.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	org.ID = f.id()
	stored := *org
	f.orgs[org.ID] = &stored
	return nil
}

func (f *fakeStore) UpdateSubscription(_ context.Context, orgID uint, upd SubscriptionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[orgID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if upd.Status != nil {
		o.SubscriptionStatus = string(*upd.Status)
	}
	if upd.CustomerID != nil {
		c := *upd.CustomerID
		o.StripeCustomerID = &c
	}
	if upd.PriceID != nil {
		o.StripePriceID = *upd.PriceID
	}
	if upd.PlanName != nil {
		o.PlanName = *upd.PlanName
	}
	return nil
}

func (f *fakeStore) UpdateConnectedAccountStatus(_ context.Context, orgID uint, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orgs[orgID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.ConnectedAccountStatus = status
	return nil
}

func (f *fakeStore) CreateWebhookEventIfNotExists(_ context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventLogErr != nil {
		return false, nil, f.eventLogErr
	}
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		out := *stored
		return false, &out, nil
	}
	event.ID = f.id()
	stored := *event
	f.events[key] = &stored
	out := stored
	return true, &out, nil
}

func (f *fakeStore) MarkWebhookProcessed(_ context.Context, id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeStore) FindOrCreateByEmail(_ context.Context, email, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	u := &models.User{ID: f.id(), Email: email, Name: name, Status: models.STATUS_INACTIVE}
	f.users[u.ID] = u
	out := *u
	return &out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *u
	return &out, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	messages []notification.Message
}

func (n *fakeNotifier) Notify(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func (n *fakeNotifier) sent() []notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Message(nil), n.messages...)
}

func testConfig() *config.Config {
	return &config.Config{
		StripeSecretKey:     "sk_test_123",
		StripeWebhookSecret: testWebhookSecret,
		WebhookTolerance:    5 * time.Minute,
		BaseURL:             "https://kindercause.test",
		Currency:            "usd",
		PlatformFeePercent:  decimal.NewFromInt(5),
		ProviderFeePercent:  decimal.RequireFromString("2.9"),
		ProviderFeeFlat:     decimal.RequireFromString("0.30"),
		Plans:               map[string]string{"price_starter": "Starter", "price_pro": "Pro"},
	}
}

func newTestService(store *fakeStore, notifier *fakeNotifier) *Service {
	return NewService(testConfig(), store, store, notifier, NewVerifier(testWebhookSecret, 0))
}

// signedEvent builds a provider envelope around object and signs it with the
// test secret.
func signedEvent(t *testing.T, id, eventType string, object interface{}) ([]byte, string) {
	t.Helper()
	obj, err := json.Marshal(object)
	require.NoError(t, err)

	payload := fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"created":%d,"livemode":false,"api_version":"2024-06-20","data":{"object":%s}}`,
		id, eventType, time.Now().Unix(), obj)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func event(t *testing.T, id, eventType string, object interface{}) Event {
	t.Helper()
	obj, err := json.Marshal(object)
	require.NoError(t, err)
	return Event{ID: id, Type: eventType, Created: time.Now(), Data: obj}
}
