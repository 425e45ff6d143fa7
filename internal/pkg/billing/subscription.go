package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/eagleone34/kindercause-sub000/app/models"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/notification"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/slug"
)

const maxSlugAttempts = 5

// handleSubscriptionCheckout activates a tenant after a plan checkout. The
// user and organization are resolved or created, so replays converge on the
// same rows.
func (s *Service) handleSubscriptionCheckout(ctx context.Context, ev Event, sess *checkoutSession) error {
	user, err := s.resolveCheckoutUser(ctx, sess)
	if err != nil {
		return err
	}

	priceID := sess.meta(MetaPriceID)
	planName := s.planName(priceID, sess.meta(MetaPlanName))
	active := StateActive
	upd := SubscriptionUpdate{Status: &active}
	// A checkout without plan metadata keeps the stored plan.
	if priceID != "" {
		upd.PriceID = &priceID
	}
	if planName != "" {
		upd.PlanName = &planName
	}
	if customer := strings.TrimSpace(sess.Customer); customer != "" {
		upd.CustomerID = &customer
	}

	org, err := s.repo.GetOrganizationByOwner(ctx, user.ID)
	switch {
	case err == nil:
	case isNotFound(err):
		org, err = s.createOrganization(ctx, user, organizationName(sess, user), upd)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("failed to load organization for user %d: %w", user.ID, err)
	}

	if err := s.repo.UpdateSubscription(ctx, org.ID, upd); err != nil {
		return fmt.Errorf("failed to activate organization %d: %w", org.ID, err)
	}
	if planName == "" {
		planName = org.PlanName
	}
	log.Infow("[Billing] subscription activated",
		"event_id", ev.ID, "organization_id", org.ID, "price_id", priceID, "plan", planName)

	s.notify(ctx, notification.Message{
		Kind: notification.KindWelcome,
		To:   user.Email,
		Data: map[string]string{
			"name":         user.Name,
			"organization": org.Name,
			"plan":         planName,
		},
	})
	return nil
}

// resolveCheckoutUser prefers the user id the checkout was started with and
// falls back to the email entered on the payment page.
func (s *Service) resolveCheckoutUser(ctx context.Context, sess *checkoutSession) (*models.User, error) {
	if id, err := strconv.ParseUint(strings.TrimSpace(sess.ClientReferenceID), 10, 64); err == nil && id > 0 {
		user, err := s.identity.GetByID(ctx, uint(id))
		if err == nil {
			return user, nil
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to load user %d: %w", id, err)
		}
		log.Warnf("[Billing] client_reference_id %d does not match a user, falling back to email", id)
	}

	email := sess.email()
	if email == "" {
		return nil, fmt.Errorf("%w: customer email for session %s", ErrMissingMetadata, sess.ID)
	}
	user, err := s.identity.FindOrCreateByEmail(ctx, email, strings.TrimSpace(sess.CustomerDetails.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", email, err)
	}
	return user, nil
}

// createOrganization inserts a new tenant with a generated slug. A duplicate
// key is either a slug collision (retry with a new suffix) or a concurrent
// delivery that already created the owner's organization (use that one).
func (s *Service) createOrganization(ctx context.Context, owner *models.User, name string, upd SubscriptionUpdate) (*models.Organization, error) {
	var lastErr error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		orgSlug, err := slug.Unique(name)
		if err != nil {
			return nil, err
		}
		org := &models.Organization{
			OwnerUserID:        owner.ID,
			Name:               name,
			Slug:               orgSlug,
			StripeCustomerID:   upd.CustomerID,
			SubscriptionStatus: string(StateActive),
		}
		err = s.repo.CreateOrganization(ctx, org)
		if err == nil {
			log.Infow("[Billing] organization created", "organization_id", org.ID, "slug", org.Slug, "owner_id", owner.ID)
			return org, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create organization: %w", err)
		}
		lastErr = err

		existing, lookupErr := s.repo.GetOrganizationByOwner(ctx, owner.ID)
		if lookupErr == nil {
			return existing, nil
		}
		if !isNotFound(lookupErr) {
			return nil, lookupErr
		}
	}
	return nil, fmt.Errorf("failed to allocate organization slug for %q: %w", name, lastErr)
}

func organizationName(sess *checkoutSession, user *models.User) string {
	if name := sess.meta(MetaOrganizationName); name != "" {
		return name
	}
	if name := sess.customField("organization_name", "organization"); name != "" {
		return name
	}
	if name := strings.TrimSpace(user.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(user.Email, "@"); ok && local != "" {
		return local
	}
	return "My Organization"
}

// planName resolves a human readable plan name from the configured catalog,
// falling back to the name the provider reported.
func (s *Service) planName(priceID, reported string) string {
	if name, ok := s.cfg.PlanName(priceID); ok {
		return name
	}
	return strings.TrimSpace(reported)
}

// handleSubscriptionUpdated overwrites the subscription fields with the
// provider's current snapshot. Last write wins.
func (s *Service) handleSubscriptionUpdated(ctx context.Context, ev Event, sub *subscriptionObject) error {
	org, err := s.organizationForCustomer(ctx, ev, sub.Customer)
	if org == nil || err != nil {
		return err
	}

	next := NextSubscriptionState(SubscriptionState(org.SubscriptionStatus), TriggerSubscriptionUpdated, StateFromProviderStatus(sub.Status))
	upd := SubscriptionUpdate{Status: &next}

	priceID, nickname := sub.price()
	if priceID != "" {
		upd.PriceID = &priceID
		if name := s.planName(priceID, nickname); name != "" {
			upd.PlanName = &name
		}
	}

	if err := s.repo.UpdateSubscription(ctx, org.ID, upd); err != nil {
		return fmt.Errorf("failed to update subscription for organization %d: %w", org.ID, err)
	}
	log.Infow("[Billing] subscription updated",
		"event_id", ev.ID, "organization_id", org.ID, "provider_status", sub.Status, "status", next)
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, ev Event, sub *subscriptionObject) error {
	org, err := s.organizationForCustomer(ctx, ev, sub.Customer)
	if org == nil || err != nil {
		return err
	}

	next := NextSubscriptionState(SubscriptionState(org.SubscriptionStatus), TriggerSubscriptionDeleted, StateNone)
	if err := s.repo.UpdateSubscription(ctx, org.ID, SubscriptionUpdate{Status: &next}); err != nil {
		return fmt.Errorf("failed to cancel subscription for organization %d: %w", org.ID, err)
	}
	log.Infow("[Billing] subscription canceled", "event_id", ev.ID, "organization_id", org.ID)

	if org.Owner != nil {
		s.notify(ctx, notification.Message{
			Kind: notification.KindSubscriptionCanceled,
			To:   org.Owner.Email,
			Data: map[string]string{"organization": org.Name},
		})
	}
	return nil
}

// handleInvoicePaid recovers a past due organization. Plan fields are left
// as they are.
func (s *Service) handleInvoicePaid(ctx context.Context, ev Event, inv *invoiceObject) error {
	org, err := s.organizationForCustomer(ctx, ev, inv.Customer)
	if org == nil || err != nil {
		return err
	}

	current := SubscriptionState(org.SubscriptionStatus)
	next := NextSubscriptionState(current, TriggerInvoicePaid, StateNone)
	if next == current {
		log.Infow("[Billing] invoice paid, status unchanged",
			"event_id", ev.ID, "organization_id", org.ID, "status", current,
			"subscription", inv.Subscription, "amount_paid", MinorToMajor(inv.AmountPaid).StringFixed(2))
		return nil
	}
	if err := s.repo.UpdateSubscription(ctx, org.ID, SubscriptionUpdate{Status: &next}); err != nil {
		return fmt.Errorf("failed to reactivate organization %d: %w", org.ID, err)
	}
	log.Infow("[Billing] invoice paid, subscription reactivated",
		"event_id", ev.ID, "organization_id", org.ID,
		"subscription", inv.Subscription, "amount_paid", MinorToMajor(inv.AmountPaid).StringFixed(2))
	return nil
}

// organizationForCustomer returns nil without an error when no tenant uses
// the customer id. Such events belong to donors or were deleted locally.
func (s *Service) organizationForCustomer(ctx context.Context, ev Event, customerID string) (*models.Organization, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		log.Warnw("[Billing] event without customer id ignored", "event_id", ev.ID, "type", ev.Type)
		return nil, nil
	}
	org, err := s.repo.GetOrganizationByCustomerID(ctx, customerID)
	if err != nil {
		if isNotFound(err) {
			log.Infow("[Billing] no organization for customer", "event_id", ev.ID, "type", ev.Type, "customer", customerID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load organization for customer %s: %w", customerID, err)
	}
	return org, nil
}
