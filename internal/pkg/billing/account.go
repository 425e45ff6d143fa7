package billing

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/eagleone34/kindercause-sub000/app/models"
)

// handleAccountUpdated keeps the payout onboarding status of a tenant in
// sync with its connected account.
func (s *Service) handleAccountUpdated(ctx context.Context, ev Event, acct *accountObject) error {
	if acct.ID == "" {
		return nil
	}
	org, err := s.repo.GetOrganizationByConnectedAccount(ctx, acct.ID)
	if err != nil {
		if isNotFound(err) {
			log.Infow("[Billing] no organization for connected account", "event_id", ev.ID, "account", acct.ID)
			return nil
		}
		return fmt.Errorf("failed to load organization for account %s: %w", acct.ID, err)
	}

	status := models.ConnectedAccountPending
	if acct.ChargesEnabled && acct.PayoutsEnabled {
		status = models.ConnectedAccountActive
	}
	if org.ConnectedAccountStatus == status {
		return nil
	}
	if err := s.repo.UpdateConnectedAccountStatus(ctx, org.ID, status); err != nil {
		return fmt.Errorf("failed to update connected account status for organization %d: %w", org.ID, err)
	}
	log.Infow("[Billing] connected account status changed", "event_id", ev.ID, "organization_id", org.ID, "status", status)
	return nil
}
