package billing

import (
	"strings"

	"github.com/eagleone34/kindercause-sub000/app/models"
)

// SubscriptionState is the tenant subscription state stored on an organization.
type SubscriptionState string

const (
	StateNone     SubscriptionState = models.SubscriptionStatusNone
	StateActive   SubscriptionState = models.SubscriptionStatusActive
	StatePastDue  SubscriptionState = models.SubscriptionStatusPastDue
	StateCanceled SubscriptionState = models.SubscriptionStatusCanceled
)

// SubscriptionTrigger is a lifecycle event that may move the state.
type SubscriptionTrigger int

const (
	TriggerCheckoutCompleted SubscriptionTrigger = iota
	TriggerSubscriptionUpdated
	TriggerSubscriptionDeleted
	TriggerInvoicePaid
)

func (t SubscriptionTrigger) String() string {
	switch t {
	case TriggerCheckoutCompleted:
		return "checkout_completed"
	case TriggerSubscriptionUpdated:
		return "subscription_updated"
	case TriggerSubscriptionDeleted:
		return "subscription_deleted"
	case TriggerInvoicePaid:
		return "invoice_paid"
	default:
		return "unknown"
	}
}

// NextSubscriptionState applies a trigger to the current state.
//
//	checkout_completed    any -> active
//	subscription_updated  any -> snapshot (the provider's current truth)
//	subscription_deleted  any -> canceled
//	invoice_paid          past_due -> active, every other state unchanged
//
// There is no ordering check between triggers: whichever write lands last wins.
func NextSubscriptionState(current SubscriptionState, trigger SubscriptionTrigger, snapshot SubscriptionState) SubscriptionState {
	switch trigger {
	case TriggerCheckoutCompleted:
		return StateActive
	case TriggerSubscriptionUpdated:
		return snapshot
	case TriggerSubscriptionDeleted:
		return StateCanceled
	case TriggerInvoicePaid:
		if current == StatePastDue {
			return StateActive
		}
		return current
	default:
		return current
	}
}

// StateFromProviderStatus maps a Stripe subscription status onto the local states.
func StateFromProviderStatus(status string) SubscriptionState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return StateActive
	case "past_due", "unpaid", "incomplete", "paused":
		return StatePastDue
	case "canceled", "incomplete_expired":
		return StateCanceled
	default:
		return StateNone
	}
}
