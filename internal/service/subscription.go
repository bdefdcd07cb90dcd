package service

import (
	"context"

	"github.com/laszhr/lasz/internal/billing"
	"github.com/laszhr/lasz/internal/domain"
)

// SubscriptionService translates billing events into company subscription state.
type SubscriptionService interface {
	// Reconcile applies a verified billing event to the company it names.
	//
	// Mapping:
	//   checkout.session.completed    -> active
	//   invoice.payment_failed        -> past_due
	//   customer.subscription.deleted -> canceled
	//
	// Events of any other type, or with no resolvable company id, are
	// skipped without touching the store. The write is a single statement
	// on the status column, so redelivery converges on the same state.
	// An id that matches no company is skipped as well.
	Reconcile(ctx context.Context, event *billing.SubscriptionEvent) (Outcome, error)

	// UpdateStatus writes a raw status for a company.
	//
	// Returns ErrMissingParams if either argument is empty and an EINVALID
	// error for an unknown status. Updating a company that doesn't exist
	// succeeds without effect.
	UpdateStatus(ctx context.Context, companyID, status string) error

	// StartCheckout creates a subscription checkout session for the viewer's company.
	//
	// Returns ErrAdminRequired for non-admin viewers and ErrBillingUnavailable
	// when no billing provider is configured.
	StartCheckout(ctx context.Context, params StartCheckoutParams) (*billing.CheckoutSession, error)
}

// Outcome reports what Reconcile did with an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
)

// StartCheckoutParams contains parameters for starting a subscription checkout.
type StartCheckoutParams struct {
	Viewer     domain.Viewer
	SuccessURL string
	CancelURL  string
}

// TargetStatus returns the subscription status an event type maps to.
// The boolean is false for event types that do not change status.
func TargetStatus(eventType billing.EventType) (domain.SubscriptionStatus, bool) {
	switch eventType {
	case billing.EventCheckoutCompleted:
		return domain.StatusActive, true
	case billing.EventPaymentFailed:
		return domain.StatusPastDue, true
	case billing.EventSubscriptionDeleted:
		return domain.StatusCanceled, true
	}
	return "", false
}
