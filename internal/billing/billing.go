// Package billing talks to the payment provider: it verifies and decodes
// subscription webhooks and starts hosted checkout sessions.
package billing

import (
	"context"
	"time"
)

// Provider defines the outbound calls made to the payment provider.
// Implementations: StripeProvider, MockProvider.
type Provider interface {
	// CreateCheckoutSession starts a hosted subscription checkout for a company.
	// The company id is stamped on the session and subscription metadata so
	// later webhooks can be reconciled against it.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)
}

// CreateCheckoutSessionParams contains parameters for starting a checkout.
type CreateCheckoutSessionParams struct {
	CompanyID     string
	CustomerEmail string

	// PriceID overrides the configured default price when set.
	PriceID string

	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the provider's hosted checkout page.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// EventType is a provider webhook event type.
type EventType string

// Event types that drive subscription state.
const (
	EventCheckoutCompleted   EventType = "checkout.session.completed"
	EventPaymentFailed       EventType = "invoice.payment_failed"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
)

// MetadataCompanyID is the metadata key carrying the company identifier.
const MetadataCompanyID = "company_id"

// SubscriptionEvent is a verified webhook reduced to what reconciliation needs.
// It only lives for the duration of one webhook delivery.
type SubscriptionEvent struct {
	ID      string
	Type    EventType
	Created time.Time

	// CompanyID is empty when no company id could be resolved from metadata.
	CompanyID string
}
