package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeProvider implements Provider using Stripe.
type StripeProvider struct {
	config StripeConfig
}

// Compile-time check to ensure StripeProvider implements Provider.
var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider creates a new Stripe billing provider.
// The API key is installed on the stripe package for the legacy resource clients.
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if config.APIKey == "" {
		return nil, ErrInvalidAPIKey
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}

	stripe.Key = config.APIKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(int64(config.MaxRetries)),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelWarn},
	}))

	return &StripeProvider{config: config}, nil
}

// CreateCheckoutSession creates a subscription-mode Checkout session for a company.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	if params.CompanyID == "" {
		return nil, errors.New("billing: company id is required")
	}
	if params.SuccessURL == "" || params.CancelURL == "" {
		return nil, errors.New("billing: success_url and cancel_url are required")
	}

	priceID := params.PriceID
	if priceID == "" {
		priceID = s.config.PriceID
	}
	if priceID == "" {
		return nil, ErrPriceNotConfigured
	}

	metadata := map[string]string{MetadataCompanyID: params.CompanyID}

	checkoutParams := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(params.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(params.CancelURL),
		ClientReferenceID: stripe.String(params.CompanyID),
		// Invoices inherit subscription metadata, which is where payment-failed
		// events look for the company first.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	for k, v := range metadata {
		checkoutParams.AddMetadata(k, v)
	}
	if params.CustomerEmail != "" {
		checkoutParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	session, err := checkoutsession.New(checkoutParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	out := &CheckoutSession{ID: session.ID, URL: session.URL}
	if session.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}
	return out, nil
}

func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &StripeError{
			Message:       stripeErr.Msg,
			Code:          string(stripeErr.Code),
			RequestID:     stripeErr.RequestID,
			OriginalError: err,
		}
	}
	return fmt.Errorf("stripe: %w", err)
}
