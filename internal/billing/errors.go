package billing

import (
	"errors"
	"fmt"

	"github.com/laszhr/lasz/internal/domain"
)

var (
	// ErrMissingSecret is returned when no webhook signing secret is configured.
	ErrMissingSecret = &domain.Error{Code: domain.EINVALID, Op: "billing.verify", Message: "Missing webhook secret"}

	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = &domain.Error{Code: domain.EINVALID, Op: "billing.verify", Message: "Missing webhook secret"}

	// ErrInvalidAPIKey is returned when the Stripe API key is missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrPriceNotConfigured is returned when no subscription price is available for checkout.
	ErrPriceNotConfigured = errors.New("billing: subscription price not configured")
)

// VerificationError reports a webhook whose signature or body failed verification.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("Webhook Error: %v", e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// AsDomainError converts a verification failure into a 400 carrying the diagnostic.
func (e *VerificationError) AsDomainError() error {
	return &domain.Error{Code: domain.EINVALID, Op: "billing.verify", Message: e.Error(), Err: e.Err}
}

// StripeError wraps a Stripe API error with additional context.
type StripeError struct {
	Message       string // Human-readable error message
	Code          string // Stripe error code
	RequestID     string // Stripe request ID for debugging
	OriginalError error  // Original error from Stripe SDK
}

func (e *StripeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.OriginalError
}
