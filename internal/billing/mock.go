package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates checkout without calling the Stripe API.
type MockProvider struct {
	// CreateCheckoutSessionFunc allows customizing checkout behavior
	CreateCheckoutSessionFunc func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// Sessions stores created sessions keyed by id
	Sessions map[string]CreateCheckoutSessionParams

	// CallLog tracks method calls for test assertions
	CallLog []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Sessions: make(map[string]CreateCheckoutSessionParams),
		CallLog:  []string{},
	}
}

// CreateCheckoutSession records the call and returns a fake hosted URL.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateCheckoutSession(%s)", params.CompanyID))

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}

	id := "cs_test_" + uuid.New().String()
	m.Sessions[id] = params

	return &CheckoutSession{
		ID:        id,
		URL:       "https://checkout.stripe.test/c/pay/" + id,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}
