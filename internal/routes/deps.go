package routes

import (
	"github.com/laszhr/lasz/internal/handler/api"
	"github.com/laszhr/lasz/internal/handler/webhook"
	"github.com/laszhr/lasz/internal/middleware"
)

// BillingDeps contains dependencies for billing routes
type BillingDeps struct {
	WebhookHandler *webhook.BillingHandler
	APIHandler     *api.BillingHandler

	// InternalAPISecret signs service tokens for the internal update
	// endpoint. The endpoint is not registered when empty.
	InternalAPISecret string
}

// AuthDeps contains dependencies for sign-in routes
type AuthDeps struct {
	Handler     *api.AuthHandler
	RateLimiter *middleware.RateLimiter
}

// APIDeps contains dependencies for session-authenticated API routes
type APIDeps struct {
	RotaHandler    *api.RotaHandler
	CompanyHandler *api.CompanyHandler
	BillingHandler *api.BillingHandler
}
