package routes

import (
	"github.com/laszhr/lasz/internal/auth"
	"github.com/laszhr/lasz/internal/middleware"
	"github.com/laszhr/lasz/internal/router"
)

// RegisterBillingRoutes registers the billing webhook and the internal
// subscription update endpoint.
//
// Neither route uses the session cookie. The webhook handler verifies the
// provider signature itself; the internal endpoint requires a service token.
func RegisterBillingRoutes(r *router.Router, deps BillingDeps) {
	r.Post("/api/billing/webhook", deps.WebhookHandler.HandleWebhook)

	if deps.InternalAPISecret == "" {
		return
	}
	r.Post("/api/internal/billing/update-subscription", deps.APIHandler.UpdateSubscription,
		middleware.RequireServiceToken(deps.InternalAPISecret, auth.ScopeSubscriptionUpdate))
}
