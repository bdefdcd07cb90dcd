package routes

import (
	"github.com/laszhr/lasz/internal/middleware"
	"github.com/laszhr/lasz/internal/router"
)

// RegisterAPIRoutes registers routes that need a signed-in viewer.
// Rota reads are open to admins and employees; company and billing
// management is admin only.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	viewer := r.Group(middleware.RequireViewer)
	viewer.Get("/api/rota", deps.RotaHandler.GetRota)
	viewer.Get("/api/rota/live", deps.RotaHandler.Live)
	viewer.Get("/api/company/profile", deps.CompanyHandler.GetProfile)

	admin := r.Group(middleware.RequireAdmin)
	admin.Put("/api/company/profile", deps.CompanyHandler.UpdateProfile)
	admin.Post("/api/billing/checkout", deps.BillingHandler.Checkout)
}
