package routes

import (
	"github.com/laszhr/lasz/internal/router"
)

// RegisterAuthRoutes registers sign-in and sign-out.
// Sign-in is rate limited per client when a limiter is provided.
func RegisterAuthRoutes(r *router.Router, deps AuthDeps) {
	signin := r
	if deps.RateLimiter != nil {
		signin = r.Group(deps.RateLimiter.Middleware)
	}
	signin.Post("/auth/signin", deps.Handler.SignIn)
	r.Post("/auth/signout", deps.Handler.SignOut)
}
