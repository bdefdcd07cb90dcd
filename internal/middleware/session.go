package middleware

import (
	"log/slog"
	"net/http"

	"github.com/laszhr/lasz/internal/cookie"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/service"
	"github.com/laszhr/lasz/internal/telemetry"
)

// WithViewer resolves the session cookie into a role-tagged viewer and adds
// it to the request context. Requests without a valid session continue
// anonymously; RequireViewer and RequireAdmin enforce access.
func WithViewer(sessions service.SessionService, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = loggerOrDefault(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookie.Get(r, cookie.SessionCookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := domain.NewContextWithSessionToken(r.Context(), token)

			viewer, err := sessions.ResolveViewer(ctx, token)
			if err != nil {
				if domain.ErrorCode(err) == domain.EINTERNAL {
					logger.Error("failed to resolve viewer", "error", err)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			telemetry.TagViewer(ctx, viewer.Company(), viewer.User())
			ctx = domain.NewContextWithViewer(ctx, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireViewer rejects requests without a resolved viewer with 401.
func RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if domain.ViewerFromContext(r.Context()) == nil {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and employees with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := domain.ViewerFromContext(r.Context())
		if v == nil {
			respondUnauthorized(w, r)
			return
		}
		if !domain.IsAdmin(v) {
			respondForbidden(w, r, "Business admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
