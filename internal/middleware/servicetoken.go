package middleware

import (
	"net/http"
	"strings"

	"github.com/laszhr/lasz/internal/auth"
	"github.com/laszhr/lasz/internal/domain"
)

// RequireServiceToken admits requests carrying
// "Authorization: Bearer <token>" signed with secret and granting scope.
func RequireServiceToken(secret, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				respondUnauthorized(w, r)
				return
			}

			claims, err := auth.ParseServiceToken(secret, raw, scope)
			if err != nil {
				respondWithError(w, r, domain.WrapError(err, domain.EUNAUTHORIZED, "middleware.service_token", "Invalid service token"))
				return
			}

			GetLogger(r.Context()).Info("service call", "subject", claims.Subject, "scope", claims.Scope)
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
