package api

import (
	"log/slog"
	"net/http"

	"github.com/laszhr/lasz/internal/cookie"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/handler"
	"github.com/laszhr/lasz/internal/service"
	"github.com/laszhr/lasz/internal/telemetry"
)

// AuthHandler serves business-admin sign-in and sign-out.
type AuthHandler struct {
	sessions service.SessionService
	cookies  *cookie.Config
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions service.SessionService, cookies *cookie.Config, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		sessions: sessions,
		cookies:  cookies,
		logger:   logger.With("handler", "auth"),
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type nextResponse struct {
	Next string `json:"next"`
}

// SignIn handles POST /auth/signin.
//
// Responds {next} on success, 401 {error} for bad credentials and 403 {error}
// for accounts that are not business admins.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		recordSignin("invalid")
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		recordSignin(signinOutcome(err))
		handler.ErrorResponse(w, r, err)
		return
	}

	h.cookies.SetSession(w, cookie.SessionCookieName, result.Session.Token, result.Session.ExpiresAt)
	recordSignin("success")

	handler.JSON(w, http.StatusOK, nextResponse{Next: result.Next})
}

// SignOut handles POST /auth/signout. It always clears the cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := cookie.Get(r, cookie.SessionCookieName)
	if err := h.sessions.SignOut(r.Context(), token); err != nil {
		h.logger.Warn("sign out failed", "error", err)
	}
	h.cookies.ClearSession(w, cookie.SessionCookieName)
	w.WriteHeader(http.StatusNoContent)
}

func signinOutcome(err error) string {
	switch domain.ErrorCode(err) {
	case domain.EUNAUTHORIZED:
		return "invalid_credentials"
	case domain.EFORBIDDEN:
		return "wrong_role"
	case domain.EINVALID:
		return "invalid"
	}
	return "error"
}

func recordSignin(outcome string) {
	if telemetry.Business != nil {
		telemetry.Business.Signins.WithLabelValues(outcome).Inc()
	}
}
