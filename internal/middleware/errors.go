package middleware

import (
	"log/slog"
	"net/http"

	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/handler"
)

type contextKey string

// respondWithError logs a middleware rejection and writes the JSON error.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status := handler.ErrorCodeToHTTPStatus(domain.ErrorCode(err))

	attrs := []any{
		"error", err.Error(),
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}
	if reqID := GetRequestID(r.Context()); reqID != "" {
		attrs = append(attrs, "request_id", reqID)
	}

	logger := GetLogger(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("middleware error", attrs...)
	} else {
		logger.Debug("middleware error", attrs...)
	}

	handler.ErrorResponse(w, r, err)
}

func respondUnauthorized(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, r, domain.Unauthorized("middleware.auth", "Authentication required"))
}

func respondForbidden(w http.ResponseWriter, r *http.Request, message string) {
	respondWithError(w, r, domain.Forbidden("middleware.auth", message))
}

// loggerOrDefault keeps call sites terse.
func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
