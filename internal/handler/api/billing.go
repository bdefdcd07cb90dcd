package api

import (
	"log/slog"
	"net/http"

	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/handler"
	"github.com/laszhr/lasz/internal/service"
)

// BillingHandler serves the internal status update and checkout endpoints.
type BillingHandler struct {
	subscriptions service.SubscriptionService
	baseURL       string
	logger        *slog.Logger
}

// NewBillingHandler creates a new billing handler. baseURL is used to build
// checkout return URLs.
func NewBillingHandler(subscriptions service.SubscriptionService, baseURL string, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{
		subscriptions: subscriptions,
		baseURL:       baseURL,
		logger:        logger.With("handler", "billing"),
	}
}

type updateSubscriptionRequest struct {
	CompanyID string `json:"companyId"`
	Status    string `json:"status"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// UpdateSubscription handles POST /api/internal/billing/update-subscription.
// Callers are trusted services, so store failures surface their message.
func (h *BillingHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	var req updateSubscriptionRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.subscriptions.UpdateStatus(r.Context(), req.CompanyID, req.Status); err != nil {
		h.logger.Error("subscription update failed",
			"company_id", req.CompanyID,
			"status", req.Status,
			"error", err,
		)
		handler.MessageResponse(w, handler.ErrorCodeToHTTPStatus(domain.ErrorCode(err)), handler.SurfacedMessage(err))
		return
	}

	handler.JSON(w, http.StatusOK, okResponse{OK: true})
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// Checkout handles POST /api/billing/checkout for the signed-in admin.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	session, err := h.subscriptions.StartCheckout(r.Context(), service.StartCheckoutParams{
		Viewer:     domain.ViewerFromContext(r.Context()),
		SuccessURL: h.baseURL + "/dashboard?checkout=success",
		CancelURL:  h.baseURL + "/dashboard?checkout=cancelled",
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, checkoutResponse{URL: session.URL})
}
