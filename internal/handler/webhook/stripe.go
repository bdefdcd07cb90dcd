package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/laszhr/lasz/internal/billing"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/handler"
	"github.com/laszhr/lasz/internal/service"
	"github.com/laszhr/lasz/internal/telemetry"
)

// Signature headers, checked in order.
const (
	HeaderStripeSignature   = "Stripe-Signature"
	HeaderProviderSignature = "provider-signature"
)

// Webhooks larger than this are rejected before verification.
const maxPayloadBytes = 64 << 10

// BillingHandler receives subscription webhooks and applies them in-process.
type BillingHandler struct {
	verifier      *billing.Verifier
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewBillingHandler creates a new billing webhook handler.
func NewBillingHandler(verifier *billing.Verifier, subscriptions service.SubscriptionService, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{
		verifier:      verifier,
		subscriptions: subscriptions,
		logger:        logger.With("handler", "billing_webhook"),
	}
}

type receivedResponse struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

// HandleWebhook verifies the raw body and reconciles the event.
//
// Verification failures are 400 {error}. Once verified the delivery is always
// acknowledged with 200; a reconciliation failure is reported in the error
// field so the provider does not retry a permanently failing event.
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/api/billing/webhook
//	stripe trigger checkout.session.completed
func (h *BillingHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err)
		recordFailure("unknown", "read_body")
		handler.ErrorResponse(w, r, domain.Invalid("webhook.read", "Error reading request body"))
		return
	}

	signature := r.Header.Get(HeaderStripeSignature)
	if signature == "" {
		signature = r.Header.Get(HeaderProviderSignature)
	}

	event, err := h.verifier.Verify(payload, signature)
	if err != nil {
		h.logger.Warn("webhook rejected", "error", err, "payload_bytes", len(payload))
		recordFailure("unknown", "verification")
		var verr *billing.VerificationError
		if errors.As(err, &verr) {
			err = verr.AsDomainError()
		}
		handler.ErrorResponse(w, r, err)
		return
	}

	eventType := string(event.Type)
	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(eventType).Inc()
	}
	defer func() {
		if telemetry.Business != nil {
			telemetry.Business.WebhookLatency.WithLabelValues(eventType).Observe(time.Since(startTime).Seconds())
		}
	}()

	logger := h.logger.With("event_id", event.ID, "event_type", eventType, "company_id", event.CompanyID)

	outcome, err := h.subscriptions.Reconcile(r.Context(), event)
	if err != nil {
		logger.Error("reconciliation failed", "error", err)
		recordFailure(eventType, "reconcile")
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]any{
			"event_id":   event.ID,
			"event_type": eventType,
			"company_id": event.CompanyID,
		})
		handler.JSON(w, http.StatusOK, receivedResponse{Received: true, Error: handler.SurfacedMessage(err)})
		return
	}

	logger.Info("webhook processed", "outcome", string(outcome))
	handler.JSON(w, http.StatusOK, receivedResponse{Received: true})
}

func recordFailure(eventType, reason string) {
	if telemetry.Business != nil {
		telemetry.Business.WebhookFailed.WithLabelValues(eventType, reason).Inc()
	}
}
