package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/laszhr/lasz/internal/billing"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

// mockSubscriptionService implements service.SubscriptionService for testing
type mockSubscriptionService struct {
	reconcileFunc func(ctx context.Context, event *billing.SubscriptionEvent) (service.Outcome, error)
	reconciled    []*billing.SubscriptionEvent
}

func (m *mockSubscriptionService) Reconcile(ctx context.Context, event *billing.SubscriptionEvent) (service.Outcome, error) {
	m.reconciled = append(m.reconciled, event)
	if m.reconcileFunc != nil {
		return m.reconcileFunc(ctx, event)
	}
	return service.OutcomeApplied, nil
}

func (m *mockSubscriptionService) UpdateStatus(ctx context.Context, companyID, status string) error {
	return nil
}

func (m *mockSubscriptionService) StartCheckout(ctx context.Context, params service.StartCheckoutParams) (*billing.CheckoutSession, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func checkoutPayload(companyID string) []byte {
	return []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","created":1700000000,` +
		`"data":{"object":{"id":"cs_1","object":"checkout.session","metadata":{"company_id":"` + companyID + `"}}}}`)
}

func signedRequest(t *testing.T, payload []byte, secret, header string) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(payload))
	req.Header.Set(header, signed.Header)
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandleWebhook_Success(t *testing.T) {
	for _, header := range []string{HeaderStripeSignature, HeaderProviderSignature} {
		t.Run(header, func(t *testing.T) {
			subs := &mockSubscriptionService{}
			h := NewBillingHandler(billing.NewVerifier(testSecret, 0), subs, testLogger())

			rec := httptest.NewRecorder()
			h.HandleWebhook(rec, signedRequest(t, checkoutPayload("C1"), testSecret, header))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, map[string]any{"received": true}, decodeBody(t, rec))
			require.Len(t, subs.reconciled, 1)
			assert.Equal(t, billing.EventCheckoutCompleted, subs.reconciled[0].Type)
			assert.Equal(t, "C1", subs.reconciled[0].CompanyID)
		})
	}
}

func TestHandleWebhook_ReconcileFailureIsAcknowledged(t *testing.T) {
	subs := &mockSubscriptionService{
		reconcileFunc: func(ctx context.Context, event *billing.SubscriptionEvent) (service.Outcome, error) {
			return service.OutcomeSkipped, domain.Internal(errors.New("connection refused"), "subscription.reconcile", "failed to update subscription status")
		},
	}
	h := NewBillingHandler(billing.NewVerifier(testSecret, 0), subs, testLogger())

	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, signedRequest(t, checkoutPayload("C1"), testSecret, HeaderStripeSignature))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, "failed to update subscription status", body["error"])
}

func TestHandleWebhook_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		verifier  *billing.Verifier
		request   func(t *testing.T) *http.Request
		wantError string
	}{
		{
			name:     "missing secret",
			verifier: billing.NewVerifier("", 0),
			request: func(t *testing.T) *http.Request {
				return signedRequest(t, checkoutPayload("C1"), testSecret, HeaderStripeSignature)
			},
			wantError: "Missing webhook secret",
		},
		{
			name:     "missing signature",
			verifier: billing.NewVerifier(testSecret, 0),
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(checkoutPayload("C1")))
			},
			wantError: "Missing webhook secret",
		},
		{
			name:     "wrong secret",
			verifier: billing.NewVerifier(testSecret, 0),
			request: func(t *testing.T) *http.Request {
				return signedRequest(t, checkoutPayload("C1"), "whsec_other", HeaderStripeSignature)
			},
		},
		{
			name:     "tampered body",
			verifier: billing.NewVerifier(testSecret, 0),
			request: func(t *testing.T) *http.Request {
				req := signedRequest(t, checkoutPayload("C1"), testSecret, HeaderStripeSignature)
				sig := req.Header.Get(HeaderStripeSignature)
				req = httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(checkoutPayload("C2")))
				req.Header.Set(HeaderStripeSignature, sig)
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &mockSubscriptionService{}
			h := NewBillingHandler(tt.verifier, subs, testLogger())

			rec := httptest.NewRecorder()
			h.HandleWebhook(rec, tt.request(t))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec)
			msg, _ := body["error"].(string)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, msg)
			} else {
				assert.Contains(t, msg, "Webhook Error:")
			}
			assert.Empty(t, subs.reconciled)
		})
	}
}
