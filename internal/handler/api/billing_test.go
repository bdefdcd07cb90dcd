package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/laszhr/lasz/internal/billing"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestBillingHandler_UpdateSubscription(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "applies status",
			body:       `{"companyId":"C1","status":"active"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true}`,
		},
		{
			name:       "missing params",
			body:       `{"companyId":"C1"}`,
			err:        service.ErrMissingParams,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing params"}`,
		},
		{
			name:       "store failure surfaces message",
			body:       `{"companyId":"C1","status":"active"}`,
			err:        domain.Internal(nil, "postgres.company.update_subscription_status", "failed to update subscription status"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"failed to update subscription status"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCompany, gotStatus string
			subs := &mockSubscriptionService{
				updateStatusFunc: func(ctx context.Context, companyID, status string) error {
					gotCompany, gotStatus = companyID, status
					return tt.err
				},
			}
			h := NewBillingHandler(subs, "http://localhost:3000", testLogger())

			rec := httptest.NewRecorder()
			h.UpdateSubscription(rec, httptest.NewRequest(http.MethodPost,
				"/api/internal/billing/update-subscription", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "C1", gotCompany)
			if tt.err == nil {
				assert.Equal(t, "active", gotStatus)
			}
		})
	}
}

func TestBillingHandler_Checkout(t *testing.T) {
	admin := domain.AdminViewer{CompanyID: "C1", UserID: "U1"}
	var got service.StartCheckoutParams
	subs := &mockSubscriptionService{
		startCheckoutFunc: func(ctx context.Context, params service.StartCheckoutParams) (*billing.CheckoutSession, error) {
			got = params
			if !domain.IsAdmin(params.Viewer) {
				return nil, service.ErrAdminRequired
			}
			return &billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil
		},
	}
	h := NewBillingHandler(subs, "https://app.example.com", testLogger())

	rec := httptest.NewRecorder()
	withViewer(admin, h.Checkout)(rec, httptest.NewRequest(http.MethodPost, "/api/billing/checkout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://checkout.stripe.com/c/cs_1"}`, rec.Body.String())
	assert.Equal(t, admin, got.Viewer)
	assert.Equal(t, "https://app.example.com/dashboard?checkout=success", got.SuccessURL)

	rec = httptest.NewRecorder()
	withViewer(domain.EmployeeViewer{CompanyID: "C1", UserID: "U2"}, h.Checkout)(rec,
		httptest.NewRequest(http.MethodPost, "/api/billing/checkout", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
