package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/laszhr/lasz/internal/auth"
	"github.com/laszhr/lasz/internal/cookie"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSessionService struct {
	viewers map[string]domain.Viewer
	err     error
}

func (m *mockSessionService) SignIn(ctx context.Context, email, password string) (*service.SignInResult, error) {
	return nil, nil
}

func (m *mockSessionService) SignOut(ctx context.Context, token string) error { return nil }

func (m *mockSessionService) ResolveViewer(ctx context.Context, token string) (domain.Viewer, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.viewers[token]
	if !ok {
		return nil, service.ErrNotSignedIn
	}
	return v, nil
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-123", seen)

	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36)
}

func TestWithViewer(t *testing.T) {
	admin := domain.AdminViewer{CompanyID: "C1", UserID: "U1"}
	sessions := &mockSessionService{viewers: map[string]domain.Viewer{"good": admin}}

	var got domain.Viewer
	var token string
	h := WithViewer(sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = domain.ViewerFromContext(r.Context())
		token = domain.SessionTokenFromContext(r.Context())
	}))

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rota", nil)
		req.AddCookie(&http.Cookie{Name: cookie.SessionCookieName, Value: "good"})
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, admin, got)
		assert.Equal(t, "good", token)
	})

	t.Run("unknown session continues anonymously", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rota", nil)
		req.AddCookie(&http.Cookie{Name: cookie.SessionCookieName, Value: "stale"})
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Nil(t, got)
	})

	t.Run("no cookie", func(t *testing.T) {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/rota", nil))
		assert.Nil(t, got)
		assert.Empty(t, token)
	})
}

func TestRequireViewerAndAdmin(t *testing.T) {
	tests := []struct {
		name       string
		viewer     domain.Viewer
		wantViewer int
		wantAdmin  int
	}{
		{name: "anonymous", viewer: nil, wantViewer: http.StatusUnauthorized, wantAdmin: http.StatusUnauthorized},
		{name: "employee", viewer: domain.EmployeeViewer{CompanyID: "C1", UserID: "U2"}, wantViewer: http.StatusOK, wantAdmin: http.StatusForbidden},
		{name: "admin", viewer: domain.AdminViewer{CompanyID: "C1", UserID: "U1"}, wantViewer: http.StatusOK, wantAdmin: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.viewer != nil {
				req = req.WithContext(domain.NewContextWithViewer(req.Context(), tt.viewer))
			}

			rec := httptest.NewRecorder()
			RequireViewer(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantViewer, rec.Code)

			rec = httptest.NewRecorder()
			RequireAdmin(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantAdmin, rec.Code)
		})
	}
}

func TestRequireServiceToken(t *testing.T) {
	const secret = "internal-secret"
	h := RequireServiceToken(secret, auth.ScopeSubscriptionUpdate)(http.HandlerFunc(okHandler))

	good, err := auth.GenerateServiceToken(secret, "billing-worker", auth.ScopeSubscriptionUpdate, time.Minute)
	require.NoError(t, err)
	wrongScope, err := auth.GenerateServiceToken(secret, "billing-worker", "other:scope", time.Minute)
	require.NoError(t, err)
	wrongKey, err := auth.GenerateServiceToken("other-secret", "billing-worker", auth.ScopeSubscriptionUpdate, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + good, http.StatusOK},
		{"lowercase scheme", "bearer " + good, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + good, http.StatusUnauthorized},
		{"wrong scope", "Bearer " + wrongScope, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/internal/billing/update-subscription", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 2, CleanupInterval: time.Hour})
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	h := rl.Middleware(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
	req.RemoteAddr = "a:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
}

func TestSignInRateLimiter_IgnoresSpoofedForwardedFor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, SignInRateLimiterConfig(nil))
	h := rl.Middleware(http.HandlerFunc(okHandler))

	limited := 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.GreaterOrEqual(t, limited, 95)
}

func TestClientIPResolver(t *testing.T) {
	res, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.168.1.10"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    []string
		want   string
	}{
		{"untrusted peer ignores header", "203.0.113.7:5555", []string{"198.51.100.1"}, "203.0.113.7"},
		{"trusted peer uses last hop", "10.1.2.3:443", []string{"198.51.100.1"}, "198.51.100.1"},
		{"client-supplied hops are skipped", "10.1.2.3:443", []string{"1.1.1.1, 198.51.100.1"}, "198.51.100.1"},
		{"trusted hops are skipped", "192.168.1.10:443", []string{"198.51.100.1, 10.9.9.9"}, "198.51.100.1"},
		{"multiple headers", "10.1.2.3:443", []string{"1.1.1.1", "198.51.100.2"}, "198.51.100.2"},
		{"malformed hop falls back to peer", "10.1.2.3:443", []string{"198.51.100.1, not-an-ip"}, "10.1.2.3"},
		{"no header", "10.1.2.3:443", nil, "10.1.2.3"},
		{"all hops trusted", "10.1.2.3:443", []string{"10.4.4.4"}, "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, res.ClientIP(req))
		})
	}

	_, err = NewClientIPResolver([]string{"not-a-cidr/99"})
	assert.Error(t, err)
}

func TestSameOrigin(t *testing.T) {
	h := SameOrigin(cookie.SessionCookieName, []string{"https://app.example.com"})(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		method string
		cookie bool
		origin string
		want   int
	}{
		{"safe method", http.MethodGet, true, "https://evil.example", http.StatusOK},
		{"no session cookie", http.MethodPost, false, "https://evil.example", http.StatusOK},
		{"same host", http.MethodPost, true, "http://example.com", http.StatusOK},
		{"allowed origin", http.MethodPut, true, "https://app.example.com", http.StatusOK},
		{"cross site", http.MethodPost, true, "https://evil.example", http.StatusForbidden},
		{"missing origin", http.MethodPost, true, "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://example.com/api/company/profile", nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: cookie.SessionCookieName, Value: "tok"})
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry("test", reg, reg)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/rota", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/setup.php", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/rota", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/other", "418")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/rota", normalizePath("/api/rota/"))
	assert.Equal(t, "/healthz", normalizePath("/healthz"))
	assert.Equal(t, "/", normalizePath("/"))
	assert.Equal(t, "/other", normalizePath("/api/rota/123"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(DefaultSecurityHeadersConfig(true))(http.HandlerFunc(okHandler)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	SecurityHeaders(DefaultSecurityHeadersConfig(false))(http.HandlerFunc(okHandler)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
