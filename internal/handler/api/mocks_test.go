package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/laszhr/lasz/internal/billing"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withViewer injects v the way the session middleware does.
func withViewer(v domain.Viewer, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v != nil {
			r = r.WithContext(domain.NewContextWithViewer(r.Context(), v))
		}
		next(w, r)
	}
}

type mockSessionService struct {
	signInFunc    func(ctx context.Context, email, password string) (*service.SignInResult, error)
	signedOut     []string
	resolveViewer func(ctx context.Context, token string) (domain.Viewer, error)
}

func (m *mockSessionService) SignIn(ctx context.Context, email, password string) (*service.SignInResult, error) {
	return m.signInFunc(ctx, email, password)
}

func (m *mockSessionService) SignOut(ctx context.Context, token string) error {
	m.signedOut = append(m.signedOut, token)
	return nil
}

func (m *mockSessionService) ResolveViewer(ctx context.Context, token string) (domain.Viewer, error) {
	return m.resolveViewer(ctx, token)
}

type mockSubscriptionService struct {
	updateStatusFunc  func(ctx context.Context, companyID, status string) error
	startCheckoutFunc func(ctx context.Context, params service.StartCheckoutParams) (*billing.CheckoutSession, error)
}

func (m *mockSubscriptionService) Reconcile(ctx context.Context, event *billing.SubscriptionEvent) (service.Outcome, error) {
	return service.OutcomeSkipped, nil
}

func (m *mockSubscriptionService) UpdateStatus(ctx context.Context, companyID, status string) error {
	return m.updateStatusFunc(ctx, companyID, status)
}

func (m *mockSubscriptionService) StartCheckout(ctx context.Context, params service.StartCheckoutParams) (*billing.CheckoutSession, error) {
	return m.startCheckoutFunc(ctx, params)
}

type mockCompanyService struct {
	company *domain.Company
	updated []domain.CompanyProfile
}

func (m *mockCompanyService) GetCompany(ctx context.Context, viewer domain.Viewer) (*domain.Company, error) {
	if viewer == nil {
		return nil, service.ErrCompanyRequired
	}
	return m.company, nil
}

func (m *mockCompanyService) UpdateProfile(ctx context.Context, viewer domain.Viewer, profile domain.CompanyProfile) (*domain.Company, string, error) {
	if !domain.IsAdmin(viewer) {
		return nil, "", service.ErrAdminRequired
	}
	m.updated = append(m.updated, profile)
	return m.company, service.NextStep(profile.Complete()), nil
}

// memShiftStore filters like the database.
type memShiftStore struct {
	mu        sync.Mutex
	shifts    []domain.Shift
	employees []domain.Employee
}

func (s *memShiftStore) ListShifts(ctx context.Context, q domain.ShiftQuery) ([]domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Shift
	for _, sh := range s.shifts {
		if sh.CompanyID != q.CompanyID || sh.StartTime.Before(q.StartFrom) || sh.EndTime.After(q.EndUntil) {
			continue
		}
		if q.AssignedUserID != "" && sh.AssignedUserID != q.AssignedUserID {
			continue
		}
		if q.PublishedOnly && !sh.Published {
			continue
		}
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *memShiftStore) ListEmployees(ctx context.Context, companyID string) ([]domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Employee
	for _, e := range s.employees {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memShiftStore) add(sh domain.Shift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts = append(s.shifts, sh)
}
