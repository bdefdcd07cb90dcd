package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/laszhr/lasz/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memCompanyStore is an in-memory domain.CompanyStore.
type memCompanyStore struct {
	mu        sync.Mutex
	companies map[string]*domain.Company
	updates   []statusUpdate
	err       error // returned by every call when set
}

type statusUpdate struct {
	CompanyID string
	Status    domain.SubscriptionStatus
	EventAt   time.Time
}

func newMemCompanyStore(companies ...*domain.Company) *memCompanyStore {
	s := &memCompanyStore{companies: make(map[string]*domain.Company)}
	for _, c := range companies {
		s.companies[c.ID] = c
	}
	return s
}

func (s *memCompanyStore) UpdateSubscriptionStatus(ctx context.Context, companyID string, status domain.SubscriptionStatus, eventAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, statusUpdate{CompanyID: companyID, Status: status, EventAt: eventAt})
	c, ok := s.companies[companyID]
	if !ok {
		return domain.NotFound("company.update_status", "company", companyID)
	}
	c.SubscriptionStatus = status
	return nil
}

func (s *memCompanyStore) GetCompanyByOwner(ctx context.Context, ownerUserID string) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, c := range s.companies {
		if c.OwnerUserID == ownerUserID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.NotFound("company.get_by_owner", "company", ownerUserID)
}

func (s *memCompanyStore) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.companies[companyID]
	if !ok {
		return nil, domain.NotFound("company.get", "company", companyID)
	}
	cp := *c
	return &cp, nil
}

func (s *memCompanyStore) UpdateCompanyProfile(ctx context.Context, companyID string, profile domain.CompanyProfile) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.companies[companyID]
	if !ok {
		return nil, domain.NotFound("company.update_profile", "company", companyID)
	}
	c.Address = profile.Address
	c.Phone = profile.Phone
	c.CompanyEmail = profile.CompanyEmail
	c.TaxReference = profile.TaxReference
	cp := *c
	return &cp, nil
}

func (s *memCompanyStore) status(id string) domain.SubscriptionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.companies[id].SubscriptionStatus
}

// mockIdentity implements domain.Identity with function fields.
type mockIdentity struct {
	SignInWithPasswordFunc func(ctx context.Context, email, password string) (*domain.Session, error)
	CurrentUserFunc        func(ctx context.Context, token string) (*domain.User, error)

	mu         sync.Mutex
	signedOut  []string
	signOutErr error
}

func (m *mockIdentity) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	if m.SignInWithPasswordFunc != nil {
		return m.SignInWithPasswordFunc(ctx, email, password)
	}
	return nil, domain.Unauthorized("identity.signin", "invalid login credentials")
}

func (m *mockIdentity) SignOut(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedOut = append(m.signedOut, token)
	return m.signOutErr
}

func (m *mockIdentity) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, token)
	}
	return nil, domain.Unauthorized("identity.current_user", "session not found")
}

// mockProfileStore implements domain.ProfileStore.
type mockProfileStore struct {
	profiles map[string]*domain.Profile
	err      error
}

func (m *mockProfileStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, domain.NotFound("profile.get", "profile", userID)
	}
	return p, nil
}

func completeCompany(id, owner string) *domain.Company {
	return &domain.Company{
		ID:                 id,
		OwnerUserID:        owner,
		Name:               "Acme Ltd",
		SubscriptionStatus: domain.StatusTrialing,
		Address:            "1 High Street",
		Phone:              "+44 20 7946 0000",
		CompanyEmail:       "office@acme.test",
		TaxReference:       "123/AB456",
	}
}
