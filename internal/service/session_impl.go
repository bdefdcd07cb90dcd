package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/laszhr/lasz/internal/domain"
)

type sessionService struct {
	identity  domain.Identity
	companies domain.CompanyStore
	profiles  domain.ProfileStore
	logger    *slog.Logger
}

// NewSessionService creates a new SessionService instance.
func NewSessionService(identity domain.Identity, companies domain.CompanyStore, profiles domain.ProfileStore, logger *slog.Logger) SessionService {
	return &sessionService{
		identity:  identity,
		companies: companies,
		profiles:  profiles,
		logger:    logger.With("service", "session"),
	}
}

func (s *sessionService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	const op = "session.signin"

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	session, err := s.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUNAUTHORIZED, domain.ENOTFOUND, domain.EINVALID:
			s.logger.Info("sign-in rejected", "email", email)
			return nil, ErrInvalidCredentials
		}
		return nil, domain.Internal(err, op, "failed to sign in")
	}

	if session.User.Role != domain.RoleBusinessAdmin {
		if err := s.identity.SignOut(ctx, session.Token); err != nil {
			s.logger.Error("failed to revoke non-admin session",
				"user_id", session.User.ID,
				"error", err,
			)
		}
		s.logger.Info("sign-in refused for non-admin role",
			"user_id", session.User.ID,
			"role", session.User.Role,
		)
		return nil, ErrNotBusinessAdmin
	}

	company, err := s.companies.GetCompanyByOwner(ctx, session.User.ID)
	if err != nil {
		if !domain.IsCode(err, domain.ENOTFOUND) {
			s.logger.Warn("company lookup failed during sign-in",
				"user_id", session.User.ID,
				"error", err,
			)
		}
		company = nil
	}

	complete := company.ProfileComplete()
	return &SignInResult{
		Session:         session,
		Company:         company,
		ProfileComplete: complete,
		Next:            NextStep(complete),
	}, nil
}

func (s *sessionService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.identity.SignOut(ctx, token); err != nil {
		return domain.Internal(err, "session.signout", "failed to sign out")
	}
	return nil
}

func (s *sessionService) ResolveViewer(ctx context.Context, token string) (domain.Viewer, error) {
	const op = "session.resolve"

	if token == "" {
		return nil, ErrNotSignedIn
	}

	user, err := s.identity.CurrentUser(ctx, token)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUNAUTHORIZED, domain.ENOTFOUND:
			return nil, ErrNotSignedIn
		}
		return nil, domain.Internal(err, op, "failed to resolve session")
	}

	if user.Role == domain.RoleBusinessAdmin {
		company, err := s.companies.GetCompanyByOwner(ctx, user.ID)
		if err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				return nil, ErrCompanyRequired
			}
			return nil, domain.Internal(err, op, "failed to load company")
		}
		return domain.AdminViewer{CompanyID: company.ID, UserID: user.ID}, nil
	}

	profile, err := s.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, ErrCompanyRequired
		}
		return nil, domain.Internal(err, op, "failed to load profile")
	}
	if profile.CompanyID == "" {
		return nil, ErrCompanyRequired
	}
	return domain.EmployeeViewer{CompanyID: profile.CompanyID, UserID: user.ID}, nil
}
