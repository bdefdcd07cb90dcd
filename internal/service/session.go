package service

import (
	"context"

	"github.com/laszhr/lasz/internal/domain"
)

// Landing destinations returned after sign-in.
const (
	NextDashboard      = "/dashboard"
	NextCompanyProfile = "/company/profile"
)

// SessionService authenticates business admins and resolves request viewers.
type SessionService interface {
	// SignIn authenticates credentials and decides where the admin lands.
	//
	// Returns ErrInvalidCredentials when authentication fails. A principal
	// whose role is not business_admin has the new session signed out and
	// gets ErrNotBusinessAdmin. A failed company lookup is treated as an
	// incomplete profile rather than an error.
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)

	// SignOut terminates the session identified by token.
	SignOut(ctx context.Context, token string) error

	// ResolveViewer returns the role-tagged viewer behind a session token.
	//
	// Returns ErrNotSignedIn for a missing or unknown token and
	// ErrCompanyRequired when the user has no company scope.
	ResolveViewer(ctx context.Context, token string) (domain.Viewer, error)
}

// SignInResult is the outcome of a successful admin sign-in.
type SignInResult struct {
	Session         *domain.Session
	Company         *domain.Company
	ProfileComplete bool
	Next            string
}

// NextStep returns the landing destination for a profile completeness state.
func NextStep(profileComplete bool) string {
	if profileComplete {
		return NextDashboard
	}
	return NextCompanyProfile
}
