package domain

import (
	"context"
	"time"
)

// Role is the role attribute attached to an authenticated principal.
type Role string

const (
	RoleBusinessAdmin Role = "business_admin"
	RoleEmployee      Role = "employee"
)

// User is an authenticated principal as reported by the identity provider.
type User struct {
	ID    string
	Email string
	Role  Role
}

// Session is an established authentication.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// Profile is the per-user record holding display name and company membership.
type Profile struct {
	UserID    string
	Role      Role
	FullName  string
	CompanyID string
}

// Identity is the identity-provider contract.
type Identity interface {
	// SignInWithPassword authenticates credentials and establishes a session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignOut terminates the session identified by token.
	SignOut(ctx context.Context, token string) error

	// CurrentUser returns the principal behind a session token.
	CurrentUser(ctx context.Context, token string) (*User, error)
}

// ProfileStore reads user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// Viewer is the role-tagged identity of whoever is looking at company data.
// It is decided once per request and passed explicitly to the rota engine.
// Implementations are AdminViewer and EmployeeViewer.
type Viewer interface {
	Company() string
	User() string
	viewer()
}

// AdminViewer sees every shift of their company.
type AdminViewer struct {
	CompanyID string
	UserID    string
}

func (v AdminViewer) Company() string { return v.CompanyID }
func (v AdminViewer) User() string    { return v.UserID }
func (AdminViewer) viewer()           {}

// EmployeeViewer sees only published shifts assigned to them.
type EmployeeViewer struct {
	CompanyID string
	UserID    string
}

func (v EmployeeViewer) Company() string { return v.CompanyID }
func (v EmployeeViewer) User() string    { return v.UserID }
func (EmployeeViewer) viewer()           {}

// IsAdmin reports whether v is an AdminViewer.
func IsAdmin(v Viewer) bool {
	_, ok := v.(AdminViewer)
	return ok
}

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	viewerContextKey contextKey = iota
	sessionTokenContextKey
)

// NewContextWithViewer returns a new context with the viewer attached.
func NewContextWithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, v)
}

// ViewerFromContext retrieves the viewer from context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerContextKey).(Viewer)
	return v
}

// NewContextWithSessionToken returns a new context carrying the session token.
func NewContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenContextKey, token)
}

// SessionTokenFromContext retrieves the session token, or "".
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenContextKey).(string)
	return token
}
