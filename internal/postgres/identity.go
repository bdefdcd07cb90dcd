package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/laszhr/lasz/internal/auth"
	"github.com/laszhr/lasz/internal/domain"
)

// DefaultSessionTTL is used when IdentityService is built with a zero TTL.
const DefaultSessionTTL = 30 * 24 * time.Hour

// TxDB is a DBTX that can also open transactions.
type TxDB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IdentityService implements domain.Identity and domain.ProfileStore on the
// users, sessions and profiles tables.
type IdentityService struct {
	db  TxDB
	ttl time.Duration
	now func() time.Time
}

var (
	_ domain.Identity     = (*IdentityService)(nil)
	_ domain.ProfileStore = (*IdentityService)(nil)
)

// NewIdentityService creates a new IdentityService.
func NewIdentityService(db TxDB, sessionTTL time.Duration) *IdentityService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &IdentityService{db: db, ttl: sessionTTL, now: time.Now}
}

// SignInWithPassword checks the credentials and opens a session.
func (s *IdentityService) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	const op = "postgres.identity.sign_in"

	email = strings.ToLower(strings.TrimSpace(email))

	var (
		user domain.User
		hash string
		role string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id::text, email, password_hash, role FROM users WHERE lower(email) = $1`, email,
	).Scan(&user.ID, &user.Email, &hash, &role)
	if isNoRows(err) {
		auth.VerifyDecoy(password)
		return nil, domain.Unauthorized(op, "Invalid login credentials")
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load user")
	}
	user.Role = domain.Role(role)

	if err := auth.VerifyPassword(password, hash); err != nil {
		return nil, domain.Unauthorized(op, "Invalid login credentials")
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate session token")
	}
	expiresAt := s.now().Add(s.ttl).UTC()

	_, err = s.db.Exec(ctx,
		`INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		auth.HashToken(token), user.ID, expiresAt,
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create session")
	}

	return &domain.Session{Token: token, User: user, ExpiresAt: expiresAt}, nil
}

// SignOut deletes the session. Unknown tokens are not an error.
func (s *IdentityService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, auth.HashToken(token)); err != nil {
		return domain.Internal(err, "postgres.identity.sign_out", "failed to delete session")
	}
	return nil
}

// CurrentUser returns the user behind an unexpired session.
func (s *IdentityService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	const op = "postgres.identity.current_user"

	if token == "" {
		return nil, domain.Unauthorized(op, "no session")
	}

	var (
		user domain.User
		role string
	)
	err := s.db.QueryRow(ctx, `
		SELECT u.id::text, u.email, u.role
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1 AND s.expires_at > $2`,
		auth.HashToken(token), s.now(),
	).Scan(&user.ID, &user.Email, &role)
	if isNoRows(err) {
		return nil, domain.Unauthorized(op, "session expired or revoked")
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load session")
	}
	user.Role = domain.Role(role)
	return &user, nil
}

// GetProfile returns the profile of userID.
func (s *IdentityService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	const op = "postgres.profile.get"

	if _, err := uuid.Parse(userID); err != nil {
		return nil, domain.NotFound(op, "profile", userID)
	}

	var (
		p                   domain.Profile
		role                string
		fullName, companyID *string
	)
	err := s.db.QueryRow(ctx,
		`SELECT user_id::text, role, full_name, company_id::text FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &role, &fullName, &companyID)
	if isNoRows(err) {
		return nil, domain.NotFound(op, "profile", userID)
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load profile")
	}
	p.Role = domain.Role(role)
	p.FullName = deref(fullName)
	p.CompanyID = deref(companyID)
	return &p, nil
}

// DeleteExpiredSessions removes sessions past their expiry and returns how
// many were removed.
func (s *IdentityService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, domain.Internal(err, "postgres.identity.delete_expired_sessions", "failed to delete expired sessions")
	}
	return tag.RowsAffected(), nil
}

// NewBusinessAdmin describes the first admin account and its company.
type NewBusinessAdmin struct {
	Email        string
	PasswordHash string
	FullName     string
	CompanyName  string
}

// ErrUserExists is returned by CreateBusinessAdmin when the email is taken.
var ErrUserExists = &domain.Error{Code: domain.ECONFLICT, Op: "postgres.identity.create_admin", Message: "a user with this email already exists"}

// UserExists reports whether an account with email exists.
func (s *IdentityService) UserExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = $1)`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&exists)
	if err != nil {
		return false, domain.Internal(err, "postgres.identity.user_exists", "failed to check user")
	}
	return exists, nil
}

// CreateBusinessAdmin inserts a business admin, their profile and the company
// they own in one transaction. The company starts trialing.
func (s *IdentityService) CreateBusinessAdmin(ctx context.Context, in NewBusinessAdmin) (userID, companyID string, err error) {
	const op = "postgres.identity.create_admin"

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3) RETURNING id::text`,
			strings.ToLower(strings.TrimSpace(in.Email)), in.PasswordHash, string(domain.RoleBusinessAdmin),
		).Scan(&userID); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO companies (owner_user_id, company_name, subscription_status) VALUES ($1, $2, $3) RETURNING id::text`,
			userID, in.CompanyName, string(domain.StatusTrialing),
		).Scan(&companyID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO profiles (user_id, role, full_name, company_id) VALUES ($1, $2, $3, $4)`,
			userID, string(domain.RoleBusinessAdmin), nullString(in.FullName), companyID,
		)
		return err
	})
	if isUniqueViolation(err) {
		return "", "", ErrUserExists
	}
	if err != nil {
		return "", "", domain.Internal(err, op, "failed to create business admin")
	}
	return userID, companyID, nil
}
