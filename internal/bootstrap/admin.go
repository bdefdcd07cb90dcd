// Package bootstrap handles one-time initialization tasks for the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/laszhr/lasz/internal/auth"
	"github.com/laszhr/lasz/internal/postgres"
)

// AdminConfig contains configuration for the first business admin.
type AdminConfig struct {
	Email       string
	Password    string
	FullName    string
	CompanyName string
}

// Validate checks that the admin configuration is valid.
func (c *AdminConfig) Validate() error {
	if c.Email == "" {
		return errors.New("admin email is required")
	}
	if !strings.Contains(c.Email, "@") {
		return errors.New("admin email is invalid")
	}
	if c.Password == "" {
		return errors.New("admin password is required")
	}
	if err := auth.CheckPasswordLength(c.Password); err != nil {
		return fmt.Errorf("admin %w", err)
	}
	return nil
}

// AdminStore is the slice of the identity store bootstrap needs.
type AdminStore interface {
	UserExists(ctx context.Context, email string) (bool, error)
	CreateBusinessAdmin(ctx context.Context, in postgres.NewBusinessAdmin) (userID, companyID string, err error)
}

// EnsureBusinessAdmin creates the first business admin and their company if
// the account doesn't exist yet. It is safe to call on every startup.
//
// A nil config or one without email/password is skipped with a warning so
// development databases can run without an account.
func EnsureBusinessAdmin(ctx context.Context, store AdminStore, cfg *AdminConfig, logger *slog.Logger) error {
	if cfg == nil || cfg.Email == "" || cfg.Password == "" {
		logger.Warn("bootstrap: skipping admin creation - LASZ_ADMIN_EMAIL or LASZ_ADMIN_PASSWORD not set",
			"hint", "Set these environment variables to create a business admin on first startup",
		)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid admin configuration: %w", err)
	}

	exists, err := store.UserExists(ctx, cfg.Email)
	if err != nil {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if exists {
		logger.Info("bootstrap: admin user already exists", "email", cfg.Email)
		return nil
	}

	passwordHash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	fullName := cfg.FullName
	if fullName == "" {
		fullName = "Admin User"
	}
	companyName := cfg.CompanyName
	if companyName == "" {
		companyName = "My Company"
	}

	userID, companyID, err := store.CreateBusinessAdmin(ctx, postgres.NewBusinessAdmin{
		Email:        cfg.Email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		CompanyName:  companyName,
	})
	if errors.Is(err, postgres.ErrUserExists) {
		// Another instance won the race.
		logger.Info("bootstrap: admin user already exists (concurrent creation)", "email", cfg.Email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("bootstrap: business admin created",
		"email", cfg.Email,
		"user_id", userID,
		"company_id", companyID,
	)
	return nil
}
