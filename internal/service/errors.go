package service

import (
	"github.com/laszhr/lasz/internal/domain"
)

// Session errors
var (
	ErrInvalidCredentials = domain.Errorf(domain.EUNAUTHORIZED, "session.signin", "Invalid login credentials")
	ErrNotBusinessAdmin   = domain.Errorf(domain.EFORBIDDEN, "session.signin", "This account is not a business admin.")
	ErrMissingCredentials = domain.Errorf(domain.EINVALID, "session.signin", "Email and password are required")
	ErrNotSignedIn        = domain.Errorf(domain.EUNAUTHORIZED, "session.resolve", "Not signed in")
)

// Subscription errors
var (
	ErrMissingParams      = domain.Errorf(domain.EINVALID, "subscription.update", "Missing params")
	ErrBillingUnavailable = domain.Errorf(domain.EUNAVAILABLE, "subscription.checkout", "Billing is not configured")
	ErrCompanyNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Company not found")
)

// Company scope errors
var (
	ErrCompanyRequired = domain.ErrCompanyRequired
	ErrAdminRequired   = domain.Errorf(domain.EFORBIDDEN, "", "This action requires a business admin")
)
