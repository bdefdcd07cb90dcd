package domain

import (
	"context"
	"strings"
	"time"
)

// SubscriptionStatus is the billing state of a company.
type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}

// ParseSubscriptionStatus converts a raw status string.
func ParseSubscriptionStatus(raw string) (SubscriptionStatus, error) {
	s := SubscriptionStatus(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", Errorf(EINVALID, "company.status", "unknown subscription status: %q", raw)
	}
	return s, nil
}

// Company is the billing and profile record of a business using the product.
type Company struct {
	ID                  string
	OwnerUserID         string
	Name                string
	SubscriptionStatus  SubscriptionStatus
	SubscriptionEventAt *time.Time

	// Profile completeness fields.
	Address      string
	Phone        string
	CompanyEmail string
	TaxReference string // PAYE reference

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileComplete reports whether every completeness field is non-empty.
// A nil company is incomplete.
func (c *Company) ProfileComplete() bool {
	if c == nil {
		return false
	}
	return c.Profile().Complete()
}

// Profile returns the completeness fields of the company.
func (c *Company) Profile() CompanyProfile {
	return CompanyProfile{
		Address:      c.Address,
		Phone:        c.Phone,
		CompanyEmail: c.CompanyEmail,
		TaxReference: c.TaxReference,
	}
}

// CompanyProfile holds the fields an admin must fill in before using the dashboard.
type CompanyProfile struct {
	Address      string `json:"address" validate:"omitempty,max=500"`
	Phone        string `json:"phone" validate:"omitempty,max=50"`
	CompanyEmail string `json:"company_email" validate:"omitempty,email"`
	TaxReference string `json:"paye_ref" validate:"omitempty,max=50"`
}

// Complete reports whether all four fields are present.
func (p CompanyProfile) Complete() bool {
	for _, v := range []string{p.Address, p.Phone, p.CompanyEmail, p.TaxReference} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// CompanyStore is the data-store contract for companies.
type CompanyStore interface {
	// UpdateSubscriptionStatus writes the status column in a single statement.
	// Returns a not-found error when no company has the id.
	UpdateSubscriptionStatus(ctx context.Context, companyID string, status SubscriptionStatus, eventAt time.Time) error

	// GetCompanyByOwner returns the company owned by userID.
	GetCompanyByOwner(ctx context.Context, ownerUserID string) (*Company, error)

	// GetCompany returns a company by id.
	GetCompany(ctx context.Context, companyID string) (*Company, error)

	// UpdateCompanyProfile replaces the completeness fields.
	UpdateCompanyProfile(ctx context.Context, companyID string, profile CompanyProfile) (*Company, error)
}
