package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/laszhr/lasz/internal/domain"
)

// CompanyService implements domain.CompanyStore using PostgreSQL.
type CompanyService struct {
	db DBTX
}

// Compile-time check to ensure CompanyService implements domain.CompanyStore.
var _ domain.CompanyStore = (*CompanyService)(nil)

// NewCompanyService creates a new CompanyService.
func NewCompanyService(db DBTX) *CompanyService {
	return &CompanyService{db: db}
}

const companyColumns = `id, owner_user_id, company_name, subscription_status, subscription_event_at,
	address, phone, company_email, paye_ref, created_at, updated_at`

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var (
		c                                     domain.Company
		status                                string
		address, phone, companyEmail, payeRef *string
	)
	err := row.Scan(
		&c.ID, &c.OwnerUserID, &c.Name, &status, &c.SubscriptionEventAt,
		&address, &phone, &companyEmail, &payeRef, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.SubscriptionStatus = domain.SubscriptionStatus(status)
	c.Address = deref(address)
	c.Phone = deref(phone)
	c.CompanyEmail = deref(companyEmail)
	c.TaxReference = deref(payeRef)
	return &c, nil
}

// UpdateSubscriptionStatus sets the status in one statement. A zero eventAt
// leaves subscription_event_at untouched.
func (s *CompanyService) UpdateSubscriptionStatus(ctx context.Context, companyID string, status domain.SubscriptionStatus, eventAt time.Time) error {
	const op = "postgres.company.update_subscription_status"

	id, err := uuid.Parse(companyID)
	if err != nil {
		return domain.NotFound(op, "company", companyID)
	}

	var at *time.Time
	if !eventAt.IsZero() {
		at = &eventAt
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE companies
		SET subscription_status = $2,
		    subscription_event_at = COALESCE($3, subscription_event_at),
		    updated_at = now()
		WHERE id = $1`,
		id, string(status), at,
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update subscription status")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "company", companyID)
	}
	return nil
}

// GetCompanyByOwner returns the company whose owner is ownerUserID.
func (s *CompanyService) GetCompanyByOwner(ctx context.Context, ownerUserID string) (*domain.Company, error) {
	const op = "postgres.company.get_by_owner"

	owner, err := uuid.Parse(ownerUserID)
	if err != nil {
		return nil, domain.NotFound(op, "company", ownerUserID)
	}

	c, err := scanCompany(s.db.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE owner_user_id = $1 LIMIT 1`, owner))
	if isNoRows(err) {
		return nil, domain.NotFound(op, "company", ownerUserID)
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load company")
	}
	return c, nil
}

// GetCompany returns a company by id.
func (s *CompanyService) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	const op = "postgres.company.get"

	id, err := uuid.Parse(companyID)
	if err != nil {
		return nil, domain.NotFound(op, "company", companyID)
	}

	c, err := scanCompany(s.db.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, domain.NotFound(op, "company", companyID)
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load company")
	}
	return c, nil
}

// UpdateCompanyProfile replaces the profile fields and returns the updated row.
func (s *CompanyService) UpdateCompanyProfile(ctx context.Context, companyID string, profile domain.CompanyProfile) (*domain.Company, error) {
	const op = "postgres.company.update_profile"

	id, err := uuid.Parse(companyID)
	if err != nil {
		return nil, domain.NotFound(op, "company", companyID)
	}

	c, err := scanCompany(s.db.QueryRow(ctx, `
		UPDATE companies
		SET address = $2, phone = $3, company_email = $4, paye_ref = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+companyColumns,
		id,
		nullString(profile.Address),
		nullString(profile.Phone),
		nullString(profile.CompanyEmail),
		nullString(profile.TaxReference),
	))
	if isNoRows(err) {
		return nil, domain.NotFound(op, "company", companyID)
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update company profile")
	}
	return c, nil
}
