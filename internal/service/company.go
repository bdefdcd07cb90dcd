package service

import (
	"context"
	"log/slog"

	"github.com/laszhr/lasz/internal/domain"
)

// CompanyService manages the company record of the signed-in admin.
type CompanyService interface {
	// GetCompany returns the viewer's company.
	GetCompany(ctx context.Context, viewer domain.Viewer) (*domain.Company, error)

	// UpdateProfile replaces the completeness fields and returns the
	// next landing destination.
	//
	// Returns ErrAdminRequired for non-admin viewers.
	UpdateProfile(ctx context.Context, viewer domain.Viewer, profile domain.CompanyProfile) (*domain.Company, string, error)
}

type companyService struct {
	companies domain.CompanyStore
	logger    *slog.Logger
}

// NewCompanyService creates a new CompanyService instance.
func NewCompanyService(companies domain.CompanyStore, logger *slog.Logger) CompanyService {
	return &companyService{
		companies: companies,
		logger:    logger.With("service", "company"),
	}
}

func (s *companyService) GetCompany(ctx context.Context, viewer domain.Viewer) (*domain.Company, error) {
	if viewer == nil || viewer.Company() == "" {
		return nil, ErrCompanyRequired
	}

	company, err := s.companies.GetCompany(ctx, viewer.Company())
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, ErrCompanyNotFound
		}
		return nil, domain.Internal(err, "company.get", "failed to load company")
	}
	return company, nil
}

func (s *companyService) UpdateProfile(ctx context.Context, viewer domain.Viewer, profile domain.CompanyProfile) (*domain.Company, string, error) {
	admin, ok := viewer.(domain.AdminViewer)
	if !ok {
		return nil, "", ErrAdminRequired
	}

	company, err := s.companies.UpdateCompanyProfile(ctx, admin.CompanyID, profile)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, "", ErrCompanyNotFound
		}
		return nil, "", domain.Internal(err, "company.update_profile", "failed to update company profile")
	}

	complete := company.ProfileComplete()
	s.logger.Info("company profile updated", "company_id", company.ID, "complete", complete)
	return company, NextStep(complete), nil
}
