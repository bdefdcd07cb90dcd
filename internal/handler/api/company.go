package api

import (
	"log/slog"
	"net/http"

	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/handler"
	"github.com/laszhr/lasz/internal/service"
)

// CompanyHandler serves the company profile.
type CompanyHandler struct {
	companies service.CompanyService
	logger    *slog.Logger
}

// NewCompanyHandler creates a new company handler.
func NewCompanyHandler(companies service.CompanyService, logger *slog.Logger) *CompanyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompanyHandler{
		companies: companies,
		logger:    logger.With("handler", "company"),
	}
}

type companyResponse struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"company_name"`
	SubscriptionStatus domain.SubscriptionStatus `json:"subscription_status"`
	Profile            domain.CompanyProfile     `json:"profile"`
	ProfileComplete    bool                      `json:"profile_complete"`
}

func toCompanyResponse(c *domain.Company) companyResponse {
	return companyResponse{
		ID:                 c.ID,
		Name:               c.Name,
		SubscriptionStatus: c.SubscriptionStatus,
		Profile:            c.Profile(),
		ProfileComplete:    c.ProfileComplete(),
	}
}

// GetProfile handles GET /api/company/profile.
func (h *CompanyHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	company, err := h.companies.GetCompany(r.Context(), domain.ViewerFromContext(r.Context()))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, toCompanyResponse(company))
}

// UpdateProfile handles PUT /api/company/profile and returns {next}.
func (h *CompanyHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.CompanyProfile
	if err := handler.DecodeJSON(w, r, &profile); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	_, next, err := h.companies.UpdateProfile(r.Context(), domain.ViewerFromContext(r.Context()), profile)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, nextResponse{Next: next})
}
