package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/laszhr/lasz/internal/billing"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/telemetry"
)

// subscriptionService implements SubscriptionService interface
type subscriptionService struct {
	companies       domain.CompanyStore
	billingProvider billing.Provider
	logger          *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService instance.
// billingProvider may be nil when checkout is not configured.
func NewSubscriptionService(companies domain.CompanyStore, billingProvider billing.Provider, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		companies:       companies,
		billingProvider: billingProvider,
		logger:          logger.With("service", "subscription"),
	}
}

func (s *subscriptionService) Reconcile(ctx context.Context, event *billing.SubscriptionEvent) (Outcome, error) {
	const op = "subscription.reconcile"

	if event == nil {
		return OutcomeSkipped, domain.Invalid(op, "event is required")
	}

	status, ok := TargetStatus(event.Type)
	if !ok {
		s.logger.Debug("ignoring unhandled event type", "event_id", event.ID, "event_type", event.Type)
		return OutcomeSkipped, nil
	}

	if event.CompanyID == "" {
		s.logger.Info("event carries no company id, skipping",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return OutcomeSkipped, nil
	}

	matched, err := s.write(ctx, op, event.CompanyID, status, event.Created)
	if err != nil {
		return OutcomeSkipped, err
	}
	if !matched {
		return OutcomeSkipped, nil
	}

	s.logger.Info("subscription status reconciled",
		"event_id", event.ID,
		"event_type", event.Type,
		"company_id", event.CompanyID,
		"status", status,
	)
	return OutcomeApplied, nil
}

func (s *subscriptionService) UpdateStatus(ctx context.Context, companyID, status string) error {
	const op = "subscription.update"

	companyID = strings.TrimSpace(companyID)
	if companyID == "" || strings.TrimSpace(status) == "" {
		return ErrMissingParams
	}

	parsed, err := domain.ParseSubscriptionStatus(status)
	if err != nil {
		return err
	}

	_, err = s.write(ctx, op, companyID, parsed, time.Time{})
	return err
}

// write applies status to the company. An update that matches no company is
// a no-op, not an error; matched reports whether a row changed.
func (s *subscriptionService) write(ctx context.Context, op, companyID string, status domain.SubscriptionStatus, eventAt time.Time) (matched bool, err error) {
	if err := s.companies.UpdateSubscriptionStatus(ctx, companyID, status, eventAt); err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			s.logger.Warn("subscription update matched no company",
				"op", op,
				"company_id", companyID,
				"status", status,
			)
			return false, nil
		}
		return false, domain.Internal(err, op, "failed to update subscription status")
	}

	if telemetry.Business != nil {
		telemetry.Business.SubscriptionStatusUpdates.WithLabelValues(string(status)).Inc()
	}
	return true, nil
}

func (s *subscriptionService) StartCheckout(ctx context.Context, params StartCheckoutParams) (*billing.CheckoutSession, error) {
	const op = "subscription.checkout"

	admin, ok := params.Viewer.(domain.AdminViewer)
	if !ok {
		return nil, ErrAdminRequired
	}
	if s.billingProvider == nil {
		return nil, ErrBillingUnavailable
	}

	company, err := s.companies.GetCompany(ctx, admin.CompanyID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, ErrCompanyNotFound
		}
		return nil, domain.Internal(err, op, "failed to load company")
	}

	session, err := s.billingProvider.CreateCheckoutSession(ctx, billing.CreateCheckoutSessionParams{
		CompanyID:     company.ID,
		CustomerEmail: company.CompanyEmail,
		SuccessURL:    params.SuccessURL,
		CancelURL:     params.CancelURL,
	})
	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.CheckoutSessionsCreated.WithLabelValues("failed").Inc()
		}
		return nil, domain.Internal(err, op, "failed to create checkout session")
	}

	if telemetry.Business != nil {
		telemetry.Business.CheckoutSessionsCreated.WithLabelValues("created").Inc()
	}
	s.logger.Info("checkout session created", "company_id", company.ID, "session_id", session.ID)
	return session, nil
}
