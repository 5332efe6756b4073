package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cashflowpro/cashflowpro/internal/activity"
	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/money"
)

// BusinessService handles business records and the paired draft analysis
// every business starts with.
type BusinessService struct {
	businessRepo domain.BusinessRepository
	summaryCache domain.SummaryCache
	hub          *activity.Hub
	planLimits   map[string]int
	logger       *slog.Logger
}

// NewBusinessService creates a new business service
func NewBusinessService(
	businessRepo domain.BusinessRepository,
	summaryCache domain.SummaryCache,
	hub *activity.Hub,
	planLimits map[string]int,
	logger *slog.Logger,
) *BusinessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusinessService{
		businessRepo: businessRepo,
		summaryCache: summaryCache,
		hub:          hub,
		planLimits:   planLimits,
		logger:       logger,
	}
}

// BusinessInput carries the client-supplied fields of a business.
// AnnualRevenue arrives as currency text and is parsed strictly.
type BusinessInput struct {
	Industry      string `json:"industry"`
	CompanyName   string `json:"companyName"`
	AnnualRevenue string `json:"annualRevenue"`
	Employees     *int   `json:"employees"`
	Location      string `json:"location"`
}

// Create stores a new business together with its draft analysis. The
// caller's plan caps how many businesses they may hold.
func (s *BusinessService) Create(ctx context.Context, ownerID, plan string, in BusinessInput) (*domain.Business, error) {
	in.Industry = strings.TrimSpace(in.Industry)
	if in.Industry == "" {
		return nil, domain.NewValidationError("industry is required")
	}
	revenue, err := money.Parse(in.AnnualRevenue)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateEmployees(in.Employees); err != nil {
		return nil, err
	}

	if limit := s.planLimits[plan]; limit > 0 {
		count, err := s.businessRepo.CountByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if count >= limit {
			return nil, domain.NewValidationError("business limit reached for current plan")
		}
	}

	business := &domain.Business{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Industry:      in.Industry,
		CompanyName:   strings.TrimSpace(in.CompanyName),
		AnnualRevenue: revenue,
		Employees:     in.Employees,
		Location:      strings.TrimSpace(in.Location),
	}
	draft := &domain.Analysis{
		ID:            uuid.NewString(),
		BusinessID:    business.ID,
		OwnerID:       ownerID,
		Status:        domain.StatusDraft,
		RiskTolerance: domain.RiskModerate,
	}

	if err := s.businessRepo.Create(ctx, business, draft); err != nil {
		return nil, err
	}

	s.summaryCache.Delete(ctx, ownerID)
	s.hub.Publish(activity.Event{
		Type:        activity.EventBusinessCreated,
		OwnerID:     ownerID,
		BusinessID:  business.ID,
		CompanyName: business.CompanyName,
		Industry:    business.Industry,
	})

	s.logger.Info("business created",
		slog.String("business_id", business.ID),
		slog.String("owner_id", ownerID),
		slog.String("industry", business.Industry),
	)
	return business, nil
}

// Get returns one owned business.
func (s *BusinessService) Get(ctx context.Context, ownerID, id string) (*domain.Business, error) {
	return s.businessRepo.GetByID(ctx, ownerID, id)
}

// List returns the caller's businesses, newest first, each paired with
// its latest analysis.
func (s *BusinessService) List(ctx context.Context, ownerID string) ([]*domain.BusinessWithAnalysis, error) {
	return s.businessRepo.ListByOwner(ctx, ownerID)
}

// Update rewrites an owned business's profile fields.
func (s *BusinessService) Update(ctx context.Context, ownerID, id string, in BusinessInput) (*domain.Business, error) {
	in.Industry = strings.TrimSpace(in.Industry)
	if in.Industry == "" {
		return nil, domain.NewValidationError("industry is required")
	}
	revenue, err := money.Parse(in.AnnualRevenue)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateEmployees(in.Employees); err != nil {
		return nil, err
	}

	business, err := s.businessRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	business.Industry = in.Industry
	business.CompanyName = strings.TrimSpace(in.CompanyName)
	business.AnnualRevenue = revenue
	business.Employees = in.Employees
	business.Location = strings.TrimSpace(in.Location)

	if err := s.businessRepo.Update(ctx, ownerID, business); err != nil {
		return nil, err
	}

	s.summaryCache.Delete(ctx, ownerID)
	s.hub.Publish(activity.Event{
		Type:        activity.EventBusinessUpdated,
		OwnerID:     ownerID,
		BusinessID:  business.ID,
		CompanyName: business.CompanyName,
		Industry:    business.Industry,
	})
	return business, nil
}

// Delete removes an owned business and, by cascade, its analyses.
func (s *BusinessService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.businessRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.summaryCache.Delete(ctx, ownerID)
	s.hub.Publish(activity.Event{
		Type:       activity.EventBusinessDeleted,
		OwnerID:    ownerID,
		BusinessID: id,
	})

	s.logger.Info("business deleted",
		slog.String("business_id", id),
		slog.String("owner_id", ownerID),
	)
	return nil
}
