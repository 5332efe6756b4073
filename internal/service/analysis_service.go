package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cashflowpro/cashflowpro/internal/activity"
	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/engine"
	"github.com/cashflowpro/cashflowpro/internal/money"
	"github.com/cashflowpro/cashflowpro/internal/observability/metrics"
)

// AnalysisService runs the affordability engine and drives the analysis
// lifecycle.
type AnalysisService struct {
	analysisRepo domain.AnalysisRepository
	businessRepo domain.BusinessRepository
	reports      *ReportService // nil when report export is disabled
	summaryCache domain.SummaryCache
	hub          *activity.Hub
	logger       *slog.Logger
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	analysisRepo domain.AnalysisRepository,
	businessRepo domain.BusinessRepository,
	reports *ReportService,
	summaryCache domain.SummaryCache,
	hub *activity.Hub,
	logger *slog.Logger,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		analysisRepo: analysisRepo,
		businessRepo: businessRepo,
		reports:      reports,
		summaryCache: summaryCache,
		hub:          hub,
		logger:       logger,
	}
}

// RunInput carries the client-supplied figures for one engine run. The
// five monetary fields arrive as currency text; a missing or malformed
// figure degrades to zero rather than failing the run.
type RunInput struct {
	RiskTolerance     string `json:"riskTolerance"`
	GrossRevenue      string `json:"grossRevenue"`
	OperatingExpenses string `json:"operatingExpenses"`
	DebtPayments      string `json:"debtPayments"`
	OwnerCompensation string `json:"ownerCompensation"`
	TaxObligations    string `json:"taxObligations"`
}

// Get returns one owned analysis.
func (s *AnalysisService) Get(ctx context.Context, ownerID, id string) (*domain.Analysis, error) {
	return s.analysisRepo.GetByID(ctx, ownerID, id)
}

// ListByBusiness returns the analyses of one owned business.
func (s *AnalysisService) ListByBusiness(ctx context.Context, ownerID, businessID string) ([]*domain.Analysis, error) {
	if _, err := s.businessRepo.GetByID(ctx, ownerID, businessID); err != nil {
		return nil, err
	}
	return s.analysisRepo.ListByBusiness(ctx, ownerID, businessID)
}

// Run computes the affordability verdict and persists inputs, derived
// outputs and the ANALYZED status in one write.
func (s *AnalysisService) Run(ctx context.Context, ownerID, analysisID string, in RunInput) (*domain.Analysis, error) {
	start := time.Now()

	risk, err := domain.ParseRiskTolerance(in.RiskTolerance)
	if err != nil {
		metrics.ObserveAnalysisRun("invalid", time.Since(start))
		return nil, err
	}

	inputs := engine.Inputs{
		GrossRevenue:      money.ParseOrZero(in.GrossRevenue),
		OperatingExpenses: money.ParseOrZero(in.OperatingExpenses),
		DebtPayments:      money.ParseOrZero(in.DebtPayments),
		OwnerCompensation: money.ParseOrZero(in.OwnerCompensation),
		TaxObligations:    money.ParseOrZero(in.TaxObligations),
	}
	result := engine.Run(inputs, risk)

	run := &domain.AnalysisRun{
		RiskTolerance:         risk,
		GrossRevenue:          inputs.GrossRevenue,
		OperatingExpenses:     inputs.OperatingExpenses,
		DebtPayments:          inputs.DebtPayments,
		OwnerCompensation:     inputs.OwnerCompensation,
		TaxObligations:        inputs.TaxObligations,
		DiscretionaryCashFlow: result.DiscretionaryCashFlow,
		RecommendedPremium:    result.RecommendedPremium,
		AffordabilityScore:    result.AffordabilityScore,
		Recommendation:        result.Recommendation,
	}

	analysis, err := s.analysisRepo.SaveRun(ctx, ownerID, analysisID, run)
	if err != nil {
		metrics.ObserveAnalysisRun("error", time.Since(start))
		return nil, err
	}

	metrics.ObserveAnalysisRun("success", time.Since(start))
	s.summaryCache.Delete(ctx, ownerID)
	s.hub.Publish(activity.Event{
		Type:       activity.EventAnalysisRun,
		OwnerID:    ownerID,
		BusinessID: analysis.BusinessID,
		AnalysisID: analysis.ID,
		Status:     analysis.Status,
	})

	s.logger.Info("analysis run completed",
		slog.String("analysis_id", analysis.ID),
		slog.String("owner_id", ownerID),
		slog.Int("score", result.AffordabilityScore),
		slog.Duration("duration", time.Since(start)),
	)
	return analysis, nil
}

// SetStatus moves an owned analysis to a new lifecycle status. Entering
// REPORTED stamps the report timestamp once and, when an object store is
// configured, exports the report document. The export is best effort; a
// failed upload never rolls the status back.
func (s *AnalysisService) SetStatus(ctx context.Context, ownerID, analysisID, status string) (*domain.Analysis, error) {
	parsed, err := domain.ParseAnalysisStatus(status)
	if err != nil {
		return nil, err
	}

	analysis, err := s.analysisRepo.SetStatus(ctx, ownerID, analysisID, parsed)
	if err != nil {
		return nil, err
	}

	s.summaryCache.Delete(ctx, ownerID)
	s.hub.Publish(activity.Event{
		Type:       activity.EventStatusChanged,
		OwnerID:    ownerID,
		BusinessID: analysis.BusinessID,
		AnalysisID: analysis.ID,
		Status:     analysis.Status,
	})

	if parsed == domain.StatusReported && s.reports != nil {
		if err := s.exportReport(ctx, ownerID, analysis); err != nil {
			s.logger.Warn("report export failed",
				slog.String("analysis_id", analysis.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return analysis, nil
}

func (s *AnalysisService) exportReport(ctx context.Context, ownerID string, analysis *domain.Analysis) error {
	business, err := s.businessRepo.GetByID(ctx, ownerID, analysis.BusinessID)
	if err != nil {
		return err
	}
	return s.reports.Export(ctx, business, analysis)
}
