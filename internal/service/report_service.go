package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/observability/metrics"
	"github.com/cashflowpro/cashflowpro/internal/reliability/circuitbreaker"
)

// ErrReportStoreUnavailable is returned while the export circuit is open.
var ErrReportStoreUnavailable = errors.New("report store unavailable")

// ReportService renders affordability report documents and exports them
// to object storage. Uploads go through a circuit breaker so a dead
// store fails fast instead of stalling status changes.
type ReportService struct {
	store   domain.ReportStore
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewReportService creates a new report service
func NewReportService(store domain.ReportStore, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	rs := &ReportService{
		store:   store,
		breaker: circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		logger:  logger,
	}
	rs.breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("report store circuit state changed",
			slog.Int("from", int(from)),
			slog.Int("to", int(to)),
		)
	})
	return rs
}

// reportDocument is the exported JSON shape.
type reportDocument struct {
	GeneratedAt time.Time `json:"generatedAt"`

	Business struct {
		ID            string          `json:"id"`
		CompanyName   string          `json:"companyName,omitempty"`
		Industry      string          `json:"industry"`
		AnnualRevenue decimal.Decimal `json:"annualRevenue"`
		Employees     *int            `json:"employees,omitempty"`
		Location      string          `json:"location,omitempty"`
	} `json:"business"`

	Analysis struct {
		ID                    string           `json:"id"`
		Status                string           `json:"status"`
		RiskTolerance         string           `json:"riskTolerance"`
		DiscretionaryCashFlow *decimal.Decimal `json:"discretionaryCashFlow"`
		RecommendedPremium    *decimal.Decimal `json:"recommendedPremium"`
		AffordabilityScore    *int             `json:"affordabilityScore"`
		Recommendation        *string          `json:"recommendation"`
		ReportGeneratedAt     *time.Time       `json:"reportGeneratedAt"`
	} `json:"analysis"`
}

func reportKey(ownerID, analysisID string) string {
	return fmt.Sprintf("reports/%s/%s.json", ownerID, analysisID)
}

// Export uploads the report document for a reported analysis.
func (s *ReportService) Export(ctx context.Context, business *domain.Business, analysis *domain.Analysis) error {
	var doc reportDocument
	doc.GeneratedAt = time.Now().UTC()
	doc.Business.ID = business.ID
	doc.Business.CompanyName = business.CompanyName
	doc.Business.Industry = business.Industry
	doc.Business.AnnualRevenue = business.AnnualRevenue
	doc.Business.Employees = business.Employees
	doc.Business.Location = business.Location
	doc.Analysis.ID = analysis.ID
	doc.Analysis.Status = string(analysis.Status)
	doc.Analysis.RiskTolerance = string(analysis.RiskTolerance)
	doc.Analysis.DiscretionaryCashFlow = analysis.DiscretionaryCashFlow
	doc.Analysis.RecommendedPremium = analysis.RecommendedPremium
	doc.Analysis.AffordabilityScore = analysis.AffordabilityScore
	doc.Analysis.Recommendation = analysis.Recommendation
	doc.Analysis.ReportGeneratedAt = analysis.ReportGeneratedAt

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	key := reportKey(analysis.OwnerID, analysis.ID)
	var url string
	err = s.breaker.Execute(func() error {
		var putErr error
		url, putErr = s.store.Put(ctx, key, data, "application/json")
		return putErr
	})
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		metrics.ObserveReportExport("rejected")
		return ErrReportStoreUnavailable
	case err != nil:
		metrics.ObserveReportExport("error")
		return err
	}

	metrics.ObserveReportExport("success")
	s.logger.Info("report exported",
		slog.String("analysis_id", analysis.ID),
		slog.String("url", url),
	)
	return nil
}

// Fetch downloads a previously exported report document. The key is
// derived from the caller's identity, so one user cannot address
// another's reports.
func (s *ReportService) Fetch(ctx context.Context, ownerID, analysisID string) ([]byte, error) {
	data, err := s.store.Fetch(ctx, reportKey(ownerID, analysisID))
	if err != nil {
		return nil, fmt.Errorf("%w: report %s", domain.ErrNotFound, analysisID)
	}
	return data, nil
}
