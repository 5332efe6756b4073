package service

import (
	"context"
	"log/slog"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/money"
)

const defaultActivityLimit = 10

// DashboardService aggregates one user's records into summary counters
// and a recent-activity feed. Summaries are served cache-aside with a
// short TTL; staleness is bounded and acceptable.
type DashboardService struct {
	businessRepo domain.BusinessRepository
	summaryCache domain.SummaryCache
	logger       *slog.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(businessRepo domain.BusinessRepository, summaryCache domain.SummaryCache, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		businessRepo: businessRepo,
		summaryCache: summaryCache,
		logger:       logger,
	}
}

// Summarize returns the caller's dashboard counters.
func (s *DashboardService) Summarize(ctx context.Context, ownerID string) (*domain.DashboardSummary, error) {
	if cached, ok := s.summaryCache.Get(ctx, ownerID); ok {
		return cached, nil
	}

	summary, err := s.businessRepo.Summarize(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	s.summaryCache.Set(ctx, ownerID, summary)
	return summary, nil
}

// ActivityItem is one row of the dashboard's recent-activity feed.
type ActivityItem struct {
	BusinessID  string `json:"businessId"`
	AnalysisID  string `json:"analysisId"`
	CompanyName string `json:"companyName,omitempty"`
	Industry    string `json:"industry"`
	Action      string `json:"action"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	Date        string `json:"date"`
}

// RecentActivity returns the caller's most recently touched businesses
// rendered as feed rows, newest first. A non-positive limit selects the
// default of 10.
func (s *DashboardService) RecentActivity(ctx context.Context, ownerID string, limit int) ([]ActivityItem, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	rows, err := s.businessRepo.RecentActivity(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ActivityItem{
			BusinessID:  row.Business.ID,
			AnalysisID:  row.Latest.ID,
			CompanyName: row.Business.CompanyName,
			Industry:    row.Business.Industry,
			Action:      actionFor(row.Latest.Status),
			Amount:      money.Format(row.Business.AnnualRevenue),
			Status:      string(row.Latest.Status),
			Date:        row.Business.UpdatedAt.Format("Jan 2, 2006"),
		})
	}
	return items, nil
}

// InvalidateOwner drops the cached summary after a mutation.
func (s *DashboardService) InvalidateOwner(ctx context.Context, ownerID string) {
	s.summaryCache.Delete(ctx, ownerID)
}

func actionFor(status domain.AnalysisStatus) string {
	switch status {
	case domain.StatusReported:
		return "Report generated"
	case domain.StatusAnalyzed:
		return "Analysis completed"
	case domain.StatusInProgress:
		return "Analysis in progress"
	default:
		return "Profile created"
	}
}
