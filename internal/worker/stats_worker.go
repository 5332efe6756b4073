package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/observability/metrics"
)

// StatsWorker periodically refreshes the operational gauges from
// storage so /metrics reflects the record population, not just the
// traffic this process has seen.
type StatsWorker struct {
	businessRepo domain.BusinessRepository
	analysisRepo domain.AnalysisRepository
	logger       *slog.Logger
	interval     time.Duration
}

var trackedStatuses = []domain.AnalysisStatus{
	domain.StatusDraft,
	domain.StatusInProgress,
	domain.StatusAnalyzed,
	domain.StatusReported,
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(
	businessRepo domain.BusinessRepository,
	analysisRepo domain.AnalysisRepository,
	logger *slog.Logger,
	interval time.Duration,
) *StatsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsWorker{
		businessRepo: businessRepo,
		analysisRepo: analysisRepo,
		logger:       logger,
		interval:     interval,
	}
}

// Start begins the refresh loop. It blocks until ctx is cancelled.
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context) {
	total, err := w.businessRepo.Count(ctx)
	if err != nil {
		w.logger.Error("failed to count businesses", slog.String("error", err.Error()))
		return
	}
	metrics.SetBusinessesTotal(total)

	counts, err := w.analysisRepo.CountByStatus(ctx)
	if err != nil {
		w.logger.Error("failed to count analyses", slog.String("error", err.Error()))
		return
	}
	// Publish zeros for absent statuses so the gauge falls back down.
	for _, status := range trackedStatuses {
		metrics.SetAnalysesByStatus(string(status), counts[status])
	}
}
