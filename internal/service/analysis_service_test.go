package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cashflowpro/cashflowpro/internal/activity"
	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/engine"
)

func newTestAnalysisFixture(t *testing.T) (*memStore, *memSummaryCache, *AnalysisService, *domain.Analysis) {
	t.Helper()
	ctx := context.Background()
	store := newMemStore()
	cache := newMemSummaryCache()

	bs := newTestBusinessService(store, cache)
	b, err := bs.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail", AnnualRevenue: "1000000"})
	if err != nil {
		t.Fatalf("create business failed: %v", err)
	}
	list, err := bs.List(ctx, "owner-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list businesses failed: %v", err)
	}
	draft := list[0].Latest
	if draft.BusinessID != b.ID {
		t.Fatalf("draft not paired: %+v", draft)
	}

	as := NewAnalysisService(analysisView{store}, store, nil, cache, activity.NewHub(), nil)
	return store, cache, as, &draft
}

func TestRunAnalysisPersistsDerivedGroup(t *testing.T) {
	ctx := context.Background()
	_, _, as, draft := newTestAnalysisFixture(t)

	got, err := as.Run(ctx, "owner-1", draft.ID, RunInput{
		RiskTolerance:     "MODERATE",
		GrossRevenue:      "$1,000,000",
		OperatingExpenses: "400000",
		DebtPayments:      "100000",
		OwnerCompensation: "150000",
		TaxObligations:    "100000",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got.Status != domain.StatusAnalyzed {
		t.Fatalf("run must land in ANALYZED, got %s", got.Status)
	}
	if !got.HasResults() {
		t.Fatalf("derived fields missing: %+v", got)
	}
	if got.DiscretionaryCashFlow.String() != "250000" {
		t.Fatalf("dcf = %s, want 250000", got.DiscretionaryCashFlow)
	}
	if got.RecommendedPremium.String() != "187500" {
		t.Fatalf("premium = %s, want 187500", got.RecommendedPremium)
	}
	if *got.AffordabilityScore != 50 {
		t.Fatalf("score = %d, want 50", *got.AffordabilityScore)
	}
	if *got.Recommendation != engine.RecommendationModerate {
		t.Fatalf("recommendation = %q", *got.Recommendation)
	}
}

func TestRunAnalysisDegradesMalformedFiguresToZero(t *testing.T) {
	ctx := context.Background()
	_, _, as, draft := newTestAnalysisFixture(t)

	got, err := as.Run(ctx, "owner-1", draft.ID, RunInput{
		GrossRevenue:      "garbage",
		OperatingExpenses: "",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !got.GrossRevenue.IsZero() || !got.DiscretionaryCashFlow.IsZero() {
		t.Fatalf("malformed figures must degrade to zero: %+v", got)
	}
	if *got.AffordabilityScore != 0 {
		t.Fatalf("zero gross must score zero, got %d", *got.AffordabilityScore)
	}
}

func TestRunAnalysisRejectsInvalidRiskTolerance(t *testing.T) {
	ctx := context.Background()
	_, _, as, draft := newTestAnalysisFixture(t)

	if _, err := as.Run(ctx, "owner-1", draft.ID, RunInput{RiskTolerance: "YOLO"}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Empty tolerance defaults to MODERATE.
	got, err := as.Run(ctx, "owner-1", draft.ID, RunInput{GrossRevenue: "100"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got.RiskTolerance != domain.RiskModerate {
		t.Fatalf("expected MODERATE default, got %s", got.RiskTolerance)
	}
}

func TestRunAnalysisOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	_, _, as, draft := newTestAnalysisFixture(t)

	if _, err := as.Run(ctx, "owner-2", draft.ID, RunInput{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign run must be not found, got %v", err)
	}
	if _, err := as.Get(ctx, "owner-2", draft.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign get must be not found, got %v", err)
	}
	if _, err := as.SetStatus(ctx, "owner-2", draft.ID, "REPORTED"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign status change must be not found, got %v", err)
	}
}

func TestSetStatusStampsReportTimestampOnce(t *testing.T) {
	ctx := context.Background()
	_, _, as, draft := newTestAnalysisFixture(t)

	if _, err := as.SetStatus(ctx, "owner-1", draft.ID, "BOGUS"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}

	first, err := as.SetStatus(ctx, "owner-1", draft.ID, "REPORTED")
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if first.ReportGeneratedAt == nil {
		t.Fatalf("entering REPORTED must stamp the report timestamp")
	}
	stamp := *first.ReportGeneratedAt

	// Leaving and re-entering REPORTED keeps the original stamp.
	if _, err := as.SetStatus(ctx, "owner-1", draft.ID, "IN_PROGRESS"); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	again, err := as.SetStatus(ctx, "owner-1", draft.ID, "REPORTED")
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if again.ReportGeneratedAt == nil || !again.ReportGeneratedAt.Equal(stamp) {
		t.Fatalf("report timestamp must be first-write-wins: %v vs %v", again.ReportGeneratedAt, stamp)
	}
}

func TestSetStatusReportedExportsDocument(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cache := newMemSummaryCache()

	bs := newTestBusinessService(store, cache)
	if _, err := bs.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail", AnnualRevenue: "1000000"}); err != nil {
		t.Fatalf("create business failed: %v", err)
	}
	list, _ := bs.List(ctx, "owner-1")
	draft := list[0].Latest

	objects := newMemReportStore()
	reports := NewReportService(objects, nil)
	as := NewAnalysisService(analysisView{store}, store, reports, cache, activity.NewHub(), nil)

	if _, err := as.Run(ctx, "owner-1", draft.ID, RunInput{GrossRevenue: "1000000", OperatingExpenses: "500000"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := as.SetStatus(ctx, "owner-1", draft.ID, "REPORTED"); err != nil {
		t.Fatalf("set status failed: %v", err)
	}

	data, err := reports.Fetch(ctx, "owner-1", draft.ID)
	if err != nil {
		t.Fatalf("exported report missing: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("exported report is empty")
	}
}

func TestSetStatusSurvivesExportFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cache := newMemSummaryCache()

	bs := newTestBusinessService(store, cache)
	if _, err := bs.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail"}); err != nil {
		t.Fatalf("create business failed: %v", err)
	}
	list, _ := bs.List(ctx, "owner-1")
	draft := list[0].Latest

	objects := newMemReportStore()
	objects.fail = true
	reports := NewReportService(objects, nil)
	as := NewAnalysisService(analysisView{store}, store, reports, cache, activity.NewHub(), nil)

	got, err := as.SetStatus(ctx, "owner-1", draft.ID, "REPORTED")
	if err != nil {
		t.Fatalf("status change must not fail on export errors: %v", err)
	}
	if got.Status != domain.StatusReported {
		t.Fatalf("status must still be REPORTED, got %s", got.Status)
	}
}

func TestRunPublishesActivityEvent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cache := newMemSummaryCache()
	hub := activity.NewHub()

	bs := NewBusinessService(store, cache, hub, testPlanLimits, nil)
	if _, err := bs.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail"}); err != nil {
		t.Fatalf("create business failed: %v", err)
	}
	list, _ := bs.List(ctx, "owner-1")
	draft := list[0].Latest

	events, cancel := hub.Subscribe("owner-1")
	defer cancel()

	as := NewAnalysisService(analysisView{store}, store, nil, cache, hub, nil)
	if _, err := as.Run(ctx, "owner-1", draft.ID, RunInput{GrossRevenue: "100"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	select {
	case evt := <-events:
		if evt.Type != activity.EventAnalysisRun || evt.AnalysisID != draft.ID {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("no activity event delivered")
	}
}
