package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cashflowpro/cashflowpro/internal/activity"
	"github.com/cashflowpro/cashflowpro/internal/domain"
)

var testPlanLimits = map[string]int{"FREE": 3, "PRO": 25, "ENTERPRISE": 0}

func newTestBusinessService(store *memStore, cache *memSummaryCache) *BusinessService {
	return NewBusinessService(store, cache, activity.NewHub(), testPlanLimits, nil)
}

func TestCreateBusinessPairsDraftAnalysis(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cache := newMemSummaryCache()
	s := newTestBusinessService(store, cache)

	b, err := s.Create(ctx, "owner-1", "FREE", BusinessInput{
		Industry:      "restaurant",
		CompanyName:   "Blue Plate Diner",
		AnnualRevenue: "$1,250,000",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if b.ID == "" || b.OwnerID != "owner-1" {
		t.Fatalf("unexpected business: %+v", b)
	}
	if b.AnnualRevenue.String() != "1250000" {
		t.Fatalf("revenue not normalized: %s", b.AnnualRevenue)
	}

	list, err := s.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 business, got %d", len(list))
	}
	draft := list[0].Latest
	if draft.BusinessID != b.ID || draft.Status != domain.StatusDraft {
		t.Fatalf("expected a paired DRAFT analysis, got %+v", draft)
	}
	if draft.RiskTolerance != domain.RiskModerate {
		t.Fatalf("draft should default to MODERATE, got %s", draft.RiskTolerance)
	}
}

func TestCreateBusinessValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestBusinessService(newMemStore(), newMemSummaryCache())
	neg := -1

	cases := []struct {
		name string
		in   BusinessInput
	}{
		{"missing industry", BusinessInput{AnnualRevenue: "100"}},
		{"garbage revenue", BusinessInput{Industry: "retail", AnnualRevenue: "abc"}},
		{"negative revenue", BusinessInput{Industry: "retail", AnnualRevenue: "-100"}},
		{"negative employees", BusinessInput{Industry: "retail", AnnualRevenue: "100", Employees: &neg}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Create(ctx, "owner-1", "FREE", tc.in); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// Empty revenue is a zero, not an error.
	b, err := s.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail"})
	if err != nil {
		t.Fatalf("empty revenue should create: %v", err)
	}
	if !b.AnnualRevenue.IsZero() {
		t.Fatalf("expected zero revenue, got %s", b.AnnualRevenue)
	}
}

func TestCreateBusinessPlanLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestBusinessService(newMemStore(), newMemSummaryCache())

	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail"}); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}
	if _, err := s.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail"}); !domain.IsValidation(err) {
		t.Fatalf("fourth FREE business should hit the plan limit, got %v", err)
	}

	// ENTERPRISE is unlimited; another owner's count never interferes.
	for i := 0; i < 5; i++ {
		if _, err := s.Create(ctx, "owner-2", "ENTERPRISE", BusinessInput{Industry: "retail"}); err != nil {
			t.Fatalf("enterprise create %d failed: %v", i, err)
		}
	}
}

func TestBusinessOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestBusinessService(store, newMemSummaryCache())

	b, err := s.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail", AnnualRevenue: "500000"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Another user sees not-found, never permission-denied.
	if _, err := s.Get(ctx, "owner-2", b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if err := s.Delete(ctx, "owner-2", b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on foreign delete, got %v", err)
	}
	if _, err := s.Update(ctx, "owner-2", b.ID, BusinessInput{Industry: "retail"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on foreign update, got %v", err)
	}

	// The record is untouched for its owner.
	if _, err := s.Get(ctx, "owner-1", b.ID); err != nil {
		t.Fatalf("owner lost access: %v", err)
	}
}

func TestMutationsInvalidateSummaryCache(t *testing.T) {
	ctx := context.Background()
	cache := newMemSummaryCache()
	s := newTestBusinessService(newMemStore(), cache)

	cache.Set(ctx, "owner-1", &domain.DashboardSummary{ActiveAnalyses: 99})

	b, err := s.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, ok := cache.Get(ctx, "owner-1"); ok {
		t.Fatalf("create must drop the cached summary")
	}

	cache.Set(ctx, "owner-1", &domain.DashboardSummary{ActiveAnalyses: 99})
	if err := s.Delete(ctx, "owner-1", b.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := cache.Get(ctx, "owner-1"); ok {
		t.Fatalf("delete must drop the cached summary")
	}
}

func TestDeleteCascadesAnalyses(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestBusinessService(store, newMemSummaryCache())

	b, err := s.Create(ctx, "owner-1", "FREE", BusinessInput{Industry: "retail"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.Delete(ctx, "owner-1", b.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	analyses, err := analysisView{store}.ListByBusiness(ctx, "owner-1", b.ID)
	if err != nil {
		t.Fatalf("list analyses failed: %v", err)
	}
	if len(analyses) != 0 {
		t.Fatalf("expected cascade delete of analyses, got %d", len(analyses))
	}
}
