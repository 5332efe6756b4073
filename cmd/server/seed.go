package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/engine"
)

const (
	demoEmail    = "demo@cashflowpro.com"
	demoPassword = "demo123"
)

type seedBusiness struct {
	industry      string
	companyName   string
	annualRevenue int64
	employees     int
	location      string
	status        domain.AnalysisStatus

	// zero figures mean the analysis has not been run
	gross, expenses, debt, comp, tax int64
}

var seedBusinesses = []seedBusiness{
	{
		industry: "Technology", companyName: "TechCorp Solutions",
		annualRevenue: 2500000, employees: 45, location: "San Francisco, CA",
		status: domain.StatusAnalyzed,
		gross:  2500000, expenses: 1200000, debt: 150000, comp: 250000, tax: 300000,
	},
	{
		industry: "Hospitality", companyName: "Island Resort Group",
		annualRevenue: 1800000, employees: 120, location: "Honolulu, HI",
		status: domain.StatusReported,
		gross:  1800000, expenses: 950000, debt: 200000, comp: 180000, tax: 220000,
	},
	{
		industry: "Construction", companyName: "BuildRight Contractors",
		annualRevenue: 5200000, employees: 85, location: "Austin, TX",
		status: domain.StatusAnalyzed,
		gross:  5200000, expenses: 3100000, debt: 450000, comp: 350000, tax: 520000,
	},
	{
		industry: "Healthcare", companyName: "Wellness Medical Center",
		annualRevenue: 3100000, employees: 65, location: "Denver, CO",
		status: domain.StatusDraft,
	},
	{
		industry: "Manufacturing", companyName: "Precision Parts Inc",
		annualRevenue: 4200000, employees: 150, location: "Detroit, MI",
		status: domain.StatusInProgress,
	},
}

// seedDemoData creates the demo account and its sample businesses.
// Running twice is a no-op: the seed is skipped once the demo user
// exists.
func seedDemoData(
	ctx context.Context,
	log *slog.Logger,
	userRepo domain.UserRepository,
	businessRepo domain.BusinessRepository,
	analysisRepo domain.AnalysisRepository,
) error {
	if _, err := userRepo.GetByEmail(ctx, demoEmail); err == nil {
		log.Info("demo data already seeded")
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check demo user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), 12)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        demoEmail,
		Name:         "Demo User",
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Plan:         domain.PlanEnterprise,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}

	for _, sb := range seedBusinesses {
		employees := sb.employees
		business := &domain.Business{
			ID:            uuid.NewString(),
			OwnerID:       user.ID,
			Industry:      sb.industry,
			CompanyName:   sb.companyName,
			AnnualRevenue: decimal.NewFromInt(sb.annualRevenue),
			Employees:     &employees,
			Location:      sb.location,
		}
		draft := &domain.Analysis{
			ID:            uuid.NewString(),
			BusinessID:    business.ID,
			OwnerID:       user.ID,
			Status:        domain.StatusDraft,
			RiskTolerance: domain.RiskModerate,
		}
		if err := businessRepo.Create(ctx, business, draft); err != nil {
			return fmt.Errorf("seed business %s: %w", sb.companyName, err)
		}

		if sb.gross > 0 {
			inputs := engine.Inputs{
				GrossRevenue:      decimal.NewFromInt(sb.gross),
				OperatingExpenses: decimal.NewFromInt(sb.expenses),
				DebtPayments:      decimal.NewFromInt(sb.debt),
				OwnerCompensation: decimal.NewFromInt(sb.comp),
				TaxObligations:    decimal.NewFromInt(sb.tax),
			}
			result := engine.Run(inputs, domain.RiskModerate)
			run := &domain.AnalysisRun{
				RiskTolerance:         domain.RiskModerate,
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
			if _, err := analysisRepo.SaveRun(ctx, user.ID, draft.ID, run); err != nil {
				return fmt.Errorf("seed analysis for %s: %w", sb.companyName, err)
			}
		}

		if sb.status != domain.StatusDraft && sb.status != domain.StatusAnalyzed {
			if _, err := analysisRepo.SetStatus(ctx, user.ID, draft.ID, sb.status); err != nil {
				return fmt.Errorf("seed status for %s: %w", sb.companyName, err)
			}
		}

		log.Info("seeded business", slog.String("company", sb.companyName))
	}

	log.Info("demo data seeded", slog.String("email", demoEmail))
	return nil
}
