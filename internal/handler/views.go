package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cashflowpro/cashflowpro/internal/domain"
)

// businessView is the wire shape of a business record.
type businessView struct {
	ID            string          `json:"id"`
	Industry      string          `json:"industry"`
	CompanyName   string          `json:"companyName,omitempty"`
	AnnualRevenue decimal.Decimal `json:"annualRevenue"`
	Employees     *int            `json:"employees,omitempty"`
	Location      string          `json:"location,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func viewBusiness(b *domain.Business) businessView {
	return businessView{
		ID:            b.ID,
		Industry:      b.Industry,
		CompanyName:   b.CompanyName,
		AnnualRevenue: b.AnnualRevenue,
		Employees:     b.Employees,
		Location:      b.Location,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// analysisView is the wire shape of an analysis record. Input figures
// and derived outputs are null until the engine has run.
type analysisView struct {
	ID         string `json:"id"`
	BusinessID string `json:"businessId"`
	Status     string `json:"status"`

	RiskTolerance string `json:"riskTolerance"`

	GrossRevenue      *decimal.Decimal `json:"grossRevenue"`
	OperatingExpenses *decimal.Decimal `json:"operatingExpenses"`
	DebtPayments      *decimal.Decimal `json:"debtPayments"`
	OwnerCompensation *decimal.Decimal `json:"ownerCompensation"`
	TaxObligations    *decimal.Decimal `json:"taxObligations"`

	DiscretionaryCashFlow *decimal.Decimal `json:"discretionaryCashFlow"`
	RecommendedPremium    *decimal.Decimal `json:"recommendedPremium"`
	AffordabilityScore    *int             `json:"affordabilityScore"`
	Recommendation        *string          `json:"recommendation"`

	ReportGeneratedAt *time.Time `json:"reportGeneratedAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func viewAnalysis(a *domain.Analysis) analysisView {
	return analysisView{
		ID:                    a.ID,
		BusinessID:            a.BusinessID,
		Status:                string(a.Status),
		RiskTolerance:         string(a.RiskTolerance),
		GrossRevenue:          a.GrossRevenue,
		OperatingExpenses:     a.OperatingExpenses,
		DebtPayments:          a.DebtPayments,
		OwnerCompensation:     a.OwnerCompensation,
		TaxObligations:        a.TaxObligations,
		DiscretionaryCashFlow: a.DiscretionaryCashFlow,
		RecommendedPremium:    a.RecommendedPremium,
		AffordabilityScore:    a.AffordabilityScore,
		Recommendation:        a.Recommendation,
		ReportGeneratedAt:     a.ReportGeneratedAt,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

// businessWithAnalysisView pairs a business with its latest analysis.
type businessWithAnalysisView struct {
	businessView
	LatestAnalysis analysisView `json:"latestAnalysis"`
}

func viewBusinessWithAnalysis(item *domain.BusinessWithAnalysis) businessWithAnalysisView {
	return businessWithAnalysisView{
		businessView:   viewBusiness(&item.Business),
		LatestAnalysis: viewAnalysis(&item.Latest),
	}
}

// userView is the wire shape of an account; the password hash never
// leaves the server.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewUser(u *domain.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Plan:      string(u.Plan),
		CreatedAt: u.CreatedAt,
	}
}
