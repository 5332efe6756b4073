package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AnalysisStatus is the lifecycle state of an analysis record.
type AnalysisStatus string

const (
	StatusDraft      AnalysisStatus = "DRAFT"
	StatusInProgress AnalysisStatus = "IN_PROGRESS"
	StatusAnalyzed   AnalysisStatus = "ANALYZED"
	StatusReported   AnalysisStatus = "REPORTED"
)

// ParseAnalysisStatus validates a status string from the wire.
func ParseAnalysisStatus(s string) (AnalysisStatus, error) {
	switch AnalysisStatus(s) {
	case StatusDraft, StatusInProgress, StatusAnalyzed, StatusReported:
		return AnalysisStatus(s), nil
	}
	return "", NewValidationError("invalid analysis status: " + s)
}

// RiskTolerance selects the multiplier applied to discretionary cash flow
// when deriving the recommended premium.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "CONSERVATIVE"
	RiskModerate     RiskTolerance = "MODERATE"
	RiskAggressive   RiskTolerance = "AGGRESSIVE"
)

var riskMultipliers = map[RiskTolerance]decimal.Decimal{
	RiskConservative: decimal.New(50, -2),  // 0.50
	RiskModerate:     decimal.New(75, -2),  // 0.75
	RiskAggressive:   decimal.New(100, -2), // 1.00
}

// ParseRiskTolerance validates a risk tolerance string. An empty string
// means the caller did not choose, which defaults to MODERATE.
func ParseRiskTolerance(s string) (RiskTolerance, error) {
	if s == "" {
		return RiskModerate, nil
	}
	switch RiskTolerance(s) {
	case RiskConservative, RiskModerate, RiskAggressive:
		return RiskTolerance(s), nil
	}
	return "", NewValidationError("invalid risk tolerance: " + s)
}

// Multiplier returns the premium multiplier for the tolerance band.
func (r RiskTolerance) Multiplier() decimal.Decimal {
	if m, ok := riskMultipliers[r]; ok {
		return m
	}
	return riskMultipliers[RiskModerate]
}

// Analysis is one evaluation run against a business. The five monetary
// inputs and the derived outputs are nullable: derived fields are either
// all present or all null, written as a group by the engine.
type Analysis struct {
	ID         string
	BusinessID string
	OwnerID    string
	Status     AnalysisStatus

	RiskTolerance RiskTolerance

	GrossRevenue      *decimal.Decimal
	OperatingExpenses *decimal.Decimal
	DebtPayments      *decimal.Decimal
	OwnerCompensation *decimal.Decimal
	TaxObligations    *decimal.Decimal

	DiscretionaryCashFlow *decimal.Decimal
	RecommendedPremium    *decimal.Decimal
	AffordabilityScore    *int
	Recommendation        *string

	ReportGeneratedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasResults reports whether the engine has run at least once.
func (a *Analysis) HasResults() bool {
	return a.DiscretionaryCashFlow != nil
}

// AnalysisRun carries the inputs and outputs of one engine run. The
// repository persists all of it plus the ANALYZED status in a single
// statement so the derived-fields-together invariant holds under races.
type AnalysisRun struct {
	RiskTolerance RiskTolerance

	GrossRevenue      decimal.Decimal
	OperatingExpenses decimal.Decimal
	DebtPayments      decimal.Decimal
	OwnerCompensation decimal.Decimal
	TaxObligations    decimal.Decimal

	DiscretionaryCashFlow decimal.Decimal
	RecommendedPremium    decimal.Decimal
	AffordabilityScore    int
	Recommendation        string
}

// AnalysisRepository defines owner-scoped data access for analyses.
type AnalysisRepository interface {
	GetByID(ctx context.Context, ownerID, id string) (*Analysis, error)
	ListByBusiness(ctx context.Context, ownerID, businessID string) ([]*Analysis, error)
	// SaveRun atomically writes inputs, derived outputs and the ANALYZED
	// status, returning the updated record.
	SaveRun(ctx context.Context, ownerID, id string, run *AnalysisRun) (*Analysis, error)
	// SetStatus moves the record to the given status. Entering REPORTED
	// stamps the report timestamp once; it is never refreshed or cleared.
	SetStatus(ctx context.Context, ownerID, id string, status AnalysisStatus) (*Analysis, error)
	// CountByStatus is a global aggregate used only for operational gauges.
	CountByStatus(ctx context.Context) (map[AnalysisStatus]int, error)
}
