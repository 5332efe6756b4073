// Package engine computes the affordability verdict for a business. It is
// a pure function of its inputs: no storage, no clock, no side effects.
package engine

import (
	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/shopspring/decimal"
)

// Recommendation band texts, keyed by affordability score thresholds
// (75/50/25). The wording is part of the product contract.
const (
	RecommendationSafe     = "Safe to Proceed - Strong financial position with healthy discretionary cash flow."
	RecommendationModerate = "Moderate Risk - Adequate cash flow, consider conservative premium options."
	RecommendationCaution  = "Caution Advised - Limited discretionary income, recommend thorough review."
	RecommendationHighRisk = "High Risk - Insufficient cash flow for recommended premium levels."
)

// Inputs are the five monetary figures, already normalized to
// non-negative decimals (missing or malformed figures arrive as zero).
type Inputs struct {
	GrossRevenue      decimal.Decimal
	OperatingExpenses decimal.Decimal
	DebtPayments      decimal.Decimal
	OwnerCompensation decimal.Decimal
	TaxObligations    decimal.Decimal
}

// Result is the derived group written atomically to an analysis record.
type Result struct {
	DiscretionaryCashFlow decimal.Decimal
	RecommendedPremium    decimal.Decimal
	AffordabilityScore    int
	Recommendation        string
}

var twoHundred = decimal.NewFromInt(200)

// Run produces the affordability verdict.
//
// DCF may be negative; the recommended premium is deliberately left
// unclamped when it is. The score is round(DCF/gross × 200) with
// half-away-from-zero rounding, clamped to [0, 100]; a zero gross
// revenue scores zero.
func Run(in Inputs, risk domain.RiskTolerance) Result {
	dcf := in.GrossRevenue.
		Sub(in.OperatingExpenses).
		Sub(in.DebtPayments).
		Sub(in.OwnerCompensation).
		Sub(in.TaxObligations)

	premium := dcf.Mul(risk.Multiplier())

	score := 0
	if in.GrossRevenue.IsPositive() {
		ratio := dcf.Div(in.GrossRevenue)
		score = int(ratio.Mul(twoHundred).Round(0).IntPart())
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
	}

	return Result{
		DiscretionaryCashFlow: dcf,
		RecommendedPremium:    premium,
		AffordabilityScore:    score,
		Recommendation:        recommendationFor(score),
	}
}

func recommendationFor(score int) string {
	switch {
	case score >= 75:
		return RecommendationSafe
	case score >= 50:
		return RecommendationModerate
	case score >= 25:
		return RecommendationCaution
	default:
		return RecommendationHighRisk
	}
}
