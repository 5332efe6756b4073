package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/shopspring/decimal"
)

// analysisColumns is the full column list shared by every query that
// returns an analysis row. Keep in sync with scanAnalysis.
const analysisColumns = `a.id, a.business_id, a.owner_id, a.status, a.risk_tolerance,
	a.gross_revenue, a.operating_expenses, a.debt_payments, a.owner_compensation, a.tax_obligations,
	a.discretionary_cash_flow, a.recommended_premium, a.affordability_score, a.recommendation,
	a.report_generated_at, a.created_at, a.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// nullDecimalScan embeds decimal.NullDecimal so nullable NUMERIC columns
// scan directly and convert to the domain's pointer form.
type nullDecimalScan struct {
	decimal.NullDecimal
}

func (n nullDecimalScan) ptr() *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	a := &domain.Analysis{}
	var (
		gross, expenses, debt, comp, tax nullDecimalScan
		dcf, premium                     nullDecimalScan
		score                            sql.NullInt64
		recommendation                   sql.NullString
		reportedAt                       sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.BusinessID, &a.OwnerID, &a.Status, &a.RiskTolerance,
		&gross, &expenses, &debt, &comp, &tax,
		&dcf, &premium, &score, &recommendation,
		&reportedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.GrossRevenue = gross.ptr()
	a.OperatingExpenses = expenses.ptr()
	a.DebtPayments = debt.ptr()
	a.OwnerCompensation = comp.ptr()
	a.TaxObligations = tax.ptr()
	a.DiscretionaryCashFlow = dcf.ptr()
	a.RecommendedPremium = premium.ptr()
	if score.Valid {
		v := int(score.Int64)
		a.AffordabilityScore = &v
	}
	if recommendation.Valid {
		a.Recommendation = &recommendation.String
	}
	if reportedAt.Valid {
		t := reportedAt.Time
		a.ReportGeneratedAt = &t
	}
	return a, nil
}

// PostgresAnalysisRepository implements domain.AnalysisRepository using
// PostgreSQL. Every record query filters by owner id; a mismatch scans
// zero rows and surfaces as not found.
type PostgresAnalysisRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAnalysisRepository creates a new analysis repository.
func NewPostgresAnalysisRepository(db *sql.DB, logger *slog.Logger) *PostgresAnalysisRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAnalysisRepository{db: db, logger: logger}
}

// GetByID retrieves an owned analysis.
func (r *PostgresAnalysisRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses a WHERE a.id = $1 AND a.owner_id = $2`

	a, err := scanAnalysis(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get analysis: %v", domain.ErrPersistence, err)
	}
	return a, nil
}

// ListByBusiness returns all analyses of an owned business, newest first.
func (r *PostgresAnalysisRepository) ListByBusiness(ctx context.Context, ownerID, businessID string) ([]*domain.Analysis, error) {
	query := `
		SELECT ` + analysisColumns + `
		FROM analyses a
		WHERE a.business_id = $1 AND a.owner_id = $2
		ORDER BY a.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, businessID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list analyses: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan analysis: %v", domain.ErrPersistence, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveRun writes the inputs, the derived group and the ANALYZED status in
// a single statement. Inputs and outputs always land together; under
// concurrent runs the last writer wins.
func (r *PostgresAnalysisRepository) SaveRun(ctx context.Context, ownerID, id string, run *domain.AnalysisRun) (*domain.Analysis, error) {
	query := `
		UPDATE analyses a SET
			status = 'ANALYZED',
			risk_tolerance = $1,
			gross_revenue = $2,
			operating_expenses = $3,
			debt_payments = $4,
			owner_compensation = $5,
			tax_obligations = $6,
			discretionary_cash_flow = $7,
			recommended_premium = $8,
			affordability_score = $9,
			recommendation = $10,
			updated_at = now()
		WHERE a.id = $11 AND a.owner_id = $12
		RETURNING ` + analysisColumns

	a, err := scanAnalysis(r.db.QueryRowContext(ctx, query,
		run.RiskTolerance,
		run.GrossRevenue,
		run.OperatingExpenses,
		run.DebtPayments,
		run.OwnerCompensation,
		run.TaxObligations,
		run.DiscretionaryCashFlow,
		run.RecommendedPremium,
		run.AffordabilityScore,
		run.Recommendation,
		id, ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to save analysis run",
			slog.String("analysis_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: save analysis run: %v", domain.ErrPersistence, err)
	}
	return a, nil
}

// SetStatus moves an owned analysis to the given status. Entering
// REPORTED stamps report_generated_at exactly once (first write wins);
// leaving REPORTED does not clear it.
func (r *PostgresAnalysisRepository) SetStatus(ctx context.Context, ownerID, id string, status domain.AnalysisStatus) (*domain.Analysis, error) {
	query := `
		UPDATE analyses a SET
			status = $1,
			report_generated_at = CASE
				WHEN $1 = 'REPORTED' THEN COALESCE(a.report_generated_at, now())
				ELSE a.report_generated_at
			END,
			updated_at = now()
		WHERE a.id = $2 AND a.owner_id = $3
		RETURNING ` + analysisColumns

	a, err := scanAnalysis(r.db.QueryRowContext(ctx, query, status, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: set analysis status: %v", domain.ErrPersistence, err)
	}
	return a, nil
}

// CountByStatus returns global analysis counts per status for the stats
// worker gauges.
func (r *PostgresAnalysisRepository) CountByStatus(ctx context.Context) (map[domain.AnalysisStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM analyses GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: count analyses: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	counts := map[domain.AnalysisStatus]int{}
	for rows.Next() {
		var status domain.AnalysisStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: scan status count: %v", domain.ErrPersistence, err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
