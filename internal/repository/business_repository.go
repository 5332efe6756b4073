package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cashflowpro/cashflowpro/internal/domain"
)

const businessColumns = `b.id, b.owner_id, b.industry, b.company_name, b.annual_revenue,
	b.employees, b.location, b.created_at, b.updated_at`

// latestAnalysisJoin attaches each business's most recently updated
// analysis. The pairing invariant guarantees at least one exists.
const latestAnalysisJoin = `
	JOIN LATERAL (
		SELECT ` + analysisColumns + `
		FROM analyses a
		WHERE a.business_id = b.id
		ORDER BY a.updated_at DESC
		LIMIT 1
	) a ON true`

// PostgresBusinessRepository implements domain.BusinessRepository using
// PostgreSQL. Every record query filters by owner id.
type PostgresBusinessRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresBusinessRepository creates a new business repository.
func NewPostgresBusinessRepository(db *sql.DB, logger *slog.Logger) *PostgresBusinessRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBusinessRepository{db: db, logger: logger}
}

func scanBusiness(row rowScanner, b *domain.Business) error {
	var employees sql.NullInt64
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Industry, &b.CompanyName, &b.AnnualRevenue,
		&employees, &b.Location, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if employees.Valid {
		n := int(employees.Int64)
		b.Employees = &n
	}
	return nil
}

// Create inserts the business and its paired DRAFT analysis in one
// transaction. Either both rows land or neither does.
func (r *PostgresBusinessRepository) Create(ctx context.Context, business *domain.Business, draft *domain.Analysis) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin create business: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	var employees any
	if business.Employees != nil {
		employees = *business.Employees
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO businesses (id, owner_id, industry, company_name, annual_revenue, employees, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`,
		business.ID, business.OwnerID, business.Industry, business.CompanyName,
		business.AnnualRevenue, employees, business.Location,
	).Scan(&business.CreatedAt, &business.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to insert business",
			slog.String("owner_id", business.OwnerID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: insert business: %v", domain.ErrPersistence, err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO analyses (id, business_id, owner_id, status, risk_tolerance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`,
		draft.ID, business.ID, business.OwnerID, domain.StatusDraft, domain.RiskModerate,
	).Scan(&draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert draft analysis: %v", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit create business: %v", domain.ErrPersistence, err)
	}
	return nil
}

// GetByID retrieves an owned business.
func (r *PostgresBusinessRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses b WHERE b.id = $1 AND b.owner_id = $2`

	b := &domain.Business{}
	if err := scanBusiness(r.db.QueryRowContext(ctx, query, id, ownerID), b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get business: %v", domain.ErrPersistence, err)
	}
	return b, nil
}

// ListByOwner returns the owner's businesses with their latest analysis,
// newest created first.
func (r *PostgresBusinessRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.BusinessWithAnalysis, error) {
	query := `
		SELECT ` + businessColumns + `, ` + analysisColumns + `
		FROM businesses b` + latestAnalysisJoin + `
		WHERE b.owner_id = $1
		ORDER BY b.created_at DESC
	`
	return r.queryWithAnalysis(ctx, query, ownerID)
}

// RecentActivity returns the most recently updated owned businesses with
// their latest analysis, newest updated first.
func (r *PostgresBusinessRepository) RecentActivity(ctx context.Context, ownerID string, limit int) ([]*domain.BusinessWithAnalysis, error) {
	query := `
		SELECT ` + businessColumns + `, ` + analysisColumns + `
		FROM businesses b` + latestAnalysisJoin + `
		WHERE b.owner_id = $1
		ORDER BY b.updated_at DESC
		LIMIT $2
	`
	return r.queryWithAnalysis(ctx, query, ownerID, limit)
}

func (r *PostgresBusinessRepository) queryWithAnalysis(ctx context.Context, query string, args ...any) ([]*domain.BusinessWithAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list businesses: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var out []*domain.BusinessWithAnalysis
	for rows.Next() {
		item := &domain.BusinessWithAnalysis{}
		var employees sql.NullInt64
		var (
			gross, expenses, debt, comp, tax nullDecimalScan
			dcf, premium                     nullDecimalScan
			score                            sql.NullInt64
			recommendation                   sql.NullString
			reportedAt                       sql.NullTime
		)
		b := &item.Business
		a := &item.Latest
		err := rows.Scan(
			&b.ID, &b.OwnerID, &b.Industry, &b.CompanyName, &b.AnnualRevenue,
			&employees, &b.Location, &b.CreatedAt, &b.UpdatedAt,
			&a.ID, &a.BusinessID, &a.OwnerID, &a.Status, &a.RiskTolerance,
			&gross, &expenses, &debt, &comp, &tax,
			&dcf, &premium, &score, &recommendation,
			&reportedAt, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan business row: %v", domain.ErrPersistence, err)
		}
		if employees.Valid {
			n := int(employees.Int64)
			b.Employees = &n
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
		out = append(out, item)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields of an owned business.
func (r *PostgresBusinessRepository) Update(ctx context.Context, ownerID string, business *domain.Business) error {
	var employees any
	if business.Employees != nil {
		employees = *business.Employees
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE businesses
		SET industry = $1, company_name = $2, annual_revenue = $3, employees = $4, location = $5, updated_at = now()
		WHERE id = $6 AND owner_id = $7
	`,
		business.Industry, business.CompanyName, business.AnnualRevenue,
		employees, business.Location, business.ID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("%w: update business: %v", domain.ErrPersistence, err)
	}
	return requireRow(res)
}

// Delete removes an owned business; analyses cascade.
func (r *PostgresBusinessRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("%w: delete business: %v", domain.ErrPersistence, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", domain.ErrPersistence, err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByOwner returns how many businesses the owner has; used for plan
// limit checks.
func (r *PostgresBusinessRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses WHERE owner_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count businesses: %v", domain.ErrPersistence, err)
	}
	return n, nil
}

// Count returns the global business count for operational gauges.
func (r *PostgresBusinessRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count businesses: %v", domain.ErrPersistence, err)
	}
	return n, nil
}

// Summarize folds the owner's record set into dashboard counters.
func (r *PostgresBusinessRepository) Summarize(ctx context.Context, ownerID string) (*domain.DashboardSummary, error) {
	s := &domain.DashboardSummary{}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(annual_revenue), 0)
		FROM businesses
		WHERE owner_id = $1
	`, ownerID).Scan(&s.ActiveAnalyses, &s.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("%w: summarize businesses: %v", domain.ErrPersistence, err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM analyses
		WHERE owner_id = $1 AND status IN ('ANALYZED', 'REPORTED')
	`, ownerID).Scan(&s.ReportsGenerated)
	if err != nil {
		return nil, fmt.Errorf("%w: summarize analyses: %v", domain.ErrPersistence, err)
	}

	return s, nil
}
