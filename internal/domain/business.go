package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Business is one user's subject company. The owner is fixed at creation;
// every read and write is scoped to it.
type Business struct {
	ID            string
	OwnerID       string
	Industry      string
	CompanyName   string
	AnnualRevenue decimal.Decimal
	Employees     *int
	Location      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BusinessWithAnalysis pairs a business with its most recently updated
// analysis. Every business has at least one analysis; the newest one
// represents its current lifecycle state.
type BusinessWithAnalysis struct {
	Business Business
	Latest   Analysis
}

// DashboardSummary is the read-only fold over a user's record set.
type DashboardSummary struct {
	ActiveAnalyses   int             `json:"activeAnalyses"`
	ReportsGenerated int             `json:"reportsGenerated"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
}

// BusinessRepository defines owner-scoped data access for businesses.
// Every method takes the owner id and must filter by it; a record owned
// by someone else is indistinguishable from a missing one.
type BusinessRepository interface {
	// Create inserts the business and its paired draft analysis in one
	// transaction.
	Create(ctx context.Context, business *Business, draft *Analysis) error
	GetByID(ctx context.Context, ownerID, id string) (*Business, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*BusinessWithAnalysis, error)
	Update(ctx context.Context, ownerID string, business *Business) error
	Delete(ctx context.Context, ownerID, id string) error
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Summarize(ctx context.Context, ownerID string) (*DashboardSummary, error)
	RecentActivity(ctx context.Context, ownerID string, limit int) ([]*BusinessWithAnalysis, error)
	// Count is a global aggregate used only for operational gauges.
	Count(ctx context.Context) (int, error)
}

// SummaryCache holds derived dashboard summaries keyed by owner. Both the
// Redis-backed and the in-process implementation satisfy it.
type SummaryCache interface {
	Get(ctx context.Context, ownerID string) (*DashboardSummary, bool)
	Set(ctx context.Context, ownerID string, summary *DashboardSummary)
	Delete(ctx context.Context, ownerID string)
}

// ReportStore persists generated affordability report documents.
type ReportStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// ValidateEmployees rejects a negative headcount.
func ValidateEmployees(n *int) error {
	if n != nil && *n < 0 {
		return NewValidationError("employees must not be negative")
	}
	return nil
}

func (b *Business) String() string {
	return fmt.Sprintf("business %s (%s)", b.ID, b.Industry)
}
