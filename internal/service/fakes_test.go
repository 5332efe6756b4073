package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cashflowpro/cashflowpro/internal/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.User{}
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

// memStore backs both the business and analysis repository interfaces,
// mirroring the ownership filtering the SQL layer applies.
type memStore struct {
	mu         sync.Mutex
	businesses map[string]*domain.Business
	analyses   map[string]*domain.Analysis
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		businesses: map[string]*domain.Business{},
		analyses:   map[string]*domain.Analysis{},
		clock:      time.Now(),
	}
}

// tick returns strictly increasing timestamps so ordering by updated_at
// is deterministic in tests.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) Create(_ context.Context, b *domain.Business, draft *domain.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	b.CreatedAt, b.UpdatedAt = now, now
	draft.CreatedAt, draft.UpdatedAt = now, now
	m.businesses[b.ID] = b
	m.analyses[draft.ID] = draft
	return nil
}

func (m *memStore) GetByID(_ context.Context, ownerID, id string) (*domain.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.businesses[id]; ok && b.OwnerID == ownerID {
		return b, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) latest(businessID string) domain.Analysis {
	var latest *domain.Analysis
	for _, a := range m.analyses {
		if a.BusinessID != businessID {
			continue
		}
		if latest == nil || a.UpdatedAt.After(latest.UpdatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return domain.Analysis{}
	}
	return *latest
}

func (m *memStore) ownedWithAnalysis(ownerID string) []*domain.BusinessWithAnalysis {
	out := []*domain.BusinessWithAnalysis{}
	for _, b := range m.businesses {
		if b.OwnerID != ownerID {
			continue
		}
		out = append(out, &domain.BusinessWithAnalysis{Business: *b, Latest: m.latest(b.ID)})
	}
	return out
}

func (m *memStore) ListByOwner(_ context.Context, ownerID string) ([]*domain.BusinessWithAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ownedWithAnalysis(ownerID)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Business.CreatedAt.After(out[j].Business.CreatedAt)
	})
	return out, nil
}

func (m *memStore) RecentActivity(_ context.Context, ownerID string, limit int) ([]*domain.BusinessWithAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ownedWithAnalysis(ownerID)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Business.UpdatedAt.After(out[j].Business.UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, ownerID string, b *domain.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.businesses[b.ID]
	if !ok || existing.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	b.UpdatedAt = m.tick()
	m.businesses[b.ID] = b
	return nil
}

func (m *memStore) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.businesses[id]
	if !ok || b.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(m.businesses, id)
	for aid, a := range m.analyses {
		if a.BusinessID == id {
			delete(m.analyses, aid)
		}
	}
	return nil
}

func (m *memStore) CountByOwner(_ context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.businesses {
		if b.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.businesses), nil
}

func (m *memStore) Summarize(_ context.Context, ownerID string) (*domain.DashboardSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &domain.DashboardSummary{}
	for _, b := range m.businesses {
		if b.OwnerID != ownerID {
			continue
		}
		s.ActiveAnalyses++
		s.TotalRevenue = s.TotalRevenue.Add(b.AnnualRevenue)
	}
	for _, a := range m.analyses {
		if a.OwnerID != ownerID {
			continue
		}
		if a.Status == domain.StatusAnalyzed || a.Status == domain.StatusReported {
			s.ReportsGenerated++
		}
	}
	return s, nil
}

func (m *memStore) GetAnalysis(_ context.Context, ownerID, id string) (*domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.analyses[id]; ok && a.OwnerID == ownerID {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

// GetByID on the analysis side shares the name with the business side,
// so memStore is split into two views below.

func (m *memStore) ListByBusiness(_ context.Context, ownerID, businessID string) ([]*domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Analysis{}
	for _, a := range m.analyses {
		if a.OwnerID == ownerID && a.BusinessID == businessID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) SaveRun(_ context.Context, ownerID, id string, run *domain.AnalysisRun) (*domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok || a.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	gross, expenses := run.GrossRevenue, run.OperatingExpenses
	debt, comp, tax := run.DebtPayments, run.OwnerCompensation, run.TaxObligations
	dcf, premium := run.DiscretionaryCashFlow, run.RecommendedPremium
	score, rec := run.AffordabilityScore, run.Recommendation

	a.RiskTolerance = run.RiskTolerance
	a.GrossRevenue = &gross
	a.OperatingExpenses = &expenses
	a.DebtPayments = &debt
	a.OwnerCompensation = &comp
	a.TaxObligations = &tax
	a.DiscretionaryCashFlow = &dcf
	a.RecommendedPremium = &premium
	a.AffordabilityScore = &score
	a.Recommendation = &rec
	a.Status = domain.StatusAnalyzed
	a.UpdatedAt = m.tick()

	cp := *a
	return &cp, nil
}

func (m *memStore) SetStatus(_ context.Context, ownerID, id string, status domain.AnalysisStatus) (*domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok || a.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	a.Status = status
	if status == domain.StatusReported && a.ReportGeneratedAt == nil {
		t := m.tick()
		a.ReportGeneratedAt = &t
	}
	a.UpdatedAt = m.tick()
	cp := *a
	return &cp, nil
}

func (m *memStore) CountByStatus(_ context.Context) (map[domain.AnalysisStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.AnalysisStatus]int{}
	for _, a := range m.analyses {
		out[a.Status]++
	}
	return out, nil
}

// analysisView exposes memStore through the analysis repository
// interface, whose GetByID signature collides with the business one.
type analysisView struct{ *memStore }

func (v analysisView) GetByID(ctx context.Context, ownerID, id string) (*domain.Analysis, error) {
	return v.GetAnalysis(ctx, ownerID, id)
}

type memSummaryCache struct {
	mu      sync.Mutex
	data    map[string]*domain.DashboardSummary
	hits    int
	deletes int
}

func newMemSummaryCache() *memSummaryCache {
	return &memSummaryCache{data: map[string]*domain.DashboardSummary{}}
}

func (c *memSummaryCache) Get(_ context.Context, ownerID string) (*domain.DashboardSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.data[ownerID]; ok {
		c.hits++
		return s, true
	}
	return nil, false
}

func (c *memSummaryCache) Set(_ context.Context, ownerID string, s *domain.DashboardSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[ownerID] = s
}

func (c *memSummaryCache) Delete(_ context.Context, ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, ownerID)
	c.deletes++
}

type memReportStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func newMemReportStore() *memReportStore {
	return &memReportStore{objects: map[string][]byte{}}
}

func (s *memReportStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", errors.New("store down")
	}
	s.objects[key] = data
	return "mem://" + key, nil
}

func (s *memReportStore) Fetch(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.objects[key]; ok {
		return data, nil
	}
	return nil, errors.New("no such object")
}
