package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cashflowpro/cashflowpro/internal/activity"
	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/handler"
	"github.com/cashflowpro/cashflowpro/internal/security"
	"github.com/cashflowpro/cashflowpro/internal/security/audit"
	"github.com/cashflowpro/cashflowpro/internal/security/auth"
	"github.com/cashflowpro/cashflowpro/internal/security/middleware"
	"github.com/cashflowpro/cashflowpro/internal/service"
	"github.com/cashflowpro/cashflowpro/pkg/logging"
)

// TestServerHelper wires the full handler stack over in-memory storage,
// so the API can be exercised end to end without PostgreSQL.
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Hub    *activity.Hub
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := logging.New("error", "test")
	store := newMemStore()
	users := newMemUserRepo()
	cache := newMemSummaryCache()
	hub := activity.NewHub()

	tokenManager := auth.NewTokenManager("integration-test-secret", "cashflowpro")
	planLimits := map[string]int{"FREE": 3, "PRO": 25, "ENTERPRISE": 0}

	authService := service.NewAuthService(users, tokenManager, time.Hour, log)
	businessService := service.NewBusinessService(store, cache, hub, planLimits, log)
	analysisService := service.NewAnalysisService(analysisRepoView{store}, store, nil, cache, hub, log)
	dashboardService := service.NewDashboardService(store, cache, log)

	auditLogger := audit.NewLogger(log)
	authz := security.NewAuthorizationService(log)

	authHandler := handler.NewAuthHandler(authService, log)
	businessHandler := handler.NewBusinessHandler(businessService, analysisService, auditLogger, log)
	analysisHandler := handler.NewAnalysisHandler(analysisService, nil, auditLogger, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)
	activityHandler := handler.NewActivityHandler(hub, tokenManager, nil, log)
	adminHandler := handler.NewAdminHandler(authService, authz, auditLogger, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("GET /api/businesses", businessHandler.List)
	mux.HandleFunc("POST /api/businesses", businessHandler.Create)
	mux.HandleFunc("GET /api/businesses/{id}", businessHandler.Get)
	mux.HandleFunc("PUT /api/businesses/{id}", businessHandler.Update)
	mux.HandleFunc("DELETE /api/businesses/{id}", businessHandler.Delete)
	mux.HandleFunc("GET /api/businesses/{id}/analyses", businessHandler.Analyses)
	mux.HandleFunc("GET /api/analyses/{id}", analysisHandler.Get)
	mux.HandleFunc("POST /api/analyses/{id}/run", analysisHandler.Run)
	mux.HandleFunc("PATCH /api/analyses/{id}/status", analysisHandler.SetStatus)
	mux.HandleFunc("GET /api/dashboard/summary", dashboardHandler.Summary)
	mux.HandleFunc("GET /api/dashboard/activity", dashboardHandler.Activity)
	mux.HandleFunc("GET /api/admin/users", adminHandler.ListUsers)
	mux.Handle("GET /ws/activity", activityHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	root := middleware.JWTMiddleware(tokenManager, log)(mux)
	server := httptest.NewServer(root)

	return &TestServerHelper{Server: server, Logger: log, Hub: hub}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// DoJSON issues a request with an optional bearer token and decodes the
// response body into out (which may be nil).
func (h *TestServerHelper) DoJSON(t *testing.T, method, path, token string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, h.URL()+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

// RegisterUser registers an account and returns its bearer token.
func (h *TestServerHelper) RegisterUser(t *testing.T, email, password string) string {
	t.Helper()

	var result struct {
		Token string `json:"token"`
	}
	resp := h.DoJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	AssertStatusCode(t, resp, http.StatusCreated)
	if result.Token == "" {
		t.Fatalf("registration returned no token")
	}
	return result.Token
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// ---- in-memory storage ----

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

func (m *memStore) getAnalysis(ownerID, id string) (*domain.Analysis, error) {
	if a, ok := m.analyses[id]; ok && a.OwnerID == ownerID {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

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
	a, err := m.getAnalysis(ownerID, id)
	if err != nil {
		return nil, err
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
	a, err := m.getAnalysis(ownerID, id)
	if err != nil {
		return nil, err
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

// analysisRepoView adapts memStore to the analysis repository, whose
// GetByID signature collides with the business one.
type analysisRepoView struct{ *memStore }

func (v analysisRepoView) GetByID(_ context.Context, ownerID, id string) (*domain.Analysis, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.getAnalysis(ownerID, id)
}

type memSummaryCache struct {
	mu   sync.Mutex
	data map[string]*domain.DashboardSummary
}

func newMemSummaryCache() *memSummaryCache {
	return &memSummaryCache{data: map[string]*domain.DashboardSummary{}}
}

func (c *memSummaryCache) Get(_ context.Context, ownerID string) (*domain.DashboardSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.data[ownerID]
	return s, ok
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
}
