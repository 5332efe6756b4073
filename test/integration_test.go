package test

import (
	"net/http"
	"testing"
)

type businessResponse struct {
	ID             string `json:"id"`
	Industry       string `json:"industry"`
	CompanyName    string `json:"companyName"`
	LatestAnalysis struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"latestAnalysis"`
}

type analysisResponse struct {
	ID                    string  `json:"id"`
	Status                string  `json:"status"`
	RiskTolerance         string  `json:"riskTolerance"`
	DiscretionaryCashFlow *string `json:"discretionaryCashFlow"`
	RecommendedPremium    *string `json:"recommendedPremium"`
	AffordabilityScore    *int    `json:"affordabilityScore"`
	Recommendation        *string `json:"recommendation"`
	ReportGeneratedAt     *string `json:"reportGeneratedAt"`
}

func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/healthz")
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp := server.DoJSON(t, http.MethodGet, "/api/businesses", "", nil, nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

func TestFullAnalysisLifecycle(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	token := server.RegisterUser(t, "owner@example.com", "password123")

	// Create a business; a DRAFT analysis comes with it.
	var created businessResponse
	resp := server.DoJSON(t, http.MethodPost, "/api/businesses", token, map[string]any{
		"industry":      "restaurant",
		"companyName":   "Blue Plate Diner",
		"annualRevenue": "$1,000,000",
		"employees":     12,
	}, &created)
	AssertStatusCode(t, resp, http.StatusCreated)

	var listed []businessResponse
	resp = server.DoJSON(t, http.MethodGet, "/api/businesses", token, nil, &listed)
	AssertStatusCode(t, resp, http.StatusOK)
	if len(listed) != 1 {
		t.Fatalf("expected 1 business, got %d", len(listed))
	}
	if listed[0].LatestAnalysis.Status != "DRAFT" {
		t.Fatalf("new business must carry a DRAFT analysis, got %s", listed[0].LatestAnalysis.Status)
	}
	analysisID := listed[0].LatestAnalysis.ID

	// Run the affordability engine.
	var ran analysisResponse
	resp = server.DoJSON(t, http.MethodPost, "/api/analyses/"+analysisID+"/run", token, map[string]string{
		"riskTolerance":     "MODERATE",
		"grossRevenue":      "1000000",
		"operatingExpenses": "400000",
		"debtPayments":      "100000",
		"ownerCompensation": "150000",
		"taxObligations":    "100000",
	}, &ran)
	AssertStatusCode(t, resp, http.StatusOK)
	if ran.Status != "ANALYZED" {
		t.Fatalf("run must land in ANALYZED, got %s", ran.Status)
	}
	if ran.AffordabilityScore == nil || *ran.AffordabilityScore != 50 {
		t.Fatalf("score = %v, want 50", ran.AffordabilityScore)
	}
	if ran.DiscretionaryCashFlow == nil || *ran.DiscretionaryCashFlow != "250000" {
		t.Fatalf("dcf = %v, want 250000", ran.DiscretionaryCashFlow)
	}

	// Mark it REPORTED; the report timestamp is stamped once.
	var reported analysisResponse
	resp = server.DoJSON(t, http.MethodPatch, "/api/analyses/"+analysisID+"/status", token,
		map[string]string{"status": "REPORTED"}, &reported)
	AssertStatusCode(t, resp, http.StatusOK)
	if reported.Status != "REPORTED" || reported.ReportGeneratedAt == nil {
		t.Fatalf("expected stamped REPORTED analysis, got %+v", reported)
	}
	stamp := *reported.ReportGeneratedAt

	resp = server.DoJSON(t, http.MethodPatch, "/api/analyses/"+analysisID+"/status", token,
		map[string]string{"status": "IN_PROGRESS"}, nil)
	AssertStatusCode(t, resp, http.StatusOK)

	var again analysisResponse
	resp = server.DoJSON(t, http.MethodPatch, "/api/analyses/"+analysisID+"/status", token,
		map[string]string{"status": "REPORTED"}, &again)
	AssertStatusCode(t, resp, http.StatusOK)
	if again.ReportGeneratedAt == nil || *again.ReportGeneratedAt != stamp {
		t.Fatalf("report timestamp must be first-write-wins: %v vs %v", again.ReportGeneratedAt, stamp)
	}

	// Dashboard reflects the record set.
	var summary struct {
		ActiveAnalyses   int    `json:"activeAnalyses"`
		ReportsGenerated int    `json:"reportsGenerated"`
		TotalRevenue     string `json:"totalRevenue"`
	}
	resp = server.DoJSON(t, http.MethodGet, "/api/dashboard/summary", token, nil, &summary)
	AssertStatusCode(t, resp, http.StatusOK)
	if summary.ActiveAnalyses != 1 || summary.ReportsGenerated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.TotalRevenue != "1000000" {
		t.Fatalf("revenue = %s, want 1000000", summary.TotalRevenue)
	}

	var feed []struct {
		CompanyName string `json:"companyName"`
		Action      string `json:"action"`
		Amount      string `json:"amount"`
	}
	resp = server.DoJSON(t, http.MethodGet, "/api/dashboard/activity?limit=5", token, nil, &feed)
	AssertStatusCode(t, resp, http.StatusOK)
	if len(feed) != 1 {
		t.Fatalf("expected 1 feed item, got %d", len(feed))
	}
	if feed[0].Amount != "$1,000,000" || feed[0].Action != "Report generated" {
		t.Fatalf("unexpected feed row: %+v", feed[0])
	}
}

func TestCrossUserIsolation(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	ownerToken := server.RegisterUser(t, "owner@example.com", "password123")
	otherToken := server.RegisterUser(t, "other@example.com", "password123")

	var created businessResponse
	resp := server.DoJSON(t, http.MethodPost, "/api/businesses", ownerToken, map[string]any{
		"industry": "retail",
	}, &created)
	AssertStatusCode(t, resp, http.StatusCreated)

	var listed []businessResponse
	server.DoJSON(t, http.MethodGet, "/api/businesses", ownerToken, nil, &listed)
	analysisID := listed[0].LatestAnalysis.ID

	// Every foreign access reads as missing, never as forbidden.
	resp = server.DoJSON(t, http.MethodGet, "/api/businesses/"+created.ID, otherToken, nil, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)

	resp = server.DoJSON(t, http.MethodDelete, "/api/businesses/"+created.ID, otherToken, nil, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)

	resp = server.DoJSON(t, http.MethodGet, "/api/analyses/"+analysisID, otherToken, nil, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)

	resp = server.DoJSON(t, http.MethodPost, "/api/analyses/"+analysisID+"/run", otherToken,
		map[string]string{"grossRevenue": "100"}, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)

	// The other user's own listing is empty.
	var otherList []businessResponse
	resp = server.DoJSON(t, http.MethodGet, "/api/businesses", otherToken, nil, &otherList)
	AssertStatusCode(t, resp, http.StatusOK)
	if len(otherList) != 0 {
		t.Fatalf("foreign records leaked into listing: %d", len(otherList))
	}
}

func TestValidationErrorsMapToBadRequest(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	token := server.RegisterUser(t, "owner@example.com", "password123")

	resp := server.DoJSON(t, http.MethodPost, "/api/businesses", token, map[string]any{
		"annualRevenue": "100",
	}, nil)
	AssertStatusCode(t, resp, http.StatusBadRequest)

	resp = server.DoJSON(t, http.MethodPost, "/api/businesses", token, map[string]any{
		"industry":      "retail",
		"annualRevenue": "not-money",
	}, nil)
	AssertStatusCode(t, resp, http.StatusBadRequest)
}

func TestDuplicateRegistrationGetsGenericClientError(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	server.RegisterUser(t, "owner@example.com", "password123")

	var body struct {
		Error string `json:"error"`
	}
	resp := server.DoJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "owner@example.com",
		"password": "password123",
	}, &body)
	AssertStatusCode(t, resp, http.StatusBadRequest)
	if body.Error != "failed to register user" {
		t.Fatalf("duplicate email must answer with the generic message, got %q", body.Error)
	}
}

func TestAdminEndpointRequiresAdminRole(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	token := server.RegisterUser(t, "user@example.com", "password123")

	resp := server.DoJSON(t, http.MethodGet, "/api/admin/users", token, nil, nil)
	AssertStatusCode(t, resp, http.StatusForbidden)
}

func TestPlanLimitEnforced(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	token := server.RegisterUser(t, "owner@example.com", "password123")

	for i := 0; i < 3; i++ {
		resp := server.DoJSON(t, http.MethodPost, "/api/businesses", token, map[string]any{
			"industry": "retail",
		}, nil)
		AssertStatusCode(t, resp, http.StatusCreated)
	}

	resp := server.DoJSON(t, http.MethodPost, "/api/businesses", token, map[string]any{
		"industry": "retail",
	}, nil)
	AssertStatusCode(t, resp, http.StatusBadRequest)
}
