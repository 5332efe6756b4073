package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cashflowpro/cashflowpro/internal/security/audit"
	"github.com/cashflowpro/cashflowpro/internal/security/middleware"
	"github.com/cashflowpro/cashflowpro/internal/service"
)

// AnalysisHandler handles engine runs and lifecycle transitions.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	reportService   *service.ReportService // nil when export is disabled
	auditLog        *audit.Logger
	logger          *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(
	analysisService *service.AnalysisService,
	reportService *service.ReportService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		reportService:   reportService,
		auditLog:        auditLog,
		logger:          logger,
	}
}

// Get handles GET /api/analyses/{id}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	analysis, err := h.analysisService.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewAnalysis(analysis))
}

// Run handles POST /api/analyses/{id}/run
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	id := r.PathValue("id")

	var req service.RunInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	analysis, err := h.analysisService.Run(r.Context(), ownerID, id, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogAnalysisMutation(r.Context(), ownerID, "run", id, "success")
	writeJSON(w, http.StatusOK, viewAnalysis(analysis))
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles PATCH /api/analyses/{id}/status
func (h *AnalysisHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	id := r.PathValue("id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	analysis, err := h.analysisService.SetStatus(r.Context(), ownerID, id, req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogAnalysisMutation(r.Context(), ownerID, "set_status", id, "success")
	writeJSON(w, http.StatusOK, viewAnalysis(analysis))
}

// Report handles GET /api/analyses/{id}/report
func (h *AnalysisHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h.reportService == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "report export is not configured"})
		return
	}

	ownerID := middleware.GetUserID(r.Context())

	data, err := h.reportService.Fetch(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
