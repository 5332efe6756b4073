package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cashflowpro/cashflowpro/internal/security/audit"
	"github.com/cashflowpro/cashflowpro/internal/security/middleware"
	"github.com/cashflowpro/cashflowpro/internal/service"
)

// BusinessHandler handles business CRUD endpoints.
type BusinessHandler struct {
	businessService *service.BusinessService
	analysisService *service.AnalysisService
	auditLog        *audit.Logger
	logger          *slog.Logger
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(
	businessService *service.BusinessService,
	analysisService *service.AnalysisService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *BusinessHandler {
	return &BusinessHandler{
		businessService: businessService,
		analysisService: analysisService,
		auditLog:        auditLog,
		logger:          logger,
	}
}

// List handles GET /api/businesses
func (h *BusinessHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	items, err := h.businessService.List(r.Context(), ownerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]businessWithAnalysisView, 0, len(items))
	for _, item := range items {
		out = append(out, viewBusinessWithAnalysis(item))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/businesses
func (h *BusinessHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	claims := middleware.GetClaims(r.Context())

	var req service.BusinessInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	plan := ""
	if claims != nil {
		plan = claims.Plan
	}

	business, err := h.businessService.Create(r.Context(), ownerID, plan, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogBusinessMutation(r.Context(), ownerID, "create", business.ID, "success")
	writeJSON(w, http.StatusCreated, viewBusiness(business))
}

// Get handles GET /api/businesses/{id}
func (h *BusinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	business, err := h.businessService.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewBusiness(business))
}

// Update handles PUT /api/businesses/{id}
func (h *BusinessHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	var req service.BusinessInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	business, err := h.businessService.Update(r.Context(), ownerID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogBusinessMutation(r.Context(), ownerID, "update", business.ID, "success")
	writeJSON(w, http.StatusOK, viewBusiness(business))
}

// Delete handles DELETE /api/businesses/{id}
func (h *BusinessHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	id := r.PathValue("id")

	if err := h.businessService.Delete(r.Context(), ownerID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.auditLog.LogBusinessMutation(r.Context(), ownerID, "delete", id, "success")
	w.WriteHeader(http.StatusNoContent)
}

// Analyses handles GET /api/businesses/{id}/analyses
func (h *BusinessHandler) Analyses(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	analyses, err := h.analysisService.ListByBusiness(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]analysisView, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, viewAnalysis(a))
	}
	writeJSON(w, http.StatusOK, out)
}
