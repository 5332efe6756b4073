package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cashflowpro/cashflowpro/internal/security/middleware"
	"github.com/cashflowpro/cashflowpro/internal/service"
)

// DashboardHandler serves summary counters and the recent-activity feed.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, logger: logger}
}

// Summary handles GET /api/dashboard/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	summary, err := h.dashboardService.Summarize(r.Context(), ownerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Activity handles GET /api/dashboard/activity?limit=N
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	items, err := h.dashboardService.RecentActivity(r.Context(), ownerID, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
