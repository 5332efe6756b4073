package handler

import (
	"log/slog"
	"net/http"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	"github.com/cashflowpro/cashflowpro/internal/security"
	"github.com/cashflowpro/cashflowpro/internal/security/audit"
	"github.com/cashflowpro/cashflowpro/internal/security/middleware"
	"github.com/cashflowpro/cashflowpro/internal/service"
)

// AdminHandler exposes administrative endpoints gated on role
// permissions.
type AdminHandler struct {
	authService *service.AuthService
	authz       *security.AuthorizationService
	auditLog    *audit.Logger
	logger      *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	authService *service.AuthService,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		authz:       authz,
		auditLog:    auditLog,
		logger:      logger,
	}
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	if !h.authz.HasPermission(domain.Role(claims.Role), security.PermManageUsers) {
		h.auditLog.LogDenied(r.Context(), claims.UserID, "manage_users")
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}

	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, viewUser(u))
	}
	writeJSON(w, http.StatusOK, out)
}
