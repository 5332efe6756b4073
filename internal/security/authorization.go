package security

import (
	"fmt"
	"log/slog"

	"github.com/cashflowpro/cashflowpro/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermCreateBusiness Permission = "create_business"
	PermDeleteBusiness Permission = "delete_business"
	PermRunAnalysis    Permission = "run_analysis"
	PermSetStatus      Permission = "set_analysis_status"
	PermViewDashboard  Permission = "view_dashboard"
	PermManageUsers    Permission = "manage_users"
)

// RolePermissions maps roles to their permissions. Ownership scoping is
// separate: it is enforced per-query in the repositories, not here.
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermCreateBusiness,
		PermDeleteBusiness,
		PermRunAnalysis,
		PermSetStatus,
		PermViewDashboard,
		PermManageUsers,
	},
	domain.RoleUser: {
		PermCreateBusiness,
		PermDeleteBusiness,
		PermRunAnalysis,
		PermSetStatus,
		PermViewDashboard,
	},
}

// AuthorizationService handles role/permission checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{logger: logger}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}
