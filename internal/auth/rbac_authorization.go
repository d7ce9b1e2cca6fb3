package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/procurement-management/internal/authz"
)

// RBACAuthorization provides route-level permission gates. Fine-grained,
// per-request decisions stay in the services; these middlewares only keep
// obviously unauthorized traffic out of whole route groups.
type RBACAuthorization struct {
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{logger: logger}
}

func (ra *RBACAuthorization) subject(u *User) authz.Subject {
	return authz.Subject{
		ID:           u.ID,
		IsSuperuser:  u.IsSuperuser,
		SupervisorID: u.SupervisorID,
		WorksiteID:   u.WorksiteID,
		Permissions:  authz.FromStrings(u.Permissions),
	}
}

func (ra *RBACAuthorization) require(check func(authz.Subject) bool, what string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !check(ra.subject(user)) {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"required", what,
					"user_permissions", user.Permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission gates a route group on a single permission; superusers
// always pass.
func (ra *RBACAuthorization) RequirePermission(permission string) func(http.Handler) http.Handler {
	return ra.require(func(s authz.Subject) bool {
		return s.IsSuperuser || s.HasPermission(authz.Permission(permission))
	}, permission)
}

// RequirePurchase gates the purchasing routes.
func (ra *RBACAuthorization) RequirePurchase() func(http.Handler) http.Handler {
	return ra.require(authz.CanPurchase, string(authz.PermPurchase))
}

// RequireAdmin gates the administration routes.
func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.require(authz.IsAdmin, "admin")
}
