package middleware

import (
	"fmt"
	"net/http"

	"github.com/perks/perks/internal/auth"
	"github.com/perks/perks/internal/model"
)

// RequireRole returns middleware that enforces a minimum clearance.
// Must be applied after Auth middleware.
func RequireRole(min model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !authCtx.HasClearance(min) {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN",
					fmt.Sprintf("Insufficient clearance. Required role: %s", min))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireCashier is a convenience middleware for cashier clearance.
func RequireCashier() func(http.Handler) http.Handler {
	return RequireRole(model.RoleCashier)
}

// RequireManager is a convenience middleware for manager clearance.
func RequireManager() func(http.Handler) http.Handler {
	return RequireRole(model.RoleManager)
}
