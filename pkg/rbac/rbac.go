// Package rbac gates routes on the role carried by the access token.
package rbac

import (
	"net/http"

	"github.com/usgears/storefront/pkg/auth"
	"github.com/usgears/storefront/pkg/middleware"
	"github.com/usgears/storefront/pkg/response"
)

// HasRole allows only the given roles. AuthMiddleware must run first; an
// unauthenticated request gets 401, a wrong role 403.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin is HasRole(auth.RoleAdmin).
var Admin = HasRole(auth.RoleAdmin)
