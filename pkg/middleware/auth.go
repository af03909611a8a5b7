package middleware

import (
	"net/http"
	"strings"

	"github.com/usgears/storefront/pkg/auth"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/response"
)

// TokenCookie is read when no Authorization header is sent, so the admin
// dashboard can authenticate image and websocket requests.
const TokenCookie = "usgears_token"

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// AuthMiddleware rejects requests without a valid access token and stores
// the claims on the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			response.Unauthorized(w)
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := auth.WithClaims(r.Context(), claims)
		ctx = logger.With(ctx, "user_id", claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RoleFromCtx returns the role of the authenticated user.
func RoleFromCtx(r *http.Request) (string, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return c.Role, true
}
