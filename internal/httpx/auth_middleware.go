package httpx

import (
	"net/http"
	"strings"

	"bookquery/internal/auth"
)

// RequireRole admits requests carrying a valid bearer token whose role is one
// of roles.
func RequireRole(secret string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				JSONError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Missing bearer token", nil)
				return
			}
			claims, err := auth.ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token", nil)
				return
			}

			allowed := len(roles) == 0
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				JSONError(w, r, http.StatusForbidden, CodeForbidden, "Insufficient role", nil)
				return
			}

			ctx := ContextWithCaller(r.Context(), claims.Subject, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
