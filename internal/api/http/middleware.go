package http

import (
	"context"
	"net/http"
	"strings"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/security"
)

type contextKey string

const claimsKey contextKey = "claims"

// claimsFrom returns the authenticated user's claims. It is only valid behind
// the auth middleware.
func claimsFrom(ctx context.Context) *security.UserClaims {
	claims, _ := ctx.Value(claimsKey).(*security.UserClaims)
	return claims
}

// authenticate validates the bearer token and requires the caller to hold one
// of the given roles.
func authenticate(tokens security.TokenManager, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, r, domain.NewWorkflowError(domain.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, r, domain.NewWorkflowError(domain.CodeUnauthorized, "invalid or expired token"))
				return
			}
			if claims.Type != security.TokenTypeAccess {
				writeError(w, r, domain.NewWorkflowError(domain.CodeUnauthorized, "access token required"))
				return
			}

			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				writeError(w, r, domain.NewWorkflowError(domain.CodeInsufficientAuthority,
					"%s role cannot access this resource", claims.Role))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
