package http

import (
	"context"
	"net/http"
	"strings"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/security"

	"github.com/gorilla/mux"
)

type contextKey string

const claimsKey contextKey = "userClaims"

// Authenticate validates the bearer token and stores the claims on the
// request context.
func Authenticate(tokens security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				respondUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				respondUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin callers. Must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r)
		if claims == nil || !claims.IsAdmin {
			respondError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFrom returns the authenticated claims, or nil on an unauthenticated
// request.
func ClaimsFrom(r *http.Request) *security.UserClaims {
	claims, _ := r.Context().Value(claimsKey).(*security.UserClaims)
	return claims
}
