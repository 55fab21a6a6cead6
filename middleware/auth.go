package middleware

import (
	"context"
	"idcard-designer/core"
	"idcard-designer/handlers/auth"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

// TokenParser validates bearer tokens.
type TokenParser interface {
	ParseToken(token string) (*auth.OperatorClaims, error)
}

// AuthJWT rejects requests without a valid bearer token and stores the
// claims in the request context.
func AuthJWT(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Authorization header is required"})
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Authorization header format must be Bearer {token}"})
				return
			}

			claims, err := parser.ParseToken(parts[1])
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Operator returns the signed-in operator of a request passed through AuthJWT.
func Operator(ctx context.Context) (*core.Operator, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.OperatorClaims)
	if !ok {
		return nil, false
	}
	return claims.Operator(), true
}
