package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gonadlabs/gooch-island/internal/auth"
	"github.com/gonadlabs/gooch-island/internal/utils"
)

type contextKey string

const AddressKey contextKey = "address"

// BearerToken extracts the raw token from an Authorization header, or ""
// when the header is absent or not a Bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// AuthMiddleware requires a valid bearer token and stores the authenticated
// wallet address on the request context.
func AuthMiddleware(issuer *auth.Issuer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := BearerToken(r)
		if token == "" {
			utils.Error(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		address, err := issuer.Verify(token)
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), AddressKey, address)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AddressFromContext returns the address set by AuthMiddleware.
func AddressFromContext(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(AddressKey).(string)
	return address, ok
}
