package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
)

type contextKey string

const callerKey contextKey = "caller"

// NewTokenAuth builds the JWT verifier used by the protected routes.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// CallerExtractor turns verified JWT claims into a paperportal.Caller and
// stores it on the request context. The portal trusts the identity provider:
// only the caller_id and is_admin claims are read, nothing is re-verified
// beyond the signature check done by jwtauth.Verifier upstream.
func CallerExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		rawID, ok := claims["caller_id"].(string)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		callerID, err := uuid.Parse(rawID)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		isAdmin, _ := claims["is_admin"].(bool)

		caller := &paperportal.Caller{ID: callerID, IsAdmin: isAdmin}
		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext returns the caller attached by CallerExtractor, or nil
// for anonymous requests.
func CallerFromContext(ctx context.Context) *paperportal.Caller {
	caller, _ := ctx.Value(callerKey).(*paperportal.Caller)
	return caller
}
