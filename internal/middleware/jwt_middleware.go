package middleware

import (
	"net/http"
	"strings"

	"conductor/internal/apperr"
	"conductor/internal/requestctx"
	"conductor/internal/utils"
)

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the token's user in the request context.
func JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			utils.JSONError(w, apperr.CodeUnauthorized, "")
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		claims, err := utils.ParseJWT(tokenStr)
		if err != nil {
			utils.JSONError(w, apperr.CodeUnauthorized, "Invalid token")
			return
		}

		ctx := requestctx.WithUserID(r.Context(), claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalJWT attaches the user when a valid token is present but never
// rejects the request. Public Commons routes use it.
func OptionalJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			if claims, err := utils.ParseJWT(strings.TrimPrefix(auth, "Bearer ")); err == nil {
				r = r.WithContext(requestctx.WithUserID(r.Context(), claims.UserID))
			}
		}
		next.ServeHTTP(w, r)
	})
}
