package middleware

import (
	"net/http"

	"github.com/blogem/content-api/userctx"
)

// RequireAuth ensures the caller passes the auth gate. Rejected callers get a
// JSON 401; admitted ones carry their operator in the request context.
func RequireAuth(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, ok := gate.Authenticate(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(userctx.SetOperator(r.Context(), op)))
		})
	}
}
