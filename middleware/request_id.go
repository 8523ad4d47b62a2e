package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/blogem/content-api/userctx"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID assigns every request a uuid, reusing an inbound X-Request-ID
// only when it is itself a valid uuid.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if parsed, err := uuid.Parse(id); err == nil {
			id = parsed.String()
		} else {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(userctx.SetRequestID(r.Context(), id)))
	})
}
