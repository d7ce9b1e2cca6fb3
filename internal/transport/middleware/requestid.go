package middleware

import (
	"net/http"

	"github.com/frahmantamala/procurement-management/pkg/logger"

	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// TraceID accepts a caller-supplied trace ID or mints one, attaches it to the
// request-scoped logger and echoes it on the response.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "traceID", traceID)
		w.Header().Set(traceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
