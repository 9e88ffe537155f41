package middleware

import (
	"context"
	"net/http"
	"regexp"
)

// IdempotencyKeyHeader is the header carrying the client-supplied
// creation key.
const IdempotencyKeyHeader = "X-Idempotency-Key"

const idempotencyKeyCtx contextKey = "idempotency_key"

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)

// RequireIdempotencyKey extracts and validates the X-Idempotency-Key
// header, rejecting requests without a well-formed key. The key itself
// is opaque; only its shape is checked here.
func RequireIdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)

		if key == "" {
			RespondWithError(w, http.StatusBadRequest, "X-Idempotency-Key header is required")
			return
		}

		if !idempotencyKeyPattern.MatchString(key) {
			RespondWithError(w, http.StatusBadRequest,
				"Idempotency key must be 1-255 characters of letters, digits, hyphens, and underscores")
			return
		}

		ctx := context.WithValue(r.Context(), idempotencyKeyCtx, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdempotencyKey extracts the validated idempotency key from the
// request context
func GetIdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx).(string)
	return key, ok
}
