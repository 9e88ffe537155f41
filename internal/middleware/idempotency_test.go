package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func serveWithIdempotencyKey(key string) (*httptest.ResponseRecorder, string, bool) {
	var gotKey string
	var gotOK bool
	handler := RequireIdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey, gotOK = GetIdempotencyKey(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/test", nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, gotKey, gotOK
}

func TestRequireIdempotencyKey_MissingHeaderIsRejected(t *testing.T) {
	w, _, _ := serveWithIdempotencyKey("")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 without header, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), IdempotencyKeyHeader) {
		t.Errorf("Error %s does not name the required header", w.Body.String())
	}
}

func TestRequireIdempotencyKey_MalformedKeysAreRejected(t *testing.T) {
	for _, key := range []string{
		"has spaces",
		"has/slash",
		"has.dot",
		strings.Repeat("a", 256),
	} {
		w, _, _ := serveWithIdempotencyKey(key)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Key %q unexpectedly accepted with %d", key, w.Code)
		}
	}
}

func TestProperty_WellFormedKeysReachTheHandler(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("well-formed keys pass through and land on the context", prop.ForAll(
		func(key string) bool {
			w, gotKey, gotOK := serveWithIdempotencyKey(key)
			if w.Code != http.StatusOK {
				t.Logf("FAIL: Key %q rejected with %d", key, w.Code)
				return false
			}
			if !gotOK || gotKey != key {
				t.Logf("FAIL: Context key %q does not match header %q", gotKey, key)
				return false
			}
			return true
		},
		gen.RegexMatch(`[A-Za-z0-9_-]{1,64}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
