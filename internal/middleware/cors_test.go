package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func runCORS(t *testing.T, allowedOrigins []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(method, "/api/health", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	CORS(allowedOrigins)(next).ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsExplicitOrigin(t *testing.T) {
	rec := runCORS(t, []string{"https://chat.example.com"}, http.MethodGet, "https://chat.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://chat.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Allow-Methods = %q, want only the methods the server serves", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q for an explicit origin", got)
	}
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	rec := runCORS(t, []string{"*"}, http.MethodGet, "https://anywhere.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, must be unset for wildcard matches", got)
	}
}

func TestCORSUnlistedOriginGetsNoHeaders(t *testing.T) {
	rec := runCORS(t, []string{"https://chat.example.com"}, http.MethodGet, "https://evil.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want none", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec := runCORS(t, []string{"*"}, http.MethodOptions, "https://chat.example.com")
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
}
