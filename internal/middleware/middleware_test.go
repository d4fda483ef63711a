package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NestWatch/NW-Backend/internal/middleware"
)

// call wraps a simple 200-OK inner handler in the provided middleware,
// applies the given request mutations, and returns the recorded response.
func call(t *testing.T, mw func(http.Handler) http.Handler, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := mw(inner)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// TestCORSMiddleware_AllowedOrigin verifies an allow-listed origin gets
// echoed back with credentials headers.
func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	rec := call(t, middleware.CORSMiddleware, func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:5173")
	})

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected origin to be echoed back, got %q", got)
	}
}

// TestCORSMiddleware_UnknownOrigin verifies an unlisted origin gets no
// CORS headers but the request still goes through.
func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	rec := call(t, middleware.CORSMiddleware, func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example")
	})

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for unknown origin, got %q", got)
	}
}

// TestCORSMiddleware_Preflight verifies OPTIONS short-circuits with 204.
func TestCORSMiddleware_Preflight(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the inner handler")
	})
	handler := middleware.CORSMiddleware(inner)

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

// TestTokenMiddleware_Disabled verifies an empty token lets everything
// through.
func TestTokenMiddleware_Disabled(t *testing.T) {
	rec := call(t, middleware.TokenMiddleware(""), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// TestTokenMiddleware_MissingToken verifies a request without the header
// receives a 401 response.
func TestTokenMiddleware_MissingToken(t *testing.T) {
	rec := call(t, middleware.TokenMiddleware("hunter2"), nil)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Missing bearer token") {
		t.Errorf("expected body to mention the missing token, got: %q", body)
	}
}

// TestTokenMiddleware_WrongToken verifies a bad token is rejected.
func TestTokenMiddleware_WrongToken(t *testing.T) {
	rec := call(t, middleware.TokenMiddleware("hunter2"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong")
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// TestTokenMiddleware_ValidToken verifies the happy path.
func TestTokenMiddleware_ValidToken(t *testing.T) {
	rec := call(t, middleware.TokenMiddleware("hunter2"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer hunter2")
	})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
}
