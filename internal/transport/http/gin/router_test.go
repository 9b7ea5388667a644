package httpgin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hauslive/hausd/internal/clock"
	"github.com/hauslive/hausd/internal/service"
	"github.com/hauslive/hausd/internal/service/accounts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Only routes that fail before touching storage are exercised here,
	// so a store-less accounts service is enough.
	svcs := &service.Services{
		Accounts: accounts.New(nil, clock.NewSystem(), accounts.Config{
			JWTSecret: "test-secret",
			TokenTTL:  time.Hour,
		}),
	}

	return NewRouter(svcs, nil, discardLogger())
}

func TestHealthz(t *testing.T) {
	r := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	r := testRouter(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/registry"},
		{http.MethodPost, "/events"},
		{http.MethodPost, "/events/0/status"},
		{http.MethodPost, "/events/0/content"},
		{http.MethodPost, "/events/0/finalize"},
		{http.MethodPost, "/events/0/tickets"},
		{http.MethodPost, "/events/0/tips"},
		{http.MethodPost, "/accounts/deposit"},
		{http.MethodGet, "/tickets"},
	}

	t.Run("missing token", func(t *testing.T) {
		for _, route := range protected {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(route.method, route.path, strings.NewReader("{}"))
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s: status = %d, want 401", route.method, route.path, w.Code)
			}
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("{}"))
		req.Header.Set("Authorization", "Bearer not-a-token")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}

func TestBadInput(t *testing.T) {
	r := testRouter(t)

	t.Run("short secret on register", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"secret":"short"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("non-numeric event id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/events/abc", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing login fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts/login", strings.NewReader(`{"address":"a"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}
