package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/config"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
	httproutes "github.com/Imagineer253/compass-shipment-tracker/internal/transport/http/routes"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	tokens, err := security.NewTokenIssuer("routes-test-secret", "compass-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	return httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: zaptest.NewLogger(t),
		Tokens: tokens,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	r := newTestEngine(t)

	for _, path := range []string{"/api/v1/devices", "/api/v1/2fa/status"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)

		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401 for %s, got %d", path, w.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}
