package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/svedberg/vintersport-tv/internal/config"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	scriptPath := filepath.Join(t.TempDir(), "script.js")
	if err := os.WriteFile(scriptPath, []byte("const events = [];\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		CORSAllowOrigins: []string{"*"},
		ScriptJSPath:     scriptPath,
	}
	return NewRouter(nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRootAndHealth(t *testing.T) {
	r := testRouter(t)

	rec := get(t, r, "/")
	if rec.Code != http.StatusOK {
		t.Errorf("GET / = %d, want 200", rec.Code)
	}
	var info map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("root response is not JSON: %v", err)
	}
	if info["status"] != "running" {
		t.Errorf("status = %v, want running", info["status"])
	}

	if rec := get(t, r, "/health"); rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
}

func TestStoreBackedEndpointsWithoutStore(t *testing.T) {
	r := testRouter(t)
	for _, path := range []string{
		"/health/db",
		"/api/events",
		"/api/events/sports",
		"/api/reminders/recent",
	} {
		rec := get(t, r, path)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503 without a store", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "store_unavailable") {
			t.Errorf("GET %s body = %q, want a structured error", path, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events/import", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("POST /api/events/import = %d, want 503 without a store", rec.Code)
	}
}

func TestTestHAWithoutConfiguration(t *testing.T) {
	r := testRouter(t)
	rec := get(t, r, "/api/test-ha")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /api/test-ha = %d, want 503 without HA config", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ha_unconfigured") {
		t.Errorf("body = %q, want ha_unconfigured", rec.Body.String())
	}
}

func TestScriptJSServed(t *testing.T) {
	r := testRouter(t)
	rec := get(t, r, "/script.js")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /script.js = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "const events = [") {
		t.Errorf("script body = %q, want the events block", rec.Body.String())
	}
}

func TestOpenAPISpecServed(t *testing.T) {
	r := testRouter(t)
	rec := get(t, r, "/docs/openapi.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /docs/openapi.json = %d, want 200", rec.Code)
	}
	var spec map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("spec is not valid JSON: %v", err)
	}
	if spec["openapi"] == "" {
		t.Error("spec missing openapi version field")
	}
}
