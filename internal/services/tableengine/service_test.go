package tableengine

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/skylite-dev/skylite/internal/logging"
)

func setupTestService(t *testing.T, opts ...Option) (*Engine, chi.Router) {
	t.Helper()
	engine := New(opts...)
	service := NewService(engine, logging.NewNop())
	router := chi.NewRouter()
	service.RegisterRoutes(router)
	return engine, router
}

func TestServiceCreateAndGetTable(t *testing.T) {
	_, router := setupTestService(t)

	body := `{"schema":[{"name":"id","type":"INTEGER","mode":"REQUIRED"}],"rows":[{"id":1}]}`
	req := httptest.NewRequest("PUT", "/datasets/ds1/tables/t1", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}

	req = httptest.NewRequest("GET", "/datasets/ds1/tables/t1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), `"numRows":1`) {
		t.Errorf("expected numRows 1 in response, got %s", w.Body.String())
	}
}

func TestServiceStrictDatasetMiss(t *testing.T) {
	_, router := setupTestService(t, WithStrict())

	req := httptest.NewRequest("GET", "/datasets/absent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestServiceQuerySeededRowsAndError(t *testing.T) {
	engine, router := setupTestService(t)
	engine.SeedQuery("SELECT 1", []Row{{"col1": 1}})
	engine.SeedQueryError("BAD SQL", "boom")

	req := httptest.NewRequest("POST", "/jobs", strings.NewReader(`{"query":"SELECT 1"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"col1":1`) {
		t.Errorf("expected seeded row in response, got %s", w.Body.String())
	}

	req = httptest.NewRequest("POST", "/jobs", strings.NewReader(`{"query":"BAD SQL"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.Contains(w.Body.String(), "boom") {
		t.Errorf("expected configured error message in response, got %s", w.Body.String())
	}
}

func TestServiceQueryRequiresStatement(t *testing.T) {
	_, router := setupTestService(t)

	req := httptest.NewRequest("POST", "/jobs", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
