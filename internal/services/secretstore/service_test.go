package secretstore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/skylite-dev/skylite/internal/logging"
)

func setupTestService(t *testing.T, opts ...Option) (*Store, chi.Router) {
	t.Helper()
	store := New(opts...)
	service := NewService(store, logging.NewNop())
	router := chi.NewRouter()
	service.RegisterRoutes(router)
	return store, router
}

func TestServiceAddAndAccessVersion(t *testing.T) {
	_, router := setupTestService(t)

	req := httptest.NewRequest("POST", "/projects/p/secrets/s1/versions",
		strings.NewReader(`{"payload":{"data":"hunter2"}}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/projects/p/secrets/s1/versions/latest", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body struct {
		Name    string `json:"name"`
		Payload struct {
			Data string `json:"data"`
		} `json:"payload"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Payload.Data != "hunter2" {
		t.Errorf("expected payload hunter2, got %q", body.Payload.Data)
	}
	if body.Name != "projects/p/secrets/s1/versions/1" {
		t.Errorf("unexpected version name %q", body.Name)
	}
}

func TestServiceCreateSecret(t *testing.T) {
	store, router := setupTestService(t)

	req := httptest.NewRequest("POST", "/projects/p/secrets?secretId=s1",
		strings.NewReader(`{"labels":{"team":"data"}}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	secret, err := store.GetSecret("p", "s1")
	if err != nil {
		t.Fatalf("secret should exist after create: %v", err)
	}
	if secret.Labels()["team"] != "data" {
		t.Errorf("labels not applied: %v", secret.Labels())
	}
}

func TestServiceStrictMissIs404(t *testing.T) {
	_, router := setupTestService(t, WithStrict())

	req := httptest.NewRequest("GET", "/projects/p/secrets/absent/versions/latest", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
