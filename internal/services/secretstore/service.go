package secretstore

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skylite-dev/skylite/internal/core"
	"github.com/skylite-dev/skylite/internal/logging"
)

// Service exposes a Store over HTTP with a simplified Secret Manager style
// REST surface.
type Service struct {
	store  *Store
	logger logging.Logger
}

// NewService creates an HTTP service around the given store.
func NewService(store *Store, logger logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Name returns the service identifier.
func (s *Service) Name() string {
	return "secrets"
}

// RegisterRoutes sets up HTTP routes for secret operations:
//   - POST /projects/{project}/secrets?secretId= - create secret
//   - POST /projects/{project}/secrets/{secret}/versions - add version
//   - GET /projects/{project}/secrets/{secret}/versions/{version} - access version
func (s *Service) RegisterRoutes(router chi.Router) {
	router.Post("/projects/{project}/secrets", s.handleCreateSecret)
	router.Post("/projects/{project}/secrets/{secret}/versions", s.handleAddVersion)
	router.Get("/projects/{project}/secrets/{secret}/versions/{version}", s.handleAccessVersion)
}

func (s *Service) handleCreateSecret(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	secretID := r.URL.Query().Get("secretId")
	if secretID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "secretId query parameter is required")
		return
	}

	var body struct {
		Labels map[string]string `json:"labels"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	secret, err := s.store.CreateSecret("projects/"+project, secretID, body.Labels)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidArgument", err.Error())
		return
	}

	s.logger.Info("secret created", logging.String("secret", secretID))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"name":   secret.Name(),
		"labels": secret.Labels(),
	})
}

func (s *Service) handleAddVersion(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	secretID := chi.URLParam(r, "secret")

	var body struct {
		Payload struct {
			Data string `json:"data"`
		} `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Failed to decode version body")
		return
	}

	parent := "projects/" + project + "/secrets/" + secretID
	version, err := s.store.AddVersion(parent, []byte(body.Payload.Data))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidArgument", err.Error())
		return
	}

	s.logger.Info("secret version added",
		logging.String("secret", secretID),
		logging.String("version", version.ID()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"name":       version.Name(),
		"createTime": version.Created(),
	})
}

func (s *Service) handleAccessVersion(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	secretID := chi.URLParam(r, "secret")
	versionID := chi.URLParam(r, "version")

	name := "projects/" + project + "/secrets/" + secretID + "/versions/" + versionID
	version, err := s.store.AccessVersion(name)
	if err != nil {
		switch {
		case IsPathError(err):
			writeError(w, http.StatusBadRequest, "InvalidArgument", err.Error())
		case IsNotFound(err):
			writeError(w, http.StatusNotFound, "SecretNotFound", err.Error())
		default:
			s.logger.Error("failed to access secret version",
				logging.String("secret", secretID),
				logging.ErrorField(err),
			)
			writeError(w, http.StatusInternalServerError, "InternalError", "Failed to access version")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"name": version.Name(),
		"payload": map[string]string{
			"data": string(version.Payload()),
		},
	})
}

// writeError writes an error response in a consistent format.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// Ensure Service implements the core.Service interface.
var _ core.Service = (*Service)(nil)
