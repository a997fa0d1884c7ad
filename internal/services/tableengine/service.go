package tableengine

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skylite-dev/skylite/internal/core"
	"github.com/skylite-dev/skylite/internal/logging"
)

// Service exposes an Engine over HTTP with a simplified BigQuery-flavoured
// REST surface.
type Service struct {
	engine *Engine
	logger logging.Logger
}

// NewService creates an HTTP service around the given engine.
func NewService(engine *Engine, logger logging.Logger) *Service {
	return &Service{engine: engine, logger: logger}
}

// Name returns the service identifier.
func (s *Service) Name() string {
	return "query"
}

// RegisterRoutes sets up HTTP routes for table and query operations:
//   - PUT /datasets/{dataset} - create dataset
//   - GET /datasets/{dataset} - dataset info (table ids)
//   - PUT /datasets/{dataset}/tables/{table} - create table (schema in body)
//   - GET /datasets/{dataset}/tables/{table} - table info
//   - DELETE /datasets/{dataset}/tables/{table} - delete table
//   - POST /jobs - submit a query ({"query": "..."} in body)
func (s *Service) RegisterRoutes(router chi.Router) {
	router.Put("/datasets/{dataset}", s.handleCreateDataset)
	router.Get("/datasets/{dataset}", s.handleGetDataset)

	router.Put("/datasets/{dataset}/tables/{table}", s.handleCreateTable)
	router.Get("/datasets/{dataset}/tables/{table}", s.handleGetTable)
	router.Delete("/datasets/{dataset}/tables/{table}", s.handleDeleteTable)

	router.Post("/jobs", s.handleQuery)
}

func (s *Service) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "dataset")

	var body struct {
		Metadata map[string]string `json:"metadata"`
	}
	// An empty body is fine; metadata is optional.
	_ = json.NewDecoder(r.Body).Decode(&body)

	dataset := s.engine.CreateDataset(id, body.Metadata)
	s.logger.Info("dataset created", logging.String("dataset", id))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"id": dataset.ID()})
}

func (s *Service) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "dataset")

	dataset, err := s.engine.GetDataset(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "DatasetNotFound", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"id":     dataset.ID(),
		"tables": dataset.TableIDs(),
	})
}

func (s *Service) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "dataset")
	tableID := chi.URLParam(r, "table")

	var body struct {
		Schema []FieldSchema `json:"schema"`
		Rows   []Row         `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Failed to decode table body")
		return
	}

	table := s.engine.Dataset(datasetID).CreateTable(tableID, body.Schema)
	if len(body.Rows) > 0 {
		table.InsertRows(body.Rows)
	}

	s.logger.Info("table created",
		logging.String("dataset", datasetID),
		logging.String("table", tableID),
	)
	w.WriteHeader(http.StatusCreated)
}

func (s *Service) handleGetTable(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "dataset")
	tableID := chi.URLParam(r, "table")

	dataset, err := s.engine.GetDataset(datasetID)
	if err != nil {
		writeError(w, http.StatusNotFound, "DatasetNotFound", err.Error())
		return
	}
	table, err := dataset.GetTable(tableID)
	if err != nil {
		writeError(w, http.StatusNotFound, "TableNotFound", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"id":      table.ID(),
		"schema":  table.Schema(),
		"numRows": table.NumRows(),
	})
}

func (s *Service) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "dataset")
	tableID := chi.URLParam(r, "table")

	dataset, err := s.engine.GetDataset(datasetID)
	if err != nil {
		writeError(w, http.StatusNotFound, "DatasetNotFound", err.Error())
		return
	}
	if err := dataset.DeleteTable(tableID); err != nil {
		writeError(w, http.StatusNotFound, "TableNotFound", err.Error())
		return
	}

	s.logger.Info("table deleted",
		logging.String("dataset", datasetID),
		logging.String("table", tableID),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "A query statement is required")
		return
	}

	job := s.engine.Query(body.Query)
	rows, err := job.Rows()
	if err != nil {
		// A seeded failure comes back as a job-level error, not a 5xx.
		writeError(w, http.StatusBadRequest, "QueryError", err.Error())
		return
	}

	s.logger.Info("query completed",
		logging.String("job_id", job.ID()),
		logging.Int("rows", len(rows)),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"jobId": job.ID(),
		"rows":  rows,
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
