package objectstore

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skylite-dev/skylite/internal/core"
	"github.com/skylite-dev/skylite/internal/logging"
)

// Service exposes a Store over HTTP with a simplified GCS-flavoured REST
// surface. It is a thin translation layer; all semantics live in the Store.
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
	return "storage"
}

// RegisterRoutes sets up HTTP routes for object storage operations:
//   - PUT /{bucket} - create (or get) bucket
//   - GET /{bucket} - list blobs (?prefix=&delimiter=)
//   - DELETE /{bucket} - delete bucket
//   - PUT /{bucket}/* - upload blob
//   - GET /{bucket}/* - download blob
//   - DELETE /{bucket}/* - delete blob
func (s *Service) RegisterRoutes(router chi.Router) {
	router.Put("/{bucket}", s.handleCreateBucket)
	router.Get("/{bucket}", s.handleListBlobs)
	router.Delete("/{bucket}", s.handleDeleteBucket)

	router.Put("/{bucket}/*", s.handleUploadBlob)
	router.Get("/{bucket}/*", s.handleDownloadBlob)
	router.Delete("/{bucket}/*", s.handleDeleteBlob)
}

func (s *Service) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	if name == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Bucket name is required")
		return
	}

	bucket := s.store.Bucket(name)
	s.logger.Info("bucket ensured", logging.String("bucket", name))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"name":     bucket.Name(),
		"location": bucket.Location(),
	})
}

func (s *Service) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")

	if err := s.store.DeleteBucket(name); err != nil {
		if IsNotFound(err) {
			writeError(w, http.StatusNotFound, "BucketNotFound", err.Error())
		} else {
			s.logger.Error("failed to delete bucket",
				logging.String("bucket", name),
				logging.ErrorField(err),
			)
			writeError(w, http.StatusInternalServerError, "InternalError", "Failed to delete bucket")
		}
		return
	}

	s.logger.Info("bucket deleted", logging.String("bucket", name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleUploadBlob(w http.ResponseWriter, r *http.Request) {
	bucketName := chi.URLParam(r, "bucket")
	blobName := chi.URLParam(r, "*")
	if blobName == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Blob name is required")
		return
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	// Custom metadata travels in x-goog-meta-* headers.
	metadata := make(map[string]string)
	for key, values := range r.Header {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-goog-meta-") && len(values) > 0 {
			metadata[strings.TrimPrefix(lower, "x-goog-meta-")] = values[0]
		}
	}

	blob := s.store.Bucket(bucketName).Blob(blobName)
	blob.UploadBytes(content, &UploadOptions{
		ContentType: r.Header.Get("Content-Type"),
		Metadata:    metadata,
	})

	s.logger.Info("blob uploaded",
		logging.String("bucket", bucketName),
		logging.String("blob", blobName),
		logging.Int("size", len(content)),
	)
	w.WriteHeader(http.StatusCreated)
}

func (s *Service) handleDownloadBlob(w http.ResponseWriter, r *http.Request) {
	bucketName := chi.URLParam(r, "bucket")
	blobName := chi.URLParam(r, "*")

	bucket, err := s.store.GetBucket(bucketName)
	if err != nil {
		writeError(w, http.StatusNotFound, "BucketNotFound", err.Error())
		return
	}

	blob := bucket.Blob(blobName)
	if !blob.Exists() {
		writeError(w, http.StatusNotFound, "BlobNotFound", "No such object: "+blobName)
		return
	}

	content := blob.DownloadBytes()
	w.Header().Set("Content-Type", blob.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Last-Modified", blob.Updated().Format(http.TimeFormat))
	for key, value := range blob.Metadata() {
		w.Header().Set("x-goog-meta-"+key, value)
	}

	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func (s *Service) handleDeleteBlob(w http.ResponseWriter, r *http.Request) {
	bucketName := chi.URLParam(r, "bucket")
	blobName := chi.URLParam(r, "*")

	bucket, err := s.store.GetBucket(bucketName)
	if err != nil {
		writeError(w, http.StatusNotFound, "BucketNotFound", err.Error())
		return
	}

	if existed := bucket.Blob(blobName).Delete(); !existed {
		writeError(w, http.StatusNotFound, "BlobNotFound", "No such object: "+blobName)
		return
	}

	s.logger.Info("blob deleted",
		logging.String("bucket", bucketName),
		logging.String("blob", blobName),
	)
	w.WriteHeader(http.StatusNoContent)
}

// listResult mirrors the items/prefixes split of a GCS object listing.
type listResult struct {
	Items    []blobInfo `json:"items"`
	Prefixes []string   `json:"prefixes,omitempty"`
}

type blobInfo struct {
	Name        string            `json:"name"`
	ContentType string            `json:"contentType,omitempty"`
	Size        int64             `json:"size"`
	Updated     time.Time         `json:"updated"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (s *Service) handleListBlobs(w http.ResponseWriter, r *http.Request) {
	bucketName := chi.URLParam(r, "bucket")

	bucket, err := s.store.GetBucket(bucketName)
	if err != nil {
		writeError(w, http.StatusNotFound, "BucketNotFound", err.Error())
		return
	}

	entries := bucket.ListBlobs(ListQuery{
		Prefix:    r.URL.Query().Get("prefix"),
		Delimiter: r.URL.Query().Get("delimiter"),
	})

	result := listResult{Items: []blobInfo{}}
	for _, entry := range entries {
		if entry.IsPrefix() {
			result.Prefixes = append(result.Prefixes, entry.Name)
			continue
		}
		result.Items = append(result.Items, blobInfo{
			Name:        entry.Blob.Name(),
			ContentType: entry.Blob.ContentType(),
			Size:        entry.Blob.Size(),
			Updated:     entry.Blob.Updated(),
			Metadata:    entry.Blob.Metadata(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("failed to encode response", logging.ErrorField(err))
	}
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
