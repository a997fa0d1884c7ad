package objectstore

import (
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skylite-dev/skylite/internal/logging"
)

// Store is an in-memory emulation of a GCS-style object storage service.
// Buckets are created lazily on first reference unless the store is
// constructed with WithStrict, in which case GetBucket on a missing bucket
// returns a *NotFoundError instead of creating it.
type Store struct {
	mu      sync.RWMutex
	strict  bool
	buckets map[string]*Bucket
	logger  logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithStrict makes GetBucket fail with *NotFoundError on missing buckets
// instead of auto-creating them.
func WithStrict() Option {
	return func(s *Store) { s.strict = true }
}

// WithLogger attaches a structured logger to the store.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates an empty object store.
func New(opts ...Option) *Store {
	s := &Store{
		buckets: make(map[string]*Bucket),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strict reports whether the store was built with WithStrict.
func (s *Store) Strict() bool {
	return s.strict
}

// Bucket returns the named bucket, creating it if it does not exist.
// It always succeeds.
func (s *Store) Bucket(name string) *Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bucketLocked(name)
}

func (s *Store) bucketLocked(name string) *Bucket {
	if b, ok := s.buckets[name]; ok {
		return b
	}
	b := &Bucket{
		name:     name,
		location: "US",
		store:    s,
		metadata: make(map[string]string),
		blobs:    make(map[string]*Blob),
	}
	s.buckets[name] = b
	s.logger.Debug("bucket created", logging.String("bucket", name))
	return b
}

// GetBucket returns an existing bucket. In strict mode a missing bucket
// yields a *NotFoundError; otherwise the bucket is created on the fly,
// exactly as Bucket would.
func (s *Store) GetBucket(name string) (*Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[name]; ok {
		return b, nil
	}
	if s.strict {
		return nil, &NotFoundError{Kind: "bucket", Name: name}
	}
	return s.bucketLocked(name), nil
}

// DeleteBucket removes a bucket and everything in it. Deleting a missing
// bucket returns *NotFoundError regardless of mode.
func (s *Store) DeleteBucket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		return &NotFoundError{Kind: "bucket", Name: name}
	}
	delete(s.buckets, name)
	return nil
}

// BucketNames returns the names of all buckets, sorted.
func (s *Store) BucketNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bucket is a named collection of blobs.
type Bucket struct {
	name     string
	location string
	metadata map[string]string
	store    *Store

	mu    sync.RWMutex
	blobs map[string]*Blob
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Location returns the bucket location.
func (b *Bucket) Location() string { return b.location }

// SetMetadata merges the given key/value pairs into the bucket metadata.
func (b *Bucket) SetMetadata(meta map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range meta {
		b.metadata[k] = v
	}
}

// Metadata returns a copy of the bucket metadata.
func (b *Bucket) Metadata() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyMeta(b.metadata)
}

// Blob returns a handle for the named blob, creating the handle if needed.
// A handle does not imply stored content: Exists reports false and the blob
// is absent from listings until an upload happens.
func (b *Bucket) Blob(name string) *Blob {
	b.mu.Lock()
	defer b.mu.Unlock()
	if blob, ok := b.blobs[name]; ok {
		return blob
	}
	blob := &Blob{
		name:     name,
		bucket:   b,
		metadata: make(map[string]string),
	}
	b.blobs[name] = blob
	return blob
}

// ListQuery narrows a ListBlobs call. An empty Prefix matches every blob;
// an empty Delimiter disables folder folding.
type ListQuery struct {
	Prefix    string
	Delimiter string
}

// Entry is one result of ListBlobs: either a concrete blob or a synthetic
// folder marker for a common prefix.
type Entry struct {
	// Name is the blob name, or the common prefix for a folder marker.
	Name string
	// Blob is nil for folder markers.
	Blob *Blob
}

// IsPrefix reports whether the entry is a synthetic folder marker.
func (e Entry) IsPrefix() bool { return e.Blob == nil }

// ListBlobs returns the blobs whose names start with q.Prefix. With a
// delimiter, a blob whose name contains the delimiter after the prefix is
// folded into a single folder marker covering everything up to and
// including the first delimiter; each marker appears once no matter how
// many blobs share it. Results are sorted by name, so a fixed store state
// always lists identically.
func (b *Bucket) ListBlobs(q ListQuery) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var direct []*Blob
	prefixes := make(map[string]struct{})
	for name, blob := range b.blobs {
		// Presence is guarded by the blob's own lock; nesting it inside
		// the bucket lock is safe because writers never hold both.
		if !blob.Exists() {
			continue
		}
		if !strings.HasPrefix(name, q.Prefix) {
			continue
		}
		if q.Delimiter == "" {
			direct = append(direct, blob)
			continue
		}
		rest := name[len(q.Prefix):]
		if i := strings.Index(rest, q.Delimiter); i >= 0 {
			prefixes[name[:len(q.Prefix)+i+len(q.Delimiter)]] = struct{}{}
		} else {
			direct = append(direct, blob)
		}
	}

	entries := make([]Entry, 0, len(direct)+len(prefixes))
	for _, blob := range direct {
		entries = append(entries, Entry{Name: blob.name, Blob: blob})
	}
	for p := range prefixes {
		entries = append(entries, Entry{Name: p})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// removeBlob drops a blob handle from the bucket map.
func (b *Bucket) removeBlob(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, name)
}

// Blob is a named byte object inside a bucket. The handle and the stored
// content have distinct lifetimes: Bucket.Blob hands out the handle, an
// upload creates the content.
type Blob struct {
	name   string
	bucket *Bucket

	mu          sync.RWMutex
	present     bool
	content     []byte
	contentType string
	metadata    map[string]string
	updated     time.Time
}

// UploadOptions carries the optional attributes of an upload.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Name returns the blob name within its bucket.
func (bl *Blob) Name() string { return bl.name }

// Bucket returns the owning bucket.
func (bl *Blob) Bucket() *Bucket { return bl.bucket }

// Exists reports whether the blob has stored content. It never fails.
func (bl *Blob) Exists() bool {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	return bl.present
}

// UploadBytes stores content, replacing whatever was there. opts may be nil.
func (bl *Blob) UploadBytes(data []byte, opts *UploadOptions) {
	// Re-register the handle first, in case it was constructed before a
	// Delete cycle removed it from the bucket map. ListBlobs nests the
	// blob lock inside the bucket lock, so the two locks must never be
	// held together here.
	bl.bucket.mu.Lock()
	bl.bucket.blobs[bl.name] = bl
	bl.bucket.mu.Unlock()

	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.content = append([]byte(nil), data...)
	bl.present = true
	bl.updated = time.Now().UTC()
	bl.contentType = "application/octet-stream"
	if opts != nil {
		if opts.ContentType != "" {
			bl.contentType = opts.ContentType
		}
		for k, v := range opts.Metadata {
			bl.metadata[k] = v
		}
	}
}

// UploadString stores string content. opts may be nil.
func (bl *Blob) UploadString(data string, opts *UploadOptions) {
	bl.UploadBytes([]byte(data), opts)
}

// Upload stores everything readable from r. opts may be nil.
func (bl *Blob) Upload(r io.Reader, opts *UploadOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	bl.UploadBytes(data, opts)
	return nil
}

// DownloadBytes returns a copy of the stored content. A blob that was never
// uploaded yields nil; callers that care should check Exists first.
func (bl *Blob) DownloadBytes() []byte {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	if !bl.present {
		return nil
	}
	return append([]byte(nil), bl.content...)
}

// DownloadText returns the stored content as a string.
func (bl *Blob) DownloadText() string {
	return string(bl.DownloadBytes())
}

// Size returns the content length in bytes.
func (bl *Blob) Size() int64 {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	return int64(len(bl.content))
}

// ContentType returns the content type recorded by the last upload.
func (bl *Blob) ContentType() string {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	return bl.contentType
}

// Metadata returns a copy of the blob metadata.
func (bl *Blob) Metadata() map[string]string {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	return copyMeta(bl.metadata)
}

// Updated returns the time of the last upload.
func (bl *Blob) Updated() time.Time {
	bl.mu.RLock()
	defer bl.mu.RUnlock()
	return bl.updated
}

// Delete removes the blob from its bucket. It reports whether content was
// present; deleting an absent blob is a no-op, not an error.
func (bl *Blob) Delete() bool {
	bl.mu.Lock()
	existed := bl.present
	bl.present = false
	bl.content = nil
	bl.mu.Unlock()
	bl.bucket.removeBlob(bl.name)
	return existed
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
