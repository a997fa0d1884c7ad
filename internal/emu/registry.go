// Package emu wires the emulated cloud services together: it builds an
// object store, a table engine and a secret store from one declarative
// seed, and swaps them into the client factories a system under test reads
// its clients from. Each test owns its own Registry; nothing here is
// process-global.
package emu

import (
	"sort"
	"strconv"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/skylite-dev/skylite/internal/logging"
	"github.com/skylite-dev/skylite/internal/services/objectstore"
	"github.com/skylite-dev/skylite/internal/services/secretstore"
	"github.com/skylite-dev/skylite/internal/services/tableengine"
)

// Registry owns one instance of each emulated store for its lifetime, plus
// the set of active factory substitutions.
type Registry struct {
	objects *objectstore.Store
	tables  *tableengine.Engine
	secrets *secretstore.Store

	project string
	logger  logging.Logger

	mu     sync.Mutex
	active map[*Factories]*Handle
}

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	strict  bool
	project string
	logger  logging.Logger
}

// WithStrict builds all three stores in strict mode: missing buckets,
// datasets and secrets fail with not-found errors instead of being
// auto-created.
func WithStrict() Option {
	return func(c *registryConfig) { c.strict = true }
}

// WithProject sets the project id used for secret resource paths during
// seeding. Default: "local-project".
func WithProject(project string) Option {
	return func(c *registryConfig) { c.project = project }
}

// WithLogger attaches a structured logger to the registry and its stores.
func WithLogger(logger logging.Logger) Option {
	return func(c *registryConfig) { c.logger = logger }
}

// NewRegistry creates a registry with three empty stores.
func NewRegistry(opts ...Option) *Registry {
	cfg := registryConfig{
		project: "local-project",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		osOpts []objectstore.Option
		teOpts []tableengine.Option
		ssOpts []secretstore.Option
	)
	if cfg.strict {
		osOpts = append(osOpts, objectstore.WithStrict())
		teOpts = append(teOpts, tableengine.WithStrict())
		ssOpts = append(ssOpts, secretstore.WithStrict())
	}
	osOpts = append(osOpts, objectstore.WithLogger(cfg.logger))
	teOpts = append(teOpts, tableengine.WithLogger(cfg.logger))
	ssOpts = append(ssOpts, secretstore.WithLogger(cfg.logger))

	return &Registry{
		objects: objectstore.New(osOpts...),
		tables:  tableengine.New(teOpts...),
		secrets: secretstore.New(ssOpts...),
		project: cfg.project,
		logger:  cfg.logger,
		active:  make(map[*Factories]*Handle),
	}
}

// ObjectStore returns the registry's object store.
func (r *Registry) ObjectStore() *objectstore.Store { return r.objects }

// TableEngine returns the registry's table engine.
func (r *Registry) TableEngine() *tableengine.Engine { return r.tables }

// SecretStore returns the registry's secret store.
func (r *Registry) SecretStore() *secretstore.Store { return r.secrets }

// Project returns the project id used for secret resource paths.
func (r *Registry) Project() string { return r.project }

// Build populates the three stores from the seed, going through the same
// public operations any caller would use. Iteration is sorted so repeated
// builds of equal seeds produce identical state.
func (r *Registry) Build(seed Seed) error {
	for _, name := range sortedKeys(seed.Buckets) {
		bucketSeed := seed.Buckets[name]
		bucket := r.objects.Bucket(name)
		bucket.SetMetadata(bucketSeed.Metadata)
		for _, blobName := range sortedKeys(bucketSeed.Blobs) {
			blobSeed := bucketSeed.Blobs[blobName]
			bucket.Blob(blobName).UploadString(blobSeed.Content, &objectstore.UploadOptions{
				Metadata: blobSeed.Metadata,
			})
		}
	}

	for _, id := range sortedKeys(seed.Datasets) {
		datasetSeed := seed.Datasets[id]
		dataset := r.tables.CreateDataset(id, nil)
		for _, tableID := range sortedKeys(datasetSeed.Tables) {
			tableSeed := datasetSeed.Tables[tableID]
			schema := make([]tableengine.FieldSchema, len(tableSeed.Schema))
			for i, f := range tableSeed.Schema {
				schema[i] = tableengine.FieldSchema{Name: f.Name, Type: f.Type, Mode: f.Mode}
			}
			table := dataset.CreateTable(tableID, schema)
			if len(tableSeed.Rows) > 0 {
				table.InsertRows(tableSeed.Rows)
			}
		}
	}

	for _, sql := range sortedKeys(seed.Queries) {
		stub := seed.Queries[sql]
		if stub.Error != "" {
			r.tables.SeedQueryError(sql, stub.Error)
		} else {
			r.tables.SeedQuery(sql, stub.Rows)
		}
	}
	for _, sql := range sortedKeys(seed.QueryErrors) {
		r.tables.SeedQueryError(sql, seed.QueryErrors[sql])
	}

	for _, id := range sortedKeys(seed.Secrets) {
		secretSeed := seed.Secrets[id]
		parent := "projects/" + r.project
		if _, err := r.secrets.CreateSecret(parent, id, nil); err != nil {
			return err
		}
		secretParent := parent + "/secrets/" + id
		if len(secretSeed.Versions) > 0 {
			for _, versionID := range sortedVersionIDs(secretSeed.Versions) {
				payload := secretSeed.Versions[versionID].Payload
				if _, err := r.secrets.AddVersion(secretParent, []byte(payload)); err != nil {
					return err
				}
			}
		} else if secretSeed.DefaultPayload != "" {
			if _, err := r.secrets.AddVersion(secretParent, []byte(secretSeed.DefaultPayload)); err != nil {
				return err
			}
		}
	}

	r.logger.Info("emulation state built",
		logging.Int("buckets", len(seed.Buckets)),
		logging.Int("datasets", len(seed.Datasets)),
		logging.Int("queries", len(seed.Queries)+len(seed.QueryErrors)),
		logging.Int("secrets", len(seed.Secrets)),
	)
	return nil
}

// BuildFromMap decodes an untyped seed map and builds from it.
func (r *Registry) BuildFromMap(raw map[string]any) error {
	seed, err := DecodeSeed(raw)
	if err != nil {
		return err
	}
	return r.Build(seed)
}

// Factories is the injection point a system under test exposes instead of
// constructing network clients inline. Production wiring fills the fields
// with constructors for real clients; Activate swaps in constructors that
// return this registry's emulated stores, and Deactivate puts the
// originals back.
type Factories struct {
	ObjectStore func() *objectstore.Store
	TableEngine func() *tableengine.Engine
	SecretStore func() *secretstore.Store
}

// Handle is the scoped guard for one activation. Deactivate must be called
// on every exit path, typically via defer or a test cleanup hook.
type Handle struct {
	registry *Registry
	target   *Factories
	prev     Factories
	done     bool
}

// Activate replaces the factory functions in f so that they return the
// registry's stores, and returns a handle that restores the originals.
// Activating the same Factories twice without deactivating is a
// *UsageError: overlapping substitutions would silently lose the original
// constructors.
func (r *Registry) Activate(f *Factories) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[f]; ok {
		return nil, &UsageError{Op: "Activate", Reason: "factories are already activated on this registry"}
	}

	h := &Handle{registry: r, target: f, prev: *f}
	f.ObjectStore = func() *objectstore.Store { return r.objects }
	f.TableEngine = func() *tableengine.Engine { return r.tables }
	f.SecretStore = func() *secretstore.Store { return r.secrets }
	r.active[f] = h
	return h, nil
}

// Deactivate restores the original factory functions. Calling it a second
// time is a *UsageError.
func (h *Handle) Deactivate() error {
	r := h.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.done {
		return &UsageError{Op: "Deactivate", Reason: "handle was already deactivated"}
	}
	*h.target = h.prev
	delete(r.active, h.target)
	h.done = true
	return nil
}

// Close deactivates every handle still active on the registry, collecting
// any errors. It is safe to call after all handles were deactivated
// individually.
func (r *Registry) Close() error {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.active))
	for _, h := range r.active {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	var result *multierror.Error
	for _, h := range handles {
		if err := h.Deactivate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedVersionIDs orders seed version ids numerically so "10" sorts after
// "2".
func sortedVersionIDs(m map[string]SecretVersionSeed) []string {
	ids := sortedKeys(m)
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})
	return ids
}
