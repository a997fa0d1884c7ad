package tableengine

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/skylite-dev/skylite/internal/logging"
)

// Row is a single result row, keyed by column name.
type Row = map[string]any

// FieldSchema describes one column of a table schema.
type FieldSchema struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Type string `json:"type" yaml:"type" mapstructure:"type"`
	Mode string `json:"mode,omitempty" yaml:"mode" mapstructure:"mode"`
}

// Engine is an in-memory emulation of a BigQuery-style tabular service:
// datasets containing tables for existence checks, plus a statement-keyed
// query stub cache. It is not a SQL interpreter; query results are looked
// up by the exact statement text they were seeded under.
type Engine struct {
	mu       sync.RWMutex
	strict   bool
	datasets map[string]*Dataset
	queries  map[string]queryStub
	logger   logging.Logger
}

type queryStub struct {
	rows []Row
	err  error
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrict makes GetDataset fail with *NotFoundError on missing datasets
// instead of auto-creating them.
func WithStrict() Option {
	return func(e *Engine) { e.strict = true }
}

// WithLogger attaches a structured logger to the engine.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an empty table engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		datasets: make(map[string]*Dataset),
		queries:  make(map[string]queryStub),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strict reports whether the engine was built with WithStrict.
func (e *Engine) Strict() bool {
	return e.strict
}

// Dataset returns the identified dataset, creating it if it does not exist.
func (e *Engine) Dataset(id string) *Dataset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.datasetLocked(id)
}

func (e *Engine) datasetLocked(id string) *Dataset {
	if d, ok := e.datasets[id]; ok {
		return d
	}
	d := &Dataset{
		id:       id,
		engine:   e,
		metadata: make(map[string]string),
		tables:   make(map[string]*Table),
	}
	e.datasets[id] = d
	e.logger.Debug("dataset created", logging.String("dataset", id))
	return d
}

// GetDataset returns an existing dataset. In strict mode a missing dataset
// yields a *NotFoundError; otherwise it is created, exactly as Dataset would.
func (e *Engine) GetDataset(id string) (*Dataset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.datasets[id]; ok {
		return d, nil
	}
	if e.strict {
		return nil, &NotFoundError{Kind: "dataset", Name: id}
	}
	return e.datasetLocked(id), nil
}

// CreateDataset explicitly creates a dataset with optional metadata.
// Re-creation keeps existing tables and merges the metadata.
func (e *Engine) CreateDataset(id string, metadata map[string]string) *Dataset {
	d := e.Dataset(id)
	d.mu.Lock()
	for k, v := range metadata {
		d.metadata[k] = v
	}
	d.mu.Unlock()
	return d
}

// DatasetIDs returns all dataset ids, sorted.
func (e *Engine) DatasetIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.datasets))
	for id := range e.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SeedQuery registers literal result rows for the exact statement text.
func (e *Engine) SeedQuery(sql string, rows []Row) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries[sql] = queryStub{rows: rows}
}

// SeedQueryError registers a failure for the exact statement text. The
// error surfaces verbatim, and only when the job's results are consumed.
func (e *Engine) SeedQueryError(sql string, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries[sql] = queryStub{err: &QueryError{Statement: sql, Message: message}}
}

// Query submits a statement and returns a job handle. Submitting never
// fails: a seeded error is deferred until the results are read, mirroring
// the job-then-poll pattern of real query services, and an unseeded
// statement simply produces an empty result set.
func (e *Engine) Query(sql string) *QueryJob {
	e.mu.RLock()
	stub := e.queries[sql]
	e.mu.RUnlock()

	job := &QueryJob{
		id:   uuid.NewString(),
		sql:  sql,
		rows: stub.rows,
		err:  stub.err,
	}
	e.logger.Debug("query submitted",
		logging.String("job_id", job.id),
		logging.Int("seeded_rows", len(stub.rows)),
		logging.Bool("seeded_error", stub.err != nil),
	)
	return job
}

// Dataset is a named collection of tables.
type Dataset struct {
	id       string
	engine   *Engine
	metadata map[string]string

	mu     sync.RWMutex
	tables map[string]*Table
}

// ID returns the dataset id.
func (d *Dataset) ID() string { return d.id }

// Table returns the identified table, creating an empty one if absent.
// Unlike blobs in the object store, referencing a table is the same step
// as creating it: Exists reports true as soon as Table returns.
func (d *Dataset) Table(id string) *Table {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tables[id]; ok {
		return t
	}
	t := &Table{id: id, dataset: d}
	d.tables[id] = t
	return t
}

// CreateTable creates (or replaces the schema of) a table.
func (d *Dataset) CreateTable(id string, schema []FieldSchema) *Table {
	t := d.Table(id)
	t.mu.Lock()
	t.schema = append([]FieldSchema(nil), schema...)
	t.mu.Unlock()
	return t
}

// GetTable returns an existing table. With the engine in strict mode a
// missing table yields a *NotFoundError; otherwise it is created.
func (d *Dataset) GetTable(id string) (*Table, error) {
	d.mu.Lock()
	if t, ok := d.tables[id]; ok {
		d.mu.Unlock()
		return t, nil
	}
	d.mu.Unlock()
	if d.engine.strict {
		return nil, &NotFoundError{Kind: "table", Name: d.id + "." + id}
	}
	return d.Table(id), nil
}

// DeleteTable removes a table from the dataset. Removing a missing table
// returns *NotFoundError.
func (d *Dataset) DeleteTable(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[id]; !ok {
		return &NotFoundError{Kind: "table", Name: d.id + "." + id}
	}
	delete(d.tables, id)
	return nil
}

// TableIDs returns all table ids in the dataset, sorted.
func (d *Dataset) TableIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.tables))
	for id := range d.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Table is a schema plus a row buffer. The rows exist for introspection in
// tests; queries never read them (results come from the seeded stubs).
type Table struct {
	id      string
	dataset *Dataset

	mu     sync.RWMutex
	schema []FieldSchema
	rows   []Row
}

// ID returns the table id.
func (t *Table) ID() string { return t.id }

// Dataset returns the owning dataset.
func (t *Table) Dataset() *Dataset { return t.dataset }

// Exists reports whether the table id is present in the owning dataset.
func (t *Table) Exists() bool {
	t.dataset.mu.RLock()
	defer t.dataset.mu.RUnlock()
	_, ok := t.dataset.tables[t.id]
	return ok
}

// Schema returns a copy of the table schema.
func (t *Table) Schema() []FieldSchema {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]FieldSchema(nil), t.schema...)
}

// InsertRows appends rows to the introspection buffer.
func (t *Table) InsertRows(rows []Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, rows...)
}

// Rows returns a copy of the buffered rows.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Row(nil), t.rows...)
}

// NumRows returns the number of buffered rows.
func (t *Table) NumRows() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
