// Package client is the embedding surface of avancedb: a thin facade
// over the internal registry, database, and map/reduce packages,
// exposing document and view operations on plain Go values so
// consumers never need to name an internal type.
package client

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avancedb/avancedb/internal/avancedb"
	"github.com/avancedb/avancedb/internal/config"
	"github.com/avancedb/avancedb/internal/dblog"
	"github.com/avancedb/avancedb/internal/mapreduce"
	"github.com/avancedb/avancedb/internal/metrics"
	"github.com/avancedb/avancedb/internal/pool"
	"github.com/avancedb/avancedb/internal/scriptobject"
)

// Options tunes a Client. The zero value of any field falls back to
// the built-in default.
type Options struct {
	// ShardCount is the number of document-collection shards per
	// database. Must be a power of two.
	ShardCount int
	// WorkerCount is the number of map/reduce workers; 0 means one per
	// CPU.
	WorkerCount int
	// BulkFanout is the concurrency applied to a Bulk batch.
	BulkFanout int
	// Debug enables debug-level logging.
	Debug bool
}

// Client owns a set of named databases and the map/reduce worker pool
// they share. Construct with New, release with Close.
type Client struct {
	registry *avancedb.DatabaseRegistry
	pool     *pool.Pool
	metrics  *metrics.Metrics
}

// New constructs a Client and starts its worker pool. opts may be nil.
func New(opts *Options) *Client {
	cfg := config.Default()
	logger := dblog.Default()
	if opts != nil {
		if opts.ShardCount > 0 {
			cfg.ShardCount = opts.ShardCount
		}
		if opts.WorkerCount > 0 {
			cfg.WorkerCount = opts.WorkerCount
		}
		if opts.BulkFanout > 0 {
			cfg.BulkFanout = opts.BulkFanout
		}
		if opts.Debug {
			logger.SetLevel(dblog.LevelDebug)
		}
	}

	m := metrics.New()
	c := &Client{
		registry: avancedb.NewRegistry(cfg, logger, m),
		pool:     pool.New(cfg, logger),
		metrics:  m,
	}
	c.pool.Start()
	return c
}

// Close stops the worker pool. Databases remain readable but Query
// fails after Close.
func (c *Client) Close() {
	c.pool.Stop()
}

// MetricsRegistry exposes the Prometheus registry all of this client's
// databases report into, for callers that serve /metrics.
func (c *Client) MetricsRegistry() *prometheus.Registry {
	return c.metrics.Registry
}

// CreateDB registers a new, empty database under name.
func (c *Client) CreateDB(name string) (*DB, error) {
	db, err := c.registry.CreateDatabase(name)
	if err != nil {
		return nil, err
	}
	return &DB{db: db, pool: c.pool}, nil
}

// OpenDB returns a handle to a previously created database.
func (c *Client) OpenDB(name string) (*DB, error) {
	db, err := c.registry.GetDatabase(name)
	if err != nil {
		return nil, err
	}
	return &DB{db: db, pool: c.pool}, nil
}

// DropDB removes name from the registry.
func (c *Client) DropDB(name string) error {
	return c.registry.DropDatabase(name)
}

// ListDBs returns the names of every registered database.
func (c *Client) ListDBs() []string {
	return c.registry.ListDatabases()
}

// DB is a handle to one named database.
type DB struct {
	db   *avancedb.Database
	pool *pool.Pool
}

// DocumentMeta identifies one stored document revision.
type DocumentMeta struct {
	ID       string
	Rev      string
	Sequence uint64
	Deleted  bool
}

func metaOf(doc interface {
	ID() string
	Rev() string
	Sequence() uint64
	Deleted() bool
}) DocumentMeta {
	return DocumentMeta{ID: doc.ID(), Rev: doc.Rev(), Sequence: doc.Sequence(), Deleted: doc.Deleted()}
}

// Put creates or overwrites the document with the given id.
func (d *DB) Put(id string, body map[string]interface{}) (DocumentMeta, error) {
	doc, err := d.db.SetDocument(id, scriptobject.NewObject(body))
	if err != nil {
		return DocumentMeta{}, err
	}
	return metaOf(doc), nil
}

// PutRev revises the document with the given id; rev must match the
// current revision or the write fails with a conflict.
func (d *DB) PutRev(id, rev string, body map[string]interface{}) (DocumentMeta, error) {
	doc, err := d.db.SetDocumentRev(id, rev, scriptobject.NewObject(body))
	if err != nil {
		return DocumentMeta{}, err
	}
	return metaOf(doc), nil
}

// Get fetches a live document's body and identity. A missing or
// deleted document fails with a document-missing error.
func (d *DB) Get(id string) (map[string]interface{}, DocumentMeta, error) {
	doc, err := d.db.GetDocument(id, true)
	if err != nil {
		return nil, DocumentMeta{}, err
	}
	return scriptobject.ToNative(doc.Body()), metaOf(doc), nil
}

// Delete tombstones the document with the given id and revision.
func (d *DB) Delete(id, rev string) (DocumentMeta, error) {
	doc, err := d.db.DeleteDocument(id, rev)
	if err != nil {
		return DocumentMeta{}, err
	}
	return metaOf(doc), nil
}

// BulkDoc is one entry of a Bulk batch; see avancedb's bulk-write
// rules: Rev is required for Deleted entries and optional (but
// conflict-checked when present) for writes.
type BulkDoc struct {
	ID      string
	Rev     string
	Deleted bool
	Body    map[string]interface{}
}

// BulkOutcome is the per-entry result of a Bulk call, in input order.
type BulkOutcome struct {
	ID  string
	Rev string
	Err error
}

// Bulk applies docs as independent writes/deletes. allOrNothing is
// accepted for CouchDB compatibility but is a hint only: earlier
// entries are never rolled back when a later one fails.
func (d *DB) Bulk(docs []BulkDoc, allOrNothing bool) []BulkOutcome {
	items := make([]avancedb.BulkItem, len(docs))
	for i, doc := range docs {
		items[i] = avancedb.BulkItem{
			ID:      doc.ID,
			Rev:     doc.Rev,
			Deleted: doc.Deleted,
			Body:    scriptobject.NewObject(doc.Body),
		}
	}

	results := d.db.PostBulkDocuments(items, allOrNothing)
	out := make([]BulkOutcome, len(results))
	for i, r := range results {
		out[i] = BulkOutcome{ID: r.ID, Rev: r.Rev, Err: r.Error}
	}
	return out
}

// AllDocsOptions windows an AllDocs scan. Use DefaultAllDocsOptions as
// the starting point: the zero value's Limit of 0 means "no rows", not
// "no limit", matching the underlying query semantics.
type AllDocsOptions struct {
	Limit      int
	Skip       int
	Descending bool
	Keys       []string
	StartKey   string
	EndKey     string
}

// DefaultAllDocsOptions returns an unwindowed, ascending option set.
func DefaultAllDocsOptions() AllDocsOptions {
	return AllDocsOptions{Limit: -1}
}

// AllDocsResult is one row of an AllDocs scan.
type AllDocsResult struct {
	Meta DocumentMeta
	Body map[string]interface{}
}

// AllDocs lists live documents sorted by id, windowed by opts, plus
// the database's total live-document count and update sequence at
// snapshot time.
func (d *DB) AllDocs(opts AllDocsOptions) (rows []AllDocsResult, totalDocs int64, updateSeq uint64, err error) {
	inner := avancedb.DefaultPostAllDocumentsOptions()
	inner.Limit = opts.Limit
	inner.Skip = opts.Skip
	inner.Descending = opts.Descending
	inner.Keys = opts.Keys
	if opts.StartKey != "" {
		inner.StartKey = opts.StartKey
		inner.HasStartKey = true
	}
	if opts.EndKey != "" {
		inner.EndKey = opts.EndKey
		inner.HasEndKey = true
	}

	docs, totalDocs, updateSeq, err := d.db.PostAllDocuments(inner)
	if err != nil {
		return nil, totalDocs, updateSeq, err
	}

	rows = make([]AllDocsResult, len(docs))
	for i, doc := range docs {
		rows[i] = AllDocsResult{Meta: metaOf(doc), Body: scriptobject.ToNative(doc.Body())}
	}
	return rows, totalDocs, updateSeq, nil
}

// ViewRow is one row of a Query result.
type ViewRow struct {
	Key   interface{}
	Value interface{}
	DocID string
}

// ViewOptions windows and groups a Query. Use DefaultViewOptions as
// the starting point, for the same Limit reason as AllDocsOptions.
type ViewOptions struct {
	Limit      int
	Skip       int
	Descending bool
	Group      bool
	GroupLevel int
}

// DefaultViewOptions returns an unwindowed, ungrouped option set.
func DefaultViewOptions() ViewOptions {
	return ViewOptions{Limit: -1}
}

// Query evaluates mapSource (and, when non-empty, reduceSource) over
// every live document, returning the windowed rows and the total row
// count before windowing. A map failure on one shard does not abort
// the view: the partial rows are returned alongside the error.
func (d *DB) Query(mapSource, reduceSource string, opts ViewOptions) (rows []ViewRow, totalRows int, err error) {
	task := mapreduce.Task{Map: mapSource, Reduce: reduceSource}

	inner := mapreduce.DefaultViewOptions()
	inner.Limit = opts.Limit
	inner.Skip = opts.Skip
	inner.Descending = opts.Descending
	inner.Group = opts.Group
	inner.GroupLevel = opts.GroupLevel

	results, err := d.db.ExecuteView(d.pool, task, inner)
	if results == nil {
		return nil, 0, err
	}

	for _, row := range results.Rows() {
		rows = append(rows, ViewRow{Key: row.Key, Value: row.Value, DocID: row.DocID})
	}
	return rows, results.TotalRows(), err
}

// Info reports the database's counters.
type Info struct {
	DocCount     int64
	DocDelCount  int64
	UpdateSeq    uint64
	CommittedSeq uint64
	PurgeSeq     uint64
	DiskSize     uint64
	DataSize     uint64
}

// Info returns the database's current counters.
func (d *DB) Info() Info {
	return Info{
		DocCount:     d.db.DocCount(),
		DocDelCount:  d.db.DocDelCount(),
		UpdateSeq:    d.db.UpdateSequence(),
		CommittedSeq: d.db.CommittedUpdateSequence(),
		PurgeSeq:     d.db.PurgeSequence(),
		DiskSize:     d.db.DiskSize(),
		DataSize:     d.db.DataSize(),
	}
}
