package avancedb

import (
	"sync"

	"github.com/avancedb/avancedb/internal/config"
	"github.com/avancedb/avancedb/internal/dblog"
	"github.com/avancedb/avancedb/internal/errs"
	"github.com/avancedb/avancedb/internal/metrics"
)

// DatabaseRegistry owns a set of named Database instances behind a
// mutex-guarded map, exposing Create/Get/Drop/List.
type DatabaseRegistry struct {
	cfg     *config.Config
	logger  *dblog.Logger
	metrics *metrics.Metrics

	mu sync.RWMutex
	db map[string]*Database
}

// NewRegistry constructs an empty registry. cfg, logger, and m are
// shared defaults handed to every Database the registry creates; m is
// shared across databases rather than one Metrics per database, since
// the Metrics registry fields are themselves named per-database-less
// process-wide gauges in this design.
func NewRegistry(cfg *config.Config, logger *dblog.Logger, m *metrics.Metrics) *DatabaseRegistry {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = dblog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &DatabaseRegistry{cfg: cfg, logger: logger, metrics: m, db: make(map[string]*Database)}
}

// CreateDatabase registers a new, empty Database under name. It fails
// with errs.Conflict if name is already taken, mirroring CouchDB's
// PUT /{db} "file_exists" response.
func (r *DatabaseRegistry) CreateDatabase(name string) (*Database, error) {
	if len(name) == 0 {
		return nil, errs.InvalidArgument("database name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.db[name]; exists {
		return nil, errs.Conflict(name)
	}

	db := New(r.cfg, r.logger, r.metrics)
	r.db[name] = db
	return db, nil
}

// GetDatabase looks up a previously created database by name.
func (r *DatabaseRegistry) GetDatabase(name string) (*Database, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	db, ok := r.db[name]
	if !ok {
		return nil, errs.DocumentMissing(name)
	}
	return db, nil
}

// DropDatabase removes name from the registry. The Database itself is
// simply abandoned to the garbage collector; there is no persistent
// state to reclaim.
func (r *DatabaseRegistry) DropDatabase(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.db[name]; !ok {
		return errs.DocumentMissing(name)
	}
	delete(r.db, name)
	return nil
}

// ListDatabases returns the names of every currently registered
// database, in no particular order.
func (r *DatabaseRegistry) ListDatabases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.db))
	for name := range r.db {
		names = append(names, name)
	}
	return names
}
