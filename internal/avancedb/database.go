package avancedb

import (
	"hash/fnv"
	"sync/atomic"

	"github.com/avancedb/avancedb/internal/config"
	"github.com/avancedb/avancedb/internal/dblog"
	"github.com/avancedb/avancedb/internal/errs"
	"github.com/avancedb/avancedb/internal/lfs"
	"github.com/avancedb/avancedb/internal/metrics"
	"github.com/avancedb/avancedb/internal/scriptobject"
	"github.com/avancedb/avancedb/internal/shard"
)

// Database is a fixed-width array of Document Collection shards plus
// a set of global counters: an atomic update sequence and atomic
// live/tombstone document counts.
type Database struct {
	cfg    *config.Config
	shards []*shard.Collection[*Document]

	updateSeq   uint64
	docCount    int64
	docDelCount int64

	logger  *dblog.Logger
	metrics *metrics.Metrics
}

// New constructs an empty Database with cfg.ShardCount shards. logger
// and m may be nil; sensible defaults are substituted.
func New(cfg *config.Config, logger *dblog.Logger, m *metrics.Metrics) *Database {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = dblog.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	shards := make([]*shard.Collection[*Document], cfg.ShardCount)
	for i := range shards {
		shards[i] = shard.New(lessDocument, equalDocument, cfg.MaxUnsortedEntries, cfg.MaxNurseryEntries)
	}

	return &Database{cfg: cfg, shards: shards, logger: logger, metrics: m}
}

// Shards returns the current snapshot of shard pointers for read-only
// parallel iteration by the map/reduce executor. The shard vector
// itself never changes after construction;
// callers still lock each shard individually to get a consistent view.
func (db *Database) Shards() []*shard.Collection[*Document] {
	return db.shards
}

func (db *Database) shardFor(id string) *shard.Collection[*Document] {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	idx := h.Sum64() % uint64(len(db.shards))
	return db.shards[idx]
}

// SetDocument creates or revises the document with the given id,
// assigning the next revision number and global update sequence.
func (db *Database) SetDocument(id string, body scriptobject.Object) (*Document, error) {
	return db.setDocument(id, "", body)
}

// SetDocumentRev is SetDocument with a client-provided revision: rev
// must equal the document's current revision or the write fails with
// errs.Conflict. A missing or tombstoned document has no current
// revision, so the write fails with errs.Conflict; an empty rev is
// rejected with errs.InvalidArgument.
func (db *Database) SetDocumentRev(id, rev string, body scriptobject.Object) (*Document, error) {
	if len(rev) == 0 {
		return nil, errs.InvalidArgument("revision must not be empty")
	}
	return db.setDocument(id, rev, body)
}

func (db *Database) setDocument(id, rev string, body scriptobject.Object) (*Document, error) {
	if len(id) == 0 {
		return nil, errs.InvalidArgument("document id must not be empty")
	}

	s := db.shardFor(id)

	var result *Document
	var opErr error
	s.WithLock(func(set *lfs.Set[*Document]) {
		existing, ok := set.Find(&Document{id: id})
		live := ok && !existing.deleted

		if rev != "" {
			if !live {
				opErr = errs.Conflict(id)
				return
			}
			if existing.rev != rev {
				opErr = errs.Conflict(id)
				return
			}
		}

		prevRevNum := 0
		if live {
			prevRevNum = existing.revNum
		}
		// A tombstone (ok && existing.deleted) is treated as absent:
		// the revision counter resets to 1-.

		seq := atomic.AddUint64(&db.updateSeq, 1)
		doc := newDocument(id, prevRevNum, seq, false, body)
		set.Insert(doc)

		if !live {
			atomic.AddInt64(&db.docCount, 1)
		}
		if ok && existing.deleted {
			atomic.AddInt64(&db.docDelCount, -1)
		}
		result = doc
	})
	if opErr != nil {
		return nil, opErr
	}

	db.metrics.UpdateSeq.Inc()
	db.metrics.DocsLive.Set(float64(atomic.LoadInt64(&db.docCount)))
	db.metrics.DocsTombstoned.Set(float64(atomic.LoadInt64(&db.docDelCount)))
	return result, nil
}

// GetDocument looks up the document with the given id. If throwIfMissing
// is set, a missing or deleted document returns errs.DocumentMissing
// instead of a nil result.
func (db *Database) GetDocument(id string, throwIfMissing bool) (*Document, error) {
	s := db.shardFor(id)
	doc, ok := s.Find(&Document{id: id})
	if !ok || doc.deleted {
		if throwIfMissing {
			return nil, errs.DocumentMissing(id)
		}
		return nil, nil
	}
	return doc, nil
}

// DeleteDocument tombstones the document with the given id, provided
// rev matches its current revision.
func (db *Database) DeleteDocument(id, rev string) (*Document, error) {
	s := db.shardFor(id)

	var result *Document
	var opErr error
	s.WithLock(func(set *lfs.Set[*Document]) {
		existing, ok := set.Find(&Document{id: id})
		if !ok || existing.deleted {
			opErr = errs.DocumentMissing(id)
			return
		}
		if existing.rev != rev {
			opErr = errs.Conflict(id)
			return
		}

		seq := atomic.AddUint64(&db.updateSeq, 1)
		tombstone := newDocument(id, existing.revNum, seq, true, nil)
		set.Insert(tombstone)

		atomic.AddInt64(&db.docCount, -1)
		atomic.AddInt64(&db.docDelCount, 1)
		result = tombstone
	})
	if opErr != nil {
		return nil, opErr
	}

	db.metrics.UpdateSeq.Inc()
	db.metrics.DocsLive.Set(float64(atomic.LoadInt64(&db.docCount)))
	db.metrics.DocsTombstoned.Set(float64(atomic.LoadInt64(&db.docDelCount)))
	return result, nil
}

// DocCount returns the number of live (non-tombstone) documents.
func (db *Database) DocCount() int64 { return atomic.LoadInt64(&db.docCount) }

// DocDelCount returns the number of tombstones.
func (db *Database) DocDelCount() int64 { return atomic.LoadInt64(&db.docDelCount) }

// UpdateSequence returns the current global update sequence.
func (db *Database) UpdateSequence() uint64 { return atomic.LoadUint64(&db.updateSeq) }

// CommittedUpdateSequence equals UpdateSequence in this in-memory
// design: there is no separate commit/replay distinction.
func (db *Database) CommittedUpdateSequence() uint64 { return db.UpdateSequence() }

// PurgeSequence is always 0: purge is not modeled.
func (db *Database) PurgeSequence() uint64 { return 0 }

// DiskSize is always 0: this is an in-memory database.
func (db *Database) DiskSize() uint64 { return 0 }

// DataSize estimates live-document body size by summing a cheap
// canonical encoding of each live document's body. It is an estimate,
// not a byte-exact measurement, since persistence is out of scope.
func (db *Database) DataSize() uint64 {
	var total uint64
	for _, s := range db.shards {
		for _, doc := range s.Copy(false) {
			if !doc.deleted {
				total += uint64(len(canonicalBody(doc.body)))
			}
		}
	}
	return total
}
