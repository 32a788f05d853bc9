package avancedb

import (
	"sort"
	"sync"

	"github.com/avancedb/avancedb/internal/scriptobject"
	"github.com/panjf2000/ants/v2"
)

// BulkItem is one entry of a _bulk_docs-style request. A non-empty Rev
// must match the document's current revision (same conflict rule as
// DeleteDocument); an empty Rev means create-or-overwrite by id.
// Deleted marks a bulk delete, for which Rev is mandatory.
type BulkItem struct {
	ID      string
	Rev     string
	Deleted bool
	Body    scriptobject.Object
}

// BulkResult reports the per-item outcome of a bulk write, mirroring
// CouchDB's _bulk_docs response shape: either a new revision or an
// error, never both.
type BulkResult struct {
	ID    string
	Rev   string
	Error error
}

// PostBulkDocuments applies items against the database, fanning each
// item out to its owning shard. allOrNothing is accepted for
// compatibility with CouchDB's _bulk_docs but treated as a hint only:
// earlier items in the batch are never rolled back on a later failure,
// since there is no transaction log to roll back against.
//
// Items are independent of one another and carry no per-goroutine
// affinity requirement (unlike a map/reduce task, which is pinned to a
// worker's persistent JS runtime), so the fan-out is handed to an
// ants.Pool sized by cfg.BulkFanout rather than the fixed worker pool.
func (db *Database) PostBulkDocuments(items []BulkItem, allOrNothing bool) []BulkResult {
	if allOrNothing {
		db.logger.Debug("bulk write: all_or_nothing requested, applying items independently")
	}

	results := make([]BulkResult, len(items))

	fanout := 1
	if db.cfg != nil && db.cfg.BulkFanout > 1 {
		fanout = db.cfg.BulkFanout
	}
	if fanout > len(items) {
		fanout = len(items)
	}
	if fanout <= 1 {
		for i, item := range items {
			results[i] = db.applyBulkItem(item)
		}
		return results
	}

	p, err := ants.NewPool(fanout)
	if err != nil {
		// Falls back to serial application; ants.NewPool only fails on
		// a non-positive pool size, which cannot happen here.
		for i, item := range items {
			results[i] = db.applyBulkItem(item)
		}
		return results
	}
	defer p.Release()

	var wg sync.WaitGroup
	wg.Add(len(items))
	for i, item := range items {
		i, item := i, item
		_ = p.Submit(func() {
			defer wg.Done()
			results[i] = db.applyBulkItem(item)
		})
	}
	wg.Wait()

	return results
}

func (db *Database) applyBulkItem(item BulkItem) BulkResult {
	if item.Deleted {
		doc, err := db.DeleteDocument(item.ID, item.Rev)
		if err != nil {
			return BulkResult{ID: item.ID, Error: err}
		}
		return BulkResult{ID: item.ID, Rev: doc.Rev()}
	}

	var doc *Document
	var err error
	if item.Rev != "" {
		doc, err = db.SetDocumentRev(item.ID, item.Rev, item.Body)
	} else {
		doc, err = db.SetDocument(item.ID, item.Body)
	}
	if err != nil {
		return BulkResult{ID: item.ID, Error: err}
	}
	return BulkResult{ID: item.ID, Rev: doc.Rev()}
}

// PostAllDocuments returns every live document matching opts.Keys (if
// set) or the whole database, sorted by id and windowed by
// descending/skip/limit, alongside the database's total live-document
// count and update sequence as observed at snapshot time.
func (db *Database) PostAllDocuments(opts PostAllDocumentsOptions) (docs []*Document, totalDocs int64, updateSeq uint64, err error) {
	totalDocs = db.DocCount()
	updateSeq = db.UpdateSequence()

	if len(opts.Keys) > 0 {
		out := make([]*Document, 0, len(opts.Keys))
		for _, key := range opts.Keys {
			doc, getErr := db.GetDocument(key, false)
			if getErr != nil {
				return nil, totalDocs, updateSeq, getErr
			}
			if doc != nil {
				out = append(out, doc)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
		return opts.window(out), totalDocs, updateSeq, nil
	}

	all := make([]*Document, 0, totalDocs)
	for _, s := range db.shards {
		for _, doc := range s.Copy(true) {
			if !doc.deleted {
				all = append(all, doc)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })

	return opts.apply(all), totalDocs, updateSeq, nil
}
