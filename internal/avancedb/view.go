package avancedb

import (
	"github.com/avancedb/avancedb/internal/mapreduce"
	"github.com/avancedb/avancedb/internal/pool"
)

// ExecuteView runs a map/reduce task across every shard of db on p,
// returning the sorted, optionally-reduced result set. It snapshots
// each shard's live documents under that
// shard's own lock before handing them to the executor, so the view
// runs against a per-shard-consistent (not globally atomic) snapshot —
// the same consistency model as Database.DataSize.
func (db *Database) ExecuteView(p *pool.Pool, task mapreduce.Task, opts mapreduce.ViewOptions) (*mapreduce.Results, error) {
	p.SetMetrics(db.metrics)

	shardDocs := make([][]mapreduce.DocumentSource, len(db.shards))
	for i, s := range db.shards {
		var sources []mapreduce.DocumentSource
		s.Lock()
		s.Ascend(func(doc *Document) bool {
			if !doc.deleted {
				sources = append(sources, doc)
			}
			return true
		})
		s.Unlock()
		shardDocs[i] = sources
	}

	return mapreduce.ExecuteWithMetrics(p, task, shardDocs, opts, db.metrics)
}
