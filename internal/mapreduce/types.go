// Package mapreduce implements a parallel map/reduce view executor:
// per-shard parallel map evaluation, a single reserved results slice
// filled at precomputed offsets, and a doubling-step pairwise merge
// cascade that leaves the whole collection globally sorted, with an
// optional grouped reduce pass folded on afterward.
package mapreduce

import "github.com/avancedb/avancedb/internal/scriptobject"

// Row is one emitted (key, value) pair, tagged with the id of the
// document that produced it.
type Row struct {
	Key   interface{}
	Value interface{}
	DocID string
}

// Task is a view definition: a map function source and an optional
// reduce/rereduce function source.
type Task struct {
	Map    string
	Reduce string
}

// ViewOptions controls how a view's rows are windowed and grouped.
type ViewOptions struct {
	Limit      int
	Skip       int
	Descending bool
	GroupLevel int
	Group      bool
	Reduce     *bool // nil means "default to true when a reduce function is present"
}

// DefaultViewOptions returns a no-limit, no-skip, ascending option set.
func DefaultViewOptions() ViewOptions {
	return ViewOptions{Limit: -1}
}

// DocumentSource is the minimal view the executor needs of a document
// for map evaluation: its identity and body. internal/avancedb.Document
// satisfies this directly.
type DocumentSource interface {
	ID() string
	Rev() string
	Body() scriptobject.Object
	Deleted() bool
}
