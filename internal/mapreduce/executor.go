package mapreduce

import (
	"sort"
	"sync"
	"time"

	"github.com/avancedb/avancedb/internal/errs"
	"github.com/avancedb/avancedb/internal/jsruntime"
	"github.com/avancedb/avancedb/internal/metrics"
	"github.com/avancedb/avancedb/internal/pool"
	"github.com/avancedb/avancedb/internal/scriptobject"
)

// Execute runs task's map function over every shard in shardDocs
// concurrently on p, concatenates the per-shard sorted row vectors into
// one reserved slice at precomputed offsets, and merges the whole
// thing into a single globally sorted row list via a doubling-step
// pairwise merge cascade, each round barriered with a WaitGroup.
//
// When task.Reduce is non-empty and opts requests reduction, the
// sorted rows are grouped by key (respecting opts.GroupLevel for
// array-typed keys) and folded through the reduce function, one row
// per group.
func Execute(p *pool.Pool, task Task, shardDocs [][]DocumentSource, opts ViewOptions) (*Results, error) {
	return ExecuteWithMetrics(p, task, shardDocs, opts, nil)
}

// ExecuteWithMetrics is Execute with an optional Metrics sink: when m is
// non-nil, each shard's map task records its duration to
// m.MapTaskDuration, each merge-cascade chunk records to
// m.MergeTaskDuration, and a shard map failure increments
// m.ViewEvaluationErrors — the counters internal/metrics defines for
// exactly this purpose.
func ExecuteWithMetrics(p *pool.Pool, task Task, shardDocs [][]DocumentSource, opts ViewOptions, m *metrics.Metrics) (*Results, error) {
	shardCount := len(shardDocs)
	shardRows := make([][]Row, shardCount)
	shardErrs := make([]error, shardCount)
	dones := make([]chan struct{}, shardCount)

	for i, docs := range shardDocs {
		i, docs := i, docs
		done := make(chan struct{})
		dones[i] = done
		if err := p.Submit(&pool.Task{
			Run: func(rt *jsruntime.Runtime) {
				start := time.Now()
				rows, err := executeShardMap(rt, task, docs, i)
				if m != nil {
					m.MapTaskDuration.Observe(time.Since(start).Seconds())
				}
				shardRows[i] = rows
				shardErrs[i] = err
			},
			Done: done,
		}); err != nil {
			shardErrs[i] = err
			close(done)
		}
	}
	for _, done := range dones {
		<-done
	}

	var firstErr error
	for _, e := range shardErrs {
		if e != nil {
			if firstErr == nil {
				firstErr = e
			}
			if m != nil {
				m.ViewEvaluationErrors.Inc()
			}
		}
	}

	// A failing map function does not abort the view: the failing shard
	// stops at the document that threw and keeps only the rows emitted
	// before the throw, other shards still contribute all their rows, and
	// the first error is returned alongside whatever rows did compute.

	totalRows := 0
	offsets := make([]int, shardCount+1)
	for i, rows := range shardRows {
		offsets[i] = totalRows
		totalRows += len(rows)
	}
	offsets[shardCount] = totalRows

	merged := make([]Row, 0, totalRows)
	for _, rows := range shardRows {
		merged = append(merged, rows...)
	}

	mergeCascade(merged, offsets, m)

	if task.Reduce != "" && wantsReduce(opts) {
		reduced, err := reduceRows(p, task.Reduce, merged, opts)
		if err != nil {
			return nil, err
		}
		merged = reduced
	}

	results := NewResults(merged)
	results.SetLimit(opts.Limit)
	results.SetSkip(opts.Skip)
	results.SetDescending(opts.Descending)

	return results, firstErr
}

func wantsReduce(opts ViewOptions) bool {
	return opts.Reduce == nil || *opts.Reduce
}

// mergeCascade merges adjacent shard chunks of rows (each already
// sorted by executeShardMap) in place, doubling the merge width each
// round: step 2, 4, 8, ... Each round's merges run concurrently and
// are barriered with a WaitGroup before the next, larger round starts.
func mergeCascade(rows []Row, offsets []int, m *metrics.Metrics) {
	shardCount := len(offsets) - 1
	if shardCount < 2 {
		return
	}

	step := 2
	for shardCount/step > 0 {
		mergeRound(rows, offsets, shardCount, step, m)
		step *= 2
	}

	// A shardCount that isn't a power of two leaves a trailing run
	// shorter than step/2 unmerged by the loop above; fold it into the
	// prefix with one final merge.
	if shardCount%step > 0 {
		mergeChunk(rows, offsets, shardCount, 0, step, m)
	}
}

func mergeRound(rows []Row, offsets []int, shardCount, step int, m *metrics.Metrics) {
	var wg sync.WaitGroup
	for i := 0; i+step/2 < shardCount; i += step {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			mergeChunk(rows, offsets, shardCount, i, step, m)
		}()
	}
	wg.Wait()
}

func mergeChunk(rows []Row, offsets []int, shardCount, i, step int, m *metrics.Metrics) {
	start := time.Now()
	midIdx := i + step/2
	if midIdx > shardCount {
		midIdx = shardCount
	}
	endIdx := i + step
	if endIdx > shardCount {
		endIdx = shardCount
	}
	inplaceMerge(rows, offsets[i], offsets[midIdx], offsets[endIdx])
	if m != nil {
		m.MergeTaskDuration.Observe(time.Since(start).Seconds())
	}
}

// inplaceMerge merges the two sorted runs rows[lo:mid] and rows[mid:hi]
// through a scratch buffer, leaving rows[lo:hi] sorted. The merge is
// stable: on equal rows the left run's element keeps its position.
func inplaceMerge(rows []Row, lo, mid, hi int) {
	if mid <= lo || mid >= hi {
		return
	}
	left := append([]Row(nil), rows[lo:mid]...)
	right := append([]Row(nil), rows[mid:hi]...)

	i, j, k := 0, 0, lo
	for i < len(left) && j < len(right) {
		if lessRow(right[j], left[i]) {
			rows[k] = right[j]
			j++
		} else {
			rows[k] = left[i]
			i++
		}
		k++
	}
	for i < len(left) {
		rows[k] = left[i]
		i++
		k++
	}
	for j < len(right) {
		rows[k] = right[j]
		j++
		k++
	}
}

func executeShardMap(rt *jsruntime.Runtime, task Task, docs []DocumentSource, shardIndex int) ([]Row, error) {
	var rows []Row

	fn, err := rt.Compile(task.Map)
	if err != nil {
		return nil, errs.ViewEvaluation(shardIndex, "", err)
	}

	sortRows := func() {
		sort.Slice(rows, func(i, j int) bool { return lessRow(rows[i], rows[j]) })
	}

	for _, doc := range docs {
		if doc.Deleted() {
			continue
		}

		// Rebind emit per document, with the id captured by value, so
		// an emitted row is tagged through the binding itself rather
		// than a shared mutable "current document" slot.
		docID := doc.ID()
		rt.DefineGlobalFunction("emit", func(args []interface{}) (interface{}, error) {
			var key, value interface{}
			if len(args) > 0 {
				key = args[0]
			}
			if len(args) > 1 {
				value = args[1]
			}
			rows = append(rows, Row{Key: key, Value: value, DocID: docID})
			return nil, nil
		})

		if _, callErr := rt.Call(fn, mapArgument(doc)); callErr != nil {
			sortRows()
			return rows, errs.ViewEvaluation(shardIndex, docID, callErr)
		}
	}

	sortRows()
	return rows, nil
}

// mapArgument builds the plain value handed to the map function as its
// sole argument: the document body's fields plus the _id and _rev
// identity fields, the same shape CouchDB presents to map code.
func mapArgument(doc DocumentSource) map[string]interface{} {
	native := scriptobject.ToNative(doc.Body())
	native["_id"] = doc.ID()
	if rev := doc.Rev(); rev != "" {
		native["_rev"] = rev
	}
	return native
}
