package mapreduce

import (
	"github.com/avancedb/avancedb/internal/jsruntime"
	"github.com/avancedb/avancedb/internal/pool"
)

// reduceRows folds sorted into one row per group, where a group is
// either the whole row set (no grouping requested), every row sharing
// an equal key (opts.Group), or every row sharing the first
// opts.GroupLevel elements of an array-typed key. Each group is folded
// by invoking reduce once with its (keys, values) arrays and
// rereduce=false, matching CouchDB's reduce function signature.
func reduceRows(p *pool.Pool, reduceSource string, sorted []Row, opts ViewOptions) ([]Row, error) {
	groups := groupRows(sorted, opts)

	out := make([]Row, len(groups))
	outErrs := make([]error, len(groups))

	done := make(chan struct{})
	err := p.Submit(&pool.Task{
		Run: func(rt *jsruntime.Runtime) {
			defer close(done)
			fn, compileErr := rt.Compile(reduceSource)
			if compileErr != nil {
				for i := range groups {
					outErrs[i] = compileErr
				}
				return
			}
			for i, g := range groups {
				keys := make([]interface{}, len(g))
				values := make([]interface{}, len(g))
				for j, row := range g {
					keys[j] = []interface{}{row.Key, row.DocID}
					values[j] = row.Value
				}
				result, callErr := rt.Call(fn, keys, values, false)
				if callErr != nil {
					outErrs[i] = callErr
					continue
				}
				var groupKey interface{}
				if len(g) > 0 {
					groupKey = groupKeyOf(g[0].Key, opts)
				}
				out[i] = Row{Key: groupKey, Value: result}
			}
		},
		Done: done,
	})
	if err != nil {
		return nil, err
	}
	<-done

	for _, e := range outErrs {
		if e != nil {
			return nil, e
		}
	}
	return out, nil
}

// groupRows partitions sorted rows into groups per opts.Group/GroupLevel.
func groupRows(sorted []Row, opts ViewOptions) [][]Row {
	if !opts.Group && opts.GroupLevel == 0 {
		if len(sorted) == 0 {
			return nil
		}
		return [][]Row{sorted}
	}

	var groups [][]Row
	var current []Row
	for _, row := range sorted {
		if len(current) > 0 && !sameGroup(current[0].Key, row.Key, opts) {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, row)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func sameGroup(a, b interface{}, opts ViewOptions) bool {
	if opts.GroupLevel > 0 {
		return CompareKeys(groupKeyOf(a, opts), groupKeyOf(b, opts)) == 0
	}
	return CompareKeys(a, b) == 0
}

// groupKeyOf truncates an array-typed key to opts.GroupLevel elements,
// per CouchDB's group_level semantics; non-array keys and a zero level
// pass through unchanged.
func groupKeyOf(key interface{}, opts ViewOptions) interface{} {
	if opts.GroupLevel <= 0 {
		return key
	}
	arr, ok := key.([]interface{})
	if !ok {
		return key
	}
	if opts.GroupLevel >= len(arr) {
		return arr
	}
	return append([]interface{}(nil), arr[:opts.GroupLevel]...)
}
