package avancedb

import (
	"fmt"
	"testing"

	"github.com/avancedb/avancedb/internal/mapreduce"
	"github.com/avancedb/avancedb/internal/pool"
	"github.com/avancedb/avancedb/internal/scriptobject"
	"github.com/stretchr/testify/require"
)

func testViewPool(t *testing.T) *pool.Pool {
	cfg := testConfig()
	cfg.WorkerCount = 4
	p := pool.New(cfg, nil)
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func TestExecuteViewIdentityMap(t *testing.T) {
	db := New(testConfig(), nil, nil)
	p := testViewPool(t)

	const n = 1000
	items := make([]BulkItem, n)
	for i := range items {
		items[i] = BulkItem{
			ID:   fmt.Sprintf("%08d", i),
			Body: scriptobject.NewObject(map[string]interface{}{"n": int32(i)}),
		}
	}
	for _, r := range db.PostBulkDocuments(items, false) {
		require.NoError(t, r.Error)
	}

	task := mapreduce.Task{Map: "function(doc) { emit(doc._id, 1); }"}
	results, err := db.ExecuteView(p, task, mapreduce.DefaultViewOptions())
	require.NoError(t, err)
	require.Equal(t, n, results.TotalRows())

	rows := results.Rows()
	for i, row := range rows {
		require.Equal(t, fmt.Sprintf("%08d", i), row.Key)
		require.EqualValues(t, 1, row.Value)
	}
}

func TestExecuteViewSkipsTombstones(t *testing.T) {
	db := New(testConfig(), nil, nil)
	p := testViewPool(t)

	for i := 0; i < 10; i++ {
		_, err := db.SetDocument(fmt.Sprintf("%08d", i), scriptobject.NewObject(map[string]interface{}{"n": int32(i)}))
		require.NoError(t, err)
	}
	doc, err := db.GetDocument("00000003", true)
	require.NoError(t, err)
	_, err = db.DeleteDocument("00000003", doc.Rev())
	require.NoError(t, err)

	task := mapreduce.Task{Map: "function(doc) { emit(doc._id, null); }"}
	results, err := db.ExecuteView(p, task, mapreduce.DefaultViewOptions())
	require.NoError(t, err)
	require.Equal(t, 9, results.TotalRows())
	for _, row := range results.Rows() {
		require.NotEqual(t, "00000003", row.Key)
	}
}

func TestExecuteViewWindowedDescending(t *testing.T) {
	db := New(testConfig(), nil, nil)
	p := testViewPool(t)

	for i := 0; i < 100; i++ {
		_, err := db.SetDocument(fmt.Sprintf("%08d", i), scriptobject.NewObject(map[string]interface{}{"n": int32(i)}))
		require.NoError(t, err)
	}

	opts := mapreduce.DefaultViewOptions()
	opts.Descending = true
	opts.Skip = 20
	opts.Limit = 10

	task := mapreduce.Task{Map: "function(doc) { emit(doc._id, doc.n); }"}
	results, err := db.ExecuteView(p, task, opts)
	require.NoError(t, err)

	rows := results.Rows()
	require.Len(t, rows, 10)
	require.Equal(t, "00000079", rows[0].Key)
	require.Equal(t, "00000070", rows[9].Key)
}
