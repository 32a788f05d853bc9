package avancedb

import (
	"fmt"
	"testing"

	"github.com/avancedb/avancedb/internal/config"
	"github.com/avancedb/avancedb/internal/errs"
	"github.com/avancedb/avancedb/internal/scriptobject"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ShardCount = 8
	return cfg
}

func TestEmptyDatabaseCounters(t *testing.T) {
	db := New(testConfig(), nil, nil)
	require.Equal(t, int64(0), db.DocCount())
	require.Equal(t, int64(0), db.DocDelCount())
	require.Equal(t, uint64(0), db.UpdateSequence())
}

func TestSetGetDeleteSingleDocument(t *testing.T) {
	db := New(testConfig(), nil, nil)

	body := scriptobject.NewObject(map[string]interface{}{"a": int32(1)})
	doc, err := db.SetDocument("doc1", body)
	require.NoError(t, err)
	require.Equal(t, "doc1", doc.ID())
	require.Equal(t, 1, doc.RevNum())
	require.Equal(t, int64(1), db.DocCount())

	got, err := db.GetDocument("doc1", true)
	require.NoError(t, err)
	require.Equal(t, doc.Rev(), got.Rev())

	deleted, err := db.DeleteDocument("doc1", doc.Rev())
	require.NoError(t, err)
	require.True(t, deleted.Deleted())
	require.Equal(t, int64(0), db.DocCount())
	require.Equal(t, int64(1), db.DocDelCount())

	_, err = db.GetDocument("doc1", true)
	require.Error(t, err)
	require.Equal(t, errs.KindDocumentMissing, errs.KindOf(err))
}

func TestReviseDocumentBumpsRevNum(t *testing.T) {
	db := New(testConfig(), nil, nil)

	body1 := scriptobject.NewObject(map[string]interface{}{"v": int32(1)})
	first, err := db.SetDocument("doc1", body1)
	require.NoError(t, err)
	require.Equal(t, 1, first.RevNum())

	body2 := scriptobject.NewObject(map[string]interface{}{"v": int32(2)})
	second, err := db.SetDocument("doc1", body2)
	require.NoError(t, err)
	require.Equal(t, 2, second.RevNum())
	require.NotEqual(t, first.Rev(), second.Rev())
	require.Equal(t, int64(1), db.DocCount())
}

func TestDeleteWithStaleRevConflicts(t *testing.T) {
	db := New(testConfig(), nil, nil)

	body := scriptobject.NewObject(map[string]interface{}{"v": int32(1)})
	_, err := db.SetDocument("doc1", body)
	require.NoError(t, err)

	_, err = db.DeleteDocument("doc1", "9999-deadbeefdeadbeefdeadbeefdeadbeef")
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))
}

func TestDeleteMissingDocumentErrors(t *testing.T) {
	db := New(testConfig(), nil, nil)
	_, err := db.DeleteDocument("ghost", "1-abc")
	require.Error(t, err)
	require.Equal(t, errs.KindDocumentMissing, errs.KindOf(err))
}

func TestBulkDocumentsOfOneThousand(t *testing.T) {
	db := New(testConfig(), nil, nil)

	items := make([]BulkItem, 1000)
	for i := range items {
		items[i] = BulkItem{
			ID:   fmt.Sprintf("doc-%04d", i),
			Body: scriptobject.NewObject(map[string]interface{}{"n": int32(i)}),
		}
	}

	results := db.PostBulkDocuments(items, false)
	require.Len(t, results, 1000)
	for _, r := range results {
		require.NoError(t, r.Error)
		require.NotEmpty(t, r.Rev)
	}
	require.Equal(t, int64(1000), db.DocCount())
	require.Equal(t, uint64(1000), db.UpdateSequence())
}

func TestBulkDocumentsWithFanout(t *testing.T) {
	cfg := testConfig()
	cfg.BulkFanout = 4
	db := New(cfg, nil, nil)

	items := make([]BulkItem, 500)
	for i := range items {
		items[i] = BulkItem{
			ID:   fmt.Sprintf("doc-%04d", i),
			Body: scriptobject.NewObject(map[string]interface{}{"n": int32(i)}),
		}
	}

	results := db.PostBulkDocuments(items, false)
	require.Len(t, results, 500)
	for _, r := range results {
		require.NoError(t, r.Error)
	}
	require.Equal(t, int64(500), db.DocCount())
}

func TestPostAllDocumentsPagedQuery(t *testing.T) {
	db := New(testConfig(), nil, nil)

	items := make([]BulkItem, 20)
	for i := range items {
		items[i] = BulkItem{
			ID:   fmt.Sprintf("doc-%02d", i),
			Body: scriptobject.NewObject(map[string]interface{}{"n": int32(i)}),
		}
	}
	results := db.PostBulkDocuments(items, false)
	for _, r := range results {
		require.NoError(t, r.Error)
	}

	opts := DefaultPostAllDocumentsOptions()
	opts.Limit = 5
	opts.Skip = 10
	page, total, updateSeq, err := db.PostAllDocuments(opts)
	require.NoError(t, err)
	require.Len(t, page, 5)
	require.Equal(t, "doc-10", page[0].ID())
	require.Equal(t, "doc-14", page[4].ID())
	require.Equal(t, int64(20), total)
	require.Equal(t, uint64(20), updateSeq)
}

func TestPostAllDocumentsDescending(t *testing.T) {
	db := New(testConfig(), nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		_, err := db.SetDocument(id, scriptobject.NewObject(nil))
		require.NoError(t, err)
	}

	opts := DefaultPostAllDocumentsOptions()
	opts.Descending = true
	page, _, _, err := db.PostAllDocuments(opts)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, []string{page[0].ID(), page[1].ID(), page[2].ID()})
}

func TestPostAllDocumentsByKeysAppliesSkipLimit(t *testing.T) {
	db := New(testConfig(), nil, nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := db.SetDocument(id, scriptobject.NewObject(nil))
		require.NoError(t, err)
	}

	opts := DefaultPostAllDocumentsOptions()
	opts.Keys = []string{"d", "b", "a", "c"}
	opts.Skip = 1
	opts.Limit = 2
	page, _, _, err := db.PostAllDocuments(opts)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, []string{"b", "c"}, []string{page[0].ID(), page[1].ID()})
}

func TestDatabaseRegistryCreateGetDrop(t *testing.T) {
	reg := NewRegistry(testConfig(), nil, nil)

	db, err := reg.CreateDatabase("mydb")
	require.NoError(t, err)
	require.NotNil(t, db)

	_, err = reg.CreateDatabase("mydb")
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))

	got, err := reg.GetDatabase("mydb")
	require.NoError(t, err)
	require.Same(t, db, got)

	require.NoError(t, reg.DropDatabase("mydb"))
	_, err = reg.GetDatabase("mydb")
	require.Error(t, err)
}

func TestSetDocumentEmptyIDRejected(t *testing.T) {
	db := New(testConfig(), nil, nil)
	_, err := db.SetDocument("", scriptobject.NewObject(nil))
	require.Error(t, err)
	require.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
}

func TestRevisionFormat(t *testing.T) {
	db := New(testConfig(), nil, nil)

	body := scriptobject.NewObject(map[string]interface{}{"num": int32(42)})
	doc, err := db.SetDocument("00000000", body)
	require.NoError(t, err)
	require.Len(t, doc.Rev(), 34)
	require.Equal(t, "1-", doc.Rev()[:2])

	// The same body produces the same digest at the next revision.
	again, err := db.SetDocument("00000000", body)
	require.NoError(t, err)
	require.Equal(t, "2-", again.Rev()[:2])
	require.Equal(t, doc.Rev()[2:], again.Rev()[2:])
}

func TestSetAfterDeleteResetsRevisionToOne(t *testing.T) {
	db := New(testConfig(), nil, nil)

	body := scriptobject.NewObject(map[string]interface{}{"v": int32(1)})
	doc, err := db.SetDocument("doc1", body)
	require.NoError(t, err)

	_, err = db.DeleteDocument("doc1", doc.Rev())
	require.NoError(t, err)

	revived, err := db.SetDocument("doc1", body)
	require.NoError(t, err)
	require.Equal(t, 1, revived.RevNum())
	require.Equal(t, int64(1), db.DocCount())
	require.Equal(t, uint64(3), db.UpdateSequence())
}

func TestBulkInsertThenDeleteAll(t *testing.T) {
	db := New(testConfig(), nil, nil)

	const n = 1000
	items := make([]BulkItem, n)
	for i := range items {
		items[i] = BulkItem{
			ID:   fmt.Sprintf("%08d", i),
			Body: scriptobject.NewObject(map[string]interface{}{"n": int32(i)}),
		}
	}
	inserted := db.PostBulkDocuments(items, false)

	deletes := make([]BulkItem, n)
	for i, r := range inserted {
		require.NoError(t, r.Error)
		deletes[i] = BulkItem{ID: r.ID, Rev: r.Rev, Deleted: true}
	}
	deleted := db.PostBulkDocuments(deletes, false)
	for _, r := range deleted {
		require.NoError(t, r.Error)
	}

	require.Equal(t, int64(0), db.DocCount())
	require.Equal(t, int64(n), db.DocDelCount())
	require.Equal(t, uint64(2*n), db.UpdateSequence())
}

func TestPostAllDocumentsLimitZeroAndOversizedSkip(t *testing.T) {
	db := New(testConfig(), nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		_, err := db.SetDocument(id, scriptobject.NewObject(nil))
		require.NoError(t, err)
	}

	opts := DefaultPostAllDocumentsOptions()
	opts.Limit = 0
	page, _, _, err := db.PostAllDocuments(opts)
	require.NoError(t, err)
	require.Empty(t, page)

	opts = DefaultPostAllDocumentsOptions()
	opts.Skip = 10
	page, _, _, err = db.PostAllDocuments(opts)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestPostAllDocumentsOptionsFromQuery(t *testing.T) {
	opts, err := PostAllDocumentsOptionsFromQuery(map[string]string{
		"limit":      "10",
		"skip":       "20",
		"descending": "true",
		"startkey":   "a",
		"endkey":     "z",
	})
	require.NoError(t, err)
	require.Equal(t, 10, opts.Limit)
	require.Equal(t, 20, opts.Skip)
	require.True(t, opts.Descending)
	require.True(t, opts.HasStartKey)
	require.Equal(t, "a", opts.StartKey)
	require.True(t, opts.HasEndKey)
	require.Equal(t, "z", opts.EndKey)

	_, err = PostAllDocumentsOptionsFromQuery(map[string]string{"limit": "-1"})
	require.Error(t, err)
	require.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))

	_, err = PostAllDocumentsOptionsFromQuery(map[string]string{"skip": "abc"})
	require.Error(t, err)
	require.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))

	_, err = PostAllDocumentsOptionsFromQuery(map[string]string{"descending": "sideways"})
	require.Error(t, err)
	require.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
}

func TestSetDocumentRevEnforcesCurrentRevision(t *testing.T) {
	db := New(testConfig(), nil, nil)

	body := scriptobject.NewObject(map[string]interface{}{"v": int32(1)})
	first, err := db.SetDocument("doc1", body)
	require.NoError(t, err)

	second, err := db.SetDocumentRev("doc1", first.Rev(), body)
	require.NoError(t, err)
	require.Equal(t, 2, second.RevNum())

	_, err = db.SetDocumentRev("doc1", first.Rev(), body)
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))

	_, err = db.SetDocumentRev("ghost", first.Rev(), body)
	require.Error(t, err)
	require.Equal(t, errs.KindConflict, errs.KindOf(err))

	_, err = db.SetDocumentRev("doc1", "", body)
	require.Error(t, err)
	require.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
}

func TestBulkItemWithRevConflictDoesNotShortCircuit(t *testing.T) {
	db := New(testConfig(), nil, nil)

	doc, err := db.SetDocument("doc1", scriptobject.NewObject(nil))
	require.NoError(t, err)

	results := db.PostBulkDocuments([]BulkItem{
		{ID: "doc1", Rev: "2-00000000000000000000000000000000", Body: scriptobject.NewObject(nil)},
		{ID: "doc2", Body: scriptobject.NewObject(nil)},
	}, false)
	require.Error(t, results[0].Error)
	require.Equal(t, errs.KindConflict, errs.KindOf(results[0].Error))
	require.NoError(t, results[1].Error)

	got, err := db.GetDocument("doc1", true)
	require.NoError(t, err)
	require.Equal(t, doc.Rev(), got.Rev())
}

func TestSequenceContiguityAcrossWrites(t *testing.T) {
	db := New(testConfig(), nil, nil)
	for i := 0; i < 50; i++ {
		_, err := db.SetDocument(fmt.Sprintf("doc-%d", i), scriptobject.NewObject(nil))
		require.NoError(t, err)
	}
	require.Equal(t, uint64(50), db.UpdateSequence())
}
