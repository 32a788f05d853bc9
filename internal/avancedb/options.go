package avancedb

import (
	"strconv"

	"github.com/avancedb/avancedb/internal/errs"
)

// PostAllDocumentsOptions controls an all-documents scan: CouchDB-style
// _all_docs query parameters.
type PostAllDocumentsOptions struct {
	Limit        int
	Skip         int
	Descending   bool
	IncludeDocs  bool
	Keys         []string
	StartKey     string
	HasStartKey  bool
	EndKey       string
	HasEndKey    bool
	Key          string
	HasKey       bool
}

// DefaultPostAllDocumentsOptions returns options with no limit (Limit
// -1), no skip, ascending, docs excluded.
func DefaultPostAllDocumentsOptions() PostAllDocumentsOptions {
	return PostAllDocumentsOptions{Limit: -1}
}

// PostAllDocumentsOptionsFromQuery builds options from a query-string
// map, the form the REST layer hands over. Recognized keys: limit,
// skip, descending, include_docs, startkey, endkey, key. An explicit
// keys array (POST form) is set on the returned value by the caller.
// Malformed or negative numeric values fail with InvalidArgument.
func PostAllDocumentsOptionsFromQuery(query map[string]string) (PostAllDocumentsOptions, error) {
	opts := DefaultPostAllDocumentsOptions()

	if v, ok := query["limit"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errs.InvalidArgument("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v, ok := query["skip"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errs.InvalidArgument("skip must be a non-negative integer")
		}
		opts.Skip = n
	}
	if v, ok := query["descending"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errs.InvalidArgument("descending must be a boolean")
		}
		opts.Descending = b
	}
	if v, ok := query["include_docs"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errs.InvalidArgument("include_docs must be a boolean")
		}
		opts.IncludeDocs = b
	}
	if v, ok := query["startkey"]; ok {
		opts.StartKey = v
		opts.HasStartKey = true
	}
	if v, ok := query["endkey"]; ok {
		opts.EndKey = v
		opts.HasEndKey = true
	}
	if v, ok := query["key"]; ok {
		opts.Key = v
		opts.HasKey = true
	}

	return opts, nil
}

// apply filters a full, id-ascending-sorted document slice by
// key/startkey/endkey, then applies the same descending/skip/limit
// windowing as window. Used for the "all documents" scan, where range
// keys are meaningful; the explicit-Keys path has nothing to range-
// filter and calls window directly.
func (o PostAllDocumentsOptions) apply(docs []*Document) []*Document {
	filtered := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if o.HasKey && d.id != o.Key {
			continue
		}
		if o.HasStartKey && d.id < o.StartKey {
			continue
		}
		if o.HasEndKey && d.id > o.EndKey {
			continue
		}
		filtered = append(filtered, d)
	}
	return o.window(filtered)
}

// window applies ordering (descending, if set) then skip then limit to
// an already-selected, id-ascending-sorted document slice — the same
// limit/skip/descending logic used for map/reduce view results,
// operating over *Document instead of view rows.
func (o PostAllDocumentsOptions) window(docs []*Document) []*Document {
	windowed := append([]*Document(nil), docs...)

	if o.Descending {
		for i, j := 0, len(windowed)-1; i < j; i, j = i+1, j-1 {
			windowed[i], windowed[j] = windowed[j], windowed[i]
		}
	}

	if o.Skip > 0 {
		if o.Skip >= len(windowed) {
			windowed = windowed[:0]
		} else {
			windowed = windowed[o.Skip:]
		}
	}

	if o.Limit >= 0 && o.Limit < len(windowed) {
		windowed = windowed[:o.Limit]
	}

	return windowed
}
