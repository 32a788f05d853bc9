package mapreduce

// Results wraps a globally sorted row slice with the settable
// limit/skip/descending view-query options. Not safe for concurrent
// use; a Results value belongs to a single consumer.
type Results struct {
	rows       []Row
	limit      int
	skip       int
	descending bool
}

// NewResults wraps an already key-sorted (ascending) row slice.
func NewResults(rows []Row) *Results {
	return &Results{rows: rows, limit: -1}
}

func (r *Results) SetLimit(limit int)   { r.limit = limit }
func (r *Results) Limit() int           { return r.limit }
func (r *Results) SetSkip(skip int)     { r.skip = skip }
func (r *Results) Skip() int            { return r.skip }
func (r *Results) SetDescending(d bool) { r.descending = d }
func (r *Results) Descending() bool     { return r.descending }

// TotalRows is the number of rows before skip/limit windowing, matching
// CouchDB's total_rows response field.
func (r *Results) TotalRows() int { return len(r.rows) }

// Rows materializes the windowed view: descending reversal first, then
// skip, then limit, exactly as PostAllDocumentsOptions.apply does for
// the document layer.
func (r *Results) Rows() []Row {
	rows := r.rows
	if r.descending {
		reversed := make([]Row, len(rows))
		for i, row := range rows {
			reversed[len(rows)-1-i] = row
		}
		rows = reversed
	}

	if r.skip > 0 {
		if r.skip >= len(rows) {
			return nil
		}
		rows = rows[r.skip:]
	}

	if r.limit >= 0 && r.limit < len(rows) {
		rows = rows[:r.limit]
	}

	return rows
}

// Size returns the windowed row count (len(r.Rows())), without
// allocating the full slice twice.
func (r *Results) Size() int {
	n := len(r.rows)
	if r.skip > 0 {
		n -= r.skip
		if n < 0 {
			n = 0
		}
	}
	if r.limit >= 0 && r.limit < n {
		n = r.limit
	}
	return n
}
