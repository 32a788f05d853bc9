// Package avancedb implements the document storage layer: it lays
// document identity, revision assignment, tombstones, and
// update-sequence semantics over the sharded Lazy Flat Set index.
package avancedb

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/avancedb/avancedb/internal/scriptobject"
)

// Document is an immutable record: an id, a revision string, an
// update sequence, a deleted flag, and an opaque body. Once
// constructed a Document is never mutated — updates produce a new
// instance that replaces the old one in the shard.
type Document struct {
	id       string
	rev      string
	revNum   int
	sequence uint64
	deleted  bool
	body     scriptobject.Object
}

func (d *Document) ID() string                { return d.id }
func (d *Document) Rev() string               { return d.rev }
func (d *Document) RevNum() int               { return d.revNum }
func (d *Document) Sequence() uint64          { return d.sequence }
func (d *Document) Deleted() bool             { return d.deleted }
func (d *Document) Body() scriptobject.Object { return d.body }

func lessDocument(a, b *Document) bool  { return a.id < b.id }
func equalDocument(a, b *Document) bool { return a.id == b.id }

// newDocument constructs the next revision for id, given the previous
// revision number (0 if this is the first write).
func newDocument(id string, prevRevNum int, sequence uint64, deleted bool, body scriptobject.Object) *Document {
	return &Document{
		id:       id,
		rev:      formatRev(prevRevNum+1, body),
		revNum:   prevRevNum + 1,
		sequence: sequence,
		deleted:  deleted,
		body:     body,
	}
}

// formatRev builds the "N-hhhh...hhhh" revision string: a 1-based
// monotonic revision number followed by a 32-character hex
// digest of the body. md5 is the natural fit here since it produces
// exactly 16 bytes (32 hex characters), matching the revision format
// without inventing a bespoke digest.
func formatRev(revNum int, body scriptobject.Object) string {
	sum := md5.Sum(canonicalBody(body))
	return fmt.Sprintf("%d-%s", revNum, hex.EncodeToString(sum[:]))
}

// canonicalBody produces a deterministic byte encoding of a script
// object's content, sorting field names itself rather than trusting
// NameAt's order, so that two equal bodies always hash the same way
// regardless of the concrete Object implementation handing them to us.
func canonicalBody(body scriptobject.Object) []byte {
	var buf []byte
	buf = appendObject(buf, body)
	return buf
}

func appendObject(buf []byte, obj scriptobject.Object) []byte {
	if obj == nil {
		return append(buf, "null"...)
	}
	names := make([]string, obj.Count())
	for i := range names {
		names[i] = obj.NameAt(i)
	}
	sort.Strings(names)

	buf = append(buf, '{')
	for i, name := range names {
		if i > 0 {
			buf = append(buf, ',')
		}
		_, idx := obj.TypeAt(name)
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = appendFieldValue(buf, obj, idx)
	}
	return append(buf, '}')
}

func appendFieldValue(buf []byte, obj scriptobject.Object, i int) []byte {
	typ, _ := obj.TypeAt(obj.NameAt(i))
	switch typ {
	case scriptobject.TypeBool:
		if obj.GetBool(i) {
			return append(buf, "true"...)
		}
		return append(buf, "false"...)
	case scriptobject.TypeInt32:
		return append(buf, fmt.Sprintf("%d", obj.GetInt32(i))...)
	case scriptobject.TypeDouble:
		return append(buf, fmt.Sprintf("%g", obj.GetDouble(i))...)
	case scriptobject.TypeString:
		return append(buf, fmt.Sprintf("%q", obj.GetString(i))...)
	case scriptobject.TypeObject:
		return appendObject(buf, obj.GetObject(i))
	case scriptobject.TypeArray:
		return appendArray(buf, obj.GetArray(i))
	default:
		return append(buf, "null"...)
	}
}

func appendArray(buf []byte, arr scriptobject.Array) []byte {
	buf = append(buf, '[')
	for i := 0; i < arr.Count(); i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		switch arr.TypeAt(i) {
		case scriptobject.TypeBool:
			if arr.GetBool(i) {
				buf = append(buf, "true"...)
			} else {
				buf = append(buf, "false"...)
			}
		case scriptobject.TypeInt32:
			buf = append(buf, fmt.Sprintf("%d", arr.GetInt32(i))...)
		case scriptobject.TypeDouble:
			buf = append(buf, fmt.Sprintf("%g", arr.GetDouble(i))...)
		case scriptobject.TypeString:
			buf = append(buf, fmt.Sprintf("%q", arr.GetString(i))...)
		case scriptobject.TypeObject:
			buf = appendObject(buf, arr.GetObject(i))
		case scriptobject.TypeArray:
			buf = appendArray(buf, arr.GetArray(i))
		default:
			buf = append(buf, "null"...)
		}
	}
	return append(buf, ']')
}
