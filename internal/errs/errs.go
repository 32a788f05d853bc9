// Package errs defines a small set of tagged error kinds, a constructor
// per kind, and a KindOf classifier on top of them.
package errs

import (
	"errors"
	"fmt"
)

// Kind tags an error with one of a fixed set of categories.
type Kind int

const (
	KindDocumentMissing Kind = iota
	KindConflict
	KindInvalidArgument
	KindViewEvaluationError
	KindResourceExhausted
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindDocumentMissing:
		return "DocumentMissing"
	case KindConflict:
		return "Conflict"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindViewEvaluationError:
		return "ViewEvaluationError"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with a human-readable message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// ShardIndex and DocID are populated for ViewEvaluationError: the
	// shard index and offending document id.
	ShardIndex int
	DocID      string
}

func (e *Error) Error() string {
	if e.Kind == KindViewEvaluationError {
		return fmt.Sprintf("%s: shard=%d doc=%q: %s", e.Kind, e.ShardIndex, e.DocID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func DocumentMissing(id string) *Error {
	return &Error{Kind: KindDocumentMissing, Message: fmt.Sprintf("document %q not found", id)}
}

func Conflict(id string) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf("revision mismatch for document %q", id)}
}

func InvalidArgument(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

func ViewEvaluation(shardIndex int, docID string, cause error) *Error {
	return &Error{Kind: KindViewEvaluationError, Message: "map/reduce evaluation failed", Cause: cause, ShardIndex: shardIndex, DocID: docID}
}

func ResourceExhausted(message string) *Error {
	return &Error{Kind: KindResourceExhausted, Message: message}
}

func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err
// is not one of ours.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
