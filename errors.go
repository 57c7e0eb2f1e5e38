package vectordb

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy exposed across package boundaries.
// Callers branch on Kind rather than comparing error values directly.
type Kind int

const (
	// KindInternal covers unexpected invariant violations: NaN/Inf in a
	// stored vector, arithmetic overflow, or a bug surfacing as a broken
	// invariant. Never swallowed silently.
	KindInternal Kind = iota
	// KindNotFound means a referenced id does not exist.
	KindNotFound
	// KindValidation means a request was structurally invalid.
	KindValidation
	// KindDimensionMismatch means an embedding's length disagreed with the
	// owning library's fixed dimension.
	KindDimensionMismatch
	// KindNotIndexed means a search was attempted against a library with no
	// current index, or the index was invalidated concurrently.
	KindNotIndexed
	// KindUnsupportedIndexType means an unknown index_type value was given.
	KindUnsupportedIndexType
	// KindConflict means a cascading delete is in progress.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "Validation"
	case KindDimensionMismatch:
		return "DimensionMismatch"
	case KindNotIndexed:
		return "NotIndexed"
	case KindUnsupportedIndexType:
		return "UnsupportedIndexType"
	case KindConflict:
		return "Conflict"
	default:
		return "Internal"
	}
}

// Error is the single error type the core returns. Its Kind classifies the
// failure per the error taxonomy; Err, when non-nil, wraps an underlying
// cause so callers can still errors.Unwrap through to it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, wrapped error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: wrapped}
}

// ErrNotFound constructs a NotFound error for the given entity/id.
func ErrNotFound(entity, id string) *Error {
	return newErr(KindNotFound, fmt.Sprintf("%s %q not found", entity, id), nil)
}

// ErrValidation constructs a Validation error.
func ErrValidation(msg string) *Error {
	return newErr(KindValidation, msg, nil)
}

// ErrDimensionMismatch constructs a DimensionMismatch error.
func ErrDimensionMismatch(want, got int) *Error {
	return newErr(KindDimensionMismatch, fmt.Sprintf("expected dimension %d, got %d", want, got), nil)
}

// ErrNotIndexed constructs a NotIndexed error for the given library id.
func ErrNotIndexed(libraryID string) *Error {
	return newErr(KindNotIndexed, fmt.Sprintf("library %q has no current index", libraryID), nil)
}

// ErrUnsupportedIndexType constructs an UnsupportedIndexType error.
func ErrUnsupportedIndexType(indexType string) *Error {
	return newErr(KindUnsupportedIndexType, fmt.Sprintf("unsupported index type %q", indexType), nil)
}

// ErrConflict constructs a Conflict error.
func ErrConflict(msg string) *Error {
	return newErr(KindConflict, msg, nil)
}

// ErrInternal wraps an unexpected underlying error as Internal.
func ErrInternal(msg string, wrapped error) *Error {
	return newErr(KindInternal, msg, wrapped)
}

// Is lets errors.Is(err, vectordb.ErrNotFound("", "")) compare by Kind only,
// ignoring message/wrapped payload — the common case for taxonomy checks.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}
