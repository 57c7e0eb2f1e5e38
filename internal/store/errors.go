package store

import vectordb "github.com/athrvaarora/vector-db-api"

// ErrLibraryNotFound, ErrDocumentNotFound, and ErrChunkNotFound construct the
// taxonomy's NotFound error for each entity kind.
func ErrLibraryNotFound(id LibraryID) error   { return vectordb.ErrNotFound("library", id.String()) }
func ErrDocumentNotFound(id DocumentID) error { return vectordb.ErrNotFound("document", id.String()) }
func ErrChunkNotFound(id ChunkID) error       { return vectordb.ErrNotFound("chunk", id.String()) }

// ErrDimension constructs the taxonomy's DimensionMismatch error.
func ErrDimension(want, got int) error { return vectordb.ErrDimensionMismatch(want, got) }

// ErrValidation constructs the taxonomy's Validation error.
func ErrValidation(msg string) error { return vectordb.ErrValidation(msg) }

// ErrInvalidEmbedding wraps a vecmath validation failure (NaN/Inf component)
// as the taxonomy's Internal kind: a stored vector must never contain one.
func ErrInvalidEmbedding(cause error) error {
	return vectordb.ErrInternal("embedding contains a non-finite component", cause)
}
