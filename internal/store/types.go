// Package store is the authoritative entity store: libraries, documents,
// and chunks, keyed by opaque ids, with referential integrity maintained in
// both directions. It is the single source of truth for content and
// metadata; the index family (internal/vindex) holds only chunk ids and
// vector snapshots, never references back into this package's storage.
package store

import (
	"time"

	"github.com/google/uuid"
)

// LibraryID, DocumentID, and ChunkID are opaque 128-bit identifiers. They are
// distinct types so a DocumentID can never be passed where a ChunkID is
// expected, even though both wrap uuid.UUID.
type (
	LibraryID  uuid.UUID
	DocumentID uuid.UUID
	ChunkID    uuid.UUID
)

func (id LibraryID) String() string  { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id ChunkID) String() string    { return uuid.UUID(id).String() }

// NewLibraryID, NewDocumentID, and NewChunkID mint fresh random ids.
func NewLibraryID() LibraryID   { return LibraryID(uuid.New()) }
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }
func NewChunkID() ChunkID       { return ChunkID(uuid.New()) }

// IndexType names one of the three interchangeable ANN strategies a library
// can be built with.
type IndexType string

const (
	IndexFlat         IndexType = "flat"
	IndexRPLSH        IndexType = "rp_lsh"
	IndexHierarchical IndexType = "hierarchical"
)

// Valid reports whether t is one of the known index type names.
func (t IndexType) Valid() bool {
	switch t {
	case IndexFlat, IndexRPLSH, IndexHierarchical:
		return true
	default:
		return false
	}
}

// LibraryMetadata carries a library's descriptive fields plus a free-form
// tag list, mirroring the source schema's Library model.
type LibraryMetadata struct {
	Name        string
	Description string
	Owner       string
	Tags        []string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaxChunkTextLength is the upper bound on a chunk's text length.
const MaxChunkTextLength = 10000

// MaxEmbeddingDimension bounds the dimension a library can fix on its first
// chunk insert, per §5's resource-limit guidance (D <= 4096) — a guard
// against a misconfigured caller exhausting memory on oversized vectors.
const MaxEmbeddingDimension = 4096

// ChunkMetadata carries a chunk's descriptive fields. Source is required and
// non-empty; CharCount is recomputed on every write from len(Text) and is
// not independently settable by callers.
//
// Extra is the side mapping for extension tags: arbitrary caller-defined
// key/value pairs (e.g. "color": "blue") that fall outside the fixed schema
// above. Equality-filter semantics on Extra are plain set membership, the
// same as on the named fields — a filter key that isn't one of the named
// fields is looked up in Extra instead.
type ChunkMetadata struct {
	Source    string
	Author    string
	Tags      []string
	Language  string
	CharCount int
	Extra     map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentMetadata carries a document's descriptive fields.
type DocumentMetadata struct {
	Title       string
	Description string
	Author      string
	Tags        []string
	Category    string
	FileType    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Library is the ANN scope: it owns a list of documents and, once indexed,
// an index instance that the orchestrator's Engine keeps keyed by its id.
type Library struct {
	ID                LibraryID
	Metadata          LibraryMetadata
	DocumentIDs       []DocumentID
	IsIndexed          bool
	EmbeddingDimension int // 0 means unset: fixed by the first chunk ever inserted
	IndexType          IndexType
	LastIndexed        time.Time
}

// Document is a logical grouping of chunks, always owned by exactly one
// library.
type Document struct {
	ID        DocumentID
	LibraryID LibraryID
	Metadata  DocumentMetadata
	ChunkIDs  []ChunkID
}

// Chunk is the unit indexed and returned by search. Embedding length equals
// the owning library's EmbeddingDimension.
type Chunk struct {
	ID         ChunkID
	DocumentID DocumentID
	Text       string
	Embedding  []float32
	Metadata   ChunkMetadata
}

// Stats answers library_stats: a read-only summary of a library's size and
// indexing state.
type Stats struct {
	TotalDocuments     int
	TotalChunks        int
	EmbeddingDimension int
	IndexType          IndexType
	LastIndexed        time.Time
	IsIndexed          bool
}
