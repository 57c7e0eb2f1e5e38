// Package orchestrator wires the entity store, the index family, and the
// concurrency primitives together into the two operations the rest of the
// system calls: Search and IndexLibrary. It also exposes the CRUD
// passthroughs to store.Store, each wrapped in the locking discipline §5
// requires — a store-level mutex for operations touching the set of
// libraries, a per-library fair RWMutex for everything scoped to one
// library's entities and index.
package orchestrator

import (
	"context"
	"sync"

	vectordb "github.com/athrvaarora/vector-db-api"
	"github.com/athrvaarora/vector-db-api/internal/concurrency"
	"github.com/athrvaarora/vector-db-api/internal/store"
	"github.com/athrvaarora/vector-db-api/internal/telemetry"
	"github.com/athrvaarora/vector-db-api/internal/vindex"
	"go.uber.org/zap"
)

// compiledIndex bundles a built index with the equality filter and the
// handle->chunk-id table computed from the same deterministic snapshot, so
// all three stay consistent with one another.
type compiledIndex struct {
	index         vindex.Index
	equality      *store.EqualityIndex
	handleToChunk []store.ChunkID
}

// Engine is the search orchestrator and index build coordinator. It is
// safe for concurrent use.
type Engine struct {
	storeMu sync.Mutex // serializes library-set-changing operations (§5)
	store   *store.Store
	locks   *concurrency.LibraryLocks
	logger  *zap.Logger

	compiledMu sync.Mutex
	compiled   map[store.LibraryID]*compiledIndex
}

// New constructs an Engine. logger may be nil (defaults to a no-op logger).
func New(logger *zap.Logger) *Engine {
	e := &Engine{
		locks:    concurrency.NewLibraryLocks(),
		logger:   telemetry.OrDefault(logger),
		compiled: make(map[store.LibraryID]*compiledIndex),
	}
	e.store = store.New(e.onInvalidate)
	return e
}

// onInvalidate is wired into store.Store so the moment a mutation flips
// is_indexed to false, the Engine's cached index instance is dropped in the
// same stroke — "is_indexed true iff an index instance exists" holds by
// construction rather than by two pieces of state staying in sync.
func (e *Engine) onInvalidate(id store.LibraryID) {
	e.compiledMu.Lock()
	_, had := e.compiled[id]
	delete(e.compiled, id)
	e.compiledMu.Unlock()
	if had {
		e.log().Info("index invalidated", zap.String("library_id", id.String()))
	}
}

func (e *Engine) getCompiled(id store.LibraryID) *compiledIndex {
	e.compiledMu.Lock()
	defer e.compiledMu.Unlock()
	return e.compiled[id]
}

func (e *Engine) setCompiled(id store.LibraryID, c *compiledIndex) {
	e.compiledMu.Lock()
	e.compiled[id] = c
	e.compiledMu.Unlock()
}

// ---- library-set operations (store-level mutex) ----

// CreateLibrary creates an empty, unindexed library.
func (e *Engine) CreateLibrary(ctx context.Context, meta store.LibraryMetadata) (store.LibraryID, error) {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()
	return e.store.CreateLibrary(meta), nil
}

// DeleteLibrary cascades to documents and chunks and drops the library's
// lock and compiled index along with it.
func (e *Engine) DeleteLibrary(ctx context.Context, id store.LibraryID) error {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()

	lock := e.locks.For(id.String())
	lock.Lock()
	defer lock.Unlock()

	if err := e.store.DeleteLibrary(id); err != nil {
		return err
	}
	e.onInvalidate(id)
	e.locks.Drop(id.String())
	return nil
}

// GetLibrary, ListLibraries, and LibraryStats are read-only and take the
// library's read lock (where scoped to one library).

func (e *Engine) GetLibrary(ctx context.Context, id store.LibraryID) (store.Library, error) {
	lock := e.locks.For(id.String())
	lock.RLock()
	defer lock.RUnlock()
	return e.store.GetLibrary(id)
}

func (e *Engine) ListLibraries(ctx context.Context) []store.Library {
	return e.store.ListLibraries()
}

func (e *Engine) UpdateLibrary(ctx context.Context, id store.LibraryID, patch store.LibraryUpdate) error {
	lock := e.locks.For(id.String())
	lock.Lock()
	defer lock.Unlock()
	return e.store.UpdateLibrary(id, patch)
}

func (e *Engine) LibraryStats(ctx context.Context, id store.LibraryID) (store.Stats, error) {
	lock := e.locks.For(id.String())
	lock.RLock()
	defer lock.RUnlock()
	return e.store.LibraryStats(id)
}

// ---- document operations (per-library lock) ----

func (e *Engine) CreateDocument(ctx context.Context, libraryID store.LibraryID, meta store.DocumentMetadata) (store.DocumentID, error) {
	lock := e.locks.For(libraryID.String())
	lock.Lock()
	defer lock.Unlock()
	return e.store.CreateDocument(libraryID, meta)
}

func (e *Engine) GetDocument(ctx context.Context, libraryID store.LibraryID, id store.DocumentID) (store.Document, error) {
	lock := e.locks.For(libraryID.String())
	lock.RLock()
	defer lock.RUnlock()
	return e.store.GetDocument(id)
}

func (e *Engine) UpdateDocument(ctx context.Context, libraryID store.LibraryID, id store.DocumentID, patch store.DocumentMetadata) error {
	lock := e.locks.For(libraryID.String())
	lock.Lock()
	defer lock.Unlock()
	return e.store.UpdateDocument(id, patch)
}

func (e *Engine) DeleteDocument(ctx context.Context, libraryID store.LibraryID, id store.DocumentID) error {
	lock := e.locks.For(libraryID.String())
	lock.Lock()
	defer lock.Unlock()
	return e.store.DeleteDocument(id)
}

// ListDocuments lists a library's documents. A zero-value libraryID means
// "all libraries" (per store.Store.ListDocuments) — that cross-library scan
// takes the store-level mutex rather than any one library's lock, since no
// single per-library lock could make it consistent.
func (e *Engine) ListDocuments(ctx context.Context, libraryID store.LibraryID) ([]store.Document, error) {
	if libraryID == (store.LibraryID{}) {
		e.storeMu.Lock()
		defer e.storeMu.Unlock()
		return e.store.ListDocuments(libraryID)
	}
	lock := e.locks.For(libraryID.String())
	lock.RLock()
	defer lock.RUnlock()
	return e.store.ListDocuments(libraryID)
}

// ---- chunk operations (per-library lock of the caller-supplied library id) ----

func (e *Engine) CreateChunk(ctx context.Context, libraryID store.LibraryID, documentID store.DocumentID, text string, embedding []float32, meta store.ChunkMetadata) (store.ChunkID, error) {
	lock := e.locks.For(libraryID.String())
	lock.Lock()
	defer lock.Unlock()
	return e.store.CreateChunk(documentID, text, embedding, meta)
}

func (e *Engine) GetChunk(ctx context.Context, libraryID store.LibraryID, id store.ChunkID) (store.Chunk, error) {
	lock := e.locks.For(libraryID.String())
	lock.RLock()
	defer lock.RUnlock()
	return e.store.GetChunk(id)
}

func (e *Engine) UpdateChunk(ctx context.Context, libraryID store.LibraryID, id store.ChunkID, patch store.ChunkUpdate) error {
	lock := e.locks.For(libraryID.String())
	lock.Lock()
	defer lock.Unlock()
	return e.store.UpdateChunk(id, patch)
}

func (e *Engine) DeleteChunk(ctx context.Context, libraryID store.LibraryID, id store.ChunkID) error {
	lock := e.locks.For(libraryID.String())
	lock.Lock()
	defer lock.Unlock()
	return e.store.DeleteChunk(id)
}

func (e *Engine) ListChunks(ctx context.Context, libraryID store.LibraryID, documentID store.DocumentID) ([]store.Chunk, error) {
	lock := e.locks.For(libraryID.String())
	lock.RLock()
	defer lock.RUnlock()
	return e.store.ListChunks(documentID)
}

// LibraryOf exposes the chunk->library routing lookup for callers (e.g. a
// REST facade) that only have a chunk id on hand.
func (e *Engine) LibraryOf(chunkID store.ChunkID) (store.LibraryID, bool) {
	return e.store.LibraryOf(chunkID)
}

func storeIndexTypeFor(kind vindex.Kind) store.IndexType {
	switch kind {
	case vindex.KindFlat:
		return store.IndexFlat
	case vindex.KindRPLSH:
		return store.IndexRPLSH
	case vindex.KindHierarchical:
		return store.IndexHierarchical
	default:
		return ""
	}
}

func vindexKindFor(t store.IndexType) (vindex.Kind, error) {
	switch t {
	case store.IndexFlat:
		return vindex.KindFlat, nil
	case store.IndexRPLSH:
		return vindex.KindRPLSH, nil
	case store.IndexHierarchical:
		return vindex.KindHierarchical, nil
	default:
		return "", vectordb.ErrUnsupportedIndexType(string(t))
	}
}
