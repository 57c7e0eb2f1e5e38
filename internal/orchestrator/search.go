package orchestrator

import (
	"context"

	vectordb "github.com/athrvaarora/vector-db-api"
	"github.com/athrvaarora/vector-db-api/internal/store"
	"github.com/athrvaarora/vector-db-api/internal/vindex"
	"go.uber.org/zap"
)

// lshOversample absorbs the LSH candidate-pool dropout described in §4.5's
// search step; Flat and Hierarchical need no cushion since they already
// consider (or beam-search over) the full ranked order.
const lshOversample = 4

// SearchRequest is the input to Engine.Search.
type SearchRequest struct {
	LibraryID           store.LibraryID
	Embedding           []float32
	K                   int
	MetadataFilters     map[string]string
	SimilarityThreshold *float64 // nil means no floor
}

// SearchResult is one hydrated hit: the chunk, its owning document, and the
// similarity score the index reported.
type SearchResult struct {
	Chunk           store.Chunk
	Document        store.Document
	SimilarityScore float64
}

func validateSearchRequest(req SearchRequest, dim int) error {
	if req.K < 1 || req.K > vindex.MaxK {
		return vectordb.ErrValidation("k must be between 1 and 100")
	}
	if len(req.Embedding) != dim {
		return vectordb.ErrDimensionMismatch(dim, len(req.Embedding))
	}
	if req.SimilarityThreshold != nil {
		t := *req.SimilarityThreshold
		if t < 0 || t > 1 {
			return vectordb.ErrValidation("similarity_threshold must be between 0 and 1")
		}
	}
	return nil
}

// Search implements §4.7's seven-step flow.
func (e *Engine) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	// Step 1: validate against the library's current (unlocked) view.
	lib, err := e.store.GetLibrary(req.LibraryID)
	if err != nil {
		return nil, err
	}
	if err := validateSearchRequest(req, lib.EmbeddingDimension); err != nil {
		return nil, err
	}
	if !lib.IsIndexed {
		return nil, vectordb.ErrNotIndexed(req.LibraryID.String())
	}

	// Step 2: acquire the read lock, then re-check under it — a concurrent
	// write between the check above and this lock acquisition may have
	// invalidated the index.
	lock := e.locks.For(req.LibraryID.String())
	lock.RLock()
	defer lock.RUnlock()

	lib, err = e.store.GetLibrary(req.LibraryID)
	if err != nil {
		return nil, err
	}
	if !lib.IsIndexed {
		return nil, vectordb.ErrNotIndexed(req.LibraryID.String())
	}
	compiled := e.getCompiled(req.LibraryID)
	if compiled == nil {
		return nil, vectordb.ErrNotIndexed(req.LibraryID.String())
	}

	// Step 3: build the metadata-equality candidate predicate.
	predicate := compiled.equality.Predicate(req.MetadataFilters)

	// Step 4: query the index with the family-appropriate oversample.
	oversample := 1
	if compiled.index.Kind() == vindex.KindRPLSH {
		oversample = lshOversample
	}
	raw, err := compiled.index.Search(req.Embedding, vindex.SanitizeK(req.K*oversample), predicate)
	if err != nil {
		e.log().Error("index search failed",
			zap.String("library_id", req.LibraryID.String()),
			zap.Error(err),
		)
		return nil, vectordb.ErrInternal("index search failed", err)
	}

	// Step 5: apply the similarity floor.
	if req.SimilarityThreshold != nil {
		filtered := raw[:0]
		for _, r := range raw {
			if r.Score >= *req.SimilarityThreshold {
				filtered = append(filtered, r)
			}
		}
		raw = filtered
	}

	// Step 6: hydrate with owning document and chunk, preserving the
	// index's already-sorted order.
	results := make([]SearchResult, 0, len(raw))
	for _, r := range raw {
		if int(r.Handle) >= len(compiled.handleToChunk) {
			continue
		}
		chunkID := compiled.handleToChunk[r.Handle]
		chunk, err := e.store.GetChunk(chunkID)
		if err != nil {
			continue // chunk was deleted after the index was built but before invalidation propagated
		}
		doc, err := e.store.GetDocument(chunk.DocumentID)
		if err != nil {
			continue
		}
		results = append(results, SearchResult{Chunk: chunk, Document: doc, SimilarityScore: r.Score})
	}

	// Step 7: truncate to k.
	if len(results) > req.K {
		results = results[:req.K]
	}
	return results, nil
}
