package orchestrator

import (
	"context"

	"github.com/athrvaarora/vector-db-api/internal/store"
)

// SearchBuilder assembles a SearchRequest fluently before executing it
// against an Engine, in the NewSearch().WithX().Execute() query-builder
// shape.
type SearchBuilder struct {
	engine *Engine
	req    SearchRequest
}

// NewSearch starts a builder scoped to one library.
func (e *Engine) NewSearch(libraryID store.LibraryID, embedding []float32, k int) *SearchBuilder {
	return &SearchBuilder{
		engine: e,
		req: SearchRequest{
			LibraryID: libraryID,
			Embedding: embedding,
			K:         k,
		},
	}
}

// WithMetadataFilters sets the equality filters applied to candidates.
func (b *SearchBuilder) WithMetadataFilters(filters map[string]string) *SearchBuilder {
	b.req.MetadataFilters = filters
	return b
}

// WithSimilarityThreshold sets the minimum score a result must clear.
func (b *SearchBuilder) WithSimilarityThreshold(threshold float64) *SearchBuilder {
	b.req.SimilarityThreshold = &threshold
	return b
}

// Execute runs the assembled request.
func (b *SearchBuilder) Execute(ctx context.Context) ([]SearchResult, error) {
	return b.engine.Search(ctx, b.req)
}
