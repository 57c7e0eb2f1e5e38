package orchestrator

import (
	"context"
	"testing"

	"github.com/athrvaarora/vector-db-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineCreateAndSearchFlat(t *testing.T) {
	ctx := context.Background()
	e := New(nil)

	libID, err := e.CreateLibrary(ctx, store.LibraryMetadata{Name: "L"})
	require.NoError(t, err)
	docID, err := e.CreateDocument(ctx, libID, store.DocumentMetadata{Title: "D"})
	require.NoError(t, err)

	v1 := []float32{1, 0, 0}
	v2 := []float32{0, 1, 0}
	v3 := []float32{0.9, 0.1, 0}
	_, err = e.CreateChunk(ctx, libID, docID, "one", v1, store.ChunkMetadata{Source: "unit"})
	require.NoError(t, err)
	_, err = e.CreateChunk(ctx, libID, docID, "two", v2, store.ChunkMetadata{Source: "unit"})
	require.NoError(t, err)
	chunk3, err := e.CreateChunk(ctx, libID, docID, "three", v3, store.ChunkMetadata{Source: "unit"})
	require.NoError(t, err)

	require.NoError(t, e.IndexLibrary(ctx, libID, store.IndexFlat, nil))

	results, err := e.Search(ctx, SearchRequest{LibraryID: libID, Embedding: v1, K: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-9)
	assert.Equal(t, chunk3, results[1].Chunk.ID)
	assert.InDelta(t, 0.9939, results[1].SimilarityScore, 1e-3)
}

// S2 — dimension rejection.
func TestEngineCreateChunkRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	libID, _ := e.CreateLibrary(ctx, store.LibraryMetadata{Name: "L"})
	docID, _ := e.CreateDocument(ctx, libID, store.DocumentMetadata{Title: "D"})
	_, err := e.CreateChunk(ctx, libID, docID, "a", []float32{1, 0, 0}, store.ChunkMetadata{Source: "u"})
	require.NoError(t, err)

	_, err = e.CreateChunk(ctx, libID, docID, "b", []float32{1, 0}, store.ChunkMetadata{Source: "u"})
	require.Error(t, err)
}

// S3 — invalidation: adding a chunk after indexing must flip is_indexed to
// false and fail subsequent searches with NotIndexed.
func TestEngineSearchFailsAfterInvalidation(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	libID, _ := e.CreateLibrary(ctx, store.LibraryMetadata{Name: "L"})
	docID, _ := e.CreateDocument(ctx, libID, store.DocumentMetadata{Title: "D"})
	_, err := e.CreateChunk(ctx, libID, docID, "a", []float32{1, 0, 0}, store.ChunkMetadata{Source: "u"})
	require.NoError(t, err)
	require.NoError(t, e.IndexLibrary(ctx, libID, store.IndexFlat, nil))

	_, err = e.CreateChunk(ctx, libID, docID, "b", []float32{0, 1, 0}, store.ChunkMetadata{Source: "u"})
	require.NoError(t, err)

	stats, err := e.LibraryStats(ctx, libID)
	require.NoError(t, err)
	assert.False(t, stats.IsIndexed)

	_, err = e.Search(ctx, SearchRequest{LibraryID: libID, Embedding: []float32{1, 0, 0}, K: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotIndexed")
}

// S6 — cascade delete.
func TestEngineDeleteLibraryCascades(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	libID, _ := e.CreateLibrary(ctx, store.LibraryMetadata{Name: "L"})
	doc1, _ := e.CreateDocument(ctx, libID, store.DocumentMetadata{Title: "D1"})
	doc2, _ := e.CreateDocument(ctx, libID, store.DocumentMetadata{Title: "D2"})
	for i := 0; i < 3; i++ {
		_, err := e.CreateChunk(ctx, libID, doc1, "x", []float32{1, 0}, store.ChunkMetadata{Source: "u"})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := e.CreateChunk(ctx, libID, doc2, "y", []float32{0, 1}, store.ChunkMetadata{Source: "u"})
		require.NoError(t, err)
	}

	require.NoError(t, e.DeleteLibrary(ctx, libID))

	_, err := e.GetLibrary(ctx, libID)
	assert.Error(t, err)
	for _, l := range e.ListLibraries(ctx) {
		assert.NotEqual(t, libID, l.ID)
	}
}

// S7 — filter + threshold.
func TestEngineSearchFiltersByMetadataAndThreshold(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	libID, _ := e.CreateLibrary(ctx, store.LibraryMetadata{Name: "L"})
	docID, _ := e.CreateDocument(ctx, libID, store.DocumentMetadata{Title: "D"})

	v1 := []float32{1, 0, 0}
	v2 := []float32{0, 1, 0}
	v3 := []float32{0.9, 0.1, 0}
	_, err := e.CreateChunk(ctx, libID, docID, "one", v1, store.ChunkMetadata{Source: "u", Extra: map[string]string{"color": "red"}})
	require.NoError(t, err)
	_, err = e.CreateChunk(ctx, libID, docID, "two", v2, store.ChunkMetadata{Source: "u", Extra: map[string]string{"color": "blue"}})
	require.NoError(t, err)
	chunk3, err := e.CreateChunk(ctx, libID, docID, "three", v3, store.ChunkMetadata{Source: "u", Extra: map[string]string{"color": "blue"}})
	require.NoError(t, err)

	require.NoError(t, e.IndexLibrary(ctx, libID, store.IndexFlat, nil))

	threshold := 0.5
	results, err := e.Search(ctx, SearchRequest{
		LibraryID:           libID,
		Embedding:           v1,
		K:                   5,
		MetadataFilters:     map[string]string{"color": "blue"},
		SimilarityThreshold: &threshold,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, chunk3, results[0].Chunk.ID)
}

func TestEngineIndexLibraryRejectsUnsupportedType(t *testing.T) {
	ctx := context.Background()
	e := New(nil)
	libID, _ := e.CreateLibrary(ctx, store.LibraryMetadata{Name: "L"})
	err := e.IndexLibrary(ctx, libID, store.IndexType("quantum"), nil)
	require.Error(t, err)
}
