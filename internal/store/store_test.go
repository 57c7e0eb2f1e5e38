package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeNow() time.Time { return time.Now().UTC() }

func TestCreateLibraryStartsEmptyAndUnindexed(t *testing.T) {
	s := New(nil)
	id := s.CreateLibrary(LibraryMetadata{Name: "docs"})
	lib, err := s.GetLibrary(id)
	require.NoError(t, err)
	assert.False(t, lib.IsIndexed)
	assert.Empty(t, lib.DocumentIDs)
}

func TestCreateDocumentFailsOnMissingLibrary(t *testing.T) {
	s := New(nil)
	_, err := s.CreateDocument(NewLibraryID(), DocumentMetadata{Title: "x"})
	require.Error(t, err)
}

func TestCreateChunkFixesDimensionOnFirstInsert(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	docID, err := s.CreateDocument(libID, DocumentMetadata{Title: "D"})
	require.NoError(t, err)

	_, err = s.CreateChunk(docID, "hello", []float32{1, 0, 0}, ChunkMetadata{Source: "unit"})
	require.NoError(t, err)

	lib, err := s.GetLibrary(libID)
	require.NoError(t, err)
	assert.Equal(t, 3, lib.EmbeddingDimension)
}

// S2 — dimension rejection.
func TestCreateChunkRejectsDimensionMismatch(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	docID, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D"})
	_, err := s.CreateChunk(docID, "a", []float32{1, 0, 0}, ChunkMetadata{Source: "unit"})
	require.NoError(t, err)

	_, err = s.CreateChunk(docID, "b", []float32{1, 0}, ChunkMetadata{Source: "unit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DimensionMismatch")
}

func TestCreateChunkRequiresSource(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	docID, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D"})
	_, err := s.CreateChunk(docID, "a", []float32{1, 0, 0}, ChunkMetadata{})
	require.Error(t, err)
}

func TestCharCountTracksTextLength(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	docID, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D"})
	chunkID, err := s.CreateChunk(docID, "hello world", []float32{1, 0, 0}, ChunkMetadata{Source: "unit"})
	require.NoError(t, err)

	c, err := s.GetChunk(chunkID)
	require.NoError(t, err)
	assert.Equal(t, len("hello world"), c.Metadata.CharCount)
}

// Index invalidation (property 4 / S3): mutating a chunk set flips
// is_indexed to false.
func TestInvalidationOnChunkInsert(t *testing.T) {
	var invalidated []LibraryID
	s := New(func(id LibraryID) { invalidated = append(invalidated, id) })
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	docID, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D"})
	_, err := s.CreateChunk(docID, "a", []float32{1, 0, 0}, ChunkMetadata{Source: "unit"})
	require.NoError(t, err)
	require.NoError(t, s.MarkIndexed(libID, IndexFlat, timeNow()))

	_, err = s.CreateChunk(docID, "b", []float32{0, 1, 0}, ChunkMetadata{Source: "unit"})
	require.NoError(t, err)

	lib, err := s.GetLibrary(libID)
	require.NoError(t, err)
	assert.False(t, lib.IsIndexed)
	assert.Contains(t, invalidated, libID)
}

// S6 — cascade delete.
func TestDeleteLibraryCascades(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	doc1, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D1"})
	doc2, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D2"})
	var chunkIDs []ChunkID
	for i := 0; i < 3; i++ {
		id, err := s.CreateChunk(doc1, "x", []float32{1, 0}, ChunkMetadata{Source: "u"})
		require.NoError(t, err)
		chunkIDs = append(chunkIDs, id)
	}
	for i := 0; i < 2; i++ {
		id, err := s.CreateChunk(doc2, "y", []float32{0, 1}, ChunkMetadata{Source: "u"})
		require.NoError(t, err)
		chunkIDs = append(chunkIDs, id)
	}

	require.NoError(t, s.DeleteLibrary(libID))

	_, err := s.GetLibrary(libID)
	assert.Error(t, err)
	_, err = s.GetDocument(doc1)
	assert.Error(t, err)
	_, err = s.GetDocument(doc2)
	assert.Error(t, err)
	for _, id := range chunkIDs {
		_, err := s.GetChunk(id)
		assert.Error(t, err)
	}
}

func TestDeleteDocumentCascadesChunksAndInvalidates(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	docID, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D"})
	chunkID, err := s.CreateChunk(docID, "a", []float32{1, 0}, ChunkMetadata{Source: "u"})
	require.NoError(t, err)
	require.NoError(t, s.MarkIndexed(libID, IndexFlat, timeNow()))

	require.NoError(t, s.DeleteDocument(docID))

	_, err = s.GetChunk(chunkID)
	assert.Error(t, err)
	lib, err := s.GetLibrary(libID)
	require.NoError(t, err)
	assert.False(t, lib.IsIndexed)
	assert.Empty(t, lib.DocumentIDs)
}

func TestCreateChunkRejectsOverlongText(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	docID, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D"})
	text := strings.Repeat("x", MaxChunkTextLength+1)
	_, err := s.CreateChunk(docID, text, []float32{1, 0, 0}, ChunkMetadata{Source: "unit"})
	require.Error(t, err)
}

func TestCreateChunkRejectsOversizedDimension(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	docID, _ := s.CreateDocument(libID, DocumentMetadata{Title: "D"})
	_, err := s.CreateChunk(docID, "a", make([]float32, MaxEmbeddingDimension+1), ChunkMetadata{Source: "unit"})
	require.Error(t, err)
}

func TestListDocumentsWithZeroLibraryIDReturnsAll(t *testing.T) {
	s := New(nil)
	lib1 := s.CreateLibrary(LibraryMetadata{Name: "L1"})
	lib2 := s.CreateLibrary(LibraryMetadata{Name: "L2"})
	doc1, _ := s.CreateDocument(lib1, DocumentMetadata{Title: "D1"})
	doc2, _ := s.CreateDocument(lib2, DocumentMetadata{Title: "D2"})

	all, err := s.ListDocuments(LibraryID{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, doc1, all[0].ID)
	assert.Equal(t, doc2, all[1].ID)
}

func TestListDocumentsPreservesCreationOrder(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	first, _ := s.CreateDocument(libID, DocumentMetadata{Title: "first"})
	second, _ := s.CreateDocument(libID, DocumentMetadata{Title: "second"})

	docs, err := s.ListDocuments(libID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, first, docs[0].ID)
	assert.Equal(t, second, docs[1].ID)
}

func TestListLibrariesSortedByCreatedAt(t *testing.T) {
	s := New(nil)
	a := s.CreateLibrary(LibraryMetadata{Name: "a"})
	b := s.CreateLibrary(LibraryMetadata{Name: "b"})

	libs := s.ListLibraries()
	require.Len(t, libs, 2)
	assert.Equal(t, a, libs[0].ID)
	assert.Equal(t, b, libs[1].ID)
}

func TestUpdateLibraryLeavesIsPublicUnchangedWhenNotSet(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L"})
	require.NoError(t, s.UpdateLibrary(libID, LibraryUpdate{IsPublic: boolPtr(true)}))

	require.NoError(t, s.UpdateLibrary(libID, LibraryUpdate{Name: "renamed"}))

	lib, err := s.GetLibrary(libID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", lib.Metadata.Name)
	assert.True(t, lib.Metadata.IsPublic)
}

func TestUpdateLibrarySetsIsPublicFalseExplicitly(t *testing.T) {
	s := New(nil)
	libID := s.CreateLibrary(LibraryMetadata{Name: "L", IsPublic: true})
	require.NoError(t, s.UpdateLibrary(libID, LibraryUpdate{IsPublic: boolPtr(false)}))

	lib, err := s.GetLibrary(libID)
	require.NoError(t, err)
	assert.False(t, lib.Metadata.IsPublic)
}

func boolPtr(b bool) *bool { return &b }

// metadata_filters={color:"blue"}: an extension key outside the fixed
// ChunkMetadata schema.
func TestEqualityIndexFiltersByExtensionKey(t *testing.T) {
	metas := []ChunkMetadata{
		{Source: "s1", Extra: map[string]string{"color": "red"}},
		{Source: "s2", Extra: map[string]string{"color": "blue"}},
		{Source: "s3", Extra: map[string]string{"color": "blue"}},
	}
	idx := BuildEqualityIndex(metas)
	bm := idx.Match(map[string]string{"color": "blue"})
	assert.Equal(t, uint64(2), bm.GetCardinality())
	assert.True(t, bm.Contains(1))
	assert.True(t, bm.Contains(2))
	assert.False(t, bm.Contains(0))
}

func TestEqualityIndexFiltersByTag(t *testing.T) {
	metas := []ChunkMetadata{
		{Source: "s1", Tags: []string{"red"}},
		{Source: "s2", Tags: []string{"blue"}},
		{Source: "s3", Tags: []string{"blue"}},
	}
	idx := BuildEqualityIndex(metas)
	bm := idx.Match(map[string]string{"tags": "blue"})
	assert.Equal(t, uint64(2), bm.GetCardinality())
	assert.True(t, bm.Contains(1))
	assert.True(t, bm.Contains(2))
	assert.False(t, bm.Contains(0))
}

// A "tags" filter value may list several tags comma-separated; a chunk
// matches if it carries any one of them (OR), mirroring the source
// service's any(tag in chunk.metadata.tags for tag in value).
func TestEqualityIndexTagsFilterIsOrAcrossCommaList(t *testing.T) {
	metas := []ChunkMetadata{
		{Source: "s1", Tags: []string{"red"}},
		{Source: "s2", Tags: []string{"blue"}},
		{Source: "s3", Tags: []string{"green"}},
	}
	idx := BuildEqualityIndex(metas)
	bm := idx.Match(map[string]string{"tags": "red,blue"})
	assert.Equal(t, uint64(2), bm.GetCardinality())
	assert.True(t, bm.Contains(0))
	assert.True(t, bm.Contains(1))
	assert.False(t, bm.Contains(2))
}

func TestEqualityIndexEmptyFilterMatchesAll(t *testing.T) {
	idx := BuildEqualityIndex([]ChunkMetadata{{Source: "a"}, {Source: "b"}})
	bm := idx.Match(nil)
	assert.Equal(t, uint64(2), bm.GetCardinality())
}
