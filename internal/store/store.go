package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/athrvaarora/vector-db-api/internal/vecmath"
)

// InvalidateFunc is called whenever a mutation flips a library's is_indexed
// flag to false. The orchestrator wires this to drop its cached index
// instance for that library, keeping "is_indexed == index instance exists"
// true by construction rather than by convention.
type InvalidateFunc func(LibraryID)

// Store is the authoritative entity store. It is safe for concurrent use:
// an internal mutex guards the three id->entity maps and the chunk->library
// routing index. Callers orchestrating multi-step, library-scoped
// operations still want the fairness and read/write semantics of
// internal/concurrency's per-library lock around a sequence of calls; this
// mutex alone only protects Store's own bookkeeping from corruption.
type Store struct {
	mu sync.Mutex

	libraries  map[LibraryID]*Library
	documents  map[DocumentID]*Document
	chunks     map[ChunkID]*Chunk
	chunkOwner map[ChunkID]LibraryID // routes a chunk id to its library without walking the tree

	onInvalidate InvalidateFunc
}

// New constructs an empty Store. onInvalidate may be nil.
func New(onInvalidate InvalidateFunc) *Store {
	if onInvalidate == nil {
		onInvalidate = func(LibraryID) {}
	}
	return &Store{
		libraries:    make(map[LibraryID]*Library),
		documents:    make(map[DocumentID]*Document),
		chunks:       make(map[ChunkID]*Chunk),
		chunkOwner:   make(map[ChunkID]LibraryID),
		onInvalidate: onInvalidate,
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ---- libraries ----

// CreateLibrary always succeeds: a freshly created library has no documents
// and is not indexed.
func (s *Store) CreateLibrary(meta LibraryMetadata) LibraryID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := NewLibraryID()
	now := time.Now().UTC()
	meta.Tags = cloneStrings(meta.Tags)
	meta.CreatedAt, meta.UpdatedAt = now, now
	s.libraries[id] = &Library{
		ID:          id,
		Metadata:    meta,
		DocumentIDs: nil,
		IsIndexed:   false,
	}
	return id
}

// GetLibrary returns a shallow copy of the library, or NotFound.
func (s *Store) GetLibrary(id LibraryID) (Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[id]
	if !ok {
		return Library{}, ErrLibraryNotFound(id)
	}
	return *lib, nil
}

// LibraryUpdate carries optional new values for UpdateLibrary; nil/zero
// fields are left unchanged. IsPublic is a pointer (unlike the other fields,
// which are distinguishable from "unset" by their own zero value) because
// false is a meaningful value a caller may want to set explicitly.
type LibraryUpdate struct {
	Name        string
	Description string
	Owner       string
	Tags        []string
	IsPublic    *bool
}

// UpdateLibrary merges non-zero fields of patch into the stored library's
// metadata. It never touches DocumentIDs, IsIndexed, or indexing fields.
func (s *Store) UpdateLibrary(id LibraryID, patch LibraryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[id]
	if !ok {
		return ErrLibraryNotFound(id)
	}
	if patch.Name != "" {
		lib.Metadata.Name = patch.Name
	}
	if patch.Description != "" {
		lib.Metadata.Description = patch.Description
	}
	if patch.Owner != "" {
		lib.Metadata.Owner = patch.Owner
	}
	if patch.Tags != nil {
		lib.Metadata.Tags = cloneStrings(patch.Tags)
	}
	if patch.IsPublic != nil {
		lib.Metadata.IsPublic = *patch.IsPublic
	}
	lib.Metadata.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteLibrary cascades: every document owned by the library is deleted,
// and every chunk owned by those documents. The cascade is atomic from an
// observer's viewpoint because it all happens while s.mu is held.
func (s *Store) DeleteLibrary(id LibraryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[id]
	if !ok {
		return ErrLibraryNotFound(id)
	}
	for _, docID := range lib.DocumentIDs {
		doc := s.documents[docID]
		if doc == nil {
			continue
		}
		for _, chunkID := range doc.ChunkIDs {
			delete(s.chunks, chunkID)
			delete(s.chunkOwner, chunkID)
		}
		delete(s.documents, docID)
	}
	delete(s.libraries, id)
	return nil
}

// ListLibraries returns all libraries sorted by CreatedAt ascending, id as
// tiebreak, so listings are deterministic.
func (s *Store) ListLibraries() []Library {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Library, 0, len(s.libraries))
	for _, lib := range s.libraries {
		out = append(out, *lib)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Metadata.CreatedAt.Equal(out[j].Metadata.CreatedAt) {
			return out[i].Metadata.CreatedAt.Before(out[j].Metadata.CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// LibraryStats answers library_stats.
func (s *Store) LibraryStats(id LibraryID) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[id]
	if !ok {
		return Stats{}, ErrLibraryNotFound(id)
	}
	totalChunks := 0
	for _, docID := range lib.DocumentIDs {
		if doc := s.documents[docID]; doc != nil {
			totalChunks += len(doc.ChunkIDs)
		}
	}
	return Stats{
		TotalDocuments:     len(lib.DocumentIDs),
		TotalChunks:        totalChunks,
		EmbeddingDimension: lib.EmbeddingDimension,
		IndexType:          lib.IndexType,
		LastIndexed:        lib.LastIndexed,
		IsIndexed:          lib.IsIndexed,
	}, nil
}

// MarkIndexed installs the post-build state on a library: is_indexed=true,
// the index type used, and the build timestamp. Called by the orchestrator
// after a successful index build, under the library's write lock.
func (s *Store) MarkIndexed(id LibraryID, indexType IndexType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[id]
	if !ok {
		return ErrLibraryNotFound(id)
	}
	lib.IsIndexed = true
	lib.IndexType = indexType
	lib.LastIndexed = at
	return nil
}

func (s *Store) invalidate(lib *Library) {
	if !lib.IsIndexed {
		return
	}
	lib.IsIndexed = false
	id := lib.ID
	s.onInvalidate(id)
}

// ---- documents ----

// CreateDocument fails NotFound if the library does not exist.
func (s *Store) CreateDocument(libraryID LibraryID, meta DocumentMetadata) (DocumentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[libraryID]
	if !ok {
		return DocumentID{}, ErrLibraryNotFound(libraryID)
	}
	id := NewDocumentID()
	now := time.Now().UTC()
	meta.Tags = cloneStrings(meta.Tags)
	meta.CreatedAt, meta.UpdatedAt = now, now
	s.documents[id] = &Document{
		ID:        id,
		LibraryID: libraryID,
		Metadata:  meta,
	}
	lib.DocumentIDs = append(lib.DocumentIDs, id)
	return id, nil
}

// GetDocument returns a shallow copy of the document, or NotFound.
func (s *Store) GetDocument(id DocumentID) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrDocumentNotFound(id)
	}
	return *doc, nil
}

// UpdateDocument merges non-zero metadata fields.
func (s *Store) UpdateDocument(id DocumentID, patch DocumentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return ErrDocumentNotFound(id)
	}
	if patch.Title != "" {
		doc.Metadata.Title = patch.Title
	}
	if patch.Description != "" {
		doc.Metadata.Description = patch.Description
	}
	if patch.Author != "" {
		doc.Metadata.Author = patch.Author
	}
	if patch.Tags != nil {
		doc.Metadata.Tags = cloneStrings(patch.Tags)
	}
	if patch.Category != "" {
		doc.Metadata.Category = patch.Category
	}
	if patch.FileType != "" {
		doc.Metadata.FileType = patch.FileType
	}
	doc.Metadata.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteDocument removes the document and cascades to its chunks, and
// invalidates the owning library's index.
func (s *Store) DeleteDocument(id DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return ErrDocumentNotFound(id)
	}
	lib := s.libraries[doc.LibraryID]
	for _, chunkID := range doc.ChunkIDs {
		delete(s.chunks, chunkID)
		delete(s.chunkOwner, chunkID)
	}
	delete(s.documents, id)
	if lib != nil {
		lib.DocumentIDs = removeDocID(lib.DocumentIDs, id)
		s.invalidate(lib)
	}
	return nil
}

// removeDocID returns a new slice with target removed, leaving ids' backing
// array untouched — GetLibrary/ListLibraries/Snapshot hand out shallow
// library copies whose DocumentIDs field still points at that same backing
// array, so rewriting in place would corrupt an already-returned copy.
func removeDocID(ids []DocumentID, target DocumentID) []DocumentID {
	out := make([]DocumentID, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// removeChunkID is removeDocID's counterpart for a document's ChunkIDs, for
// the same reason: GetDocument hands out shallow copies sharing the slice's
// backing array.
func removeChunkID(ids []ChunkID, target ChunkID) []ChunkID {
	out := make([]ChunkID, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// ListDocuments returns documents for a library in DocumentIDs order
// (creation order). If libraryID is the zero value, library_id is treated
// as omitted and every document across every library is returned instead,
// libraries ordered as ListLibraries would order them.
func (s *Store) ListDocuments(libraryID LibraryID) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if libraryID == (LibraryID{}) {
		libs := make([]*Library, 0, len(s.libraries))
		for _, lib := range s.libraries {
			libs = append(libs, lib)
		}
		sort.Slice(libs, func(i, j int) bool {
			if !libs[i].Metadata.CreatedAt.Equal(libs[j].Metadata.CreatedAt) {
				return libs[i].Metadata.CreatedAt.Before(libs[j].Metadata.CreatedAt)
			}
			return libs[i].ID.String() < libs[j].ID.String()
		})
		var out []Document
		for _, lib := range libs {
			for _, docID := range lib.DocumentIDs {
				if doc := s.documents[docID]; doc != nil {
					out = append(out, *doc)
				}
			}
		}
		return out, nil
	}

	lib, ok := s.libraries[libraryID]
	if !ok {
		return nil, ErrLibraryNotFound(libraryID)
	}
	out := make([]Document, 0, len(lib.DocumentIDs))
	for _, docID := range lib.DocumentIDs {
		if doc := s.documents[docID]; doc != nil {
			out = append(out, *doc)
		}
	}
	return out, nil
}

// ---- chunks ----

// CreateChunk fails NotFound if the document is missing, and
// DimensionMismatch if the owning library already has a fixed dimension
// that disagrees with len(embedding). The first chunk ever added to a
// library fixes that library's embedding dimension.
func (s *Store) CreateChunk(documentID DocumentID, text string, embedding []float32, meta ChunkMetadata) (ChunkID, error) {
	if err := vecmath.Validate(embedding); err != nil {
		return ChunkID{}, ErrInvalidEmbedding(err)
	}
	if meta.Source == "" {
		return ChunkID{}, ErrValidation("chunk metadata.source is required")
	}
	if len(text) > MaxChunkTextLength {
		return ChunkID{}, ErrValidation(fmt.Sprintf("chunk text exceeds %d characters", MaxChunkTextLength))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return ChunkID{}, ErrDocumentNotFound(documentID)
	}
	lib := s.libraries[doc.LibraryID]
	if lib == nil {
		return ChunkID{}, ErrLibraryNotFound(doc.LibraryID)
	}
	if lib.EmbeddingDimension == 0 {
		if len(embedding) > MaxEmbeddingDimension {
			return ChunkID{}, ErrValidation(fmt.Sprintf("embedding dimension exceeds %d", MaxEmbeddingDimension))
		}
		lib.EmbeddingDimension = len(embedding)
	} else if lib.EmbeddingDimension != len(embedding) {
		return ChunkID{}, ErrDimension(lib.EmbeddingDimension, len(embedding))
	}

	id := NewChunkID()
	now := time.Now().UTC()
	meta.Tags = cloneStrings(meta.Tags)
	meta.Extra = cloneStringMap(meta.Extra)
	meta.CharCount = len(text)
	meta.CreatedAt, meta.UpdatedAt = now, now
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	s.chunks[id] = &Chunk{
		ID:         id,
		DocumentID: documentID,
		Text:       text,
		Embedding:  vec,
		Metadata:   meta,
	}
	s.chunkOwner[id] = doc.LibraryID
	doc.ChunkIDs = append(doc.ChunkIDs, id)
	doc.Metadata.UpdatedAt = now
	s.invalidate(lib)
	return id, nil
}

// GetChunk returns a shallow copy of the chunk (the embedding slice is
// copied so callers cannot mutate stored state), or NotFound.
func (s *Store) GetChunk(id ChunkID) (Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[id]
	if !ok {
		return Chunk{}, ErrChunkNotFound(id)
	}
	out := *c
	out.Embedding = make([]float32, len(c.Embedding))
	copy(out.Embedding, c.Embedding)
	out.Metadata.Tags = cloneStrings(c.Metadata.Tags)
	out.Metadata.Extra = cloneStringMap(c.Metadata.Extra)
	return out, nil
}

// ChunkUpdate carries optional new values; nil fields are left unchanged.
type ChunkUpdate struct {
	Text      *string
	Embedding []float32
	Metadata  *ChunkMetadata
}

// UpdateChunk applies the same dimension rule as CreateChunk and invalidates
// the owning library's index on success.
func (s *Store) UpdateChunk(id ChunkID, patch ChunkUpdate) error {
	if patch.Embedding != nil {
		if err := vecmath.Validate(patch.Embedding); err != nil {
			return ErrInvalidEmbedding(err)
		}
	}
	if patch.Text != nil && len(*patch.Text) > MaxChunkTextLength {
		return ErrValidation(fmt.Sprintf("chunk text exceeds %d characters", MaxChunkTextLength))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[id]
	if !ok {
		return ErrChunkNotFound(id)
	}
	libID := s.chunkOwner[id]
	lib := s.libraries[libID]
	if lib == nil {
		return ErrLibraryNotFound(libID)
	}
	if patch.Embedding != nil && len(patch.Embedding) != lib.EmbeddingDimension {
		return ErrDimension(lib.EmbeddingDimension, len(patch.Embedding))
	}

	if patch.Text != nil {
		c.Text = *patch.Text
		c.Metadata.CharCount = len(*patch.Text)
	}
	if patch.Embedding != nil {
		vec := make([]float32, len(patch.Embedding))
		copy(vec, patch.Embedding)
		c.Embedding = vec
	}
	if patch.Metadata != nil {
		m := *patch.Metadata
		m.Tags = cloneStrings(m.Tags)
		m.Extra = cloneStringMap(m.Extra)
		m.CharCount = c.Metadata.CharCount
		m.CreatedAt = c.Metadata.CreatedAt
		c.Metadata = m
	}
	c.Metadata.UpdatedAt = time.Now().UTC()
	s.invalidate(lib)
	return nil
}

// DeleteChunk removes the chunk and its back-reference from the owning
// document, and invalidates the owning library's index.
func (s *Store) DeleteChunk(id ChunkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[id]
	if !ok {
		return ErrChunkNotFound(id)
	}
	doc := s.documents[c.DocumentID]
	libID := s.chunkOwner[id]
	lib := s.libraries[libID]

	delete(s.chunks, id)
	delete(s.chunkOwner, id)
	if doc != nil {
		doc.ChunkIDs = removeChunkID(doc.ChunkIDs, id)
	}
	if lib != nil {
		s.invalidate(lib)
	}
	return nil
}

// ListChunks returns chunks for a document in ChunkIDs order (creation
// order).
func (s *Store) ListChunks(documentID DocumentID) ([]Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return nil, ErrDocumentNotFound(documentID)
	}
	out := make([]Chunk, 0, len(doc.ChunkIDs))
	for _, chunkID := range doc.ChunkIDs {
		if c := s.chunks[chunkID]; c != nil {
			cp := *c
			cp.Embedding = make([]float32, len(c.Embedding))
			copy(cp.Embedding, c.Embedding)
			out = append(out, cp)
		}
	}
	return out, nil
}

// LibraryOf returns the library id owning a chunk, used by the orchestrator
// to route a chunk mutation to the right library lock without walking the
// document tree.
func (s *Store) LibraryOf(chunkID ChunkID) (LibraryID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.chunkOwner[chunkID]
	return id, ok
}

// Snapshot is a point-in-time copy of the three id->entity maps, for any
// caller wanting a consistent multi-entity read. It mirrors the source
// design's DatabaseSnapshot concept. Index builds do not use it; they read
// through ChunkVectors.
type Snapshot struct {
	Libraries map[LibraryID]Library
	Documents map[DocumentID]Document
	Chunks    map[ChunkID]Chunk
}

// Snapshot takes a shallow, point-in-time copy of every entity map.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Libraries: make(map[LibraryID]Library, len(s.libraries)),
		Documents: make(map[DocumentID]Document, len(s.documents)),
		Chunks:    make(map[ChunkID]Chunk, len(s.chunks)),
	}
	for id, lib := range s.libraries {
		snap.Libraries[id] = *lib
	}
	for id, doc := range s.documents {
		snap.Documents[id] = *doc
	}
	for id, c := range s.chunks {
		cp := *c
		cp.Embedding = make([]float32, len(c.Embedding))
		copy(cp.Embedding, c.Embedding)
		snap.Chunks[id] = cp
	}
	return snap
}

// ChunkVectors returns the (chunk_id, vector, metadata) triples for every
// chunk under a library, in deterministic order: document order, then chunk
// order within each document. This is the exact snapshot index_library
// needs for §4.8 step 2 — the same ordering assigns the dense handle each
// slice position corresponds to, shared by the built index and its
// equality filter.
func (s *Store) ChunkVectors(libraryID LibraryID) ([]ChunkID, [][]float32, []ChunkMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[libraryID]
	if !ok {
		return nil, nil, nil, ErrLibraryNotFound(libraryID)
	}
	var ids []ChunkID
	var vecs [][]float32
	var metas []ChunkMetadata
	for _, docID := range lib.DocumentIDs {
		doc := s.documents[docID]
		if doc == nil {
			continue
		}
		for _, chunkID := range doc.ChunkIDs {
			c := s.chunks[chunkID]
			if c == nil {
				continue
			}
			ids = append(ids, chunkID)
			vec := make([]float32, len(c.Embedding))
			copy(vec, c.Embedding)
			vecs = append(vecs, vec)
			m := c.Metadata
			m.Tags = cloneStrings(c.Metadata.Tags)
			m.Extra = cloneStringMap(c.Metadata.Extra)
			metas = append(metas, m)
		}
	}
	return ids, vecs, metas, nil
}
