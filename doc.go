/*
Package vectordb implements an in-memory vector database: libraries of
documents made of text chunks, each chunk carrying a fixed-dimension
embedding, searchable by approximate nearest neighbor.

# Overview

Entities nest three levels deep: a Library owns Documents, a Document owns
Chunks. Every chunk in a library shares one embedding dimension, fixed by
the first chunk ever inserted. A library can be indexed with one of three
interchangeable strategies:

	engine.IndexLibrary(ctx, libraryID, store.IndexFlat, nil)
	engine.IndexLibrary(ctx, libraryID, store.IndexRPLSH, nil)
	engine.IndexLibrary(ctx, libraryID, store.IndexHierarchical, nil)

FlatIndex performs exhaustive cosine-similarity scan: perfect recall, O(n)
search. RPLSH (sign-random-projection locality sensitive hashing) trades
recall for speed on large libraries. Hierarchical is a simplified HNSW graph:
near-exact recall at logarithmic search cost.

# Searching

	results, err := engine.Search(ctx, orchestrator.SearchRequest{
		LibraryID: libraryID,
		Embedding: queryVector,
		K:         10,
	})

Search validates the library is indexed, takes the library's read lock,
queries the index, applies metadata filters and an optional similarity
floor, and hydrates each surviving (chunk id, score) pair with its owning
document and chunk.

# Concurrency

Each library owns a fair reader-writer lock (internal/concurrency) guarding
its documents, chunks, and index instance. A store-level mutex serializes
the narrow set of operations that touch the set of libraries themselves.
Mutating a chunk or a library's chunk set invalidates that library's index
atomically with the mutation.

# Out of scope

The HTTP/REST facade, the text-to-embedding provider, the web UI, and disk
persistence are external collaborators; this package consumes vectors as
given and keeps everything in process memory.
*/
package vectordb
