// Command vectordbd is a minimal runnable entrypoint around the in-memory
// engine. It is not an HTTP/REST facade — that surface is an explicit
// non-goal of the core — but a small CLI shell that seeds a library,
// builds an index, and prints its stats, so the module ships as more than
// a library.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/athrvaarora/vector-db-api/internal/orchestrator"
	"github.com/athrvaarora/vector-db-api/internal/store"
	"github.com/athrvaarora/vector-db-api/internal/vecmath"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		chunkCount int
		dimension  int
		indexType  string
	)

	root := &cobra.Command{
		Use:   "vectordbd",
		Short: "Run a demo library through the in-memory vector engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), chunkCount, dimension, store.IndexType(indexType))
		},
	}
	root.Flags().IntVar(&chunkCount, "chunks", 200, "number of synthetic chunks to insert")
	root.Flags().IntVar(&dimension, "dim", 32, "embedding dimension")
	root.Flags().StringVar(&indexType, "index-type", string(store.IndexFlat), "flat|rp_lsh|hierarchical")
	return root
}

func runDemo(ctx context.Context, chunkCount, dimension int, indexType store.IndexType) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	engine := orchestrator.New(logger)

	libID, err := engine.CreateLibrary(ctx, store.LibraryMetadata{Name: "demo", IsPublic: true})
	if err != nil {
		return err
	}
	docID, err := engine.CreateDocument(ctx, libID, store.DocumentMetadata{Title: "synthetic"})
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < chunkCount; i++ {
		vec := make([]float32, dimension)
		for j := range vec {
			vec[j] = float32(rng.NormFloat64())
		}
		vecmath.NormalizeInPlace(vec)
		if _, err := engine.CreateChunk(ctx, libID, docID, fmt.Sprintf("chunk %d", i), vec, store.ChunkMetadata{Source: "demo"}); err != nil {
			return err
		}
	}

	if !indexType.Valid() {
		return fmt.Errorf("unsupported index type %q", indexType)
	}
	if err := engine.IndexLibrary(ctx, libID, indexType, nil); err != nil {
		return err
	}

	stats, err := engine.LibraryStats(ctx, libID)
	if err != nil {
		return err
	}
	fmt.Printf("library %s: %d documents, %d chunks, indexed=%v, type=%s\n",
		libID, stats.TotalDocuments, stats.TotalChunks, stats.IsIndexed, stats.IndexType)
	return nil
}
