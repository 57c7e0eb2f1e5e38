package orchestrator

import (
	"context"
	"time"

	vectordb "github.com/athrvaarora/vector-db-api"
	"github.com/athrvaarora/vector-db-api/internal/store"
	"github.com/athrvaarora/vector-db-api/internal/vecmath"
	"github.com/athrvaarora/vector-db-api/internal/vindex"
	"go.uber.org/zap"
)

// IndexLibrary builds (or rebuilds) a library's index, per §4.8:
//  1. acquire the library's write lock
//  2. snapshot (chunk_id, vector) for every chunk under the library, in
//     deterministic document-then-chunk order — that order also assigns
//     the dense handle each item gets
//  3. build the chosen index under the write lock
//  4. install it, set is_indexed/index_type/last_indexed
//  5. release the write lock
//
// cfg may be nil, in which case §4.5/§4.6 defaults apply.
func (e *Engine) IndexLibrary(ctx context.Context, libraryID store.LibraryID, indexType store.IndexType, cfg *vindex.Config) error {
	if !indexType.Valid() {
		return vectordb.ErrUnsupportedIndexType(string(indexType))
	}
	kind, err := vindexKindFor(indexType)
	if err != nil {
		return err
	}

	lock := e.locks.For(libraryID.String())
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.store.GetLibrary(libraryID); err != nil {
		return err
	}

	ids, vecs, metas, err := e.store.ChunkVectors(libraryID)
	if err != nil {
		return err
	}
	for _, v := range vecs {
		if err := vecmath.Validate(v); err != nil {
			e.log().Error("stored embedding contains a non-finite component",
				zap.String("library_id", libraryID.String()),
				zap.Error(err),
			)
			return vectordb.ErrInternal("stored embedding contains a non-finite component", err)
		}
	}

	items := make([]vindex.Item, len(vecs))
	for i, v := range vecs {
		items[i] = vindex.Item{Handle: uint32(i), Vector: v}
	}

	buildCfg := vindex.DefaultConfig()
	if cfg != nil {
		buildCfg = *cfg
	}

	built, err := vindex.Build(kind, items, buildCfg)
	if err != nil {
		e.log().Error("index build failed",
			zap.String("library_id", libraryID.String()),
			zap.String("index_type", string(indexType)),
			zap.Error(err),
		)
		return vectordb.ErrInternal("index build failed", err)
	}

	e.setCompiled(libraryID, &compiledIndex{
		index:         built,
		equality:      store.BuildEqualityIndex(metas),
		handleToChunk: ids,
	})

	now := time.Now().UTC()
	if err := e.store.MarkIndexed(libraryID, indexType, now); err != nil {
		return err
	}

	e.log().Info("index built",
		zap.String("library_id", libraryID.String()),
		zap.String("index_type", string(indexType)),
		zap.Int("chunk_count", len(items)),
	)
	return nil
}

func (e *Engine) log() *zap.Logger { return e.logger }
