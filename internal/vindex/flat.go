package vindex

import "github.com/athrvaarora/vector-db-api/internal/vecmath"

// FlatIndex stores the full N x D matrix and the parallel handle list and
// answers every query by exhaustive cosine scan. It is the correctness
// baseline and recall oracle the other two families are measured against.
type FlatIndex struct {
	handles []uint32
	vectors [][]float32
}

var _ Index = (*FlatIndex)(nil)

// BuildFlat constructs a FlatIndex over items. Construction only copies;
// there is no preprocessing to amortize.
func BuildFlat(items []Item) (*FlatIndex, error) {
	idx := &FlatIndex{
		handles: make([]uint32, len(items)),
		vectors: make([][]float32, len(items)),
	}
	for i, item := range items {
		idx.handles[i] = item.Handle
		vec := make([]float32, len(item.Vector))
		copy(vec, item.Vector)
		idx.vectors[i] = vec
	}
	return idx, nil
}

// Kind returns KindFlat.
func (f *FlatIndex) Kind() Kind { return KindFlat }

// Len returns the number of indexed items.
func (f *FlatIndex) Len() int { return len(f.handles) }

// Search computes cosine similarity against every vector and returns the
// top-k, sorted descending with ascending-handle tiebreak. Every admitted
// score is collected and the whole set sorted before truncating to k, so
// it takes O(N*D + N log N) time and O(N) extra space; no bounded heap is
// kept.
func (f *FlatIndex) Search(query []float32, k int, filter Filter) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}
	results := make([]Result, 0, len(f.handles))
	for i, h := range f.handles {
		if !admits(filter, h) {
			continue
		}
		score, err := vecmath.Cosine(query, f.vectors[i])
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Handle: h, Score: score})
	}
	sortResults(results)
	return truncate(results, k), nil
}
