package vindex

import (
	"math/rand"

	"github.com/athrvaarora/vector-db-api/internal/vecmath"
)

// RPLSHIndex is a sign-random-projection (SimHash) locality-sensitive hash
// index for cosine similarity. It maintains L independent hash tables, each
// keyed by an H-bit signature computed from a random projection matrix
// drawn once at build time from a deterministic seed.
type RPLSHIndex struct {
	cfg     Config
	dim     int
	planes  [][][]float32          // [table][bit][dim]
	buckets []map[uint64][]uint32  // [table] signature -> handles
	handles []uint32
	vectors map[uint32][]float32
}

var _ Index = (*RPLSHIndex)(nil)

// BuildRPLSH constructs an RPLSHIndex. See §4.5:
//  1. Draw L plane matrices of shape H x D from N(0,1).
//  2. For each item, compute the H-bit signature sign(Planes . vector) per
//     table (bit = 1 iff dot >= 0).
//  3. Insert the item into the bucket keyed by that signature, per table.
func BuildRPLSH(items []Item, cfg Config) (*RPLSHIndex, error) {
	cfg = cfg.withDefaults()
	dim := 0
	if len(items) > 0 {
		dim = len(items[0].Vector)
	}

	idx := &RPLSHIndex{
		cfg:     cfg,
		dim:     dim,
		planes:  make([][][]float32, cfg.LSHTables),
		buckets: make([]map[uint64][]uint32, cfg.LSHTables),
		handles: make([]uint32, len(items)),
		vectors: make(map[uint32][]float32, len(items)),
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	for t := 0; t < cfg.LSHTables; t++ {
		idx.planes[t] = randomPlanes(rng, cfg.LSHBits, dim)
		idx.buckets[t] = make(map[uint64][]uint32)
	}

	for i, item := range items {
		idx.handles[i] = item.Handle
		vec := make([]float32, len(item.Vector))
		copy(vec, item.Vector)
		idx.vectors[item.Handle] = vec
		for t := 0; t < cfg.LSHTables; t++ {
			sig, err := signature(idx.planes[t], vec)
			if err != nil {
				return nil, err
			}
			idx.buckets[t][sig] = append(idx.buckets[t][sig], item.Handle)
		}
	}
	return idx, nil
}

// randomPlanes draws an H x D matrix of independent standard-normal values.
func randomPlanes(rng *rand.Rand, h, d int) [][]float32 {
	planes := make([][]float32, h)
	for i := 0; i < h; i++ {
		row := make([]float32, d)
		for j := 0; j < d; j++ {
			row[j] = float32(rng.NormFloat64())
		}
		planes[i] = row
	}
	return planes
}

// signature computes the H-bit sign(Planes . vector) code, packed into a
// uint64 (H <= 64).
func signature(planes [][]float32, vec []float32) (uint64, error) {
	var sig uint64
	for bit, plane := range planes {
		dot, err := vecmath.Dot(plane, vec)
		if err != nil {
			return 0, err
		}
		if dot >= 0 {
			sig |= 1 << uint(bit)
		}
	}
	return sig, nil
}

// neighborsAtHammingDistance1 returns every signature at Hamming distance
// exactly 1 from sig, over an H-bit code space.
func neighborsAtHammingDistance1(sig uint64, bits int) []uint64 {
	out := make([]uint64, 0, bits)
	for b := 0; b < bits; b++ {
		out = append(out, sig^(1<<uint(b)))
	}
	return out
}

// Kind returns KindRPLSH.
func (idx *RPLSHIndex) Kind() Kind { return KindRPLSH }

// Len returns the number of indexed items.
func (idx *RPLSHIndex) Len() int { return len(idx.handles) }

// Search implements §4.5's search algorithm: union the L matching buckets,
// widen by Hamming distance 1 progressively if the candidate pool is
// smaller than min(k*P, N), then rank the pool by exact cosine.
func (idx *RPLSHIndex) Search(query []float32, k int, filter Filter) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}
	sigs := make([]uint64, idx.cfg.LSHTables)
	for t := 0; t < idx.cfg.LSHTables; t++ {
		sig, err := signature(idx.planes[t], query)
		if err != nil {
			return nil, err
		}
		sigs[t] = sig
	}

	target := k * idx.cfg.LSHOversample
	if target > len(idx.handles) {
		target = len(idx.handles)
	}

	seen := make(map[uint32]struct{})
	candidates := make([]uint32, 0, target)
	collect := func(h uint32) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		candidates = append(candidates, h)
	}

	// Distance-0: the exact matching bucket per table.
	for t := 0; t < idx.cfg.LSHTables; t++ {
		for _, h := range idx.buckets[t][sigs[t]] {
			collect(h)
		}
	}

	// Widen to buckets at Hamming distance 1, one table at a time, as long
	// as the pool is still short of target — each table's widen pass is a
	// progressively larger probe (it checks every bit flip of that table's
	// signature at once, since distance-1 has no finer gradation), and we
	// stop as soon as the target is met rather than always probing every
	// table regardless of need.
	for t := 0; t < idx.cfg.LSHTables && len(candidates) < target; t++ {
		for _, neighborSig := range neighborsAtHammingDistance1(sigs[t], idx.cfg.LSHBits) {
			for _, h := range idx.buckets[t][neighborSig] {
				collect(h)
			}
		}
	}

	results := make([]Result, 0, len(candidates))
	for _, h := range candidates {
		if !admits(filter, h) {
			continue
		}
		score, err := vecmath.Cosine(query, idx.vectors[h])
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Handle: h, Score: score})
	}
	sortResults(results)
	return truncate(results, k), nil
}

// buildSeed reports the seed this index was built with, for determinism
// verification (property 8): identical seed + items reproduce identical
// buckets and therefore identical search output.
func (idx *RPLSHIndex) buildSeed() int64 { return idx.cfg.Seed }
