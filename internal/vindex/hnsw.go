package vindex

import (
	"container/heap"
	"math"
	"math/rand"

	"github.com/athrvaarora/vector-db-api/internal/vecmath"
)

// HierarchicalIndex is a simplified HNSW (hierarchical navigable small
// world) multi-layer proximity graph. Nodes are addressed by dense arena
// slots (0..N-1, assigned in build order) rather than pointers; each slot's
// per-layer neighbor lists are plain slices of slot indices. The
// slot<->caller-handle mapping is kept only for translating results back at
// the end of Search.
type HierarchicalIndex struct {
	cfg Config

	vectors    [][]float32 // slot -> vector
	slotHandle []uint32    // slot -> caller handle
	levels     []int       // slot -> assigned level
	neighbors  [][][]int   // slot -> layer -> neighbor slots

	entryPoint int // slot of the current entry point, -1 if empty
	topLevel   int
}

var _ Index = (*HierarchicalIndex)(nil)

// BuildHierarchical inserts items one at a time per §4.6: assign a level,
// greedy-descend the upper layers to find an entry point into the node's
// own top layer, then beam-search each layer from there down to 0,
// selecting up to M (2M on layer 0) diverse neighbors per layer via the
// heuristic selector, with bidirectional edges and budget-triggered
// pruning.
func BuildHierarchical(items []Item, cfg Config) (*HierarchicalIndex, error) {
	cfg = cfg.withDefaults()
	idx := &HierarchicalIndex{
		cfg:        cfg,
		vectors:    make([][]float32, 0, len(items)),
		slotHandle: make([]uint32, 0, len(items)),
		levels:     make([]int, 0, len(items)),
		neighbors:  make([][][]int, 0, len(items)),
		entryPoint: -1,
		topLevel:   -1,
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	mL := 1.0 / math.Log(float64(cfg.M))

	for _, item := range items {
		vec := make([]float32, len(item.Vector))
		copy(vec, item.Vector)

		slot := len(idx.vectors)
		level := sampleLevel(rng, mL)
		idx.vectors = append(idx.vectors, vec)
		idx.slotHandle = append(idx.slotHandle, item.Handle)
		idx.levels = append(idx.levels, level)
		idx.neighbors = append(idx.neighbors, make([][]int, level+1))
		for l := 0; l <= level; l++ {
			idx.neighbors[slot][l] = nil
		}

		if err := idx.insert(slot, level); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// sampleLevel draws a level from a geometric distribution with parameter
// mL, the standard HNSW level sampler.
func sampleLevel(rng *rand.Rand, mL float64) int {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * mL))
}

func (idx *HierarchicalIndex) vec(slot int) []float32 { return idx.vectors[slot] }

func (idx *HierarchicalIndex) sim(a, b int) (float64, error) {
	return vecmath.Cosine(idx.vectors[a], idx.vectors[b])
}

func (idx *HierarchicalIndex) simToQuery(query []float32, slot int) (float64, error) {
	return vecmath.Cosine(query, idx.vectors[slot])
}

// insert runs the build-time insertion algorithm for one new slot at the
// given level.
func (idx *HierarchicalIndex) insert(slot, level int) error {
	if idx.entryPoint == -1 {
		idx.entryPoint = slot
		idx.topLevel = level
		return nil
	}

	ep := idx.entryPoint
	epSim, err := idx.sim(slot, ep)
	if err != nil {
		return err
	}

	// Greedy-descend layers above the new node's own level to find the
	// best entry point into its top layer.
	for l := idx.topLevel; l > level; l-- {
		improved := true
		for improved {
			improved = false
			for _, cand := range idx.neighbors[ep][clampLayer(l, idx.levels[ep])] {
				s, err := idx.sim(slot, cand)
				if err != nil {
					return err
				}
				if s > epSim {
					ep, epSim = cand, s
					improved = true
				}
			}
		}
	}

	// Beam search each layer from min(level, top) down to 0, connecting
	// the new node into the graph at each.
	entrySet := []candidate{{slot: ep, score: epSim}}
	for l := minInt(level, idx.topLevel); l >= 0; l-- {
		candidates, err := idx.searchLayer(slot, entrySet, idx.cfg.EfConstruction, l)
		if err != nil {
			return err
		}
		budget := idx.cfg.M
		if l == 0 {
			budget = idx.cfg.M * 2
		}
		selected, err := idx.selectHeuristic(slot, candidates, budget)
		if err != nil {
			return err
		}
		idx.neighbors[slot][l] = selected
		for _, other := range selected {
			idx.addEdge(other, slot, l)
			if err := idx.pruneIfOverBudget(other, l); err != nil {
				return err
			}
		}
		entrySet = candidates
	}

	if level > idx.topLevel {
		idx.entryPoint = slot
		idx.topLevel = level
	}
	return nil
}

func clampLayer(l, nodeLevel int) int {
	if l > nodeLevel {
		return nodeLevel
	}
	return l
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// addEdge adds slot `to` into `from`'s neighbor list at layer l. It does not
// grow the per-node layer slice: callers only call this for layers <=
// from's own level, which holds because searchLayer's candidate pool only
// contains nodes present at l.
func (idx *HierarchicalIndex) addEdge(from, to, l int) {
	for _, existing := range idx.neighbors[from][l] {
		if existing == to {
			return
		}
	}
	idx.neighbors[from][l] = append(idx.neighbors[from][l], to)
}

// pruneIfOverBudget re-selects node's neighbor list at layer l via the
// heuristic selector if it now exceeds its budget.
func (idx *HierarchicalIndex) pruneIfOverBudget(node, l int) error {
	budget := idx.cfg.M
	if l == 0 {
		budget = idx.cfg.M * 2
	}
	if len(idx.neighbors[node][l]) <= budget {
		return nil
	}
	cands := make([]candidate, 0, len(idx.neighbors[node][l]))
	for _, other := range idx.neighbors[node][l] {
		s, err := idx.sim(node, other)
		if err != nil {
			return err
		}
		cands = append(cands, candidate{slot: other, score: s})
	}
	pruned, err := idx.selectHeuristic(node, cands, budget)
	if err != nil {
		return err
	}
	idx.neighbors[node][l] = pruned
	return nil
}

// candidate pairs a slot with its similarity to whatever node the
// candidate list was built against (the new node during insertion, or the
// query during search).
type candidate struct {
	slot  int
	score float64
}

// selectHeuristic implements the classic HNSW "select-heuristic": it
// prefers diverse neighbors. A candidate is kept only if it is closer
// (higher cosine similarity) to the target than it is to every
// already-selected neighbor — this avoids clustering all edges on one
// side of the target. Ties break by ascending handle.
func (idx *HierarchicalIndex) selectHeuristic(target int, candidates []candidate, m int) ([]int, error) {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sortCandidates(sorted, idx.slotHandle)

	selected := make([]int, 0, m)
	for _, c := range sorted {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, sel := range selected {
			simToSel, err := idx.sim(c.slot, sel)
			if err != nil {
				return nil, err
			}
			if c.score <= simToSel {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c.slot)
		}
	}
	// Backfill with the closest remaining candidates if the diversity
	// filter left the neighbor list under budget — a node should still
	// get up to m edges when there simply aren't m diverse ones.
	if len(selected) < m {
		have := make(map[int]bool, len(selected))
		for _, s := range selected {
			have[s] = true
		}
		for _, c := range sorted {
			if len(selected) >= m {
				break
			}
			if !have[c.slot] {
				selected = append(selected, c.slot)
				have[c.slot] = true
			}
		}
	}
	return selected, nil
}

func sortCandidates(cands []candidate, slotHandle []uint32) {
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0; j-- {
			a, b := cands[j-1], cands[j]
			swap := a.score < b.score || (a.score == b.score && slotHandle[a.slot] > slotHandle[b.slot])
			if !swap {
				break
			}
			cands[j-1], cands[j] = cands[j], cands[j-1]
		}
	}
}

// searchLayer runs a bounded beam search at layer l starting from
// entryPoints, expanding via each visited node's layer-l neighbor list,
// and returns up to ef candidates ranked by similarity to target (a slot
// during insertion, or a raw query vector during search — hence the two
// wrapper entry points below).
func (idx *HierarchicalIndex) searchLayer(targetSlot int, entryPoints []candidate, ef, l int) ([]candidate, error) {
	return idx.searchLayerGeneric(ef, l, entryPoints, func(slot int) (float64, error) {
		return idx.sim(targetSlot, slot)
	})
}

func (idx *HierarchicalIndex) searchLayerQuery(query []float32, entryPoints []candidate, ef, l int) ([]candidate, error) {
	return idx.searchLayerGeneric(ef, l, entryPoints, func(slot int) (float64, error) {
		return idx.simToQuery(query, slot)
	})
}

func (idx *HierarchicalIndex) searchLayerGeneric(ef, l int, entryPoints []candidate, scoreOf func(int) (float64, error)) ([]candidate, error) {
	visited := make(map[int]bool)
	candidates := &maxHeap{}
	result := &minHeap{}
	heap.Init(candidates)
	heap.Init(result)

	for _, ep := range entryPoints {
		if visited[ep.slot] {
			continue
		}
		visited[ep.slot] = true
		heap.Push(candidates, ep)
		heap.Push(result, ep)
	}

	for candidates.Len() > 0 {
		nearest := heap.Pop(candidates).(candidate)
		if result.Len() >= ef {
			worst := (*result)[0]
			if nearest.score < worst.score {
				break
			}
		}
		if nearest.slot >= len(idx.neighbors) || l >= len(idx.neighbors[nearest.slot]) {
			continue
		}
		for _, next := range idx.neighbors[nearest.slot][l] {
			if visited[next] {
				continue
			}
			visited[next] = true
			s, err := scoreOf(next)
			if err != nil {
				return nil, err
			}
			c := candidate{slot: next, score: s}
			if result.Len() < ef {
				heap.Push(candidates, c)
				heap.Push(result, c)
			} else if s > (*result)[0].score {
				heap.Push(candidates, c)
				heap.Push(result, c)
				heap.Pop(result)
			}
		}
	}

	out := make([]candidate, result.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(result).(candidate)
	}
	return out, nil
}

// Kind returns KindHierarchical.
func (idx *HierarchicalIndex) Kind() Kind { return KindHierarchical }

// Len returns the number of indexed items.
func (idx *HierarchicalIndex) Len() int { return len(idx.vectors) }

// Search implements §4.6's search algorithm: greedy single-beam descent
// from the entry point through layers top..1, then a beam search of width
// ef = max(k, efSearch) on layer 0.
func (idx *HierarchicalIndex) Search(query []float32, k int, filter Filter) ([]Result, error) {
	if k <= 0 || idx.entryPoint == -1 {
		return nil, nil
	}

	ep := idx.entryPoint
	epSim, err := idx.simToQuery(query, ep)
	if err != nil {
		return nil, err
	}
	for l := idx.topLevel; l > 0; l-- {
		improved := true
		for improved {
			improved = false
			for _, cand := range idx.neighbors[ep][clampLayer(l, idx.levels[ep])] {
				s, err := idx.simToQuery(query, cand)
				if err != nil {
					return nil, err
				}
				if s > epSim {
					ep, epSim = cand, s
					improved = true
				}
			}
		}
	}

	ef := idx.cfg.EfSearch
	if k > ef {
		ef = k
	}
	candidates, err := idx.searchLayerQuery(query, []candidate{{slot: ep, score: epSim}}, ef, 0)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		h := idx.slotHandle[c.slot]
		if !admits(filter, h) {
			continue
		}
		results = append(results, Result{Handle: h, Score: c.score})
	}
	sortResults(results)
	return truncate(results, k), nil
}
