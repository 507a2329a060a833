package vector

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex answers queries from an HNSW graph and re-scores the candidates exactly.
// Identical vectors share one graph node, so every position holding a returned
// vector competes for the result and equal scores resolve to lower positions.
// Graph keys are internal and never reused. Truncated keys are orphaned in the
// graph instead of deleted, since removing nodes from coder/hnsw can corrupt the
// entry point when the graph is small.
type HNSWIndex struct {
	dimensions int
	graph      *hnsw.Graph[uint64]
	vectors    [][]float32         // position -> vector
	keys       []uint64            // position -> graph key
	members    map[uint64][]int    // live graph key -> positions, ascending
	byChecksum map[uint64][]uint64 // vector checksum -> live graph keys
	nextKey    uint64
	orphans    int
	mu         sync.RWMutex
}

// graphSeed fixes level generation so the same inserts build the same graph.
const graphSeed = 1

// NewHNSWIndex creates an empty HNSW index. m and efSearch fall back to 16 and 20 when zero.
func NewHNSWIndex(dimensions, m, efSearch int) (*HNSWIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if m <= 0 {
		m = 16
	}
	if efSearch <= 0 {
		efSearch = 20
	}
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = m
	graph.EfSearch = efSearch
	graph.Ml = 0.25
	graph.Rng = rand.New(rand.NewSource(graphSeed))
	return &HNSWIndex{
		dimensions: dimensions,
		graph:      graph,
		vectors:    make([][]float32, 0),
		keys:       make([]uint64, 0),
		members:    make(map[uint64][]int),
		byChecksum: make(map[uint64][]uint64),
	}, nil
}

// Type returns the index type identifier.
func (h *HNSWIndex) Type() string {
	return string(IndexTypeHNSW)
}

// Dimensions returns the fixed vector dimension.
func (h *HNSWIndex) Dimensions() int {
	return h.dimensions
}

// Add stores a copy of vec and returns its position. A vector identical to one
// already stored joins that vector's graph node.
func (h *HNSWIndex) Add(vec []float32) (int, error) {
	if err := checkDimensions(h.dimensions, vec); err != nil {
		return -1, err
	}
	stored := make([]float32, h.dimensions)
	copy(stored, vec)
	sum := Checksum(stored)

	h.mu.Lock()
	defer h.mu.Unlock()
	key, ok := h.identicalKey(sum, stored)
	if !ok {
		key = h.nextKey
		h.nextKey++
		h.graph.Add(hnsw.MakeNode(key, stored))
		h.byChecksum[sum] = append(h.byChecksum[sum], key)
	}
	position := len(h.vectors)
	h.vectors = append(h.vectors, stored)
	h.keys = append(h.keys, key)
	h.members[key] = append(h.members[key], position)
	return position, nil
}

func (h *HNSWIndex) identicalKey(sum uint64, vec []float32) (uint64, bool) {
	for _, key := range h.byChecksum[sum] {
		if slices.Equal(h.vectors[h.members[key][0]], vec) {
			return key, true
		}
	}
	return 0, false
}

// Search returns up to k results. When k covers the whole index the scan is
// exhaustive, so every vector is returned.
func (h *HNSWIndex) Search(query []float32, k int) ([]Result, error) {
	if err := checkDimensions(h.dimensions, query); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if k <= 0 || len(h.vectors) == 0 {
		return []Result{}, nil
	}
	if k >= len(h.vectors) {
		return exactSearch(h.vectors, query, k), nil
	}

	// One extra candidate reveals a tie straddling the k-th result.
	nodes := h.graph.Search(query, k+1+h.orphans)
	results := make([]Result, 0, len(nodes))
	keyScores := make([]float64, 0, len(nodes))
	for _, node := range nodes {
		positions, ok := h.members[node.Key]
		if !ok {
			continue
		}
		score := InnerProduct(query, h.vectors[positions[0]])
		keyScores = append(keyScores, score)
		for _, position := range positions[:min(k, len(positions))] {
			results = append(results, Result{Position: position, Score: score})
		}
	}
	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	if len(results) == k && distinctTies(keyScores, results[k-1].Score) {
		// Distinct vectors share the boundary score; only a full scan can
		// find the lowest positions among them.
		return exactSearch(h.vectors, query, k), nil
	}
	return results, nil
}

// distinctTies reports whether more than one graph node scored exactly score.
func distinctTies(keyScores []float64, score float64) bool {
	n := 0
	for _, s := range keyScores {
		if s == score {
			n++
		}
	}
	return n > 1
}

// Vector returns a copy of the vector at position.
func (h *HNSWIndex) Vector(position int) ([]float32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if position < 0 || position >= len(h.vectors) {
		return nil, false
	}
	out := make([]float32, h.dimensions)
	copy(out, h.vectors[position])
	return out, true
}

// Truncate drops every position >= n. Graph nodes left without positions stay
// behind as orphans.
func (h *HNSWIndex) Truncate(n int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n < 0 || n > len(h.vectors) {
		return fmt.Errorf("truncate to %d: index has %d vectors", n, len(h.vectors))
	}
	for p := len(h.vectors) - 1; p >= n; p-- {
		key := h.keys[p]
		positions := h.members[key]
		positions = positions[:len(positions)-1]
		if len(positions) > 0 {
			h.members[key] = positions
		} else {
			delete(h.members, key)
			sum := Checksum(h.vectors[p])
			h.byChecksum[sum] = slices.DeleteFunc(h.byChecksum[sum], func(k uint64) bool { return k == key })
			if len(h.byChecksum[sum]) == 0 {
				delete(h.byChecksum, sum)
			}
			h.orphans++
		}
		h.vectors[p] = nil
	}
	h.vectors = h.vectors[:n]
	h.keys = h.keys[:n]
	return nil
}

// Size returns the number of live vectors.
func (h *HNSWIndex) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.vectors)
}

// Close is a no-op; the graph is garbage collected with the index.
func (h *HNSWIndex) Close() error {
	return nil
}
