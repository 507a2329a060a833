package vector

import (
	"fmt"
	"sync"
)

// FlatIndex is an exact index using brute-force inner product search.
// Search is linear in the number of vectors.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Dimensions returns the fixed vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Add appends a copy of vec and returns its position.
func (f *FlatIndex) Add(vec []float32) (int, error) {
	if err := checkDimensions(f.dimensions, vec); err != nil {
		return -1, err
	}
	stored := make([]float32, f.dimensions)
	copy(stored, vec)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, stored)
	return len(f.vectors) - 1, nil
}

// Search returns the top-k vectors by inner product.
func (f *FlatIndex) Search(query []float32, k int) ([]Result, error) {
	if err := checkDimensions(f.dimensions, query); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return exactSearch(f.vectors, query, k), nil
}

// Vector returns a copy of the vector at position.
func (f *FlatIndex) Vector(position int) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if position < 0 || position >= len(f.vectors) {
		return nil, false
	}
	out := make([]float32, f.dimensions)
	copy(out, f.vectors[position])
	return out, true
}

// Truncate drops every vector at position >= n.
func (f *FlatIndex) Truncate(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 0 || n > len(f.vectors) {
		return fmt.Errorf("truncate to %d: index has %d vectors", n, len(f.vectors))
	}
	for i := n; i < len(f.vectors); i++ {
		f.vectors[i] = nil
	}
	f.vectors = f.vectors[:n]
	return nil
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
