// Package vector provides the similarity index: an append-only set of unit vectors
// addressed by insertion position, searched by inner product.
package vector

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDimensionMismatch is matched by every DimensionMismatchError.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// DimensionMismatchError reports a vector whose length differs from the index dimension.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) hold for any mismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Index stores vectors by position and answers top-k inner product queries.
// Implementations are safe for concurrent use, but callers that keep other
// structures aligned with positions must serialize Add and Truncate themselves.
type Index interface {
	// Add appends vec and returns its position (the previous size).
	Add(vec []float32) (int, error)
	// Search returns up to k results ordered by descending score, ties by lower position.
	Search(query []float32, k int) ([]Result, error)
	// Vector returns a copy of the vector stored at position.
	Vector(position int) ([]float32, bool)
	// Truncate drops every vector at position >= n.
	Truncate(n int) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Result is a single search hit.
type Result struct {
	Position int
	Score    float64 // raw inner product; cosine similarity for unit vectors
}

// sortResults orders by descending score, then ascending position.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})
}

// exactSearch scores every vector against query and returns the ordered top k.
func exactSearch(vectors [][]float32, query []float32, k int) []Result {
	if k <= 0 || len(vectors) == 0 {
		return []Result{}
	}
	results := make([]Result, len(vectors))
	for i, vec := range vectors {
		results[i] = Result{Position: i, Score: InnerProduct(query, vec)}
	}
	sortResults(results)
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

func checkDimensions(expected int, vec []float32) error {
	if len(vec) != expected {
		return &DimensionMismatchError{Expected: expected, Got: len(vec)}
	}
	return nil
}
