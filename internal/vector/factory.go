package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat uses exact brute-force search. Good for up to a few hundred thousand vectors.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeHNSW uses an HNSW graph for approximate search on larger sets.
	IndexTypeHNSW IndexType = "hnsw"
)

// Options configures NewIndex. M and EfSearch only apply to HNSW; zero means library defaults.
type Options struct {
	Type       string
	Dimensions int
	M          int
	EfSearch   int
}

// NewIndex creates a vector index of the requested type.
// Supported types: "flat" (default), "hnsw".
func NewIndex(opts Options) (Index, error) {
	switch IndexType(opts.Type) {
	case IndexTypeFlat, "":
		return NewFlatIndex(opts.Dimensions)
	case IndexTypeHNSW:
		return NewHNSWIndex(opts.Dimensions, opts.M, opts.EfSearch)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, hnsw)", opts.Type)
	}
}
