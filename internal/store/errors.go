package store

import (
	"errors"

	"github.com/hyperjump/ragstore/internal/doctable"
	"github.com/hyperjump/ragstore/internal/vector"
)

var (
	// ErrInvalidInput is returned for blank text or a non-positive k.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch is matched by the *vector.DimensionMismatchError
	// returned when the embedder output disagrees with the store dimension.
	ErrDimensionMismatch = vector.ErrDimensionMismatch

	// ErrStoreHalted is returned by every insert after a dimension mismatch.
	// The error also matches the mismatch that caused the halt.
	ErrStoreHalted = errors.New("store halted")

	// ErrPositionNotFound means a position has no record. During a query it
	// signals that the index and the document table are out of step.
	ErrPositionNotFound = doctable.ErrPositionNotFound

	// ErrEmbedding is returned when the embedder fails or yields a vector
	// that cannot be normalised.
	ErrEmbedding = errors.New("embedding failed")
)
