package store

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync/atomic"

	"github.com/hyperjump/ragstore/internal/vector"
)

// conceptEmbedder maps synonyms onto shared dimensions so that paraphrases
// land close together. Unknown words are hashed into the remaining dimensions.
type conceptEmbedder struct {
	dim   int
	calls atomic.Int32
}

var concepts = map[string]int{
	"cat": 0, "cats": 0, "feline": 0, "kitten": 0,
	"mat": 1, "rug": 1, "carpet": 1,
	"dog": 2, "dogs": 2, "puppy": 2, "canine": 2,
	"loyal": 3, "faithful": 3,
	"stock": 4, "stocks": 4, "market": 4, "markets": 4,
}

var stopWords = map[string]bool{"the": true, "a": true, "on": true, "are": true, "is": true}

func newConceptEmbedder(dim int) *conceptEmbedder {
	return &conceptEmbedder{dim: dim}
}

func (e *conceptEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	vec := make([]float32, e.dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?")
		if w == "" || stopWords[w] {
			continue
		}
		if d, ok := concepts[w]; ok {
			vec[d] += 3
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[8+int(h.Sum32()%uint32(e.dim-8))]++
	}
	// Never all-zero, so every text has a defined direction.
	vec[e.dim-1] += 0.01
	return vec, nil
}

func (e *conceptEmbedder) Dimensions() int   { return e.dim }
func (e *conceptEmbedder) ModelName() string { return "concept" }

// fixedEmbedder returns preset vectors by text, unnormalised.
type fixedEmbedder struct {
	dim     int
	vectors map[string][]float32
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := e.vectors[text]
	if !ok {
		return nil, errors.New("no vector for " + text)
	}
	return v, nil
}

func (e *fixedEmbedder) Dimensions() int   { return e.dim }
func (e *fixedEmbedder) ModelName() string { return "fixed" }

// faultyIndex reports a wrong position on the Nth Add.
type faultyIndex struct {
	vector.Index
	failOn int
	adds   int
}

func (f *faultyIndex) Add(vec []float32) (int, error) {
	f.adds++
	pos, err := f.Index.Add(vec)
	if err == nil && f.adds == f.failOn {
		return pos + 7, nil
	}
	return pos, err
}
