// Package store ties the similarity index and the document table together
// behind one lock, so every position names the same record in both.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/doctable"
	"github.com/hyperjump/ragstore/internal/vector"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// Embedder is the part of an embedding model the store needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	ModelName() string
}

// State is the lifecycle state of a store.
type State string

const (
	StateEmpty     State = "EMPTY"
	StatePopulated State = "POPULATED"
)

// Match is one query hit.
type Match struct {
	Position int
	Text     string
	Score    float64
}

// Store is an in-memory, append-only similarity store. It normalises every
// embedding to unit length before it is indexed or searched, whatever the
// embedder returns.
type Store struct {
	id         string
	embedder   Embedder
	dimensions int
	index      vector.Index
	table      *doctable.Table
	logger     *zap.Logger

	mu     sync.RWMutex
	halted error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The store logs nothing when none is given.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithIndex uses idx instead of a flat index. idx must be empty and match the
// embedder dimension.
func WithIndex(idx vector.Index) Option {
	return func(s *Store) { s.index = idx }
}

// New creates an empty store over embedder.
func New(embedder Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	s := &Store{
		id:         uuid.NewString(),
		embedder:   embedder,
		dimensions: embedder.Dimensions(),
		table:      doctable.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)

	if s.index == nil {
		idx, err := vector.NewFlatIndex(s.dimensions)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		s.index = idx
	}
	if s.index.Dimensions() != s.dimensions {
		return nil, &vector.DimensionMismatchError{Expected: s.dimensions, Got: s.index.Dimensions()}
	}
	if s.index.Size() != 0 {
		return nil, fmt.Errorf("index must be empty, has %d vectors", s.index.Size())
	}
	return s, nil
}

// ID returns the random instance ID. Positions are only meaningful for the
// instance that assigned them.
func (s *Store) ID() string {
	return s.id
}

// Dimensions returns the fixed embedding dimension.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Insert embeds text and appends it. The returned position is shared by the
// index and the document table.
func (s *Store) Insert(ctx context.Context, text string) (int, error) {
	if utils.IsBlank(text) {
		return -1, fmt.Errorf("%w: text must not be empty", ErrInvalidInput)
	}
	if err := s.haltedErr(); err != nil {
		return -1, err
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return -1, err
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted != nil {
		return -1, fmt.Errorf("%w: %w", ErrStoreHalted, s.halted)
	}
	position, err := s.appendLocked(text, vec)
	if err != nil {
		s.logger.Error("insert failed", zap.Error(err))
		return -1, err
	}
	s.logger.Debug("inserted",
		zap.Int("position", position),
		zap.String("text", utils.Truncate(text, 80)))
	return position, nil
}

// appendLocked adds vec to the index and text to the table, rolling both back
// to the previous size when they disagree. The caller holds s.mu.
func (s *Store) appendLocked(text string, vec []float32) (int, error) {
	n := s.table.Size()
	if size := s.index.Size(); size != n {
		return -1, fmt.Errorf("store misaligned: index has %d vectors, table has %d records", size, n)
	}

	position, err := s.index.Add(vec)
	if err != nil {
		s.rollbackLocked(n)
		return -1, fmt.Errorf("index add: %w", err)
	}
	if position != n {
		s.rollbackLocked(n)
		return -1, fmt.Errorf("index assigned position %d, want %d", position, n)
	}
	if tpos := s.table.Append(text, vector.Checksum(vec)); tpos != position {
		s.rollbackLocked(n)
		return -1, fmt.Errorf("table assigned position %d, index assigned %d", tpos, position)
	}
	return position, nil
}

func (s *Store) rollbackLocked(n int) {
	if s.index.Size() > n {
		if err := s.index.Truncate(n); err != nil {
			s.logger.Error("index rollback failed", zap.Int("size", n), zap.Error(err))
		}
	}
	if s.table.Size() > n {
		if err := s.table.Truncate(n); err != nil {
			s.logger.Error("table rollback failed", zap.Int("size", n), zap.Error(err))
		}
	}
}

// Query returns the texts of the k most similar records, most similar first.
func (s *Store) Query(ctx context.Context, text string, k int) ([]string, error) {
	matches, err := s.Search(ctx, text, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return texts, nil
}

// Search is Query with positions and scores. An empty store returns an empty
// slice without calling the embedder.
func (s *Store) Search(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidInput, k)
	}
	if s.Size() == 0 {
		return []Match{}, nil
	}
	if utils.IsBlank(text) {
		return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	results, err := s.index.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		doc, err := s.table.Get(r.Position)
		if err != nil {
			s.logger.Error("index returned a position missing from the document table",
				zap.Int("position", r.Position),
				zap.Int("index_size", s.index.Size()),
				zap.Int("table_size", s.table.Size()),
				zap.Error(err))
			return nil, err
		}
		matches = append(matches, Match{Position: r.Position, Text: doc, Score: r.Score})
	}
	return matches, nil
}

// Get returns the text stored at position.
func (s *Store) Get(position int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Get(position)
}

// Size returns the number of records.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Size()
}

// State reports EMPTY until the first successful insert.
func (s *Store) State() State {
	if s.Size() == 0 {
		return StateEmpty
	}
	return StatePopulated
}

// Close releases the index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// embed returns a normalised copy of the embedding of text. A wrong dimension
// halts the store.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	raw, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(raw) != s.dimensions {
		mismatch := &vector.DimensionMismatchError{Expected: s.dimensions, Got: len(raw)}
		s.halt(mismatch)
		return nil, mismatch
	}
	vec, norm := utils.Normalized(raw)
	if !utils.ValidNorm(norm) {
		return nil, fmt.Errorf("%w: embedding norm is %v", ErrEmbedding, norm)
	}
	return vec, nil
}

func (s *Store) halt(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted != nil {
		return
	}
	s.halted = cause
	s.logger.Error("store halted, further inserts are rejected",
		zap.String("model", s.embedder.ModelName()),
		zap.Error(cause))
}

func (s *Store) haltedErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.halted != nil {
		return fmt.Errorf("%w: %w", ErrStoreHalted, s.halted)
	}
	return nil
}
