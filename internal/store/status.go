package store

import (
	"fmt"

	"github.com/hyperjump/ragstore/internal/vector"
)

// Status is a point-in-time summary of a store.
type Status struct {
	InstanceID string
	Records    int
	Dimensions int
	State      State
	IndexType  string
	Model      string
	Halted     bool
	HaltReason string
}

// Status returns the current summary.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		InstanceID: s.id,
		Records:    s.table.Size(),
		Dimensions: s.dimensions,
		State:      StateEmpty,
		IndexType:  s.index.Type(),
		Model:      s.embedder.ModelName(),
	}
	if st.Records > 0 {
		st.State = StatePopulated
	}
	if s.halted != nil {
		st.Halted = true
		st.HaltReason = s.halted.Error()
	}
	return st
}

// Verify checks that the index and the document table hold the same number of
// entries and that every recorded checksum matches the indexed vector.
func (s *Store) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.table.Size()
	if size := s.index.Size(); size != n {
		return fmt.Errorf("store misaligned: index has %d vectors, table has %d records", size, n)
	}
	for p := 0; p < n; p++ {
		vec, ok := s.index.Vector(p)
		if !ok {
			return fmt.Errorf("%w: index position %d", ErrPositionNotFound, p)
		}
		want, err := s.table.Checksum(p)
		if err != nil {
			return err
		}
		if got := vector.Checksum(vec); got != want {
			return fmt.Errorf("store misaligned: checksum mismatch at position %d", p)
		}
	}
	return nil
}
