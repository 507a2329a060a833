// Package doctable holds the original text of every stored record, addressed
// by the same dense positions as the vector index.
package doctable

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPositionNotFound is returned when a position has no record.
var ErrPositionNotFound = errors.New("position not found")

type record struct {
	text     string
	checksum uint64
}

// Table is an append-only list of texts. Positions are assigned densely from 0.
type Table struct {
	mu      sync.RWMutex
	records []record
}

// New creates an empty table.
func New() *Table {
	return &Table{records: make([]record, 0)}
}

// Append stores text with the checksum of its vector and returns its position.
func (t *Table) Append(text string, checksum uint64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, record{text: text, checksum: checksum})
	return len(t.records) - 1
}

// Get returns the text stored at position.
func (t *Table) Get(position int) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if position < 0 || position >= len(t.records) {
		return "", fmt.Errorf("%w: %d (table has %d records)", ErrPositionNotFound, position, len(t.records))
	}
	return t.records[position].text, nil
}

// Checksum returns the vector checksum recorded alongside position.
func (t *Table) Checksum(position int) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if position < 0 || position >= len(t.records) {
		return 0, fmt.Errorf("%w: %d", ErrPositionNotFound, position)
	}
	return t.records[position].checksum, nil
}

// Size returns the number of records.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Truncate drops every record at position >= n.
func (t *Table) Truncate(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 0 || n > len(t.records) {
		return fmt.Errorf("truncate to %d: table has %d records", n, len(t.records))
	}
	clear(t.records[n:])
	t.records = t.records[:n]
	return nil
}
