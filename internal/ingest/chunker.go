// Package ingest splits documents into chunks and inserts them into a store.
package ingest

import "strings"

// Chunker splits text into overlapping character windows. Sizes count runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given window size and overlap.
// A non-positive size disables splitting; overlap is clamped to [0, size).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkSize > 0 && chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk returns the trimmed, non-blank windows of text in document order.
// Each window starts at least one rune after the previous one.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if c.chunkSize <= 0 || n <= c.chunkSize {
		if chunk := strings.TrimSpace(text); chunk != "" {
			return []string{chunk}
		}
		return nil
	}
	var chunks []string
	for i := 0; i < n; {
		end := min(n, i+c.chunkSize)
		if chunk := strings.TrimSpace(string(runes[i:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == n {
			break
		}
		i = max(end-c.chunkOverlap, i+1)
	}
	return chunks
}
