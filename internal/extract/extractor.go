// Package extract turns document files into plain text for chunking.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for binary content with no known extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

type extractFunc func(content []byte) (string, error)

// Extractor extracts plain text from document files by extension.
type Extractor struct {
	formats map[string]extractFunc
}

// NewExtractor returns an Extractor for plain text, PDF, DOCX and XLSX.
func NewExtractor() *Extractor {
	return &Extractor{formats: map[string]extractFunc{
		".txt":  extractPlain,
		".md":   extractPlain,
		".rst":  extractPlain,
		".pdf":  extractPDF,
		".docx": extractDOCX,
		".xlsx": extractExcel,
	}}
}

// Supports reports whether ext (with leading dot, any case) has a dedicated extractor.
func (e *Extractor) Supports(ext string) bool {
	_, ok := e.formats[strings.ToLower(ext)]
	return ok
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on ext. Unknown extensions are
// read as plain text unless the content looks binary.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	ext = strings.ToLower(ext)
	if fn, ok := e.formats[ext]; ok {
		return fn(content)
	}
	if looksBinary(content) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return extractPlain(content)
}

// looksBinary reports a NUL byte in the first 8 KiB.
func looksBinary(content []byte) bool {
	head := content
	if len(head) > 8192 {
		head = head[:8192]
	}
	return bytes.IndexByte(head, 0) >= 0
}
