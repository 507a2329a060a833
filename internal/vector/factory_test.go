package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndex(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		wantType string
	}{
		{"empty defaults to flat", "", "flat"},
		{"flat", "flat", "flat"},
		{"hnsw", "hnsw", "hnsw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := NewIndex(Options{Type: tt.typ, Dimensions: 3})
			require.NoError(t, err)
			defer idx.Close()
			assert.Equal(t, tt.wantType, idx.Type())
			assert.Equal(t, 3, idx.Dimensions())

			pos, err := idx.Add([]float32{1, 0, 0})
			require.NoError(t, err)
			assert.Equal(t, 0, pos)
			assert.Equal(t, 1, idx.Size())
		})
	}
}

func TestNewIndex_Unknown(t *testing.T) {
	_, err := NewIndex(Options{Type: "faiss", Dimensions: 3})
	assert.Error(t, err)
}

func TestNewIndex_InvalidDimension(t *testing.T) {
	_, err := NewIndex(Options{Type: "flat", Dimensions: 0})
	assert.Error(t, err)
	_, err = NewIndex(Options{Type: "hnsw", Dimensions: -1})
	assert.Error(t, err)
}
