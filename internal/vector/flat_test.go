package vector

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatIndex_AddSearch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	defer idx.Close()

	vecs := [][]float32{
		{1, 0, 0},
		{0.8, 0.6, 0},
		{0, 1, 0},
	}
	for i, v := range vecs {
		pos, err := idx.Add(v)
		require.NoError(t, err)
		assert.Equal(t, i, pos)
	}
	assert.Equal(t, 3, idx.Size())

	results, err := idx.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Position)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, 1, results[1].Position)
	assert.InDelta(t, 0.8, results[1].Score, 1e-6)
}

func TestFlatIndex_SearchEmpty(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	results, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFlatIndex_KSaturation(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	_, _ = idx.Add([]float32{1, 0})
	_, _ = idx.Add([]float32{0, 1})
	results, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Position >= 0 && r.Position < 2)
	}
}

func TestFlatIndex_TiesBrokenByLowerPosition(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	for i := 0; i < 5; i++ {
		_, err := idx.Add([]float32{0, 1})
		require.NoError(t, err)
	}
	_, _ = idx.Add([]float32{1, 0})

	results, err := idx.Search([]float32{0, 1}, 6)
	require.NoError(t, err)
	require.Len(t, results, 6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, i, results[i].Position)
		assert.Equal(t, 1.0, results[i].Score)
	}
	assert.Equal(t, 5, results[5].Position)
}

func TestFlatIndex_NegativeScoresNotClamped(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	_, _ = idx.Add([]float32{-1, 0})
	results, err := idx.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, -1.0, results[0].Score)
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	_, err := idx.Add([]float32{1, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	var dm *DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Got)
	assert.Equal(t, 0, idx.Size(), "failed add must not grow the index")

	_, err = idx.Search([]float32{1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndex_AddCopiesInput(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	v := []float32{1, 0}
	_, _ = idx.Add(v)
	v[0] = 0
	got, ok := idx.Vector(0)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, got)
}

func TestFlatIndex_Truncate(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	_, _ = idx.Add([]float32{1, 0})
	_, _ = idx.Add([]float32{0, 1})
	require.NoError(t, idx.Truncate(1))
	assert.Equal(t, 1, idx.Size())
	_, ok := idx.Vector(1)
	assert.False(t, ok)

	pos, err := idx.Add([]float32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 1, pos, "positions resume from the truncated size")

	assert.Error(t, idx.Truncate(5))
	assert.Error(t, idx.Truncate(-1))
}

func TestFlatIndex_ConcurrentAdd(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	const n = 200
	var wg sync.WaitGroup
	seen := make([]int32, n)
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pos, err := idx.Add([]float32{1, 0})
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			seen[pos]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, n, idx.Size())
	for p, c := range seen {
		assert.Equal(t, int32(1), c, "position %d assigned %d times", p, c)
	}
}
