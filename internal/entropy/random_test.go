package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededIsReproducible(t *testing.T) {
	a, b := NewSeeded(7), NewSeeded(7)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSeededIntnGuardsNonPositive(t *testing.T) {
	assert.Equal(t, 0, NewSeeded(1).Intn(0))
}

func TestNilClientFallsBackToCrypto(t *testing.T) {
	var c *Client
	assert.Nil(t, NewClient(""))
	for i := 0; i < 50; i++ {
		v := c.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestSequenceCycles(t *testing.T) {
	s := NewSequence(0.1, 0.9)
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 0.9, s.Float64())
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 9, NewSequence(0.99).Intn(10))
}

func TestWeighted(t *testing.T) {
	assert.Equal(t, -1, Weighted(NewSequence(0.5), nil))
	assert.Equal(t, 1, Weighted(NewSequence(0.5), []float64{0, 1, 0}))
	// 0.7 of total 2.0 = 1.4 lands past the first weight of 1.0.
	assert.Equal(t, 1, Weighted(NewSequence(0.7), []float64{1, 1}))
	assert.Equal(t, 0, Weighted(NewSequence(0.2), []float64{1, 1}))
}

func TestSampleDistinct(t *testing.T) {
	src := NewSeeded(3)
	got := Sample(src, 10, 4)
	require.Len(t, got, 4)
	seen := map[int]bool{}
	for _, i := range got {
		assert.False(t, seen[i])
		assert.Less(t, i, 10)
		seen[i] = true
	}
	assert.Len(t, Sample(src, 2, 5), 2)
}

func TestHelpers(t *testing.T) {
	s := NewSequence(0.5)
	assert.InDelta(t, 1.5, Uniform(s, 1, 2), 1e-9)
	assert.True(t, Chance(s, 0.6))
	assert.False(t, Chance(s, 0.4))
	assert.Equal(t, 5, IntBetween(s, 3, 7))
	_, ok := Pick[int](s, nil)
	assert.False(t, ok)
}
