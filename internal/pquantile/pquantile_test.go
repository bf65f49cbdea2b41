package pquantile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileConvergesOnUniformSamples(t *testing.T) {
	q := New(0.5)
	for i := 1; i <= 1000; i++ {
		q.Update(float64(i))
	}
	assert.InDelta(t, 500, q.Value(), 50, "P2 median estimate should land near the true median")
	assert.Equal(t, 1000, q.Count())
}

func TestQuantileP99SkewsHigh(t *testing.T) {
	q := New(0.99)
	for i := 1; i <= 1000; i++ {
		q.Update(float64(i))
	}
	assert.Greater(t, q.Value(), 900.0)
}

func TestSetTracksMultiplePercentilesAndMax(t *testing.T) {
	s := NewSet(0.5, 0.9, 0.99)
	for i := 1; i <= 500; i++ {
		s.Update(float64(i))
	}
	assert.Equal(t, 500.0, s.Max())
	assert.Equal(t, 500, s.Count())
	assert.Greater(t, s.Value(2), s.Value(1))
	assert.Greater(t, s.Value(1), s.Value(0))
	assert.Greater(t, s.Mean(), 0.0)
}

func TestSetEmptyHasZeroValues(t *testing.T) {
	s := NewSet(0.5)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 0.0, s.Max())
	assert.Equal(t, 0.0, s.Mean())
}
