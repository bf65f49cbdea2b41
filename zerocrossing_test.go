package qss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCrossing(t *testing.T) {
	cases := []struct {
		prev, at int
		zAt, tol float64
		want     CrossingClass
	}{
		{-1, 1, 1, 1e-9, UpNP},
		{0, 1, 1, 1e-9, UpZP},
		{-1, 0, 0, 1e-9, UpNZ},
		{1, -1, -1, 1e-9, DnPN},
		{1, 0, 0, 1e-9, DnPZ},
		{0, -1, -1, 1e-9, DnZN},
		{-1, 1, 1e-12, 1e-9, Flat},
	}
	for _, c := range cases {
		got := classify(c.prev, c.at, c.zAt, c.tol)
		assert.Equalf(t, c.want, got, "classify(%d, %d, %g, %g)", c.prev, c.at, c.zAt, c.tol)
	}
}

func TestQuadraticRootsRealRoots(t *testing.T) {
	// s^2 - 3s + 2 = (s-1)(s-2)
	roots := quadraticRoots(1, -3, 2)
	require.Len(t, roots, 2)
	assert.ElementsMatch(t, []float64{1, 2}, roundAll(roots))
}

func TestQuadraticRootsNoRealRoots(t *testing.T) {
	// s^2 + 1 has no real roots
	roots := quadraticRoots(1, 0, 1)
	assert.Nil(t, roots)
}

func TestCubicRootsThreeRealRoots(t *testing.T) {
	// (s-1)(s-2)(s-3) = s^3 -6s^2 +11s -6
	roots := cubicRoots(1, -6, 11, -6)
	require.Len(t, roots, 3)
	assert.ElementsMatch(t, []float64{1, 2, 3}, roundAll(roots))
}

func TestCubicRootsOneRealRoot(t *testing.T) {
	// s^3 - 1 = 0 has one real root at s=1 (plus two complex)
	roots := cubicRoots(1, 0, 0, -1)
	require.Len(t, roots, 1)
	assert.InDelta(t, 1, roots[0], 1e-9)
}

func TestClosedFormRootLinear(t *testing.T) {
	// x(s) = 2 - s, root at s=2, i.e. absolute t = tX+2
	x := [4]float64{2, -1, 0, 0}
	root, ok := closedFormRoot(1, x, 0, 10, math.Inf(1))
	require.True(t, ok)
	assert.InDelta(t, 12, root, 1e-9)
}

func TestClosedFormRootFiltersOutsideWindow(t *testing.T) {
	// root at absolute t=12, but tEnd cuts it off
	x := [4]float64{2, -1, 0, 0}
	_, ok := closedFormRoot(1, x, 0, 10, 11)
	assert.False(t, ok)
}

func TestClosedFormRootFlatLeadingCoefficientHasNoRoot(t *testing.T) {
	x := [4]float64{5, 0, 0, 0}
	_, ok := closedFormRoot(1, x, 0, 0, math.Inf(1))
	assert.False(t, ok)
}

func TestHandlesClassRespectsDeclaration(t *testing.T) {
	v := &Variable{}
	v.SetHandledClasses(DnPN, DnPZ)
	assert.True(t, v.HandlesClass(DnPN))
	assert.True(t, v.HandlesClass(DnPZ))
	assert.False(t, v.HandlesClass(UpNP))
}

func roundAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Round(x*1e6) / 1e6
	}
	return out
}
