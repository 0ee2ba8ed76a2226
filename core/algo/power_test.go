package algo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestNoncentralTCDFMatchesCentral(t *testing.T) {
	for _, df := range []float64{3, 10, 29.5} {
		central := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		for _, x := range []float64{-2, -0.5, 0, 0.7, 2.5} {
			assert.InDelta(t, central.CDF(x), NoncentralTCDF(x, df, 0), 1e-9, "df=%v t=%v", df, x)
		}
	}
}

func TestNoncentralTCDFReflection(t *testing.T) {
	// F(t; df, delta) = 1 - F(-t; df, -delta)
	for _, tc := range []struct{ t, df, delta float64 }{
		{-1.3, 12, 0.8},
		{0.4, 5, -1.5},
		{2.1, 19, 2.236},
	} {
		left := NoncentralTCDF(tc.t, tc.df, tc.delta)
		right := 1 - NoncentralTCDF(-tc.t, tc.df, -tc.delta)
		assert.InDelta(t, left, right, 1e-10)
	}
}

func TestNoncentralTCDFBounds(t *testing.T) {
	assert.Equal(t, 1.0, NoncentralTCDF(math.Inf(1), 10, 1))
	assert.Equal(t, 0.0, NoncentralTCDF(math.Inf(-1), 10, 1))
	assert.True(t, math.IsNaN(NoncentralTCDF(1, 0, 1)))

	// Shifting the noncentrality right moves mass right.
	assert.Less(t, NoncentralTCDF(1, 10, 2), NoncentralTCDF(1, 10, 0))

	// Very large df behaves like a shifted normal.
	assert.InDelta(t, distuv.UnitNormal.CDF(0.5), NoncentralTCDF(1.5, 1e6, 1), 1e-3)
}

func TestPairedTTestPower(t *testing.T) {
	// Medium effect with 20 pairs, both tails: 0.5645044.
	assert.InDelta(t, 0.5645044184, PairedTTestPower(0.5, 20, 0.05), 1e-6)

	// With no effect the rejection rate is alpha.
	assert.InDelta(t, 0.05, PairedTTestPower(0, 20, 0.05), 1e-7)

	assert.Greater(t, PairedTTestPower(0.5, 40, 0.05), PairedTTestPower(0.5, 20, 0.05))
	assert.Greater(t, PairedTTestPower(2, 20, 0.05), 0.999)

	assert.True(t, math.IsNaN(PairedTTestPower(0.5, 1, 0.05)))
	assert.True(t, math.IsNaN(PairedTTestPower(math.NaN(), 20, 0.05)))
}

func TestEffectSize(t *testing.T) {
	assert.InDelta(t, 0.125/math.Sqrt(0.046875), EffectSize(0.125, math.Sqrt(0.046875)), 1e-12)
	assert.InDelta(t, 0.5, EffectSize(-0.25, 0.5), 1e-12)
	assert.Equal(t, 0.0, EffectSize(0.1, 0))
}
