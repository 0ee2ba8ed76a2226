package algo

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"
)

// exactSignTestLimit bounds n for the integer-exact binomial sum; C(60, 30)
// and 2^60 both fit in an int64.
const exactSignTestLimit = 60

// SignTest is the exact two-sided binomial test of improved vs worsened
// counts against p = 0.5. Ties are excluded by the caller. With no
// non-tied observations the result is exactly 1.
func SignTest(improved, worsened int) float64 {
	n := improved + worsened
	if n == 0 {
		return 1
	}
	k := min(improved, worsened)
	return math.Min(1, 2*binomialHalfCDF(k, n))
}

// binomialHalfCDF returns P(X <= k) for X ~ Binomial(n, 0.5).
func binomialHalfCDF(k, n int) float64 {
	if n <= exactSignTestLimit {
		var below int64
		for i := 0; i <= k; i++ {
			below += int64(combin.Binomial(n, i))
		}
		return math.Ldexp(float64(below), -n)
	}
	dist := distuv.Binomial{N: float64(n), P: 0.5}
	return dist.CDF(float64(k))
}
