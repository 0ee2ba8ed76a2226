package algo

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat/distuv"
)

// ExactWilcoxonLimit is the largest number of non-zero differences for which
// the exact null distribution is used.
const ExactWilcoxonLimit = 50

// WilcoxonResult is the outcome of a two-sided Wilcoxon signed-rank test.
type WilcoxonResult struct {
	Statistic float64 // min(W+, W-)
	PValue    float64
	N         int  // Non-zero differences that were ranked
	Exact     bool // Whether the exact distribution produced PValue
}

// Wilcoxon runs a two-sided signed-rank test on the differences x - y.
// Zero differences are discarded before ranking and tied magnitudes share
// their average rank. The exact null distribution is used only when at most
// ExactWilcoxonLimit differences remain, none were zero and none tie;
// otherwise a normal approximation with tie-corrected variance is used.
//
// If every difference is zero the test is undefined: ErrDegenerate is
// returned together with NaN statistic and p-value.
func Wilcoxon(x, y []float64) (WilcoxonResult, error) {
	if len(x) != len(y) {
		return WilcoxonResult{}, eris.Wrapf(ErrLengthMismatch, "wilcoxon: %d vs %d", len(x), len(y))
	}

	diffs := make([]float64, 0, len(x))
	zeros := 0
	for i := range x {
		if d := x[i] - y[i]; d != 0 {
			diffs = append(diffs, d)
		} else {
			zeros++
		}
	}
	n := len(diffs)
	if n == 0 {
		return WilcoxonResult{Statistic: math.NaN(), PValue: math.NaN()}, eris.Wrap(ErrDegenerate, "wilcoxon: all differences are zero")
	}

	abs := make([]float64, n)
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	ranks, ties := AverageRanks(abs)

	var wPlus, wMinus float64
	for i, d := range diffs {
		if d > 0 {
			wPlus += ranks[i]
		} else {
			wMinus += ranks[i]
		}
	}
	t := math.Min(wPlus, wMinus)

	if n <= ExactWilcoxonLimit && zeros == 0 && len(ties) == 0 {
		p := math.Min(1, 2*signedRankCDF(n, int(t)))
		return WilcoxonResult{Statistic: t, PValue: p, N: n, Exact: true}, nil
	}

	p, err := signedRankNormalP(n, t, ties)
	if err != nil {
		return WilcoxonResult{Statistic: t, PValue: math.NaN(), N: n}, err
	}
	return WilcoxonResult{Statistic: t, PValue: p, N: n}, nil
}

// signedRankCDF returns P(W <= t) under the null for n untied ranks. The
// distribution is built by counting subsets of {1..n} per rank sum.
func signedRankCDF(n, t int) float64 {
	maxSum := n * (n + 1) / 2
	if t >= maxSum {
		return 1
	}
	if t < 0 {
		return 0
	}

	counts := make([]float64, maxSum+1)
	counts[0] = 1
	for k := 1; k <= n; k++ {
		top := k * (k + 1) / 2
		for s := top; s >= k; s-- {
			counts[s] += counts[s-k]
		}
	}

	var below float64
	for s := 0; s <= t; s++ {
		below += counts[s]
	}
	return math.Ldexp(below, -n)
}

// signedRankNormalP is the two-sided normal approximation without continuity
// correction. Each tie group of size g reduces the variance by (g^3 - g) / 48.
func signedRankNormalP(n int, t float64, ties []int) (float64, error) {
	nf := float64(n)
	mean := nf * (nf + 1) / 4
	variance := nf * (nf + 1) * (2*nf + 1) / 24
	for _, g := range ties {
		gf := float64(g)
		variance -= (gf*gf*gf - gf) / 48
	}
	if variance <= 0 {
		return math.NaN(), eris.Wrap(ErrDegenerate, "wilcoxon: zero variance under the null")
	}

	z := (t - mean) / math.Sqrt(variance)
	return 2 * distuv.UnitNormal.Survival(math.Abs(z)), nil
}
