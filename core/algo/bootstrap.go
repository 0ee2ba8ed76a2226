package algo

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
)

// DefaultBootstrapIterations is the number of resamples drawn per group.
const DefaultBootstrapIterations = 1000

// Percentiles bounding the 95% bootstrap interval.
const (
	CILowPercentile  = 2.5
	CIHighPercentile = 97.5
)

// Resampler draws uniform indices in [0, n). *rand.Rand satisfies it.
type Resampler interface {
	IntN(n int) int
}

// NewSeededResampler returns a deterministic PCG-backed resampler.
func NewSeededResampler(seed, stream uint64) Resampler {
	return rand.New(rand.NewPCG(seed, stream))
}

// NewRandomResampler returns a resampler seeded from the runtime's entropy.
func NewRandomResampler() Resampler {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// BootstrapCliffsDelta estimates a 95% percentile interval for CliffsDelta(x, y).
// Every iteration draws one vector of len(x) indices with replacement and
// applies it to both samples so that pairs stay together.
func BootstrapCliffsDelta(x, y []float64, iterations int, rs Resampler) (low, high float64, err error) {
	n := len(x)
	if n != len(y) {
		return math.NaN(), math.NaN(), eris.Wrapf(ErrLengthMismatch, "bootstrap: %d vs %d", len(x), len(y))
	}
	if n == 0 {
		return math.NaN(), math.NaN(), eris.Wrap(ErrEmptySample, "bootstrap")
	}
	if iterations < 1 {
		return math.NaN(), math.NaN(), eris.Errorf("bootstrap: iterations must be positive (received %d)", iterations)
	}

	bx := make([]float64, n)
	by := make([]float64, n)
	deltas := make([]float64, iterations)
	for b := range iterations {
		for i := range n {
			idx := rs.IntN(n)
			bx[i] = x[idx]
			by[i] = y[idx]
		}
		deltas[b] = CliffsDelta(bx, by)
	}

	sorted := SortedCopy(deltas)
	return PercentileSorted(sorted, CILowPercentile), PercentileSorted(sorted, CIHighPercentile), nil
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks: h = (n-1)p/100.
func Percentile(values []float64, p float64) float64 {
	return PercentileSorted(SortedCopy(values), p)
}

// PercentileSorted is Percentile for input already in ascending order.
func PercentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	p = math.Max(0, math.Min(100, p))

	h := float64(n-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
