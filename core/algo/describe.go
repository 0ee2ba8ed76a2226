package algo

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// spreadResolution guards against rounding noise when deciding whether a
// sample has any spread at all.
const spreadResolution = 1e-15

// DiffStats describes the per-item differences treatment - baseline.
type DiffStats struct {
	Differences []float64
	Mean        float64
	Median      float64
	MeanPct     float64 // Mean in percentage points
	StdDev      float64 // Population standard deviation
	Skewness    float64 // Population (biased) skewness; NaN without spread
	Improved    int
	Worsened    int
	Unchanged   int
}

// DescribeDifferences computes DiffStats for d_i = y_i - x_i.
func DescribeDifferences(x, y []float64) (DiffStats, error) {
	if len(x) != len(y) {
		return DiffStats{}, eris.Wrapf(ErrLengthMismatch, "differences: %d vs %d", len(x), len(y))
	}
	if len(x) == 0 {
		return DiffStats{}, eris.Wrap(ErrEmptySample, "differences")
	}

	ds := DiffStats{Differences: make([]float64, len(x))}
	for i := range x {
		d := y[i] - x[i]
		ds.Differences[i] = d
		switch {
		case d > 0:
			ds.Improved++
		case d < 0:
			ds.Worsened++
		default:
			ds.Unchanged++
		}
	}

	ds.Mean = stat.Mean(ds.Differences, nil)
	ds.MeanPct = ds.Mean * 100

	median, err := stats.Median(ds.Differences)
	if err != nil {
		return DiffStats{}, eris.Wrap(err, "differences: median")
	}
	ds.Median = median

	std, err := stats.StandardDeviationPopulation(ds.Differences)
	if err != nil {
		return DiffStats{}, eris.Wrap(err, "differences: standard deviation")
	}
	ds.StdDev = std

	ds.Skewness = Skewness(ds.Differences)
	return ds, nil
}

// Skewness is the population third standardized moment m3 / m2^1.5 with no
// small-sample correction. It is NaN when the sample has no spread.
func Skewness(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(values, nil)
	m2 := stat.Moment(2, values, nil)
	if NoSpread(m2, mean) {
		return math.NaN()
	}
	m3 := stat.Moment(3, values, nil)
	return m3 / math.Pow(m2, 1.5)
}

// NoSpread reports whether a variance is indistinguishable from zero
// relative to the magnitude of the mean.
func NoSpread(variance, mean float64) bool {
	limit := spreadResolution * mean
	return variance <= limit*limit
}
