package algo

import (
	"math"
	"sort"

	"github.com/huangsam/ragdelta/schema"
)

// Magnitude thresholds on |delta|, after Romano et al.
const (
	NegligibleThreshold = 0.147
	SmallThreshold      = 0.33
	MediumThreshold     = 0.474
)

// CliffsDelta measures how often values in x exceed values in y:
// (#{x_i > y_j} - #{x_i < y_j}) / (len(x) * len(y)).
// It treats x and y as independent samples. It runs in O((m+n) log n) by
// sorting y once and binary-searching it for every x_i.
func CliffsDelta(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 {
		return math.NaN()
	}
	return cliffsDeltaSorted(x, SortedCopy(y))
}

// cliffsDeltaSorted is CliffsDelta with y already in ascending order.
func cliffsDeltaSorted(x, sortedY []float64) float64 {
	n := len(sortedY)
	var greater, less int
	for _, xi := range x {
		below := sort.SearchFloat64s(sortedY, xi) // y_j < xi
		atOrBelow := sort.Search(n, func(j int) bool { return sortedY[j] > xi })
		greater += below
		less += n - atOrBelow
	}
	return float64(greater-less) / float64(len(x)*n)
}

// CliffsDeltaNaive is the direct O(m*n) double loop. It is kept as the
// reference the fast path is checked against.
func CliffsDeltaNaive(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 {
		return math.NaN()
	}
	var greater, less int
	for _, xi := range x {
		for _, yj := range y {
			switch {
			case xi > yj:
				greater++
			case xi < yj:
				less++
			}
		}
	}
	return float64(greater-less) / float64(len(x)*len(y))
}

// ClassifyMagnitude maps a Cliff's delta to its qualitative magnitude.
func ClassifyMagnitude(delta float64) schema.Magnitude {
	abs := math.Abs(delta)
	switch {
	case abs < NegligibleThreshold:
		return schema.NegligibleMagnitude
	case abs < SmallThreshold:
		return schema.SmallMagnitude
	case abs < MediumThreshold:
		return schema.MediumMagnitude
	default:
		return schema.LargeMagnitude
	}
}
