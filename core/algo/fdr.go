package algo

import (
	"math"
	"sort"
)

// BenjaminiHochberg controls the false discovery rate over one family of
// p-values. The null is rejected for every p-value ranked at or below the
// largest k with p_(k) <= (k/m)*alpha. Adjusted values p_(k)*m/k are made
// monotone from the top down and capped at 1. Both outputs follow the input
// order.
func BenjaminiHochberg(pvals []float64, alpha float64) (reject []bool, adjusted []float64) {
	m := len(pvals)
	reject = make([]bool, m)
	adjusted = make([]float64, m)
	if m == 0 {
		return reject, adjusted
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return pvals[order[i]] < pvals[order[j]]
	})

	maxRejected := -1
	sortedAdj := make([]float64, m)
	for rank, idx := range order {
		factor := float64(rank+1) / float64(m)
		if pvals[idx] <= factor*alpha {
			maxRejected = rank
		}
		sortedAdj[rank] = pvals[idx] / factor
	}

	for rank := m - 2; rank >= 0; rank-- {
		sortedAdj[rank] = math.Min(sortedAdj[rank], sortedAdj[rank+1])
	}

	for rank, idx := range order {
		adjusted[idx] = math.Min(sortedAdj[rank], 1)
		reject[idx] = rank <= maxRejected
	}
	return reject, adjusted
}
