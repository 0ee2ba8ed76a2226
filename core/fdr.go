package core

import (
	"math"

	"github.com/huangsam/ragdelta/core/algo"
	"github.com/huangsam/ragdelta/schema"
)

// CorrectStratum applies Benjamini-Hochberg to the raw p-values of one
// stratum and writes PFDR and RejectFDR back into each result. Results with
// an undefined raw p-value sit out the correction: they get a NaN PFDR, are
// never rejected and do not count toward m.
func CorrectStratum(results []*schema.ComparisonResult, alpha float64) {
	pvals := make([]float64, 0, len(results))
	idx := make([]int, 0, len(results))
	for i, r := range results {
		if math.IsNaN(r.PRaw) {
			nan := math.NaN()
			r.PFDR = &nan
			r.RejectFDR = false
			continue
		}
		pvals = append(pvals, r.PRaw)
		idx = append(idx, i)
	}

	reject, adjusted := algo.BenjaminiHochberg(pvals, alpha)
	for j, i := range idx {
		q := adjusted[j]
		results[i].PFDR = &q
		results[i].RejectFDR = reject[j]
	}
}
