package core

import (
	"slices"
	"strings"

	"github.com/huangsam/ragdelta/schema"
)

// ComputePassRates turns the raw rows of one report into per-item pass rates.
// Exempted rows are dropped first. Passed counts toward passed, failed and
// error count toward failed, and every other status counts toward neither.
// Items left with no outcomes are excluded. The result is sorted by item ID.
func ComputePassRates(rows []schema.TestCaseResult) []schema.ItemPassRate {
	counts := make(map[string]*schema.ItemPassRate)
	for _, r := range rows {
		if r.Exemption != nil {
			continue
		}
		id := r.ItemID()
		c, ok := counts[id]
		if !ok {
			c = &schema.ItemPassRate{ItemID: id}
			counts[id] = c
		}
		switch r.Status {
		case schema.PassedStatus:
			c.Passed++
		case schema.FailedStatus, schema.ErrorStatus:
			c.Failed++
		}
	}

	rates := make([]schema.ItemPassRate, 0, len(counts))
	for _, c := range counts {
		c.Total = c.Passed + c.Failed
		if c.Total == 0 {
			continue
		}
		c.PassRate = float64(c.Passed) / float64(c.Total)
		rates = append(rates, *c)
	}
	slices.SortFunc(rates, func(a, b schema.ItemPassRate) int {
		return strings.Compare(a.ItemID, b.ItemID)
	})
	return rates
}
