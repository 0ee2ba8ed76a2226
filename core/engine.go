package core

import (
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/huangsam/ragdelta/core/algo"
	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
)

// ErrNoPairedItems is returned when the two conditions share no items.
var ErrNoPairedItems = eris.New("no paired items")

// ResamplerFactory hands out the bootstrap randomness for one group.
type ResamplerFactory func(key schema.GroupKey) algo.Resampler

// Engine computes the paired comparison of one group.
// It is safe for concurrent use as long as the factory is.
type Engine struct {
	Alpha      float64
	Iterations int
	Resamplers ResamplerFactory
}

// NewEngine returns an engine configured from cfg. Without a seed every group
// draws from a fresh unseeded source.
func NewEngine(cfg *contract.Config) *Engine {
	e := &Engine{
		Alpha:      cfg.Alpha,
		Iterations: cfg.Bootstrap,
		Resamplers: UnseededResamplers(),
	}
	if cfg.Seed != nil {
		e.Resamplers = SeededResamplers(*cfg.Seed)
	}
	return e
}

// UnseededResamplers returns a factory of independently seeded sources.
func UnseededResamplers() ResamplerFactory {
	return func(schema.GroupKey) algo.Resampler {
		return algo.NewRandomResampler()
	}
}

// SeededResamplers returns a factory whose streams depend only on the seed and
// the group, so results do not depend on which worker runs which group.
func SeededResamplers(seed uint64) ResamplerFactory {
	return func(key schema.GroupKey) algo.Resampler {
		return algo.NewSeededResampler(seed, groupStream(key))
	}
}

// groupStream hashes a group key into a PCG stream selector.
func groupStream(key schema.GroupKey) uint64 {
	return xxhash.Sum64String(key.Model + "\x00" + key.Stratum)
}

// PairItems inner-joins two pass-rate tables on item ID. The records are
// sorted by item ID.
func PairItems(baseline, treatment []schema.ItemPassRate) []schema.PairedItemRecord {
	treatmentMap := make(map[string]float64, len(treatment))
	for _, r := range treatment {
		treatmentMap[r.ItemID] = r.PassRate
	}

	pairs := make([]schema.PairedItemRecord, 0, min(len(baseline), len(treatment)))
	seen := make(map[string]struct{}, len(baseline))
	for _, r := range baseline {
		y, ok := treatmentMap[r.ItemID]
		if !ok {
			continue
		}
		if _, dup := seen[r.ItemID]; dup {
			continue
		}
		seen[r.ItemID] = struct{}{}
		pairs = append(pairs, schema.PairedItemRecord{ItemID: r.ItemID, Baseline: r.PassRate, Treatment: y})
	}
	slices.SortFunc(pairs, func(a, b schema.PairedItemRecord) int {
		return strings.Compare(a.ItemID, b.ItemID)
	})
	return pairs
}

// Compare runs every statistic of the paired comparison for one group and
// returns a result with PFDR left unset. An empty join returns ErrNoPairedItems.
func (e *Engine) Compare(key schema.GroupKey, baseline, treatment []schema.ItemPassRate) (*schema.ComparisonResult, error) {
	pairs := PairItems(baseline, treatment)
	if len(pairs) == 0 {
		return nil, eris.Wrapf(ErrNoPairedItems, "group %s", key)
	}

	x := make([]float64, len(pairs))
	y := make([]float64, len(pairs))
	for i, p := range pairs {
		x[i], y[i] = p.Baseline, p.Treatment
	}

	res := &schema.ComparisonResult{Group: key, N: len(pairs)}

	// a. significance
	w, err := algo.Wilcoxon(x, y)
	switch {
	case errors.Is(err, algo.ErrDegenerate):
		res.WilcoxonStatistic, res.PRaw = math.NaN(), math.NaN()
	case err != nil:
		return nil, eris.Wrapf(err, "group %s: wilcoxon", key)
	default:
		res.WilcoxonStatistic, res.PRaw = w.Statistic, w.PValue
	}

	// b, c. effect size is unpaired: every baseline item against every treatment item
	res.CliffsDelta = algo.CliffsDelta(x, y)
	res.Magnitude = algo.ClassifyMagnitude(res.CliffsDelta)

	// d. confidence interval
	res.CILow, res.CIHigh, err = algo.BootstrapCliffsDelta(x, y, e.Iterations, e.Resamplers(key))
	if err != nil {
		return nil, eris.Wrapf(err, "group %s: bootstrap", key)
	}

	// e. differences
	ds, err := algo.DescribeDifferences(x, y)
	if err != nil {
		return nil, eris.Wrapf(err, "group %s: differences", key)
	}
	res.MeanDiff = ds.Mean
	res.MedianDiff = ds.Median
	res.MeanDiffPct = ds.MeanPct
	res.Improved = ds.Improved
	res.Worsened = ds.Worsened
	res.Unchanged = ds.Unchanged
	res.Skewness = ds.Skewness

	// f. sign test
	res.SignTestP = algo.SignTest(ds.Improved, ds.Worsened)

	// g. power
	res.EffectSize = algo.EffectSize(ds.Mean, ds.StdDev)
	if algo.NoSpread(ds.StdDev*ds.StdDev, ds.Mean) {
		res.Power = math.NaN()
	} else {
		res.Power = algo.PairedTTestPower(res.EffectSize, res.N, e.Alpha)
	}

	return res, nil
}
