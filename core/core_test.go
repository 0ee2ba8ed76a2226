package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/internal/history"
	"github.com/huangsam/ragdelta/internal/report"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memSource serves reports from memory.
type memSource struct {
	reports map[schema.GroupKey]map[string][]schema.TestCaseResult
	errs    map[schema.GroupKey]error
}

var _ contract.ReportSource = &memSource{} // Compile-time check

func newMemSource() *memSource {
	return &memSource{
		reports: make(map[schema.GroupKey]map[string][]schema.TestCaseResult),
		errs:    make(map[schema.GroupKey]error),
	}
}

func (m *memSource) put(model, stratum, condition string, rows []schema.TestCaseResult) {
	key := schema.GroupKey{Model: model, Stratum: stratum}
	if m.reports[key] == nil {
		m.reports[key] = make(map[string][]schema.TestCaseResult)
	}
	m.reports[key][condition] = rows
}

func (m *memSource) Groups(context.Context) ([]schema.GroupKey, error) {
	keys := make([]schema.GroupKey, 0, len(m.reports)+len(m.errs))
	for k := range m.reports {
		keys = append(keys, k)
	}
	for k := range m.errs {
		if _, ok := m.reports[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b schema.GroupKey) int {
		if c := strings.Compare(a.Stratum, b.Stratum); c != 0 {
			return c
		}
		return strings.Compare(a.Model, b.Model)
	})
	return keys, nil
}

func (m *memSource) Load(_ context.Context, key schema.GroupKey, condition string) ([]schema.TestCaseResult, error) {
	if err := m.errs[key]; err != nil {
		return nil, err
	}
	rows, ok := m.reports[key][condition]
	if !ok {
		return nil, eris.Wrapf(report.ErrMissingInput, "%s/%s", key, condition)
	}
	return rows, nil
}

// outcomes builds rows where item i passes passes[i] times out of runs.
func outcomes(passes []int, runs int) []schema.TestCaseResult {
	var rows []schema.TestCaseResult
	for i, p := range passes {
		for r := range runs {
			status := schema.FailedStatus
			if r < p {
				status = schema.PassedStatus
			}
			rows = append(rows, schema.TestCaseResult{
				ItemPath: fmt.Sprintf("fixtures.sample.item_%02d", i),
				Status:   status,
			})
		}
	}
	return rows
}

func testConfig(workers int) *contract.Config {
	seed := uint64(99)
	return &contract.Config{
		Baseline:  contract.DefaultBaseline,
		Treatment: contract.DefaultTreatment,
		Alpha:     contract.DefaultAlpha,
		Bootstrap: 200,
		Seed:      &seed,
		Workers:   workers,
		Labels:    contract.LabelConfig{Models: map[string]string{"gpt": "GPT"}},
	}
}

func fixtureSource() *memSource {
	src := newMemSource()
	// dense/gpt: treatment clearly better
	src.put("gpt", "dense", "baseline", outcomes([]int{0, 1, 1, 0, 2, 1, 0, 1, 0, 1, 2, 0}, 4))
	src.put("gpt", "dense", "rag", outcomes([]int{3, 4, 3, 2, 4, 4, 2, 3, 3, 4, 4, 2}, 4))
	// dense/llama: mixed
	src.put("llama", "dense", "baseline", outcomes([]int{2, 3, 1, 4, 0, 2, 3, 1}, 4))
	src.put("llama", "dense", "rag", outcomes([]int{3, 2, 1, 3, 1, 2, 4, 0}, 4))
	// sparse/gpt: identical reports
	same := outcomes([]int{1, 2, 3, 4}, 4)
	src.put("gpt", "sparse", "baseline", same)
	src.put("gpt", "sparse", "rag", same)
	// sparse/llama: treatment report missing
	src.put("llama", "sparse", "baseline", same)
	// sparse/mistral: reports share no items
	src.put("mistral", "sparse", "baseline", []schema.TestCaseResult{{ItemPath: "a.x", Status: schema.PassedStatus}})
	src.put("mistral", "sparse", "rag", []schema.TestCaseResult{{ItemPath: "a.y", Status: schema.PassedStatus}})
	// sparse/phi: malformed report
	src.errs[schema.GroupKey{Model: "phi", Stratum: "sparse"}] = eris.Wrap(report.ErrSchema, "missing column status")
	return src
}

func TestRunComparison(t *testing.T) {
	ctx := WithLogger(context.Background(), zap.NewNop())
	rep, err := RunComparison(ctx, testConfig(2), fixtureSource())
	require.NoError(t, err)

	require.Len(t, rep.Rows, 3)
	assert.Equal(t, "GPT", rep.Rows[0].Model)
	assert.Equal(t, "dense", rep.Rows[0].Stratum)
	assert.Equal(t, "llama", rep.Rows[1].Model)
	assert.Equal(t, "sparse", rep.Rows[2].Stratum)

	// The improved group is significant and its correction only saw dense.
	assert.Less(t, rep.Rows[0].PRaw, 0.05)
	assert.Greater(t, rep.Rows[0].MeanDiff, 0.0)
	assert.Equal(t, 12, rep.Rows[0].N)

	require.Len(t, rep.Skipped, 3)
	reasons := map[string]string{}
	for _, s := range rep.Skipped {
		assert.Equal(t, "sparse", s.Stratum)
		reasons[s.Model] = s.Reason
	}
	assert.Contains(t, reasons["llama"], "missing")
	assert.Contains(t, reasons["mistral"], "no paired items")
	assert.Contains(t, reasons["phi"], "missing column")

	require.Len(t, rep.Strata, 2)
	assert.Equal(t, 2, rep.Strata[0].Comparisons)
	assert.Equal(t, 1, rep.Strata[1].Comparisons)
	assert.Equal(t, 3, rep.Summary.Comparisons)
}

func TestRunComparisonWorkerIndependent(t *testing.T) {
	ctx := WithLogger(context.Background(), zap.NewNop())
	single, err := RunComparison(ctx, testConfig(1), fixtureSource())
	require.NoError(t, err)
	parallel, err := RunComparison(ctx, testConfig(8), fixtureSource())
	require.NoError(t, err)

	// EnrichRows maps NaN to nil so the comparison is well defined.
	assert.Equal(t, schema.EnrichRows(single.Rows), schema.EnrichRows(parallel.Rows))
	assert.Equal(t, single.Summary, parallel.Summary)
}

func TestRunComparisonSelection(t *testing.T) {
	ctx := WithLogger(context.Background(), zap.NewNop())

	cfg := testConfig(2)
	cfg.Strata = []string{"dense"}
	rep, err := RunComparison(ctx, cfg, fixtureSource())
	require.NoError(t, err)
	assert.Len(t, rep.Rows, 2)
	assert.Empty(t, rep.Skipped)

	cfg = testConfig(2)
	cfg.Models = []string{"llama"}
	cfg.Strata = []string{"dense", "missing"}
	rep, err = RunComparison(ctx, cfg, fixtureSource())
	require.NoError(t, err)
	assert.Len(t, rep.Rows, 1)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, "missing", rep.Skipped[0].Stratum)

	cfg = testConfig(2)
	cfg.Models = []string{"nobody"}
	_, err = RunComparison(ctx, cfg, fixtureSource())
	assert.ErrorIs(t, err, ErrNoGroups)
}

func TestRunComparisonCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(WithLogger(context.Background(), zap.NewNop()))
	cancel()

	_, err := RunComparison(ctx, testConfig(2), fixtureSource())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectGroupsCrossProduct(t *testing.T) {
	cfg := testConfig(1)
	cfg.Models = []string{"b", "a"}
	cfg.Strata = []string{"s2", "s1"}

	groups, err := selectGroups(context.Background(), cfg, newMemSource())
	require.NoError(t, err)
	assert.Equal(t, []schema.GroupKey{
		{Model: "b", Stratum: "s2"},
		{Model: "a", Stratum: "s2"},
		{Model: "b", Stratum: "s1"},
		{Model: "a", Stratum: "s1"},
	}, groups)
	assert.Equal(t, []string{"s2", "s1"}, strataOf(groups))
}

func TestRecordRun(t *testing.T) {
	store := &history.MockHistoryStore{}
	mgr := &history.MockHistoryManager{}
	mgr.On("GetHistoryStore").Return(store)

	rep := &schema.ComparisonReport{Rows: []schema.ReportRow{{Model: "a", Stratum: "s"}}}
	start := time.Now()

	store.On("BeginRun", start, mock.AnythingOfType("map[string]interface {}")).Return(int64(7), nil)
	store.On("RecordComparisons", int64(7), rep.Rows).Return(nil)
	store.On("EndRun", int64(7), mock.AnythingOfType("time.Time"), 1).Return(nil)

	recordRun(testConfig(1), mgr, start, rep)

	store.AssertExpectations(t)
	mgr.AssertExpectations(t)
}

func TestRecordRunWithoutStore(t *testing.T) {
	assert.NotPanics(t, func() {
		recordRun(testConfig(1), nil, time.Now(), &schema.ComparisonReport{})
	})

	mgr := &history.MockHistoryManager{}
	mgr.On("GetHistoryStore").Return(nil)
	assert.NotPanics(t, func() {
		recordRun(testConfig(1), mgr, time.Now(), &schema.ComparisonReport{})
	})
}

// writeCSVReport writes rows under root using the default pattern.
func writeCSVReport(t *testing.T, root, model, stratum, condition string, rows []schema.TestCaseResult) {
	t.Helper()
	dir := filepath.Join(root, model, stratum)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var b strings.Builder
	b.WriteString("item_path,status,exemption\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,\n", r.ItemPath, r.Status)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, condition+".csv"), []byte(b.String()), 0o644))
}

func diskConfig(t *testing.T) *contract.Config {
	t.Helper()
	root := t.TempDir()
	writeCSVReport(t, root, "gpt", "dense", "baseline", outcomes([]int{0, 1, 1, 0, 2, 1, 0, 1}, 4))
	writeCSVReport(t, root, "gpt", "dense", "rag", outcomes([]int{3, 4, 3, 2, 4, 4, 2, 3}, 4))
	writeCSVReport(t, root, "llama", "dense", "baseline", outcomes([]int{1, 2, 3, 4}, 4))

	cfg := testConfig(2)
	cfg.ReportsDir = root
	cfg.Pattern = contract.DefaultPattern
	cfg.Columns = contract.ColumnConfig{
		ItemPath:  contract.DefaultItemPathColumn,
		Status:    contract.DefaultStatusColumn,
		Exemption: contract.DefaultExemptionColumn,
	}
	cfg.Precision = contract.DefaultPrecision
	cfg.Output = schema.JSONOut
	cfg.HistoryBackend = schema.NoneBackend
	return cfg
}

func TestGetComparisonReportFromDisk(t *testing.T) {
	cfg := diskConfig(t)

	store := &history.MockHistoryStore{}
	mgr := &history.MockHistoryManager{}
	mgr.On("GetHistoryStore").Return(store)
	store.On("BeginRun", mock.AnythingOfType("time.Time"), mock.AnythingOfType("map[string]interface {}")).Return(int64(1), nil)
	store.On("RecordComparisons", int64(1), mock.AnythingOfType("[]schema.ReportRow")).Return(nil)
	store.On("EndRun", int64(1), mock.AnythingOfType("time.Time"), 1).Return(nil)

	rep, err := GetComparisonReport(context.Background(), cfg, mgr)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "GPT", rep.Rows[0].Model)
	assert.Equal(t, 8, rep.Rows[0].N)
	assert.Equal(t, 8, rep.Rows[0].Improved)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, "llama", rep.Skipped[0].Model)

	store.AssertExpectations(t)
	mgr.AssertExpectations(t)
}

func TestExecuteCompareWritesJSON(t *testing.T) {
	cfg := diskConfig(t)
	cfg.OutputFile = filepath.Join(t.TempDir(), "report.json")

	ctx := WithLogger(WithSuppressHeader(context.Background()), zap.NewNop())
	require.NoError(t, ExecuteCompare(ctx, cfg, nil))

	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)

	var doc schema.ReportDocument
	require.NoError(t, json.Unmarshal(content, &doc))
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, 1, doc.Rows[0].Rank)
	assert.Equal(t, 1, doc.Summary.Comparisons)
	assert.Len(t, doc.Skipped, 1)
}
