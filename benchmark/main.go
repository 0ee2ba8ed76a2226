// Package main provides a performance benchmarking tool for the ragdelta CLI.
// It generates synthetic report trees of increasing size, runs the compare
// command against each of them multiple times, treats the first successful run as cold
// and averages the rest as warm, and writes a CSV for performance analysis and documentation.
//
// Prerequisites:
// - ragdelta binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where the synthetic report trees are generated
package main

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// BenchmarkResult holds the result of a benchmark run (no-history average, cold run and average of warm runs).
type BenchmarkResult struct {
	Fixture       string
	Bootstrap     int
	NoHistoryTime string
	ColdTime      string
	WarmTime      string
}

// FixtureSize describes one synthetic report tree.
type FixtureSize struct {
	Name    string
	Models  int
	Strata  int
	Items   int
	Repeats int
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir        string
	Timeout        time.Duration
	Workers        int
	NoHistoryRuns  int
	HistoryRuns    int
	BootstrapSizes []int
	Fixtures       []FixtureSize
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}
	workDir := os.Args[1]

	config := BenchmarkConfig{
		WorkDir:        workDir,
		Timeout:        5 * time.Minute,
		Workers:        8,
		NoHistoryRuns:  3,
		HistoryRuns:    4,
		BootstrapSizes: []int{1000, 10000},
		Fixtures: []FixtureSize{
			{Name: "small", Models: 2, Strata: 2, Items: 50, Repeats: 3},
			{Name: "medium", Models: 4, Strata: 6, Items: 500, Repeats: 5},
			{Name: "large", Models: 8, Strata: 12, Items: 5000, Repeats: 5},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	for _, fixture := range config.Fixtures {
		fmt.Printf("Generating %s fixture...\n", fixture.Name)
		if err := generateFixture(filepath.Join(config.WorkDir, fixture.Name), fixture); err != nil {
			fmt.Printf("Failed to generate fixture %s: %v\n", fixture.Name, err)
			os.Exit(1)
		}
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the ragdelta binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("ragdelta"); err != nil {
		return eris.New("ragdelta binary not found in PATH")
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return eris.Wrapf(err, "cannot create work dir %s", config.WorkDir)
	}
	return nil
}

// generateFixture writes baseline and treatment CSV reports for every model and stratum.
// Treatment pass probabilities are shifted upward so that some strata show an effect.
func generateFixture(root string, size FixtureSize) error {
	rng := rand.New(rand.NewPCG(uint64(size.Items), uint64(size.Models*size.Strata)))
	for m := range size.Models {
		for s := range size.Strata {
			dir := filepath.Join(root, fmt.Sprintf("model-%02d", m), fmt.Sprintf("stratum-%02d", s))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrapf(err, "cannot create %s", dir)
			}
			shift := 0.02 * float64(s%4)
			base := make([]float64, size.Items)
			for i := range base {
				base[i] = rng.Float64()
			}
			for _, condition := range []string{"baseline", "rag"} {
				p := base
				if condition == "rag" {
					p = make([]float64, len(base))
					for i, b := range base {
						p[i] = min(1, b+shift+0.1*(rng.Float64()-0.5))
					}
				}
				if err := writeReport(filepath.Join(dir, condition+".csv"), p, size.Repeats, rng); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// writeReport writes one row per item repeat with a pass probability of probs[i].
func writeReport(path string, probs []float64, repeats int, rng *rand.Rand) error {
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "cannot create %s", path)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", path, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"item_path", "status", "exemption"}); err != nil {
		return eris.Wrap(err, "failed to write CSV header")
	}
	for i, p := range probs {
		item := fmt.Sprintf("suite.case_%05d", i)
		for range repeats {
			status := "failed"
			if rng.Float64() < p {
				status = "passed"
			}
			if err := writer.Write([]string{item, status, ""}); err != nil {
				return eris.Wrap(err, "failed to write CSV record")
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// runBenchmarks executes all benchmark suites across fixtures and bootstrap sizes
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d fixtures, %v timeout, %d workers, no-history: %d runs, history: %d runs\n",
		len(config.Fixtures), config.Timeout, config.Workers, config.NoHistoryRuns, config.HistoryRuns)

	for _, fixture := range config.Fixtures {
		fmt.Printf("Benchmarking %s\n", fixture.Name)
		reportsDir := filepath.Join(config.WorkDir, fixture.Name)
		for _, bootstrap := range config.BootstrapSizes {
			results = append(results, runBenchmarkSuite(config, fixture.Name, reportsDir, bootstrap))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-history and history benchmarks for a fixture
func runBenchmarkSuite(config BenchmarkConfig, fixture, reportsDir string, bootstrap int) BenchmarkResult {
	fmt.Printf("Running compare on %s with %d resamples\n", fixture, bootstrap)

	historyPath := filepath.Join(config.WorkDir, fixture+".history.db")
	if err := os.Remove(historyPath); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: failed to remove history %s: %v\n", historyPath, err)
	}

	// Helper to run a benchmark phase
	runPhase := func(historyArgs []string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, reportsDir, bootstrap, historyArgs, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avg := sum / float64(len(times))
			avgTime = fmt.Sprintf("%.3fs", avg)
		}
		return cold, avgTime
	}

	// Phase 1: No-history runs
	_, noHistoryAvg := runPhase([]string{"--history-backend", "none"}, config.NoHistoryRuns, "No-history")

	// Phase 2: SQLite history runs
	coldTime, warmAvg := runPhase([]string{"--history-backend", "sqlite", "--history-db-connect", historyPath}, config.HistoryRuns, "History")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-history average: %s, Cold time: %s, Warm average: %s\n", noHistoryAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Fixture:       fixture,
		Bootstrap:     bootstrap,
		NoHistoryTime: noHistoryAvg,
		ColdTime:      coldTimeStr,
		WarmTime:      warmAvg,
	}
}

// runBenchmark executes ragdelta compare multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, reportsDir string, bootstrap int, historyArgs []string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"compare", reportsDir,
		"--bootstrap", strconv.Itoa(bootstrap),
		"--workers", strconv.Itoa(config.Workers),
		"--seed", "1",
		"--color", "no",
	}
	args = append(args, historyArgs...)

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("ragdelta", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Comparison completed in") &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/ragdelta_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"fixture", "bootstrap", "no_history_avg", "cold_time", "warm_avg"}); err != nil {
		return eris.Wrap(err, "failed to write CSV header")
	}

	// Write results
	for _, result := range results {
		record := []string{result.Fixture, strconv.Itoa(result.Bootstrap), result.NoHistoryTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(record); err != nil {
			return eris.Wrap(err, "failed to write CSV record")
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-8s (B=%-5d): No-history: %s, Cold: %s, Warm: %s\n",
			result.Fixture, result.Bootstrap, result.NoHistoryTime, result.ColdTime, result.WarmTime)
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
