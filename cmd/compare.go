package cmd

import (
	"github.com/huangsam/ragdelta/core"
	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/spf13/cobra"
)

// compareCmd runs the paired comparison over a reports directory.
var compareCmd = &cobra.Command{
	Use:   "compare [reports-dir]",
	Short: "Compare baseline and treatment pass rates per model and stratum.",
	Long: `Load the baseline and treatment reports of every (model, stratum) pair,
compute per-item pass rates and run the paired comparison.

For each pair this reports:
- Wilcoxon signed-rank p-value, adjusted per stratum with Benjamini-Hochberg
- Cliff's delta with its magnitude and a bootstrap 95% interval
- Mean and median difference, improved/worsened/unchanged counts
- Sign test p-value, effect size and paired t-test power

Reports are located with a pattern relative to the reports directory.
The default pattern is {model}/{stratum}/{condition}.csv. Models and strata
are discovered from the directory tree unless --models and --strata are set.

Examples:
  # Compare every discovered pair
  ragdelta compare ./reports

  # Reproducible intervals for two models only
  ragdelta compare ./reports --models gpt,llama --seed 42

  # Flat layout with JSON-lines reports
  ragdelta compare ./reports --pattern "{stratum}__{model}__{condition}.jsonl"

  # Export the table for further analysis
  ragdelta compare ./reports --output csv --output-file deltas.csv

  # Record the run in a SQLite history
  ragdelta compare ./reports --history-backend sqlite`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCompare(rootCtx, cfg, historyManager); err != nil {
			contract.LogFatal("Cannot run comparison", err)
		}
	},
}
