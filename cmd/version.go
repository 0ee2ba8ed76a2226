package cmd

import (
	"runtime"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/spf13/cobra"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ragdelta.",
	Long: `Display version information including build details.

Shows the release version, commit hash, build timestamp, Go runtime version
and the default SQLite history location. Include this output when reporting
differences in statistics between installs.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("ragdelta CLI\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", commit)
		cmd.Printf("  Built:   %s\n", date)
		cmd.Printf("  Runtime: %s\n", runtime.Version())
		cmd.Printf("  History: %s\n", contract.GetHistoryDBFilePath())
	},
}
