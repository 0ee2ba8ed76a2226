package outwriter

import (
	"os"

	"github.com/huangsam/ragdelta/internal/contract"
	"golang.org/x/term"
)

// getTerminalWidth returns the width override or the detected terminal width.
func getTerminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// getMaxTableLabelWidth calculates the maximum width of the model and stratum
// labels in table output, based on the terminal width.
func getMaxTableLabelWidth(cfg *contract.Config) int {
	termWidth := getTerminalWidth(cfg)

	// N + Δ Mean + Δ% + p + p(FDR) + δ + Size + CI + +/-/= with borders/padding
	baseWidth := 110

	// Two label columns share what is left
	available := (termWidth - baseWidth) / 2
	if available < 8 {
		// Minimum reasonable label width
		return 8
	}
	if available > 32 {
		// Maximum label width to prevent overly long labels
		return 32
	}
	return available
}
