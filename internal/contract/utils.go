package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/ragdelta/schema"
)

// Color variables for console output.
var (
	LargeColor      = color.New(color.FgRed, color.Bold)     // LargeColor marks a dominant effect.
	MediumColor     = color.New(color.FgMagenta, color.Bold) // MediumColor marks a clear effect.
	SmallColor      = color.New(color.FgYellow)              // SmallColor marks a modest effect, not bold.
	NegligibleColor = color.New(color.FgCyan)                // NegligibleColor marks an informational signal.
	SignificantMark = color.New(color.FgGreen, color.Bold)   // SignificantMark highlights FDR rejections.
)

// GetColorMagnitude returns a colored magnitude label for console output (table).
func GetColorMagnitude(m schema.Magnitude) string {
	text := string(m)

	switch m {
	case schema.LargeMagnitude:
		return LargeColor.Sprint(text)
	case schema.MediumMagnitude:
		return MediumColor.Sprint(text)
	case schema.SmallMagnitude:
		return SmallColor.Sprint(text)
	default: // "Negligible"
		return NegligibleColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".ragdelta_history.db"
	}
	return filepath.Join(homeDir, ".ragdelta_history.db")
}

// TruncateLabel truncates a display label to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is space for the "..." and at least one character.
func TruncateLabel(label string, maxWidth int) string {
	runes := []rune(label)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return label
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
