// Package algo has the statistical building blocks of a paired comparison.
package algo

import "github.com/rotisserie/eris"

var (
	// ErrDegenerate is returned when a statistic is undefined for its input,
	// e.g. a signed-rank test where every difference is zero.
	ErrDegenerate = eris.New("degenerate input")

	// ErrLengthMismatch is returned when paired samples differ in length.
	ErrLengthMismatch = eris.New("paired samples must have equal length")

	// ErrEmptySample is returned when a statistic needs at least one observation.
	ErrEmptySample = eris.New("sample is empty")
)
