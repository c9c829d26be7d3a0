// Package model defines core data structures for resflow.
package model

import "fmt"

// TimeStep is one time-step block reconstructed from a .rwo report.
// A step is only committed once the scanner reaches the next time
// marker or end of input, and only if it holds at least one block.
type TimeStep struct {
	// Time is the simulation time value from the marker line.
	Time float64

	// Label is the date/label text following the time value.
	Label string

	// Blocks holds the cell blocks in file order.
	Blocks []CellBlock
}

// CellBlock holds the I-axis values for one (K, J) pair at one time
// step. K and J are 1-based, exactly as printed in the report.
type CellBlock struct {
	K int
	J int

	// Values accumulates across all data lines following the header,
	// until the next header or marker.
	Values []float64
}

// WarningKind classifies a parse or assembly diagnostic.
type WarningKind uint8

const (
	// WarnLineSkipped marks a line inside a cell block that did not
	// tokenize as numbers and was dropped.
	WarnLineSkipped WarningKind = iota

	// WarnBlockSizeMismatch marks a cell block whose value count did
	// not match the inferred I-axis size; its array slice stays zero.
	WarnBlockSizeMismatch
)

// String returns the kind name.
func (k WarningKind) String() string {
	switch k {
	case WarnLineSkipped:
		return "line-skipped"
	case WarnBlockSizeMismatch:
		return "block-size-mismatch"
	default:
		return "unknown"
	}
}

// Warning is a structured diagnostic emitted during parsing or array
// assembly. Warnings are returned to the caller alongside the result
// so partial output is programmatically detectable.
type Warning struct {
	Kind WarningKind

	// Line is the 1-based input line number, when known.
	Line int

	// K, J identify the affected cell block, when applicable.
	K int
	J int

	// Time is the owning time step's time value, when applicable.
	Time float64

	Message string
}

// String renders the warning for console output.
func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", w.Kind, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
