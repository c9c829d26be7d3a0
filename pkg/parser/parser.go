// Package parser reads .rwo raw report files produced by the CMG
// Results Report tool and reconstructs the time series of cell blocks.
//
// A .rwo report is a sequence of time-step blocks. Each block starts
// with a time marker line, followed by per-(K, J) sections: a header
// line and one or more lines of whitespace-separated I-axis values.
// Comment lines start with "**"; a RESULTS banner and a line prefixed
// with the property name are also non-data.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/resflow/resflow/internal/model"
)

var (
	timeRe  = regexp.MustCompile(`^\*\*  TIME = (\d+(?:\.\d+)?)\s+(.+)`)
	blockRe = regexp.MustCompile(`^\*\* K = (\d+), J = (\d+)`)
)

// Report is the parsed content of one .rwo file.
type Report struct {
	// Steps holds the committed time steps in file order. A step is
	// committed only if it accumulated at least one cell block.
	Steps []model.TimeStep

	// Markers counts all time marker lines seen, committed or not.
	Markers int

	// Warnings holds structured diagnostics for dropped lines.
	Warnings []model.Warning
}

// ReportPath returns the conventional .rwo path for a case and
// property inside a raw-report directory.
func ReportPath(rwoDir, caseName, property string) string {
	return filepath.Join(rwoDir, fmt.Sprintf("%s_%s.rwo", caseName, property))
}

// scanState tracks what the scanner currently has open. The commit
// rule (append-then-flush on the next marker or EOF) is encoded in
// the transitions rather than in ad-hoc control flow.
type scanState uint8

const (
	scanIdle      scanState = iota // no open time step
	scanTimeStep                   // open time step, no open block
	scanCellBlock                  // open time step with an open block
)

type scanner struct {
	property string
	state    scanState
	step     model.TimeStep
	rep      *Report
}

// commit flushes the open time step into the report if it holds at
// least one block, then returns to the idle state.
func (s *scanner) commit() {
	if s.state != scanIdle && len(s.step.Blocks) > 0 {
		s.rep.Steps = append(s.rep.Steps, s.step)
	}
	s.step = model.TimeStep{}
	s.state = scanIdle
}

// line consumes one trimmed input line. n is the 1-based line number.
func (s *scanner) line(text string, n int) {
	if m := timeRe.FindStringSubmatch(text); m != nil {
		s.commit()
		t, _ := strconv.ParseFloat(m[1], 64)
		s.step = model.TimeStep{Time: t, Label: strings.TrimSpace(m[2])}
		s.state = scanTimeStep
		s.rep.Markers++
		return
	}

	if m := blockRe.FindStringSubmatch(text); m != nil {
		if s.state == scanIdle {
			// Header before any time marker; no step to attach to.
			return
		}
		k, _ := strconv.Atoi(m[1])
		j, _ := strconv.Atoi(m[2])
		s.step.Blocks = append(s.step.Blocks, model.CellBlock{K: k, J: j})
		s.state = scanCellBlock
		return
	}

	if text == "" ||
		strings.HasPrefix(text, "**") ||
		strings.HasPrefix(text, "RESULTS") ||
		(s.property != "" && strings.HasPrefix(text, s.property)) {
		return
	}

	// Data line. Every token must parse as a float; otherwise the
	// whole line is dropped.
	fields := strings.Fields(text)
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			if s.state == scanCellBlock {
				s.rep.Warnings = append(s.rep.Warnings, model.Warning{
					Kind:    model.WarnLineSkipped,
					Line:    n,
					K:       s.step.Blocks[len(s.step.Blocks)-1].K,
					J:       s.step.Blocks[len(s.step.Blocks)-1].J,
					Time:    s.step.Time,
					Message: fmt.Sprintf("token %q is not numeric", f),
				})
			}
			return
		}
		values = append(values, v)
	}

	if s.state != scanCellBlock {
		// Numbers with no open block; nothing to attach them to.
		return
	}
	b := &s.step.Blocks[len(s.step.Blocks)-1]
	b.Values = append(b.Values, values...)
}

// Parse scans r in a single forward pass and returns the
// reconstructed report. property names the extracted property so its
// banner line can be recognized as non-data. Structural
// irregularities never abort the scan; they degrade to warnings.
func Parse(r io.Reader, property string) (*Report, error) {
	rep := &Report{}
	s := &scanner{property: property, rep: rep}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		s.line(strings.TrimSpace(sc.Text()), n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parser: read report: %w", err)
	}

	// A report need not end with a trailing marker.
	s.commit()

	return rep, nil
}

// ParseFile opens and parses a .rwo file. A missing file returns an
// error wrapping ErrReportNotFound.
func ParseFile(path, property string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, path)
		}
		return nil, fmt.Errorf("parser: open report: %w", err)
	}
	defer f.Close()
	return Parse(f, property)
}
