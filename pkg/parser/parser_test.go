package parser

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/resflow/resflow/internal/model"
)

const sampleReport = `** Results Report export
RESULTS section: Pressure
PRES Pressure (kPa)

**  TIME = 0 2020-Jan-01
** K = 1, J = 1
 100.0 101.5 102.0
** K = 2, J = 1
 120.0 121.0 122.0
**  TIME = 30.5 2020-Jan-31
** K = 1, J = 1
 110.0 111.0
 112.0
** K = 2, J = 1
 130.0 131.0 132.0
`

func parseString(t *testing.T, s, property string) *Report {
	t.Helper()
	rep, err := Parse(strings.NewReader(s), property)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return rep
}

func TestParseTimeSteps(t *testing.T) {
	rep := parseString(t, sampleReport, "PRES")

	if rep.Markers != 2 {
		t.Errorf("Markers = %d, want 2", rep.Markers)
	}
	if len(rep.Steps) != 2 {
		t.Fatalf("Steps = %d, want 2", len(rep.Steps))
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", rep.Warnings)
	}

	s0, s1 := rep.Steps[0], rep.Steps[1]
	if s0.Time != 0 || s0.Label != "2020-Jan-01" {
		t.Errorf("step 0 = %v %q", s0.Time, s0.Label)
	}
	if s1.Time != 30.5 || s1.Label != "2020-Jan-31" {
		t.Errorf("step 1 = %v %q", s1.Time, s1.Label)
	}
}

func TestParseCellBlocks(t *testing.T) {
	rep := parseString(t, sampleReport, "PRES")

	want := []struct {
		step, k, j int
		values     []float64
	}{
		{0, 1, 1, []float64{100.0, 101.5, 102.0}},
		{0, 2, 1, []float64{120.0, 121.0, 122.0}},
		{1, 1, 1, []float64{110.0, 111.0, 112.0}}, // spans two data lines
		{1, 2, 1, []float64{130.0, 131.0, 132.0}},
	}

	for _, w := range want {
		var got *model.CellBlock
		for i := range rep.Steps[w.step].Blocks {
			b := &rep.Steps[w.step].Blocks[i]
			if b.K == w.k && b.J == w.j {
				got = b
				break
			}
		}
		if got == nil {
			t.Errorf("step %d: missing block K=%d J=%d", w.step, w.k, w.j)
			continue
		}
		if len(got.Values) != len(w.values) {
			t.Errorf("step %d K=%d J=%d: %d values, want %d",
				w.step, w.k, w.j, len(got.Values), len(w.values))
			continue
		}
		for i, v := range w.values {
			if got.Values[i] != v {
				t.Errorf("step %d K=%d J=%d value[%d] = %v, want %v",
					w.step, w.k, w.j, i, got.Values[i], v)
			}
		}
	}
}

func TestParseNoTrailingMarker(t *testing.T) {
	// The last step has no marker after it; EOF must commit it.
	rep := parseString(t, "**  TIME = 5 day-5\n** K = 1, J = 1\n 1 2 3\n", "PRES")
	if len(rep.Steps) != 1 {
		t.Fatalf("Steps = %d, want 1", len(rep.Steps))
	}
	if got := rep.Steps[0].Blocks[0].Values; len(got) != 3 {
		t.Errorf("values = %v, want 3 entries", got)
	}
}

func TestParseNonNumericLineSkipped(t *testing.T) {
	in := "**  TIME = 1 day-1\n** K = 1, J = 1\n 1.0 oops 3.0\n 4.0 5.0 6.0\n"
	rep := parseString(t, in, "PRES")

	if len(rep.Warnings) != 1 {
		t.Fatalf("Warnings = %d, want 1", len(rep.Warnings))
	}
	w := rep.Warnings[0]
	if w.Kind != model.WarnLineSkipped || w.Line != 3 || w.K != 1 || w.J != 1 {
		t.Errorf("unexpected warning %+v", w)
	}

	// The bad line is dropped entirely; the good one still lands.
	got := rep.Steps[0].Blocks[0].Values
	if len(got) != 3 || got[0] != 4.0 {
		t.Errorf("values = %v, want [4 5 6]", got)
	}
}

func TestParseBlocklessMarkerCountedNotCommitted(t *testing.T) {
	in := "**  TIME = 1 day-1\n**  TIME = 2 day-2\n** K = 1, J = 1\n 7 8\n"
	rep := parseString(t, in, "PRES")

	if rep.Markers != 2 {
		t.Errorf("Markers = %d, want 2", rep.Markers)
	}
	if len(rep.Steps) != 1 || rep.Steps[0].Time != 2 {
		t.Errorf("expected only the second step committed, got %+v", rep.Steps)
	}
}

func TestParseStrayLinesIgnored(t *testing.T) {
	// Headers before any marker and numbers before any block attach
	// to nothing and are dropped without warnings.
	in := "** K = 3, J = 3\n 9 9 9\n**  TIME = 1 day-1\n 5 5 5\n** K = 1, J = 1\n 1 2\n"
	rep := parseString(t, in, "PRES")

	if len(rep.Steps) != 1 {
		t.Fatalf("Steps = %d, want 1", len(rep.Steps))
	}
	if len(rep.Steps[0].Blocks) != 1 {
		t.Fatalf("Blocks = %d, want 1", len(rep.Steps[0].Blocks))
	}
	if got := rep.Steps[0].Blocks[0].Values; len(got) != 2 {
		t.Errorf("values = %v, want [1 2]", got)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", rep.Warnings)
	}
}

func TestParsePropertyBannerIgnored(t *testing.T) {
	in := "PRES Pressure (kPa)\n**  TIME = 1 day-1\n** K = 1, J = 1\nPRES\n 1 2 3\n"
	rep := parseString(t, in, "PRES")

	if got := rep.Steps[0].Blocks[0].Values; len(got) != 3 {
		t.Errorf("values = %v, want 3 entries", got)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("property banner should not warn, got %v", rep.Warnings)
	}
}

func TestParseFileNotFound(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing_PRES.rwo"), "PRES")
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}

func TestReportPath(t *testing.T) {
	got := ReportPath("out", "caseA", "PRES")
	want := filepath.Join("out", "caseA_PRES.rwo")
	if got != want {
		t.Errorf("ReportPath = %q, want %q", got, want)
	}
}
