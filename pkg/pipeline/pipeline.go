// Package pipeline orchestrates the three extraction stages:
// write the .rwd request, run the Report tool, convert the .rwo
// report into a dense array. Data flows strictly request -> report ->
// convert; each stage is also independently invocable from the CLI.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/resflow/resflow/internal/model"
	"github.com/resflow/resflow/pkg/grid"
	"github.com/resflow/resflow/pkg/npy"
	"github.com/resflow/resflow/pkg/parser"
	"github.com/resflow/resflow/pkg/request"
	"github.com/resflow/resflow/pkg/runner"
)

// Options configures one pipeline run.
type Options struct {
	// ArchiveDir holds the case's .sr3 archive; the .rwd is written
	// there and the Report tool writes its .rwo under rwo/.
	ArchiveDir string

	Case           string
	Property       string
	Precision      int
	GeomechArchive bool

	// VersionTag selects the Report executable from the runner's
	// version table.
	VersionTag string

	// Policy is the block-size mismatch policy for assembly.
	Policy grid.Policy

	// Save persists the array as <SaveDir>/<case>_<property>.npy.
	Save    bool
	SaveDir string

	// SkipRequest and SkipReport allow re-running later stages
	// against files produced earlier.
	SkipRequest bool
	SkipReport  bool
}

// Result summarizes a pipeline run.
type Result struct {
	// RunID uniquely tags this invocation in output and diagnostics.
	RunID string

	RequestPath string
	ReportPath  string
	ArrayPath   string

	Array    *grid.Array
	Warnings []model.Warning

	// Markers counts all time markers in the report, Steps the
	// committed (populated) ones.
	Markers int
	Steps   int

	// TimeSteps holds the committed steps for consumers that need
	// the time/label columns.
	TimeSteps []model.TimeStep

	// Invocation is the Report tool's run record, nil when the
	// report stage was skipped.
	Invocation *runner.RunResult

	Elapsed time.Duration
}

// Pipeline runs the stages against one case.
type Pipeline struct {
	runner *runner.Runner
}

// New creates a pipeline using r for the report stage.
func New(r *runner.Runner) *Pipeline {
	return &Pipeline{runner: r}
}

// Run executes the configured stages in order. The first failing
// stage aborts the run; structural irregularities inside the report
// degrade to warnings on the result instead.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}

	if !opts.SkipRequest {
		path, err := request.Write(request.Request{
			ArchiveDir:     opts.ArchiveDir,
			Case:           opts.Case,
			Property:       opts.Property,
			Precision:      opts.Precision,
			GeomechArchive: opts.GeomechArchive,
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: request stage: %w", err)
		}
		res.RequestPath = path
	}

	if !opts.SkipReport {
		inv, err := p.runner.Run(ctx, opts.ArchiveDir, opts.Case, opts.VersionTag)
		if err != nil {
			return nil, fmt.Errorf("pipeline: report stage: %w", err)
		}
		res.Invocation = inv
	}

	conv, err := Convert(ConvertOptions{
		RwoDir:   filepath.Join(opts.ArchiveDir, "rwo"),
		Case:     opts.Case,
		Property: opts.Property,
		Policy:   opts.Policy,
		Save:     opts.Save,
		SaveDir:  opts.SaveDir,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: convert stage: %w", err)
	}

	res.ReportPath = conv.ReportPath
	res.ArrayPath = conv.ArrayPath
	res.Array = conv.Array
	res.Warnings = conv.Warnings
	res.Markers = conv.Markers
	res.Steps = conv.Steps
	res.TimeSteps = conv.TimeSteps
	res.Elapsed = time.Since(start)
	return res, nil
}

// ConvertOptions configures the standalone convert stage.
type ConvertOptions struct {
	RwoDir   string
	Case     string
	Property string
	Policy   grid.Policy
	Save     bool
	SaveDir  string
}

// ConvertResult is the convert stage's output.
type ConvertResult struct {
	ReportPath string
	ArrayPath  string
	Array      *grid.Array
	Warnings   []model.Warning

	// Markers and Steps expose the parsed report's time axis:
	// Markers counts all time markers, Steps the committed ones.
	Markers int
	Steps   int

	// TimeSteps holds the committed steps for consumers that need
	// the time/label columns, like the stats export.
	TimeSteps []model.TimeStep
}

// Convert parses the case's .rwo report and assembles the dense
// array, optionally persisting it as .npy. Parse and assembly
// warnings are merged into the result.
func Convert(opts ConvertOptions) (*ConvertResult, error) {
	path := parser.ReportPath(opts.RwoDir, opts.Case, opts.Property)
	rep, err := parser.ParseFile(path, opts.Property)
	if err != nil {
		return nil, err
	}

	a, warnings, err := grid.Assemble(rep.Steps, grid.Options{
		Policy: opts.Policy,
		NTime:  rep.Markers,
	})
	if err != nil {
		return nil, err
	}

	res := &ConvertResult{
		ReportPath: path,
		Array:      a,
		Warnings:   append(rep.Warnings, warnings...),
		Markers:    rep.Markers,
		Steps:      len(rep.Steps),
		TimeSteps:  rep.Steps,
	}

	if opts.Save {
		out := filepath.Join(opts.SaveDir,
			fmt.Sprintf("%s_%s.npy", opts.Case, opts.Property))
		if err := npy.Write(out, a); err != nil {
			return nil, err
		}
		res.ArrayPath = out
	}

	return res, nil
}
