package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/resflow/resflow/pkg/export"
	"github.com/resflow/resflow/pkg/grid"
	"github.com/resflow/resflow/pkg/npy"
	"github.com/resflow/resflow/pkg/parser"
	"github.com/resflow/resflow/pkg/pipeline"
	"github.com/resflow/resflow/pkg/tui"
	"github.com/resflow/resflow/pkg/watch"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Display information about a .rwo report or .npy array",
	Long: `Inspect an extraction artifact without converting anything.

For a .rwo report: time markers, populated steps, block counts,
parse warnings. For a .npy array: shape and per-step value ranges.

Examples:
  resflow info sim/rwo/caseA_PRES.rwo
  resflow info results/caseA_PRES.npy`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-convert a case whenever its .rwo report is rewritten",
	Long: `Watch the case's .rwo report and re-run the convert stage each time
the Report tool rewrites it. Useful while a simulation is still
producing restarts.

Examples:
  resflow watch -d ./sim -c caseA --save
  resflow watch -d ./sim -c caseA -p SW --save -o ./results`,
	RunE: runWatchCmd,
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]

	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		return infoArray(path)
	case ".rwo":
		return infoReport(path)
	default:
		return fmt.Errorf("unrecognized artifact %s (expected .rwo or .npy)", path)
	}
}

func infoArray(path string) error {
	a, err := npy.Read(path)
	if err != nil {
		return err
	}

	fmt.Printf("File:  %s\n", path)
	fmt.Printf("Shape: %s\n", a.Shape())
	for t := 0; t < a.NT; t++ {
		s := a.Stats(t)
		fmt.Printf("  t=%-4d min=%.6g max=%.6g mean=%.6g\n", t, s.Min, s.Max, s.Mean)
	}
	return nil
}

func infoReport(path string) error {
	// <case>_<property>.rwo; the property prefix marks its banner
	// line as non-data during parsing.
	prop := property
	if prop == "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if i := strings.LastIndex(base, "_"); i >= 0 {
			prop = base[i+1:]
		}
	}

	rep, err := parser.ParseFile(path, prop)
	if err != nil {
		return err
	}

	fmt.Printf("File:     %s\n", path)
	fmt.Printf("Property: %s\n", prop)
	fmt.Printf("Markers:  %d\n", rep.Markers)
	fmt.Printf("Steps:    %d populated\n", len(rep.Steps))
	for i, s := range rep.Steps {
		ni := 0
		if len(s.Blocks) > 0 {
			ni = len(s.Blocks[0].Values)
		}
		fmt.Printf("  [%d] TIME=%v %s: %d blocks, %d values each\n",
			i, s.Time, s.Label, len(s.Blocks), ni)
	}
	tui.PrintWarnings(rep.Warnings)
	return nil
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	resolveDefaults()

	policy, err := grid.ParsePolicy(policyFlag)
	if err != nil {
		return err
	}

	rwo := filepath.Join(archiveDir, "rwo")
	target := parser.ReportPath(rwo, caseName, property)

	convert := func(_ string) error {
		res, err := pipeline.Convert(pipeline.ConvertOptions{
			RwoDir:   rwo,
			Case:     caseName,
			Property: property,
			Policy:   policy,
			Save:     save,
			SaveDir:  saveDir,
		})
		if err != nil {
			return err
		}
		if xlsxStats {
			if err := export.WriteStats(export.StatsPath(saveDir, caseName, property), res.Array, res.TimeSteps); err != nil {
				return err
			}
		}
		tui.PrintSummary(&tui.Summary{
			Case:     caseName,
			Property: property,
			Shape:    res.Array.Shape(),
			Markers:  res.Markers,
			Steps:    res.Steps,
			Warnings: res.Warnings,
			Array:    res.Array,
			SavedTo:  res.ArrayPath,
		})
		return nil
	}

	w, err := newReportWatcher(target, convert)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, cancel := signalContext()
	defer cancel()

	tui.Infof("watching %s", target)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx)
	})
	return g.Wait()
}

// newReportWatcher wires a watcher for one report file.
func newReportWatcher(target string, onChange func(string) error) (*watch.Watcher, error) {
	w, err := watch.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.OnChange = onChange
	w.OnError = func(path string, err error) {
		fmt.Fprintf(os.Stderr, "watch: %v\n", err)
	}
	if err := w.Watch(target); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
