// resflow - CMG Results Report extraction pipeline
// Writes .rwd report requests, runs the Report tool, and converts the
// .rwo output into dense (i, j, k, time) arrays saved as .npy.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/resflow/resflow/pkg/config"
	"github.com/resflow/resflow/pkg/export"
	"github.com/resflow/resflow/pkg/grid"
	"github.com/resflow/resflow/pkg/npy"
	"github.com/resflow/resflow/pkg/parser"
	"github.com/resflow/resflow/pkg/pipeline"
	"github.com/resflow/resflow/pkg/request"
	"github.com/resflow/resflow/pkg/runner"
	"github.com/resflow/resflow/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	archiveDir string
	caseName   string
	property   string
	precision  int
	gmch       bool

	versionTag string

	rwoDir     string
	policyFlag string
	save       bool
	saveDir    string
	xlsxStats  bool

	skipRequest bool
	skipReport  bool

	verbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "resflow",
	Short: "resflow - Extract CMG simulation results into dense arrays",
	Long: `resflow drives the CMG Results Report workflow for one case:
write a .rwd report request, run the external Report tool, and parse
the .rwo output into a dense (i, j, k, time) float64 array saved in
NumPy .npy format.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Write the .rwd report-request file for a case",
	Long: `Write a .rwd report-request file next to the case's .sr3 archive.

The request selects one property at all time steps and points the
Report tool's output at the rwo/ subdirectory, which is created if
absent.

Examples:
  resflow request -d ./sim -c caseA
  resflow request -d ./sim -c caseA -p SW --precision 6
  resflow request -d ./sim -c caseA --gmch`,
	RunE: runRequest,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the Report tool on a case's .rwd file",
	Long: `Invoke the external CMG Results Report executable on the case's
.rwd file, blocking until it exits. The executable is resolved from
the configured version table; an unrecognized version tag fails
without launching anything.

Examples:
  resflow report -d ./sim -c caseA
  resflow report -d ./sim -c caseA --version-tag ese-ts2win-v2024.20`,
	RunE: runReport,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Parse a .rwo report into a dense array",
	Long: `Parse the case's .rwo raw report into a dense float64 array of
shape (n_i, n_j, n_k, n_time) and optionally save it as
<case>_<property>.npy.

A cell block whose value count does not match the grid's I-axis size
is handled per --policy: warn (default, skip and report), ignore
(skip silently), or strict (fail).

Examples:
  resflow convert -d ./sim -c caseA --save
  resflow convert -d ./sim -c caseA -p SW --save -o ./results
  resflow convert -d ./sim -c caseA --policy strict --xlsx`,
	RunE: runConvert,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full request -> report -> convert pipeline",
	Long: `Run all three stages for one case: write the .rwd request, invoke
the Report tool, and convert the resulting .rwo into an array.

Examples:
  resflow run -d ./sim -c caseA --save
  resflow run -d ./sim -c caseA --skip-request --skip-report`,
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	for _, cmd := range []*cobra.Command{requestCmd, reportCmd, convertCmd, runCmd, watchCmd} {
		cmd.Flags().StringVarP(&archiveDir, "dir", "d", "", "Case directory holding the .sr3 archive (required)")
		cmd.Flags().StringVarP(&caseName, "case", "c", "", "Case identifier (required)")
		cmd.MarkFlagRequired("dir")
		cmd.MarkFlagRequired("case")
	}

	for _, cmd := range []*cobra.Command{requestCmd, convertCmd, runCmd, watchCmd, infoCmd} {
		cmd.Flags().StringVarP(&property, "property", "p", "", "Property to extract (default from config, PRES)")
	}

	for _, cmd := range []*cobra.Command{requestCmd, runCmd} {
		cmd.Flags().IntVar(&precision, "precision", 0, "Numeric precision directive (default from config)")
		cmd.Flags().BoolVar(&gmch, "gmch", false, "Use the <case>.gmch.sr3 geomechanics archive")
	}

	for _, cmd := range []*cobra.Command{reportCmd, runCmd} {
		cmd.Flags().StringVar(&versionTag, "version-tag", "", "Results tool version tag (default from config)")
	}

	for _, cmd := range []*cobra.Command{convertCmd, runCmd, watchCmd} {
		cmd.Flags().StringVar(&policyFlag, "policy", "", "Block-size mismatch policy: warn, ignore, strict")
		cmd.Flags().BoolVar(&save, "save", false, "Save the array as <case>_<property>.npy")
		cmd.Flags().StringVarP(&saveDir, "out", "o", "", "Output directory for saved arrays (default from config)")
		cmd.Flags().BoolVar(&xlsxStats, "xlsx", false, "Also write a per-time-step stats workbook")
	}

	convertCmd.Flags().StringVar(&rwoDir, "rwo-dir", "", "Raw report directory (default <dir>/rwo)")

	runCmd.Flags().BoolVar(&skipRequest, "skip-request", false, "Reuse an existing .rwd file")
	runCmd.Flags().BoolVar(&skipReport, "skip-report", false, "Reuse an existing .rwo file")

	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(watchCmd)
}

// resolveDefaults fills unset flags from the loaded configuration.
func resolveDefaults() *config.Config {
	cfg := config.Global().Get()
	if property == "" {
		property = cfg.Convert.Property
	}
	if precision == 0 {
		precision = cfg.Convert.Precision
	}
	if versionTag == "" {
		versionTag = cfg.Report.DefaultVersion
	}
	if policyFlag == "" {
		policyFlag = cfg.Convert.MismatchPolicy
	}
	if saveDir == "" {
		saveDir = cfg.Convert.SaveDir
	}
	return cfg
}

// signalContext returns a context cancelled on SIGINT/SIGTERM. The
// runner kills a running Report child on cancellation.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

func runRequest(cmd *cobra.Command, args []string) error {
	resolveDefaults()

	path, err := request.Write(request.Request{
		ArchiveDir:     archiveDir,
		Case:           caseName,
		Property:       property,
		Precision:      precision,
		GeomechArchive: gmch,
	})
	if err != nil {
		return err
	}

	if verbose {
		tui.Infof("request written: %s", path)
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := resolveDefaults()

	ctx, cancel := signalContext()
	defer cancel()

	r := runner.New(cfg.Report.Versions)
	res, err := r.Run(ctx, archiveDir, caseName, versionTag)
	if err != nil {
		return err
	}

	if verbose {
		tui.Infof("%s exited %d after %s", res.Executable, res.ExitCode, res.Duration)
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	resolveDefaults()

	policy, err := grid.ParsePolicy(policyFlag)
	if err != nil {
		return err
	}

	dir := rwoDir
	if dir == "" {
		dir = filepath.Join(archiveDir, "rwo")
	}

	start := time.Now()
	rep, err := parseWithProgress(parser.ReportPath(dir, caseName, property))
	if err != nil {
		return err
	}

	a, warnings, err := grid.Assemble(rep.Steps, grid.Options{
		Policy: policy,
		NTime:  rep.Markers,
	})
	if err != nil {
		return err
	}
	warnings = append(rep.Warnings, warnings...)

	summary := &tui.Summary{
		Case:     caseName,
		Property: property,
		Shape:    a.Shape(),
		Markers:  rep.Markers,
		Steps:    len(rep.Steps),
		Warnings: warnings,
		Array:    a,
		Duration: time.Since(start),
	}

	if save {
		out := filepath.Join(saveDir, fmt.Sprintf("%s_%s.npy", caseName, property))
		if err := npy.Write(out, a); err != nil {
			return err
		}
		summary.SavedTo = out
	}
	if xlsxStats {
		if err := export.WriteStats(export.StatsPath(saveDir, caseName, property), a, rep.Steps); err != nil {
			return err
		}
	}

	tui.PrintSummary(summary)
	return nil
}

// parseWithProgress parses a .rwo file, showing a byte progress bar
// in verbose mode.
func parseWithProgress(path string) (*parser.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", parser.ErrReportNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if verbose {
		if stat, err := f.Stat(); err == nil {
			bar := tui.ShowProgress(stat.Size(), "parsing "+filepath.Base(path))
			r = io.TeeReader(f, bar)
			defer tui.ClearLine()
		}
	}

	return parser.Parse(r, property)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := resolveDefaults()

	policy, err := grid.ParsePolicy(policyFlag)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	p := pipeline.New(runner.New(cfg.Report.Versions))
	res, err := p.Run(ctx, pipeline.Options{
		ArchiveDir:     archiveDir,
		Case:           caseName,
		Property:       property,
		Precision:      precision,
		GeomechArchive: gmch,
		VersionTag:     versionTag,
		Policy:         policy,
		Save:           save,
		SaveDir:        saveDir,
		SkipRequest:    skipRequest,
		SkipReport:     skipReport,
	})
	if err != nil {
		return err
	}

	if verbose {
		tui.Infof("run %s", res.RunID)
		if res.Invocation != nil {
			tui.Infof("%s exited %d after %s",
				res.Invocation.Executable, res.Invocation.ExitCode, res.Invocation.Duration)
		}
	}

	summary := &tui.Summary{
		Case:     caseName,
		Property: property,
		Shape:    res.Array.Shape(),
		Markers:  res.Markers,
		Steps:    res.Steps,
		Warnings: res.Warnings,
		Array:    res.Array,
		SavedTo:  res.ArrayPath,
		Duration: res.Elapsed,
	}

	if xlsxStats {
		if err := export.WriteStats(export.StatsPath(saveDir, caseName, property), res.Array, res.TimeSteps); err != nil {
			return err
		}
	}

	tui.PrintSummary(summary)
	return nil
}
