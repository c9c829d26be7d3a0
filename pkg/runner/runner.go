// Package runner invokes the external CMG Results Report executable
// on a .rwd request file.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrRequestDirNotFound is returned when the request-file
	// directory does not exist.
	ErrRequestDirNotFound = errors.New("runner: request directory not found")

	// ErrRequestNotFound is returned when the case's .rwd file is
	// missing.
	ErrRequestNotFound = errors.New("runner: request file not found")

	// ErrUnsupportedVersion is returned when the tool-version tag is
	// not present in the version table. Nothing is launched.
	ErrUnsupportedVersion = errors.New("runner: unsupported Results version")
)

// InvocationError reports a Report process that could not be launched
// or exited non-zero. It carries the captured combined output so the
// tool's own diagnostics are not lost.
type InvocationError struct {
	Executable string
	ExitCode   int
	Output     string
	Err        error
}

func (e *InvocationError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("runner: %s exited with code %d: %s",
			e.Executable, e.ExitCode, outputTail(e.Output))
	}
	return fmt.Sprintf("runner: launch %s: %v", e.Executable, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// outputTail keeps error messages readable for chatty tools.
func outputTail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " / ")
}

// RunResult summarizes one Report invocation.
type RunResult struct {
	Executable string
	ExitCode   int
	Output     string
	Duration   time.Duration
}

// Runner resolves version tags to executables and runs the tool.
type Runner struct {
	// Versions is the closed table of supported tool versions. Tags
	// outside it fail with ErrUnsupportedVersion.
	Versions map[string]string
}

// New creates a Runner over the given version table.
func New(versions map[string]string) *Runner {
	return &Runner{Versions: versions}
}

// Resolve maps a version tag to its executable path.
func (r *Runner) Resolve(version string) (string, error) {
	exe, ok := r.Versions[version]
	if !ok || exe == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	return exe, nil
}

// Run executes the Report tool for a case, blocking until it exits.
// The request directory is the working directory, mirroring how the
// tool resolves its relative OUTPUT path. Combined stdout/stderr is
// captured; a launch failure or non-zero exit returns an
// *InvocationError. Cancelling ctx kills the child process.
func (r *Runner) Run(ctx context.Context, rwdDir, caseName, version string) (*RunResult, error) {
	if fi, err := os.Stat(rwdDir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRequestDirNotFound, rwdDir)
	}
	rwdFile := caseName + ".rwd"
	if fi, err := os.Stat(filepath.Join(rwdDir, rwdFile)); err != nil || fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, filepath.Join(rwdDir, rwdFile))
	}

	exe, err := r.Resolve(version)
	if err != nil {
		return nil, err
	}

	// -f names the request file, -o the output name; without -o the
	// tool waits on an interactive prompt.
	cmd := exec.CommandContext(ctx, exe, "-f", rwdFile, "-o", caseName)
	cmd.Dir = rwdDir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	res := &RunResult{
		Executable: exe,
		Output:     string(out),
		Duration:   time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &InvocationError{
				Executable: exe,
				ExitCode:   res.ExitCode,
				Output:     res.Output,
				Err:        err,
			}
		}
		return nil, &InvocationError{Executable: exe, ExitCode: -1, Err: err}
	}

	return res, nil
}
