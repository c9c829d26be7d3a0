// Package request writes .rwd report-request files for the CMG
// Results Report tool.
package request

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrArchiveDirNotFound is returned when the result-archive
	// directory does not exist.
	ErrArchiveDirNotFound = errors.New("request: archive directory not found")

	// ErrArchiveNotFound is returned when the case's .sr3 archive is
	// missing from the archive directory.
	ErrArchiveNotFound = errors.New("request: result archive not found")
)

// Request describes one report-request file. It maps one-to-one onto
// the four directives of the .rwd format.
type Request struct {
	// ArchiveDir is the directory holding the case's .sr3 archive.
	ArchiveDir string

	// Case is the case identifier; the archive and all derived files
	// are named from it.
	Case string

	// Property is the simulation property to extract, e.g. "PRES".
	Property string

	// Precision is the numeric output precision directive.
	Precision int

	// GeomechArchive selects the <case>.gmch.sr3 naming convention
	// used for geomechanics properties.
	GeomechArchive bool
}

// ArchiveName returns the archive file name for the selected naming
// convention.
func (r Request) ArchiveName() string {
	if r.GeomechArchive {
		return r.Case + ".gmch.sr3"
	}
	return r.Case + ".sr3"
}

// OutputName returns the raw report file name the Results tool will
// write under the rwo/ subdirectory.
func (r Request) OutputName() string {
	return fmt.Sprintf("%s_%s.rwo", r.Case, r.Property)
}

// Write validates the archive, creates the rwo/ output subdirectory
// if absent, and writes <ArchiveDir>/<case>.rwd. It returns the path
// of the written request file.
//
// Validation happens before any side effect: a missing directory or
// archive leaves the file system untouched.
func Write(req Request) (string, error) {
	info, err := os.Stat(req.ArchiveDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrArchiveDirNotFound, req.ArchiveDir)
	}

	archive := filepath.Join(req.ArchiveDir, req.ArchiveName())
	if fi, err := os.Stat(archive); err != nil || fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrArchiveNotFound, archive)
	}

	if err := os.MkdirAll(filepath.Join(req.ArchiveDir, "rwo"), 0755); err != nil {
		return "", fmt.Errorf("request: create output directory: %w", err)
	}

	path := filepath.Join(req.ArchiveDir, req.Case+".rwd")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("request: create %s: %w", path, err)
	}
	defer f.Close()

	// The Results tool resolves the OUTPUT path relative to the .rwd
	// location, with a backslash separator regardless of platform.
	fmt.Fprintf(f, "*FILES \t '%s' \n", req.ArchiveName())
	fmt.Fprintf(f, "*PRECISION \t %d \n", req.Precision)
	fmt.Fprintf(f, "*OUTPUT \t 'rwo\\%s' \n", req.OutputName())
	fmt.Fprintf(f, "*PROPERTY-FOR \t '%s' \t *ALL-TIMES \n", req.Property)

	return path, nil
}
