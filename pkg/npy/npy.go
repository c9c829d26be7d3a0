// Package npy reads and writes NumPy .npy files (format version 1.0)
// holding the dense result arrays this tool produces. Keeping the
// artifact in .npy makes it loadable with np.load by the downstream
// analysis scripts that consumed the original workflow's output.
package npy

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/resflow/resflow/pkg/grid"
)

var (
	// ErrBadMagic is returned when the input is not a .npy file.
	ErrBadMagic = errors.New("npy: bad magic")

	// ErrUnsupportedDtype is returned for anything but little-endian
	// float64 in C order.
	ErrUnsupportedDtype = errors.New("npy: unsupported dtype or layout")
)

var magic = []byte("\x93NUMPY")

// Headers are padded so the payload starts on a 64-byte boundary,
// matching what np.save emits.
const headerAlign = 64

var shapeRe = regexp.MustCompile(`'shape':\s*\((\d+),\s*(\d+),\s*(\d+),\s*(\d+),?\s*\)`)

// Encode writes a as a version 1.0 .npy stream.
func Encode(w io.Writer, a *grid.Array) error {
	dict := fmt.Sprintf(
		"{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d, %d, %d), }",
		a.NI, a.NJ, a.NK, a.NT)

	// magic + version (2) + header length (2) + dict + padding + '\n'
	unpadded := len(magic) + 2 + 2 + len(dict) + 1
	pad := (headerAlign - unpadded%headerAlign) % headerAlign
	header := dict + strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	bw.Write(magic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)
	if err := binary.Write(bw, binary.LittleEndian, a.Data); err != nil {
		return fmt.Errorf("npy: write payload: %w", err)
	}
	return bw.Flush()
}

// Decode reads a version 1.x .npy stream holding a 4-D little-endian
// float64 array in C order.
func Decode(r io.Reader) (*grid.Array, error) {
	br := bufio.NewReader(r)

	head := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("npy: read magic: %w", err)
	}
	if string(head[:len(magic)]) != string(magic) {
		return nil, ErrBadMagic
	}
	if head[len(magic)] != 1 {
		return nil, fmt.Errorf("npy: unsupported format version %d.%d",
			head[len(magic)], head[len(magic)+1])
	}

	var hlen uint16
	if err := binary.Read(br, binary.LittleEndian, &hlen); err != nil {
		return nil, fmt.Errorf("npy: read header length: %w", err)
	}
	hdr := make([]byte, hlen)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, fmt.Errorf("npy: read header: %w", err)
	}
	header := string(hdr)

	if !strings.Contains(header, "'<f8'") ||
		strings.Contains(header, "'fortran_order': True") {
		return nil, ErrUnsupportedDtype
	}

	m := shapeRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("%w: shape is not 4-D: %s", ErrUnsupportedDtype, header)
	}
	dims := make([]int, 4)
	for i := 0; i < 4; i++ {
		dims[i], _ = strconv.Atoi(m[i+1])
	}

	a, err := grid.NewArray(dims[0], dims[1], dims[2], dims[3])
	if err != nil {
		return nil, err
	}
	if err := binary.Read(br, binary.LittleEndian, a.Data); err != nil {
		return nil, fmt.Errorf("npy: read payload: %w", err)
	}
	return a, nil
}

// Write serializes a to path, creating the destination directory if
// absent.
func Write(path string, a *grid.Array) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("npy: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npy: create %s: %w", path, err)
	}
	if err := Encode(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read loads an array from path.
func Read(path string) (*grid.Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npy: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
