// Package grid assembles parsed report records into a dense 4-D array
// over the (i, j, k, time) axes of the simulation domain.
package grid

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when assembly finds no populated time steps.
var ErrNoData = errors.New("grid: no populated time steps")

// Array is a dense float64 array of shape (NI, NJ, NK, NT), stored in
// C order so the serialized form matches NumPy's default layout.
// All cells start at zero; unpopulated (j, k, t) slices stay zero.
type Array struct {
	NI int
	NJ int
	NK int
	NT int

	Data []float64
}

// NewArray allocates a zero-filled array of the given shape.
func NewArray(ni, nj, nk, nt int) (*Array, error) {
	if ni <= 0 || nj <= 0 || nk <= 0 || nt <= 0 {
		return nil, fmt.Errorf("grid: invalid shape (%d, %d, %d, %d)", ni, nj, nk, nt)
	}
	return &Array{
		NI:   ni,
		NJ:   nj,
		NK:   nk,
		NT:   nt,
		Data: make([]float64, ni*nj*nk*nt),
	}, nil
}

// index flattens 0-based (i, j, k, t) coordinates.
func (a *Array) index(i, j, k, t int) int {
	return ((i*a.NJ+j)*a.NK+k)*a.NT + t
}

// At returns the value at 0-based (i, j, k, t).
func (a *Array) At(i, j, k, t int) float64 {
	return a.Data[a.index(i, j, k, t)]
}

// Set stores v at 0-based (i, j, k, t).
func (a *Array) Set(i, j, k, t int, v float64) {
	a.Data[a.index(i, j, k, t)] = v
}

// Slice returns a copy of the I-axis values at 0-based (j, k, t).
func (a *Array) Slice(j, k, t int) []float64 {
	out := make([]float64, a.NI)
	for i := 0; i < a.NI; i++ {
		out[i] = a.At(i, j, k, t)
	}
	return out
}

// Len returns the total cell count.
func (a *Array) Len() int {
	return a.NI * a.NJ * a.NK * a.NT
}

// Shape renders the shape for display.
func (a *Array) Shape() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", a.NI, a.NJ, a.NK, a.NT)
}

// StepStats summarizes one time step of the array.
type StepStats struct {
	Min  float64
	Max  float64
	Mean float64
}

// Stats computes min, max and mean over all cells of time step t.
func (a *Array) Stats(t int) StepStats {
	n := a.NI * a.NJ * a.NK
	s := StepStats{Min: a.At(0, 0, 0, t), Max: a.At(0, 0, 0, t)}
	var sum float64
	for i := 0; i < a.NI; i++ {
		for j := 0; j < a.NJ; j++ {
			for k := 0; k < a.NK; k++ {
				v := a.At(i, j, k, t)
				if v < s.Min {
					s.Min = v
				}
				if v > s.Max {
					s.Max = v
				}
				sum += v
			}
		}
	}
	s.Mean = sum / float64(n)
	return s
}
