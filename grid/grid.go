// Package grid defines the logical processor grid and the per-tensor
// Mapping onto it (§3 "Mapping").
//
// Adapted from gomlx-stablehlo's types/shardy package: ProcessorGrid plays
// the role shardy.DeviceMesh plays (the logical topology of the devices/
// ranks), and Mapping plays the role shardy.ShardingSpec plays (how one
// tensor's axes are assigned to that topology) -- generalized with the
// virtualization factor v[i] that shardy's sharding spec has no analogue
// for, since cyclic-with-virtualization distribution is specific to this
// engine.
package grid

import "github.com/ctfgo/ctf/internal/errs"

// ProcessorGrid is the logical topology processes are organized into.
// Unlike shardy.DeviceMesh, axes are unnamed: the core only ever needs
// positional grid-dimension indices, since index-map letters (not grid
// axis names) are the user-facing naming scheme (§3).
type ProcessorGrid struct {
	dims []int // phys[i], number of processes along grid dimension i
}

// NewProcessorGrid builds a grid with the given per-dimension sizes.
func NewProcessorGrid(dims []int) (*ProcessorGrid, error) {
	if len(dims) == 0 {
		return nil, errs.New(errs.InvalidInput, "grid: ProcessorGrid requires at least one dimension")
	}
	n := 1
	for i, d := range dims {
		if d < 1 {
			return nil, errs.New(errs.InvalidInput, "grid: dimension %d has non-positive size %d", i, d)
		}
		n *= d
	}
	cp := append([]int(nil), dims...)
	return &ProcessorGrid{dims: cp}, nil
}

// Rank returns the number of grid dimensions.
func (g *ProcessorGrid) Rank() int { return len(g.dims) }

// Dim returns the physical extent (number of processes) along grid
// dimension i.
func (g *ProcessorGrid) Dim(i int) int { return g.dims[i] }

// NumProcs returns the total number of processes in the grid, i.e. the
// product of all dimension sizes.
func (g *ProcessorGrid) NumProcs() int {
	n := 1
	for _, d := range g.dims {
		n *= d
	}
	return n
}

// Coords decomposes a linear process rank into grid coordinates, in
// row-major order (dimension 0 is the slowest-varying), matching §5's
// "fixed row-major order" ordering guarantee.
func (g *ProcessorGrid) Coords(rank int) []int {
	coords := make([]int, len(g.dims))
	for i := len(g.dims) - 1; i >= 0; i-- {
		coords[i] = rank % g.dims[i]
		rank /= g.dims[i]
	}
	return coords
}

// LinearRank is the inverse of Coords.
func (g *ProcessorGrid) LinearRank(coords []int) int {
	rank := 0
	for i, d := range g.dims {
		rank = rank*d + coords[i]
	}
	return rank
}

// Equal reports whether two grids have identical shape.
func (g *ProcessorGrid) Equal(other *ProcessorGrid) bool {
	if g == other {
		return true
	}
	if g == nil || other == nil || len(g.dims) != len(other.dims) {
		return false
	}
	for i := range g.dims {
		if g.dims[i] != other.dims[i] {
			return false
		}
	}
	return true
}
