// Package redist implements the redistribution engine (C6): moving a
// tensor's local buffers from one Mapping to another via bucketize →
// compact → exchange → install (§4.6).
//
// redist operates purely on dense global coordinates and a
// grid.Mapping; it is deliberately agnostic to symmetry packing (C3's
// concern) so the combinatorics in package symmetry aren't duplicated
// here. Tensor buffers in this module are stored densely even when a
// symmetric group is declared (see DESIGN.md), so callers pass them to
// Redistribute as they are, with no unpacking or re-packing.
package redist

import "github.com/ctfgo/ctf/grid"

// LocalSize returns the total element count of one process's local
// buffer under mapping, including every virtual block: the product over
// dimensions of LocalExtent(i)*Virt(i) (§3 invariant (b), padded local
// sizes sum to the padded global size). Tensor allocation (root package
// ctf) uses this directly rather than duplicating the formula.
func LocalSize(m *grid.Mapping, lens []int) int {
	n := 1
	for i, l := range lens {
		n *= m.LocalExtent(i, l) * m.Virt(i)
	}
	return n
}

// DestRank returns the rank owning global coordinate coord under
// mapping m. Grid dimensions m doesn't assign (replicated dimensions)
// contribute coordinate 0, i.e. the result is the representative
// process of any replication group. ExchangeKV routes each key to this
// single rank; Redistribute's general path instead delivers a copy to
// every rank of the group.
func DestRank(m *grid.Mapping, coord []int) int {
	gridCoord := make([]int, m.Grid.Rank())
	for i, assign := range m.Dims {
		if assign.GridDim == grid.Unsharded {
			continue
		}
		proc, _, _ := m.ProcOwning(i, coord[i])
		gridCoord[assign.GridDim] = proc
	}
	return m.Grid.LinearRank(gridCoord)
}

// LocalOffset returns the element offset within the owning process's
// local buffer (under mapping m) for global coordinate coord, assuming
// the block-contiguous layout convention this module uses throughout:
// virtual blocks concatenated in row-major block-coordinate order, each
// block itself stored row-major.
func LocalOffset(m *grid.Mapping, lens []int, coord []int) int {
	order := m.Order()
	blockCoord := make([]int, order)
	withinCoord := make([]int, order)
	blockExtent := make([]int, order)
	withinExtent := make([]int, order)
	for i := 0; i < order; i++ {
		_, vb, wb := m.ProcOwning(i, coord[i])
		blockCoord[i] = vb
		withinCoord[i] = wb
		blockExtent[i] = m.Virt(i)
		withinExtent[i] = m.LocalExtent(i, lens[i])
	}
	blockSize := product(withinExtent)
	return rowMajorLinear(blockCoord, blockExtent)*blockSize + rowMajorLinear(withinCoord, withinExtent)
}

// OwnedCoords enumerates every global coordinate tuple this rank holds
// locally under mapping m (in the same block-then-within row-major order
// LocalOffset assumes), calling visit once per tuple.
func OwnedCoords(m *grid.Mapping, lens []int, rank int, visit func(coord []int)) {
	order := m.Order()
	rankCoord := m.Grid.Coords(rank)

	procAlong := make([]int, order)
	phys := make([]int, order)
	virt := make([]int, order)
	within := make([]int, order)
	for i := 0; i < order; i++ {
		phys[i] = m.Phys(i)
		virt[i] = m.Virt(i)
		within[i] = m.LocalExtent(i, lens[i])
		if m.Dims[i].GridDim == grid.Unsharded {
			procAlong[i] = 0
		} else {
			procAlong[i] = rankCoord[m.Dims[i].GridDim]
		}
	}

	coord := make([]int, order)
	vb := make([]int, order)
	wb := make([]int, order)
	var walk func(dim int)
	walk = func(dim int) {
		if dim == order {
			for i := 0; i < order; i++ {
				coord[i] = procAlong[i] + phys[i]*vb[i] + phys[i]*virt[i]*wb[i]
			}
			if withinBounds(coord, lens) {
				visit(coord)
			}
			return
		}
		for vv := 0; vv < virt[dim]; vv++ {
			vb[dim] = vv
			for ww := 0; ww < within[dim]; ww++ {
				wb[dim] = ww
				walk(dim + 1)
			}
		}
	}
	walk(0)
}

func withinBounds(coord, lens []int) bool {
	for i, c := range coord {
		if c >= lens[i] {
			return false
		}
	}
	return true
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func rowMajorLinear(coord, extent []int) int {
	off := 0
	for i, c := range coord {
		off = off*extent[i] + c
	}
	return off
}

// GlobalCoord decodes a column-major global index (§6: g = i0 + i1*L0 +
// i2*L0*L1 + ...) into per-dimension coordinates.
func GlobalCoord(g int64, lens []int) []int {
	coord := make([]int, len(lens))
	for i, l := range lens {
		coord[i] = int(g % int64(l))
		g /= int64(l)
	}
	return coord
}

// GlobalIndex is GlobalCoord's inverse.
func GlobalIndex(coord, lens []int) int64 {
	var g int64
	mul := int64(1)
	for i, c := range coord {
		g += int64(c) * mul
		mul *= int64(lens[i])
	}
	return g
}
