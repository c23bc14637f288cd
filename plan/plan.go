package plan

import (
	"sort"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/comm"
	"github.com/ctfgo/ctf/grid"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/kernel"
	"github.com/ctfgo/ctf/reducer"
	"github.com/ctfgo/ctf/symmetry"
)

// Operation names the compute operations the planner builds a reducer
// tree for. Data-movement-only operations (Slice, Permute, Write, Read,
// Reduce, §6) don't need a Replicate/Virtualize tree and are handled
// directly by the root package against redist/comm, not through Plan.
type Operation int

const (
	OpContract Operation = iota
	OpSum
	OpScale
)

// OperandRef is the planner's view of one operand: the information it
// needs that would otherwise require importing the root ctf package's
// Tensor type (which itself needs to import plan, so OperandRef is the
// narrow struct that breaks that cycle — callers build one from their
// Tensor before calling Plan).
type OperandRef struct {
	Lens     []int
	Tags     []symmetry.Tag
	Mapping  *grid.Mapping
	IndexMap string // one byte per dimension (§6)
}

// DiagonalGroup records a repeated index-map letter within one operand:
// the dimensions sharing it must have equal edge length, and the kernel
// sees a projected (non-repeating) view (§4.7 step 1). This module
// detects and validates diagonals at Plan time (so the error-before-
// data-movement invariant, §7, holds); the caller projects the actual
// Local view (collapsing Axes down to Axes[0], summing strides) since it
// owns the Tensor whose buffer needs reshaping.
type DiagonalGroup struct {
	Letter byte
	Axes   []int
}

// Plan is the planner's output: the decisions from the five-step order
// (§4.7) plus the reducer tree's top-level entry point.
type Plan[T any] struct {
	Op        Operation
	Structure *algebra.Structure[T]
	Machine   *Machine

	Diagonals      [][]DiagonalGroup // one slice per operand, A/B/C in order
	Broken         []symmetry.BrokenGroup
	Redistribution []OperandRedistribution

	Top kernel.Func[T]
}

// OperandRedistribution is one emitted redistribution (§4.7 step 5):
// operand index 0=A, 1=B, 2=C, and the mapping it must move to before
// execution.
type OperandRedistribution struct {
	Operand int
	Target  *grid.Mapping
}

// Plan runs the five-step decision order for a Contract/Sum/Scale
// operation and returns a Plan holding the execution tree and state
// machine. operands is (A, B, C) for Contract, (A, C) for Sum, (C,) for
// Scale.
func Plan[T any](c comm.Comm, op Operation, structure *algebra.Structure[T], inner kernel.Func[T], operands ...*OperandRef) (*Plan[T], error) {
	for i, o := range operands {
		if len(o.IndexMap) != len(o.Lens) {
			return nil, errs.New(errs.ShapeMismatch, "plan: operand %d index map length %d does not match order %d", i, len(o.IndexMap), len(o.Lens))
		}
	}

	diagonals := make([][]DiagonalGroup, len(operands))
	for i, o := range operands {
		groups, err := DiagonalGroups(o)
		if err != nil {
			return nil, err
		}
		diagonals[i] = groups
	}

	if err := checkSharedLetters(operands); err != nil {
		return nil, err
	}

	var broken []symmetry.BrokenGroup
	if op == OpContract && len(operands) == 3 {
		broken = brokenGroups(operands[0], operands[1], operands[2])
	}

	var redists []OperandRedistribution
	aligned := make([]*grid.Mapping, len(operands))
	for i, o := range operands {
		target := alignedMapping(operands, i)
		aligned[i] = target
		if !o.Mapping.Equal(target) {
			redists = append(redists, OperandRedistribution{Operand: i, Target: target})
		}
	}

	// §4.7's reducer tree nests innermost-first as Symmetry(LocalKernel),
	// then Virtualize(...), then Replicate(...): the symmetry layer must
	// sit directly against the dense kernel since it encodes the AS/SH
	// axis permutation in the view's Strides, and Virtualize rebuilds
	// row-major views from Data without preserving an incoming operand's
	// Strides.
	top := inner
	if len(broken) > 0 {
		groups := symmetry.Groups{}
		if len(operands) > 0 {
			groups.A = symmetry.BuildGroups(operands[0].Tags)
		}
		if len(operands) > 1 {
			groups.B = symmetry.BuildGroups(operands[1].Tags)
		}
		if len(operands) > 2 {
			groups.C = symmetry.BuildGroups(operands[2].Tags)
		}
		top = symmetry.Wrap(structure, groups, broken, top)
	}
	if op == OpContract && len(operands) == 3 {
		if v := buildVirtualize(structure, operands[0], operands[1], operands[2], aligned[0], aligned[1], aligned[2], top); v != nil {
			top = v.AsFunc()
		}
	}

	cdtA, cdtB := replicationChoice(c, operands)
	if len(cdtA) > 1 || len(cdtB) > 1 {
		rep := &reducer.Replicate[T]{S: structure, World: c, CdtA: cdtA, CdtB: cdtB, Inner: top}
		top = rep.AsFunc()
	}

	return &Plan[T]{
		Op:             op,
		Structure:      structure,
		Machine:        NewMachine(),
		Diagonals:      diagonals,
		Broken:         broken,
		Redistribution: redists,
		Top:            top,
	}, nil
}

// DiagonalGroups finds every index-map letter repeated within one
// operand and validates that the dimensions sharing it agree in edge
// length (§4.7 step 1, §7 "errors occur before any data movement").
// Exported so callers can dedupe an operand's index map and project its
// local buffer down to the repeated letters' shared axis before the
// local kernel ever sees it (diagonal projection, §3's "require the
// engine to project to diagonal before contraction").
func DiagonalGroups(o *OperandRef) ([]DiagonalGroup, error) {
	positions := map[byte][]int{}
	for i := 0; i < len(o.IndexMap); i++ {
		l := o.IndexMap[i]
		positions[l] = append(positions[l], i)
	}
	var groups []DiagonalGroup
	letters := make([]byte, 0, len(positions))
	for l := range positions {
		letters = append(letters, l)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	for _, l := range letters {
		axes := positions[l]
		if len(axes) < 2 {
			continue
		}
		n := o.Lens[axes[0]]
		for _, a := range axes[1:] {
			if o.Lens[a] != n {
				return nil, errs.New(errs.ShapeMismatch, "plan: diagonal letter %q requires equal edge lengths, dim %d has %d, dim %d has %d",
					string(l), axes[0], n, a, o.Lens[a])
			}
		}
		groups = append(groups, DiagonalGroup{Letter: l, Axes: axes})
	}
	return groups, nil
}

// checkSharedLetters verifies that a letter shared across operands
// names equal-length dimensions everywhere it appears (§6).
func checkSharedLetters(operands []*OperandRef) error {
	lens := map[byte]int{}
	for oi, o := range operands {
		for i := 0; i < len(o.IndexMap); i++ {
			l := o.IndexMap[i]
			if want, ok := lens[l]; ok {
				if o.Lens[i] != want {
					return errs.New(errs.ShapeMismatch, "plan: index letter %q has length %d in operand %d, expected %d", string(l), o.Lens[i], oi, want)
				}
			} else {
				lens[l] = o.Lens[i]
			}
		}
	}
	return nil
}

// brokenGroups identifies, for a Contract's A and B operands, every
// symmetric group not shared verbatim by C (§4.7 step 2): a group whose
// letters don't all appear, in the same relative tag, among C's own
// groups needs the redundant-computation expansion instead of a direct
// packed-storage pass.
func brokenGroups(a, b, c *OperandRef) []symmetry.BrokenGroup {
	cLetters := map[byte]bool{}
	for i := 0; i < len(c.IndexMap); i++ {
		cLetters[c.IndexMap[i]] = true
	}
	var broken []symmetry.BrokenGroup
	check := func(operand symmetry.Operand, o *OperandRef) {
		groups := symmetry.BuildGroups(o.Tags)
		for _, g := range groups {
			if g.Tag == symmetry.NS {
				continue
			}
			sharedWithC := true
			for d := g.First; d < g.First+g.Size; d++ {
				if !cLetters[o.IndexMap[d]] {
					sharedWithC = false
					break
				}
			}
			if !sharedWithC {
				broken = append(broken, symmetry.BrokenGroup{Operand: operand, Group: g})
			}
		}
	}
	check(symmetry.OperandA, a)
	check(symmetry.OperandB, b)
	return broken
}

// alignedMapping computes the mapping operand i must have before
// execution: each letter takes the grid dimension the first operand (in
// operand order) carrying it uses for it, unless an earlier letter has
// already claimed that grid dimension, in which case the letter is left
// unsharded (§4.7 step 5; deterministic so replay is reproducible, §5).
// Operands already agreeing keep their own mapping (no redistribution
// emitted).
func alignedMapping(operands []*OperandRef, i int) *grid.Mapping {
	self := operands[i]
	letterGridDim := map[byte]int{}
	claimed := map[int]bool{}
	for _, o := range operands {
		for d := 0; d < len(o.IndexMap); d++ {
			if _, ok := letterGridDim[o.IndexMap[d]]; !ok {
				gd := o.Mapping.Dims[d].GridDim
				if gd != grid.Unsharded && claimed[gd] {
					gd = grid.Unsharded
				}
				claimed[gd] = true
				letterGridDim[o.IndexMap[d]] = gd
			}
		}
	}
	dims := make([]grid.DimAssign, len(self.IndexMap))
	for d := range dims {
		dims[d] = grid.DimAssign{GridDim: letterGridDim[self.IndexMap[d]], Virt: self.Mapping.Dims[d].Virt}
	}
	aligned, err := grid.New(self.Mapping.Grid, dims)
	if err != nil {
		// grid.New can still reject the target (an operand repeating a
		// letter on two sharded axes names one grid dimension twice);
		// the operand then keeps its current mapping.
		return self.Mapping
	}
	return aligned
}

// replicationChoice runs the replication cost model (§4.7 step 3): a
// pure function of mapping shapes, so replay is deterministic. This
// module's cost model is deliberately simple -- replicate along a grid
// dimension no operand's mapping uses (an otherwise-idle dimension)
// whenever one exists, since broadcasting+all-reducing across idle
// processes is strictly cheaper than leaving them unused. CdtA and CdtB
// are returned as the same member list, along the first idle grid
// dimension found (the 2.5D "replicate along the third dimension"
// case); no idle dimension means no replication (both nil).
func replicationChoice(c comm.Comm, operands []*OperandRef) (cdtA, cdtB []int) {
	if len(operands) == 0 {
		return nil, nil
	}
	g := operands[0].Mapping.Grid
	used := make([]bool, g.Rank())
	for _, o := range operands {
		for _, d := range o.Mapping.Dims {
			if d.GridDim != grid.Unsharded {
				used[d.GridDim] = true
			}
		}
	}
	idle := -1
	for d, u := range used {
		if !u {
			idle = d
			break
		}
	}
	if idle < 0 {
		return nil, nil
	}
	if g.Dim(idle) <= 1 {
		return nil, nil
	}
	coord := g.Coords(c.Rank())
	members := make([]int, g.Dim(idle))
	for i := range members {
		coord[idle] = i
		members[i] = g.LinearRank(coord)
	}
	return members, members
}

// buildVirtualize builds the virtualization reducer (C4) over the union
// of A's and B's virtualized letters (§4.4). Operand buffers are
// assumed laid out in this module's block-contiguous convention: every
// axis's virtual blocks concatenated in row-major block-coordinate
// order, each block itself stored row-major (the same convention
// package redist's LocalOffset uses). Returns nil when no operand
// virtualizes anything (Virtualize would be a no-op single-iteration
// pass-through).
func buildVirtualize[T any](s *algebra.Structure[T], a, b, c *OperandRef, ma, mb, mc *grid.Mapping, inner kernel.Func[T]) *reducer.Virtualize[T] {
	letters := unionLetters(a.IndexMap, b.IndexMap)

	anyVirt := false
	var lets []reducer.Letter
	for _, l := range letters {
		ai, aok := indexOf(a.IndexMap, l)
		bi, bok := indexOf(b.IndexMap, l)
		ci, cok := indexOf(c.IndexMap, l)

		extent, aStride, bStride, cStride := 1, 0, 0, 0
		if aok {
			extent = ma.Virt(ai)
			aStride = blockStride(ma, a.Lens, ai)
		}
		if bok {
			if ev := mb.Virt(bi); ev > extent {
				extent = ev
			}
			bStride = blockStride(mb, b.Lens, bi)
		}
		if cok {
			cStride = blockStride(mc, c.Lens, ci)
		}
		if extent > 1 {
			anyVirt = true
		}
		lets = append(lets, reducer.Letter{Extent: extent, AStride: aStride, BStride: bStride, CStride: cStride, InC: cok})
	}
	if !anyVirt {
		return nil
	}

	return &reducer.Virtualize[T]{
		S:          s,
		Letters:    lets,
		ABlockDims: blockDims(ma, a.Lens),
		BBlockDims: blockDims(mb, b.Lens),
		CBlockDims: blockDims(mc, c.Lens),
		Inner:      inner,
	}
}

func unionLetters(a, b string) []byte {
	seen := map[byte]bool{}
	var out []byte
	for i := 0; i < len(a); i++ {
		if !seen[a[i]] {
			seen[a[i]] = true
			out = append(out, a[i])
		}
	}
	for i := 0; i < len(b); i++ {
		if !seen[b[i]] {
			seen[b[i]] = true
			out = append(out, b[i])
		}
	}
	return out
}

func indexOf(s string, l byte) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == l {
			return i, true
		}
	}
	return 0, false
}

func blockDims(m *grid.Mapping, lens []int) []int {
	dims := make([]int, len(lens))
	for i, l := range lens {
		dims[i] = m.LocalExtent(i, l)
	}
	return dims
}

// blockStride returns the element stride that incrementing axis d's
// virtual-block coordinate by 1 adds to the flat local-buffer offset,
// under this module's block-major/within-block-minor layout: the
// within-block volume times the row-major stride of d among the
// operand's own block-coordinate tuple.
func blockStride(m *grid.Mapping, lens []int, d int) int {
	within := 1
	for i, l := range lens {
		within *= m.LocalExtent(i, l)
	}
	stride := 1
	for i := d + 1; i < len(lens); i++ {
		stride *= m.Virt(i)
	}
	return within * stride
}
