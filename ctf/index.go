package ctf

import (
	"strings"

	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/kernel"
	"github.com/ctfgo/ctf/plan"
)

// buildContractionSpec derives a kernel.ContractionSpec from three index
// maps (§6): a letter shared by A and B but absent from C is a
// contracting axis, shared by all three is a batch axis, present in only
// one operand is free. A's and B's free axes (not spelled out here) are
// what kernel.ContractionSpec.validate's complement already computes.
func buildContractionSpec(idxA, idxB, idxC string) (kernel.ContractionSpec, error) {
	var spec kernel.ContractionSpec
	for ai := 0; ai < len(idxA); ai++ {
		l := idxA[ai]
		bi := strings.IndexByte(idxB, l)
		ci := strings.IndexByte(idxC, l)
		switch {
		case bi >= 0 && ci >= 0:
			spec.ABatch = append(spec.ABatch, ai)
			spec.BBatch = append(spec.BBatch, bi)
		case bi >= 0 && ci < 0:
			spec.AContracting = append(spec.AContracting, ai)
			spec.BContracting = append(spec.BContracting, bi)
		case bi < 0 && ci < 0:
			return spec, errs.New(errs.ShapeMismatch, "ctf: index %q of A does not appear in B or C", string(l))
		}
	}
	for bi := 0; bi < len(idxB); bi++ {
		l := idxB[bi]
		ai := strings.IndexByte(idxA, l)
		ci := strings.IndexByte(idxC, l)
		if ai < 0 && ci < 0 {
			return spec, errs.New(errs.ShapeMismatch, "ctf: index %q of B does not appear in A or C", string(l))
		}
	}
	return spec, nil
}

func axesComplement(order int, groups ...[]int) []int {
	excluded := make(map[int]bool)
	for _, g := range groups {
		for _, v := range g {
			excluded[v] = true
		}
	}
	var out []int
	for i := 0; i < order; i++ {
		if !excluded[i] {
			out = append(out, i)
		}
	}
	return out
}

// canonicalContractOutput is the output index-map order the local kernel
// always produces (kernel/nested.go, kernel/local.go's doc): batch axes
// (A's order), then A's free axes (A's order), then B's free axes (B's
// order). Contract rejects an idxC that doesn't already match it, rather
// than silently permuting -- callers needing a different output order
// compose with Permute.
func canonicalContractOutput(idxA, idxB string, spec kernel.ContractionSpec) string {
	var out []byte
	for _, d := range spec.ABatch {
		out = append(out, idxA[d])
	}
	for _, d := range axesComplement(len(idxA), spec.AContracting, spec.ABatch) {
		out = append(out, idxA[d])
	}
	for _, d := range axesComplement(len(idxB), spec.BContracting, spec.BBatch) {
		out = append(out, idxB[d])
	}
	return string(out)
}

// buildSumSpec derives the reduced axes and axis permutation Sum's unary
// kernel path needs (§4.2): a letter of A absent from C is summed away,
// a letter present in both is a free axis, permuted into whatever order
// idxC names it in (Sum, unlike Contract, doesn't fix a canonical output
// order -- it IS the permute-while-reducing primitive).
func buildSumSpec(idxA, idxC string) (reduceAxes, perm []int, err error) {
	freeAxis := map[byte]int{}
	var freeCount int
	for ai := 0; ai < len(idxA); ai++ {
		l := idxA[ai]
		if strings.IndexByte(idxC, l) < 0 {
			reduceAxes = append(reduceAxes, ai)
		} else {
			freeAxis[l] = ai
			freeCount++
		}
	}
	if freeCount != len(idxC) {
		return nil, nil, errs.New(errs.ShapeMismatch, "ctf: Sum output has %d indices but A supplies %d free axes", len(idxC), freeCount)
	}
	perm = make([]int, len(idxC))
	for ci := 0; ci < len(idxC); ci++ {
		l := idxC[ci]
		ai, ok := freeAxis[l]
		if !ok {
			return nil, nil, errs.New(errs.ShapeMismatch, "ctf: Sum output index %q does not appear in A", string(l))
		}
		perm[ci] = ai
	}
	return reduceAxes, perm, nil
}

// dedupeIndexMap drops every non-first axis of each diagonal group from
// idx, leaving one letter per group (§4.7 step 1's diagonal projection):
// the index map the local kernel is built against and invoked with never
// sees a repeated letter.
func dedupeIndexMap(idx string, groups []plan.DiagonalGroup) string {
	if len(groups) == 0 {
		return idx
	}
	drop := make(map[int]bool)
	for _, g := range groups {
		for _, a := range g.Axes[1:] {
			drop[a] = true
		}
	}
	out := make([]byte, 0, len(idx))
	for i := 0; i < len(idx); i++ {
		if !drop[i] {
			out = append(out, idx[i])
		}
	}
	return string(out)
}

// projectDiagonal collapses every diagonal group in l down to its first
// axis, summing that axis's stride with every other axis sharing the
// letter: a row-major buffer addressed through the resulting Local has
// element i of the merged axis land on the same offset the original
// (un-projected) buffer's diagonal cell i,i,... did, so this is a
// zero-copy reinterpretation of the same Data (§3's "project to
// diagonal before contraction").
func projectDiagonal[T any](groups []plan.DiagonalGroup, l kernel.Local[T]) kernel.Local[T] {
	if len(groups) == 0 {
		return l
	}
	drop := make(map[int]bool)
	extra := make(map[int]int)
	for _, g := range groups {
		first := g.Axes[0]
		for _, a := range g.Axes[1:] {
			drop[a] = true
			extra[first] += l.Strides[a]
		}
	}
	dims := make([]int, 0, len(l.Dims))
	strides := make([]int, 0, len(l.Strides))
	for i := range l.Dims {
		if drop[i] {
			continue
		}
		dims = append(dims, l.Dims[i])
		strides = append(strides, l.Strides[i]+extra[i])
	}
	return kernel.Local[T]{Data: l.Data, Dims: dims, Strides: strides}
}
