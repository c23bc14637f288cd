// Package kernel implements the local kernel (C2): the dense/packed
// sum-and-contraction primitive the rest of the core eventually bottoms
// out in.
//
// The contraction axis bookkeeping (contracting/batch axes paired
// between operands, free axes concatenated into the output) is grounded
// directly on gomlx-stablehlo's DotGeneral: lhsContractingAxes/
// rhsContractingAxes/lhsBatchAxes/rhsBatchAxes there play exactly the
// role ContractionSpec plays here, the output axis order (batch, then
// lhs-free, then rhs-free) is the same convention DotGeneral documents.
// The GEMM fast path and nested-loop fallback are grounded on
// go-highway's hwy/contrib/matmul blocked loop shape and on the BLAS
// dgemm loop order visible in the pack's other_examples gonum files.
package kernel

import "github.com/ctfgo/ctf/internal/errs"

// Local is one process's contiguous local buffer for one operand, in
// row-major storage order.
type Local[T any] struct {
	Data    []T
	Dims    []int
	Strides []int // element strides, row-major if nil is interpreted at NewLocal time
}

// NewLocal builds a row-major Local buffer of the given dims, allocating
// Data if none is supplied.
func NewLocal[T any](dims []int, data []T) Local[T] {
	strides := rowMajorStrides(dims)
	size := 1
	for _, d := range dims {
		size *= d
	}
	if data == nil {
		data = make([]T, size)
	}
	return Local[T]{Data: data, Dims: append([]int(nil), dims...), Strides: strides}
}

func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	acc := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= dims[i]
	}
	return strides
}

func (l Local[T]) size() int {
	n := 1
	for _, d := range l.Dims {
		n *= d
	}
	return n
}

func (l Local[T]) offset(idx []int) int {
	off := 0
	for i, v := range idx {
		off += v * l.Strides[i]
	}
	return off
}

// ContractionSpec describes how a and b's axes align for a binary
// contraction, and implicitly c's axis order: batch axes (in the order
// given), then a's remaining (free) axes, then b's remaining (free)
// axes -- the same convention as DotGeneral's output.
type ContractionSpec struct {
	AContracting, BContracting []int // paired: AContracting[i] contracts with BContracting[i]
	ABatch, BBatch             []int // paired batch axes
}

func (s ContractionSpec) aFree(order int) []int {
	return complement(order, s.AContracting, s.ABatch)
}

func (s ContractionSpec) bFree(order int) []int {
	return complement(order, s.BContracting, s.BBatch)
}

func complement(order int, groups ...[]int) []int {
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

func (s ContractionSpec) validate(a, b, c []int) error {
	if len(s.AContracting) != len(s.BContracting) {
		return errs.New(errs.ShapeMismatch, "kernel: contracting axis count mismatch: %d vs %d",
			len(s.AContracting), len(s.BContracting))
	}
	if len(s.ABatch) != len(s.BBatch) {
		return errs.New(errs.ShapeMismatch, "kernel: batch axis count mismatch: %d vs %d",
			len(s.ABatch), len(s.BBatch))
	}
	for i := range s.AContracting {
		if a[s.AContracting[i]] != b[s.BContracting[i]] {
			return errs.New(errs.ShapeMismatch, "kernel: contracting axis %d/%d length mismatch: %d vs %d",
				s.AContracting[i], s.BContracting[i], a[s.AContracting[i]], b[s.BContracting[i]])
		}
	}
	for i := range s.ABatch {
		if a[s.ABatch[i]] != b[s.BBatch[i]] {
			return errs.New(errs.ShapeMismatch, "kernel: batch axis %d/%d length mismatch: %d vs %d",
				s.ABatch[i], s.BBatch[i], a[s.ABatch[i]], b[s.BBatch[i]])
		}
	}
	wantC := len(s.ABatch) + len(s.aFree(len(a))) + len(s.bFree(len(b)))
	if len(c) != wantC {
		return errs.New(errs.ShapeMismatch, "kernel: output order %d does not match expected %d", len(c), wantC)
	}
	return nil
}

// hasZeroExtent reports whether any dimension in dims is zero: the
// zero-edge-length guard from §4.2.
func hasZeroExtent(dims ...[]int) bool {
	for _, d := range dims {
		for _, v := range d {
			if v == 0 {
				return true
			}
		}
	}
	return false
}
