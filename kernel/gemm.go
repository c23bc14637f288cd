package kernel

import (
	"github.com/ctfgo/ctf/algebra"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// tryGemm dispatches to gonum's BLAS3 Dgemm/Sgemm when the contraction
// pattern reduces to a plain matrix product over a ring: no batch axes,
// exactly one contracting axis, exactly one free axis per operand, and T
// one of float32/float64 (§4.2: "may dispatch to an optimized
// matrix-multiply routine when the pattern reduces to GEMM over a
// ring"). Every operand must also be stored row-major with a unit inner
// stride; a view whose axes were reordered through Strides (for example
// by the symmetry layer's permuted operand views) does not qualify. It
// reports ok=false (not an error) whenever the pattern doesn't qualify,
// so the caller falls back to nestedLoop; batched and higher-rank
// contractions always take that fallback.
func tryGemm[T any](s *algebra.Structure[T], a, b, c Local[T], spec ContractionSpec, alpha, beta T) (ok bool, err error) {
	if !s.IsSemiring() {
		return false, nil
	}
	if len(spec.ABatch) != 0 || len(spec.AContracting) != 1 {
		return false, nil
	}
	if len(a.Dims) != 2 || len(b.Dims) != 2 || len(c.Dims) != 2 {
		return false, nil
	}
	aFree := spec.aFree(2)
	bFree := spec.bFree(2)
	if len(aFree) != 1 || len(bFree) != 1 {
		return false, nil
	}
	for _, l := range []Local[T]{a, b, c} {
		if l.Strides[1] != 1 || l.Strides[0] < l.Dims[1] {
			return false, nil
		}
	}

	aContract := spec.AContracting[0]
	bContract := spec.BContracting[0]
	m := a.Dims[aFree[0]]
	k := a.Dims[aContract]
	n := b.Dims[bFree[0]]

	tA := blas.NoTrans
	if aFree[0] != 0 {
		tA = blas.Trans
	}
	tB := blas.NoTrans
	if bFree[0] != 1 {
		tB = blas.Trans
	}
	lda := a.Strides[0]
	ldb := b.Strides[0]
	ldc := c.Strides[0]

	switch any(a.Data).(type) {
	case []float64:
		af, aok := any(alpha).(float64)
		bf, bok := any(beta).(float64)
		if !aok || !bok {
			return false, nil
		}
		blas64.Implementation().Dgemm(tA, tB, m, n, k, af,
			any(a.Data).([]float64), lda,
			any(b.Data).([]float64), ldb,
			bf, any(c.Data).([]float64), ldc)
		return true, nil
	case []float32:
		af, aok := any(alpha).(float32)
		bf, bok := any(beta).(float32)
		if !aok || !bok {
			return false, nil
		}
		blas32.Implementation().Sgemm(tA, tB, m, n, k, af,
			any(a.Data).([]float32), lda,
			any(b.Data).([]float32), ldb,
			bf, any(c.Data).([]float32), ldc)
		return true, nil
	default:
		return false, nil
	}
}
