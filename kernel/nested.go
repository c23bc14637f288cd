package kernel

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/internal/workerpool"
)

// nestedLoop is the fallback dense contraction kernel: a plain loop nest
// (no blocking or tiling) over batch, a-free, b-free and contracted axes,
// following the loop order of the BLAS-style dgemm kernels in the pack's
// other_examples (gonum's goblas/dgemm.go.go).
//
// The linear range of the batch axes is the unit of work handed to the
// optional worker pool; with no batch axes the whole contraction runs as
// a single chunk.
func nestedLoop[T any](ctx context.Context, s *algebra.Structure[T], a, b, c Local[T], spec ContractionSpec, alpha, beta T, pool *workerpool.Pool) error {
	aFree := spec.aFree(len(a.Dims))
	bFree := spec.bFree(len(b.Dims))

	batchDims := axisLens(a.Dims, spec.ABatch)
	aFreeDims := axisLens(a.Dims, aFree)
	bFreeDims := axisLens(b.Dims, bFree)
	contractDims := axisLens(a.Dims, spec.AContracting)

	totalBatch := product(batchDims)

	run := func(start, end int) error {
		aIdx := make([]int, len(a.Dims))
		bIdx := make([]int, len(b.Dims))
		cIdx := make([]int, len(c.Dims))
		for batchLinear := start; batchLinear < end; batchLinear++ {
			batchCoord := unflatten(batchLinear, batchDims)
			for i, d := range spec.ABatch {
				aIdx[d] = batchCoord[i]
			}
			for i, d := range spec.BBatch {
				bIdx[d] = batchCoord[i]
			}
			for i := range batchCoord {
				cIdx[i] = batchCoord[i]
			}

			aFreeTotal := product(aFreeDims)
			for aFreeLinear := 0; aFreeLinear < aFreeTotal; aFreeLinear++ {
				aFreeCoord := unflatten(aFreeLinear, aFreeDims)
				for i, d := range aFree {
					aIdx[d] = aFreeCoord[i]
				}
				for i := range aFreeCoord {
					cIdx[len(batchCoord)+i] = aFreeCoord[i]
				}

				bFreeTotal := product(bFreeDims)
				for bFreeLinear := 0; bFreeLinear < bFreeTotal; bFreeLinear++ {
					bFreeCoord := unflatten(bFreeLinear, bFreeDims)
					for i, d := range bFree {
						bIdx[d] = bFreeCoord[i]
					}
					for i := range bFreeCoord {
						cIdx[len(batchCoord)+len(aFreeCoord)+i] = bFreeCoord[i]
					}

					acc := s.Identity()
					contractTotal := product(contractDims)
					for k := 0; k < contractTotal; k++ {
						kCoord := unflatten(k, contractDims)
						for i, d := range spec.AContracting {
							aIdx[d] = kCoord[i]
						}
						for i, d := range spec.BContracting {
							bIdx[d] = kCoord[i]
						}
						av := a.Data[a.offset(aIdx)]
						bv := b.Data[b.offset(bIdx)]
						acc = s.Add(acc, s.Mul(av, bv))
					}

					cOff := c.offset(cIdx)
					c.Data[cOff] = s.Add(s.Mul(beta, c.Data[cOff]), s.Mul(alpha, acc))
				}
			}
		}
		return nil
	}

	return pool.Run(ctx, totalBatch, run)
}

func axisLens(dims []int, axes []int) []int {
	lens := make([]int, len(axes))
	for i, a := range axes {
		lens[i] = dims[a]
	}
	return lens
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func unflatten(linear int, dims []int) []int {
	coord := make([]int, len(dims))
	for i := len(dims) - 1; i >= 0; i-- {
		coord[i] = linear % dims[i]
		linear /= dims[i]
	}
	return coord
}
