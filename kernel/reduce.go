package kernel

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/internal/workerpool"
)

// ExecuteSum computes c[i] <- beta*c[i] (+) alpha*reduce_over_contracted(a[...])
// for the unary path (§4.2, "for the unary case ... the (x) term is
// absent" but reduce_over_contracted still applies): reduceAxes names a's
// axes that don't appear in c, summed away via s.Add; perm maps each of
// c's remaining axes to the a axis supplying it, among a's axes not in
// reduceAxes.
func ExecuteSum[T any](ctx context.Context, s *algebra.Structure[T], a, c Local[T], reduceAxes, perm []int, alpha, beta T, pool *workerpool.Pool) error {
	if len(perm) != len(c.Dims) {
		return errs.New(errs.ShapeMismatch, "kernel: ExecuteSum perm length %d does not match output order %d", len(perm), len(c.Dims))
	}
	if hasZeroExtent(c.Dims) {
		return scaleInPlace(s, c, beta)
	}
	if hasZeroExtent(a.Dims) {
		// a contributes nothing; c still gets beta*c applied.
		return scaleInPlace(s, c, beta)
	}

	reduceDims := axisLens(a.Dims, reduceAxes)
	reduceTotal := product(reduceDims)
	totalC := c.size()

	run := func(start, end int) error {
		cIdx := make([]int, len(c.Dims))
		aIdx := make([]int, len(a.Dims))
		for linear := start; linear < end; linear++ {
			rem := linear
			for i := len(c.Dims) - 1; i >= 0; i-- {
				cIdx[i] = rem % c.Dims[i]
				rem /= c.Dims[i]
			}
			for i, p := range perm {
				aIdx[p] = cIdx[i]
			}

			acc := s.Identity()
			for k := 0; k < reduceTotal; k++ {
				kCoord := unflatten(k, reduceDims)
				for i, d := range reduceAxes {
					aIdx[d] = kCoord[i]
				}
				acc = s.Add(acc, a.Data[a.offset(aIdx)])
			}

			cOff := c.offset(cIdx)
			c.Data[cOff] = s.Add(s.Mul(beta, c.Data[cOff]), s.Mul(alpha, acc))
		}
		return nil
	}
	return pool.Run(ctx, totalC, run)
}
