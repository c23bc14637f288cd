package kernel

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/internal/workerpool"
)

// Execute computes c[i] <- beta*c[i] (+) alpha * reduce_over_contracted(a[...] (x) b[...])
// per §4.2. If s is a monoid (no Mul), spec.AContracting/BContracting
// must be empty: a monoid has no contraction, only sum (callers should
// use Execute1 for that case instead).
//
// pool, if non-nil, is used by the nested-loop fallback, which splits
// the range of the batch axes across it; the GEMM fast path and a
// contraction with no batch axes run as one chunk. The reducer tree
// above is oblivious to whether this happens (§5).
func Execute[T any](ctx context.Context, s *algebra.Structure[T], a, b, c Local[T], spec ContractionSpec, alpha, beta T, pool *workerpool.Pool) error {
	if err := spec.validate(a.Dims, b.Dims, c.Dims); err != nil {
		return err
	}

	if hasZeroExtent(a.Dims, b.Dims, c.Dims) {
		return scaleInPlace(s, c, beta)
	}

	if ok, err := tryGemm(s, a, b, c, spec, alpha, beta); ok || err != nil {
		return err
	}
	return nestedLoop(ctx, s, a, b, c, spec, alpha, beta, pool)
}

// Execute1 computes c[i] <- beta*c[i] (+) alpha*a[perm(i)] for the unary
// permutation path used by Permute through Bind1 (§4.2's "for the unary
// case ... the (x) term is absent"; Sum uses ExecuteSum). perm maps c's axis order to a's: a's axis perm[i] supplies
// c's axis i. A nil perm means identity (same axis order).
func Execute1[T any](s *algebra.Structure[T], a, c Local[T], perm []int, alpha, beta T) error {
	if perm == nil {
		perm = identityPerm(len(c.Dims))
	}
	if len(perm) != len(c.Dims) {
		return errs.New(errs.ShapeMismatch, "kernel: Execute1 perm length %d does not match output order %d", len(perm), len(c.Dims))
	}
	if hasZeroExtent(a.Dims, c.Dims) {
		return scaleInPlace(s, c, beta)
	}

	idx := make([]int, len(c.Dims))
	aIdx := make([]int, len(a.Dims))
	var walk func(dim int)
	walk = func(dim int) {
		if dim == len(c.Dims) {
			for i, p := range perm {
				aIdx[p] = idx[i]
			}
			cOff := c.offset(idx)
			aOff := a.offset(aIdx)
			c.Data[cOff] = s.Add(s.Mul(beta, c.Data[cOff]), s.Mul(alpha, a.Data[aOff]))
			return
		}
		for v := 0; v < c.Dims[dim]; v++ {
			idx[dim] = v
			walk(dim + 1)
		}
	}
	walk(0)
	return nil
}

func identityPerm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

func scaleInPlace[T any](s *algebra.Structure[T], c Local[T], beta T) error {
	for i := range c.Data {
		c.Data[i] = s.Mul(beta, c.Data[i])
	}
	return nil
}
