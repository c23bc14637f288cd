package kernel

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/internal/workerpool"
)

// Func is the shape the reducer tree (C4/C5) and the symmetry iterator
// (C3) present to each other and to the local kernel: a binary
// contraction/sum primitive over one already-sliced local block.
type Func[T any] func(ctx context.Context, a, b, c Local[T], alpha, beta T) error

// Bind closes Execute over a fixed structure, index map and worker pool,
// producing the Func the layers above dispatch through without needing
// to know kernel's internal signature.
func Bind[T any](s *algebra.Structure[T], spec ContractionSpec, pool *workerpool.Pool) Func[T] {
	return func(ctx context.Context, a, b, c Local[T], alpha, beta T) error {
		return Execute(ctx, s, a, b, c, spec, alpha, beta, pool)
	}
}

// Bind1 closes Execute1 over a fixed structure and axis permutation for
// the pure-permutation path (Permute); b is ignored (kept so the result
// has the same Func signature as the reducer tree, which doesn't
// distinguish unary from binary at the Virtualize/Replicate layers).
func Bind1[T any](s *algebra.Structure[T], perm []int) Func[T] {
	return func(ctx context.Context, a, b, c Local[T], alpha, beta T) error {
		return Execute1(s, a, c, perm, alpha, beta)
	}
}

// BindSum closes ExecuteSum over a fixed structure, reduced axes and
// permutation for the unary Sum path (§4.2's "reduce_over_contracted"
// applies even with the ⊗ term absent); b is ignored, same reason as
// Bind1.
func BindSum[T any](s *algebra.Structure[T], pool *workerpool.Pool, reduceAxes, perm []int) Func[T] {
	return func(ctx context.Context, a, b, c Local[T], alpha, beta T) error {
		return ExecuteSum(ctx, s, a, c, reduceAxes, perm, alpha, beta, pool)
	}
}
