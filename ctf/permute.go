package ctf

import (
	"context"

	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/kernel"
)

// Permute computes dst[i] <- beta*dst[i] (+) alpha*a[perm(i)] (§6): a's
// axis perm[i] supplies dst's axis i (kernel.Execute1's convention).
// Permute requires dst's Mapping to already equal a's, axes reordered by
// perm -- it is a pure per-rank local transpose, never a redistribution;
// callers needing a genuinely different Mapping redistribute first (or
// let Contract/Sum's own alignment step do it).
func (dst *Tensor[T]) Permute(ctx context.Context, beta T, a *Tensor[T], perm []int, alpha T) error {
	if err := checkPoisonedAll(dst, a); err != nil {
		return err
	}
	if dst.world != a.world {
		return errs.New(errs.InvalidInput, "ctf: Permute operands must share one World")
	}
	order := len(a.lens)
	if len(perm) != order || len(dst.lens) != order {
		return errs.New(errs.ShapeMismatch, "ctf: Permute perm length %d does not match operand order %d", len(perm), order)
	}
	if !dst.mapping.Grid.Equal(a.mapping.Grid) {
		return errs.New(errs.ShapeMismatch, "ctf: Permute operands must share one processor grid")
	}
	for i, p := range perm {
		if dst.lens[i] != a.lens[p] {
			return errs.New(errs.ShapeMismatch, "ctf: Permute dst dim %d (len %d) does not match a dim %d (len %d)", i, dst.lens[i], p, a.lens[p])
		}
		if dst.mapping.Dims[i] != a.mapping.Dims[p] {
			return errs.New(errs.ShapeMismatch, "ctf: Permute dst dim %d's Mapping does not match a dim %d permuted; dst's Mapping must already equal a's with axes reordered by perm", i, p)
		}
	}

	inner := kernel.Bind1(a.structure, perm)
	if err := inner(ctx, a.local(), a.local(), dst.local(), alpha, beta); err != nil {
		return dst.poison(err)
	}
	return nil
}
