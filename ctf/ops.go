package ctf

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/kernel"
	"github.com/ctfgo/ctf/plan"
)

// Contract computes c["idxC"] <- beta*c["idxC"] (+) alpha*sum_over_contracted(a["idxA"] (x) b["idxB"])
// (§6): a letter shared by A and B but absent from C is contracted away, a
// letter shared by all three is a batch dimension, a letter private to one
// operand is free. idxC must already be in the canonical order the local
// kernel produces -- batch, then A's free axes, then B's free axes, both
// in the operand's own order (kernel/nested.go) -- Contract rejects any
// other order rather than silently permuting; compose with Permute for a
// different output order.
func (c *Tensor[T]) Contract(ctx context.Context, alpha T, a *Tensor[T], idxA string, b *Tensor[T], idxB string, beta T, idxC string) error {
	if err := checkPoisonedAll(a, b, c); err != nil {
		return err
	}
	if a.world != b.world || b.world != c.world {
		return errs.New(errs.InvalidInput, "ctf: Contract operands must share one World")
	}

	refA, refB, refC := a.operandRef(idxA), b.operandRef(idxB), c.operandRef(idxC)
	gA, err := plan.DiagonalGroups(refA)
	if err != nil {
		return err
	}
	gB, err := plan.DiagonalGroups(refB)
	if err != nil {
		return err
	}
	gC, err := plan.DiagonalGroups(refC)
	if err != nil {
		return err
	}
	// The local kernel is bound and invoked against the projected
	// (deduped) index maps -- one axis per diagonal letter -- while Plan
	// still redistributes against the operands' true physical layout
	// (refA/refB/refC, unchanged).
	dIdxA, dIdxB, dIdxC := dedupeIndexMap(idxA, gA), dedupeIndexMap(idxB, gB), dedupeIndexMap(idxC, gC)

	spec, err := buildContractionSpec(dIdxA, dIdxB, dIdxC)
	if err != nil {
		return err
	}
	if want := canonicalContractOutput(dIdxA, dIdxB, spec); want != dIdxC {
		return errs.New(errs.ShapeMismatch, "ctf: Contract output index map %q must be %q (batch, then A's free axes, then B's free axes)", idxC, want)
	}

	inner := kernel.Bind(a.structure, spec, a.world.Runtime.Pool)
	p, err := plan.Plan(a.world.Comm, plan.OpContract, a.structure, inner, refA, refB, refC)
	if err != nil {
		return err
	}

	operands := []*Tensor[T]{a, b, c}
	if err := runPlan(ctx, p, operands); err != nil {
		return err
	}
	aLocal := projectDiagonal(gA, a.local())
	bLocal := projectDiagonal(gB, b.local())
	cLocal := projectDiagonal(gC, c.local())
	if err := p.Top(ctx, aLocal, bLocal, cLocal, alpha, beta); err != nil {
		p.Machine.Transition(plan.Failed)
		return c.poison(err)
	}
	return p.Machine.Transition(plan.Done)
}

// Sum computes c["idxC"] <- beta*c["idxC"] (+) alpha*sum_over_dropped(a["idxA"])
// (§4.2's unary path, §6): a letter of A absent from C is summed away, a
// letter present in both is a free axis, which may appear in any order in
// idxC -- Sum doubles as CTF's permute-while-reducing primitive.
func (c *Tensor[T]) Sum(ctx context.Context, alpha T, a *Tensor[T], idxA string, beta T, idxC string) error {
	if err := checkPoisonedAll(a, c); err != nil {
		return err
	}
	if a.world != c.world {
		return errs.New(errs.InvalidInput, "ctf: Sum operands must share one World")
	}

	refA, refC := a.operandRef(idxA), c.operandRef(idxC)
	gA, err := plan.DiagonalGroups(refA)
	if err != nil {
		return err
	}
	gC, err := plan.DiagonalGroups(refC)
	if err != nil {
		return err
	}
	dIdxA, dIdxC := dedupeIndexMap(idxA, gA), dedupeIndexMap(idxC, gC)

	reduceAxes, perm, err := buildSumSpec(dIdxA, dIdxC)
	if err != nil {
		return err
	}

	inner := kernel.BindSum(a.structure, a.world.Runtime.Pool, reduceAxes, perm)
	p, err := plan.Plan(a.world.Comm, plan.OpSum, a.structure, inner, refA, refC)
	if err != nil {
		return err
	}

	operands := []*Tensor[T]{a, c}
	if err := runPlan(ctx, p, operands); err != nil {
		return err
	}
	// BindSum ignores its b argument; aLocal is passed twice only to
	// satisfy kernel.Func's binary shape.
	aLocal := projectDiagonal(gA, a.local())
	cLocal := projectDiagonal(gC, c.local())
	if err := p.Top(ctx, aLocal, aLocal, cLocal, alpha, beta); err != nil {
		p.Machine.Transition(plan.Failed)
		return c.poison(err)
	}
	return p.Machine.Transition(plan.Done)
}

// Scale computes c["idxC"] <- alpha*c["idxC"] in place. Unlike
// Contract/Sum, Scale touches no other operand and needs no
// redistribution or replication, so it bypasses Plan entirely and runs
// directly against the local buffer.
func (c *Tensor[T]) Scale(ctx context.Context, alpha T, idxC string) error {
	if err := c.checkPoisoned(); err != nil {
		return err
	}
	if len(idxC) != len(c.lens) {
		return errs.New(errs.ShapeMismatch, "ctf: Scale index map length %d does not match tensor order %d", len(idxC), len(c.lens))
	}
	for i := range c.data {
		c.data[i] = c.structure.Mul(alpha, c.data[i])
	}
	return nil
}

// Reduce folds the whole (logical, distributed) tensor down to a single
// value under op (§6): each rank folds its local buffer (foldLocal), then
// the structure's bound collective Reduce hook (numericReducer,
// NewTensor's Bind call) combines across ranks, and NORM2's sqrt is
// applied once, after the global combine (finishNorm2).
func (t *Tensor[T]) Reduce(ctx context.Context, op algebra.ReduceOp) (T, error) {
	var zero T
	if err := t.checkPoisoned(); err != nil {
		return zero, err
	}
	local, err := foldLocal(t.data, op)
	if err != nil {
		return zero, err
	}
	buf := []T{local}
	if err := t.structure.Reduce(ctx, buf, op); err != nil {
		return zero, t.poison(err)
	}
	return finishNorm2(op, buf[0]), nil
}

func checkPoisonedAll[T any](ts ...*Tensor[T]) error {
	for _, t := range ts {
		if err := t.checkPoisoned(); err != nil {
			return err
		}
	}
	return nil
}

// runPlan drives a Plan through Planned -> LaidOut -> Executing,
// redistributing every operand Plan asked for along the way (§4.7 step
// 5). Callers still transition Executing -> Done/Failed themselves once
// they know whether Top succeeded.
func runPlan[T any](ctx context.Context, p *plan.Plan[T], operands []*Tensor[T]) error {
	if err := p.Machine.Transition(plan.Planned); err != nil {
		return err
	}
	if err := applyRedistribution(ctx, p, operands); err != nil {
		return err
	}
	if err := p.Machine.Transition(plan.LaidOut); err != nil {
		return err
	}
	return p.Machine.Transition(plan.Executing)
}
