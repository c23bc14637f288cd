package ctf

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/grid"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/kernel"
	"github.com/ctfgo/ctf/plan"
	"github.com/ctfgo/ctf/redist"
	"github.com/ctfgo/ctf/symmetry"
)

// Tensor is a distributed tensor: edge lengths, per-dimension symmetry
// tags, its current Mapping onto World's processor grid, the local data
// buffer that Mapping describes, and the "home" snapshot Restore returns
// to (§3).
//
// A Tensor whose Mapping was poisoned by a failed collective (§7,
// CollectiveFailure) rejects every further operation until discarded.
type Tensor[T any] struct {
	world     *World
	id        int64
	structure *algebra.Structure[T]

	lens []int
	tags []symmetry.Tag

	mapping *grid.Mapping
	data    []T

	homeMapping *grid.Mapping
	home        []T

	poisoned bool
}

// NewTensor allocates a Tensor of the given edge lengths and symmetry
// tags (nil means every dimension is NS, unrelated) at the given initial
// Mapping, local buffer zero-valued. The structure's reduction hook is
// bound to w's communicator here (C1's Bind, §4.1) so Tensor.Reduce needs
// no further setup.
func NewTensor[T any](w *World, s *algebra.Structure[T], lens []int, tags []symmetry.Tag, mapping *grid.Mapping) (*Tensor[T], error) {
	if mapping.Order() != len(lens) {
		return nil, errs.New(errs.ShapeMismatch, "ctf: mapping order %d does not match tensor order %d", mapping.Order(), len(lens))
	}
	if tags == nil {
		tags = make([]symmetry.Tag, len(lens))
	}
	if len(tags) != len(lens) {
		return nil, errs.New(errs.ShapeMismatch, "ctf: tensor has %d edge lengths but %d symmetry tags", len(lens), len(tags))
	}
	for _, g := range symmetry.BuildGroups(tags) {
		if err := g.Validate(lens); err != nil {
			return nil, err
		}
	}

	bound, err := s.Bind(numericReducer[T](w.Comm))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "ctf: binding structure to world communicator")
	}

	data := make([]T, redist.LocalSize(mapping, lens))
	t := &Tensor[T]{
		world:     w,
		id:        w.Runtime.nextInstance(),
		structure: bound,
		lens:      append([]int(nil), lens...),
		tags:      append([]symmetry.Tag(nil), tags...),
		mapping:   mapping,
		data:      data,
	}
	t.snapshotHome()
	w.Runtime.Log.Debug().Int64("tensor", t.id).Ints("lens", lens).Msg("tensor created")
	return t, nil
}

// Data returns the tensor's current local buffer, in the process's own
// Mapping (callers reading/writing it directly are responsible for
// respecting that layout -- Write/Read are the supported key-value
// entry points, §6).
func (t *Tensor[T]) Data() []T { return t.data }

// Mapping returns the tensor's current Mapping.
func (t *Tensor[T]) Mapping() *grid.Mapping { return t.mapping }

// Order returns the tensor's order (number of dimensions).
func (t *Tensor[T]) Order() int { return len(t.lens) }

func (t *Tensor[T]) snapshotHome() {
	t.home = append([]T(nil), t.data...)
	t.homeMapping = t.mapping
}

// Restore copies the tensor's "home" snapshot back as its current data
// and Mapping (§3's "home" buffer, used between independent operations
// in a multi-contraction plan, §4's supplemented feature).
func (t *Tensor[T]) Restore(ctx context.Context) error {
	if err := t.checkPoisoned(); err != nil {
		return err
	}
	t.mapping = t.homeMapping
	t.data = append([]T(nil), t.home...)
	return nil
}

// checkPoisoned rejects further use of a tensor whose Mapping was
// poisoned by a prior CollectiveFailure (§7).
func (t *Tensor[T]) checkPoisoned() error {
	if t.poisoned {
		return errs.New(errs.CollectiveFailure, "ctf: tensor %d is poisoned by a prior collective failure", t.id)
	}
	return nil
}

// poison marks t poisoned when err carries CollectiveFailure (§7), and
// always returns err unchanged so callers can `return t.poison(err)`.
func (t *Tensor[T]) poison(err error) error {
	if errs.Is(err, errs.CollectiveFailure) {
		t.poisoned = true
		t.world.Runtime.Log.Error().Int64("tensor", t.id).Err(err).Msg("tensor poisoned by collective failure")
	}
	return err
}

// local builds the kernel.Local view of t's current buffer: Dims are the
// per-axis padded extents of one virtual block (LocalExtent, §3
// invariant (b)), while Data holds every virtual block, which is enough
// since the Virtualize reducer (C4) -- when one
// exists in the plan's execution tree -- only ever consults Data, not
// Dims/Strides (reducer.Virtualize.AsFunc's doc).
func (t *Tensor[T]) local() kernel.Local[T] {
	dims := make([]int, len(t.lens))
	for i, l := range t.lens {
		dims[i] = t.mapping.LocalExtent(i, l)
	}
	return kernel.NewLocal(dims, t.data)
}

// operandRef builds the planner's narrow view of t under the given
// index map (plan.OperandRef's doc: avoids an import cycle between plan
// and ctf).
func (t *Tensor[T]) operandRef(indexMap string) *plan.OperandRef {
	return &plan.OperandRef{Lens: t.lens, Tags: t.tags, Mapping: t.mapping, IndexMap: indexMap}
}

// applyRedistribution executes the Target mappings plan.Plan emitted
// (§4.7 step 5) against the actual operand Tensors, moving each one's
// local buffer via redist.Redistribute and swapping in its new Mapping.
func applyRedistribution[T any](ctx context.Context, p *plan.Plan[T], operands []*Tensor[T]) error {
	for _, r := range p.Redistribution {
		t := operands[r.Operand]
		moved, err := redist.Redistribute(ctx, t.world.Comm, t.mapping, r.Target, t.lens, t.data)
		if err != nil {
			return t.poison(err)
		}
		t.data = moved
		t.mapping = r.Target
	}
	return nil
}
