// Package algebra carries the algebraic-structure abstraction (C1): the
// identity, binary sum, binary product and collective reduction handle
// that the rest of the core is polymorphic over.
//
// Grounded on gomlx-stablehlo's shape-inference validation idiom (return
// (T, error), wrap with github.com/pkg/errors) and on itohio-EasyRobot's
// Numeric generics constraint for the preset ring instantiations.
package algebra

import (
	"context"

	"github.com/pkg/errors"
)

// ReduceOp names a collective reduction kind (§6).
type ReduceOp int

const (
	SUM ReduceOp = iota
	MIN
	MAX
	NORM1
	NORM2
	MAXABS
)

func (op ReduceOp) String() string {
	switch op {
	case SUM:
		return "SUM"
	case MIN:
		return "MIN"
	case MAX:
		return "MAX"
	case NORM1:
		return "NORM1"
	case NORM2:
		return "NORM2"
	case MAXABS:
		return "MAXABS"
	default:
		return "UNKNOWN"
	}
}

// Reducer performs a collective ⊕ over a contiguous vector across the
// ranks participating in c. The implementation in this module is package
// ctf's numericReducer, built on comm.Comm.AllReduce; algebra only needs
// the function shape so it can be carried as a field here without
// creating an import cycle between algebra and comm.
type Reducer[T any] func(ctx context.Context, buf []T, op ReduceOp) error

// Structure is a value of type T with an additive identity, a commutative
// associative sum, an optional product (absent for monoids), and a
// collective reduction handle (§3).
type Structure[T any] struct {
	name string

	identity func() T
	one      func() T
	add      func(a, b T) T
	mul      func(a, b T) T
	neg      func(a T) T
	scale    func(a T, w float64) T
	reduce   Reducer[T]

	// semiring reports whether two-operand tensor contraction (⊗ between
	// two tensors, not a scalar coefficient) is permitted: §3's "for
	// monoids only, product is absent". mul is still required even for a
	// monoid-tagged structure, since Sum/Scale's alpha/beta coefficients
	// (themselves values of type T) need a scalar action; what a monoid
	// drops is tensor-operand-by-tensor-operand contraction, checked by
	// the planner via IsSemiring before it ever builds a contraction
	// tree.
	semiring bool

	// ordered reports is_ordered(): Add is associative only up to a
	// canonical tie-break (e.g. the path semiring's distance/multiplicity
	// tie handling; it tracks no hop count), so reassociating
	// optimizations must be disabled.
	ordered bool

	bound bool
}

// New builds a structure. semiring controls whether Contract may use it
// (mul always must be supplied: even monoid-tagged structures need it
// for the alpha/beta scalar coefficients of Sum/Scale, see the semiring
// field's doc). one is the multiplicative identity 1_T; it is only
// required when semiring is true (the virtualization reducer's β
// pass-through reuses it, §4.4) and may be nil otherwise. It does not
// register anything with a communicator yet; call Bind for that.
// Structure is immutable once Bind succeeds (§3: "immutable once
// attached to a tensor").
func New[T any](name string, identity, one func() T, add, mul func(a, b T) T, semiring, ordered bool) (*Structure[T], error) {
	if identity == nil || add == nil || mul == nil {
		return nil, errors.Errorf("algebra: structure %q requires identity, add and mul", name)
	}
	if semiring && one == nil {
		return nil, errors.Errorf("algebra: semiring structure %q requires a multiplicative identity", name)
	}
	return &Structure[T]{name: name, identity: identity, one: one, add: add, mul: mul, semiring: semiring, ordered: ordered}, nil
}

// Name returns the structure's diagnostic name (used in logging).
func (s *Structure[T]) Name() string { return s.name }

// Identity returns 0_T.
func (s *Structure[T]) Identity() T { return s.identity() }

// One returns 1_T. Only valid when IsSemiring(); callers must not rely
// on it for monoid-tagged structures.
func (s *Structure[T]) One() T { return s.one() }

// WithNegation returns a copy of s carrying an additive inverse. Used
// by antisymmetric/symmetric-hollow redundant-term expansion (§4.3),
// which needs to apply a sign of -1; structures with no natural
// negation (booleans, tropical semirings) simply don't call this, and
// Negate reports ok=false for them.
func (s *Structure[T]) WithNegation(neg func(a T) T) *Structure[T] {
	cp := *s
	cp.neg = neg
	return &cp
}

// Negate returns -a and ok=true if s carries a negation, ok=false
// otherwise.
func (s *Structure[T]) Negate(a T) (neg T, ok bool) {
	if s.neg == nil {
		return neg, false
	}
	return s.neg(a), true
}

// WithScale returns a copy of s carrying a rational-weight scalar
// action, used by the symmetry iterator's redundant-computation
// expansion (§4.3) to apply each term's 1/k! weight.
func (s *Structure[T]) WithScale(scale func(a T, w float64) T) *Structure[T] {
	cp := *s
	cp.scale = scale
	return &cp
}

// Scale returns w*a and ok=true if s carries a rational-weight scalar
// action, ok=false otherwise.
func (s *Structure[T]) Scale(a T, w float64) (scaled T, ok bool) {
	if s.scale == nil {
		return scaled, false
	}
	return s.scale(a, w), true
}

// Add computes a ⊕ b.
func (s *Structure[T]) Add(a, b T) T { return s.add(a, b) }

// IsSemiring reports whether Contract may use this structure for
// tensor-by-tensor product (§3).
func (s *Structure[T]) IsSemiring() bool { return s.semiring }

// Mul computes a ⊗ b.
func (s *Structure[T]) Mul(a, b T) T {
	return s.mul(a, b)
}

// Ordered reports is_ordered() from §4.1.
func (s *Structure[T]) Ordered() bool { return s.ordered }

// Bind registers the structure's reduction operator with a communicator.
// Per §4.1, registration failure is fatal and leaves no partial state: Bind
// either returns a fully-bound structure or an error, it never mutates s
// in place.
func (s *Structure[T]) Bind(reduce Reducer[T]) (*Structure[T], error) {
	if reduce == nil {
		return nil, errors.Errorf("algebra: Bind requires a non-nil reducer for structure %q", s.name)
	}
	bound := *s
	bound.reduce = reduce
	bound.bound = true
	return &bound, nil
}

// Reduce performs a collective ⊕ over buf across the communicator the
// structure was bound to.
func (s *Structure[T]) Reduce(ctx context.Context, buf []T, op ReduceOp) error {
	if !s.bound {
		return errors.Errorf("algebra: structure %q used before Bind", s.name)
	}
	return s.reduce(ctx, buf, op)
}
