package symmetry

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/kernel"
)

// Groups bundles each operand's per-dimension symmetry partition, as
// built once by plan.Plan and threaded down through the reducer tree
// (§4.3 "precomputed once per plan, not per block").
type Groups struct {
	A, B, C []Group
}

// Wrap returns a kernel-shaped function that, for every group an
// operand declares symmetric but that the contraction doesn't carry
// through to C unchanged (a "broken" group, identified by the planner's
// symmetry-alignment step, §4.7 step 2), issues one inner call per term
// of ExpandRedundant, permuting that operand's group axes and scaling
// alpha by the term's sign and 1/k! weight, accumulating into c. Groups
// with no broken operand pass straight through to inner unchanged.
//
// Structures without Negate (needed for AS/SH's -1 terms) or Scale
// (needed for every broken group's 1/k! weight) cannot run this
// expansion; Wrap returns an error function that always fails for
// them, rather than silently computing a wrong answer.
func Wrap[T any](s *algebra.Structure[T], groups Groups, broken []BrokenGroup, inner kernel.Func[T]) kernel.Func[T] {
	if len(broken) == 0 {
		return inner
	}
	for _, bg := range broken {
		if bg.Group.Tag.Strict() {
			if _, ok := s.Negate(*new(T)); !ok {
				return unsupportedFunc[T](s, "antisymmetric/symmetric-hollow redundant expansion requires a structure with negation")
			}
		}
	}
	if _, ok := s.Scale(*new(T), 1); !ok {
		return unsupportedFunc[T](s, "redundant expansion requires a structure with rational scaling")
	}

	terms := make([][]RedundantTerm, len(broken))
	for i, bg := range broken {
		terms[i] = ExpandRedundant(bg.Group.Tag, bg.Group.Size)
	}

	return func(ctx context.Context, a, b, c kernel.Local[T], alpha, beta T) error {
		first := true
		for i, bg := range broken {
			for _, term := range terms[i] {
				av, bv := a, b
				switch bg.Operand {
				case OperandA:
					av = permuteGroup(a, bg.Group, term.Perm)
				case OperandB:
					bv = permuteGroup(b, bg.Group, term.Perm)
				}

				termAlpha, _ := s.Scale(alpha, term.Weight)
				if term.Sign < 0 {
					termAlpha, _ = s.Negate(termAlpha)
				}

				termBeta := beta
				if !first {
					if s.IsSemiring() {
						termBeta = s.One()
					} else {
						termBeta = s.Identity()
					}
				}
				if err := inner(ctx, av, bv, c, termAlpha, termBeta); err != nil {
					return err
				}
				first = false
			}
		}
		return nil
	}
}

// Operand names which contraction operand a BrokenGroup's symmetry
// group belongs to.
type Operand int

const (
	OperandA Operand = iota
	OperandB
)

// BrokenGroup is one operand group the planner determined isn't shared
// by the contraction's output, requiring redundant-computation
// expansion instead of a single packed-storage pass (§4.7 step 2).
type BrokenGroup struct {
	Operand Operand
	Group   Group
}

func unsupportedFunc[T any](s *algebra.Structure[T], reason string) kernel.Func[T] {
	return func(ctx context.Context, a, b, c kernel.Local[T], alpha, beta T) error {
		return errs.New(errs.InvalidInput, "symmetry: structure %q cannot run redundant expansion: %s", s.Name(), reason)
	}
}

// permuteGroup returns a view of l with the axes in [g.First, g.First+g.Size)
// reordered by perm (perm[i] names which of the group's original axes
// supplies new axis g.First+i); Data is untouched, only Strides/Dims are
// reordered, so this is a zero-copy reinterpretation of the same buffer.
func permuteGroup[T any](l kernel.Local[T], g Group, perm []int) kernel.Local[T] {
	dims := append([]int(nil), l.Dims...)
	strides := append([]int(nil), l.Strides...)
	for i, p := range perm {
		dims[g.First+i] = l.Dims[g.First+p]
		strides[g.First+i] = l.Strides[g.First+p]
	}
	return kernel.Local[T]{Data: l.Data, Dims: dims, Strides: strides}
}
