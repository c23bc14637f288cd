package ctf

import (
	"context"
	"math"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/comm"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/internal/x"
)

// numericCombine implements the pairwise step every ReduceOp needs, for
// any Numeric type: SUM/NORM1/NORM2 combine by addition (NORM1/NORM2
// fold abs/squares locally first, see numericFold), MIN/MAX/MAXABS by
// comparison.
func numericCombine[N algebra.Numeric](a, b N, op algebra.ReduceOp) N {
	switch op {
	case algebra.MIN:
		if a < b {
			return a
		}
		return b
	case algebra.MAX, algebra.MAXABS:
		if a > b {
			return a
		}
		return b
	default: // SUM, NORM1, NORM2
		return a + b
	}
}

func absNumeric[N algebra.Numeric](v N) N {
	if v < 0 {
		return -v
	}
	return v
}

// numericFold combines an entire local buffer down to one value per op
// (§6's whole-tensor Reduce): NORM1/NORM2 map each element through
// abs/square before folding with +, so the cross-rank combine step
// (identical arithmetic, one more application) finishes the job with a
// single global + rather than re-deriving a norm from partial norms.
func numericFold[N algebra.Numeric](data []N, op algebra.ReduceOp) N {
	var zero N
	if len(data) == 0 {
		return zero
	}
	switch op {
	case algebra.MIN, algebra.MAX:
		acc := data[0]
		for _, v := range data[1:] {
			acc = numericCombine(acc, v, op)
		}
		return acc
	case algebra.NORM1:
		var acc N
		for _, v := range data {
			acc += absNumeric(v)
		}
		return acc
	case algebra.NORM2:
		var acc N
		for _, v := range data {
			acc += v * v
		}
		return acc
	case algebra.MAXABS:
		acc := absNumeric(data[0])
		for _, v := range data[1:] {
			if a := absNumeric(v); a > acc {
				acc = a
			}
		}
		return acc
	default: // SUM
		var acc N
		for _, v := range data {
			acc += v
		}
		return acc
	}
}

// foldLocal folds t's local buffer to a single T, dispatching on the
// concrete numeric kind the way kernel's GEMM fast path dispatches on
// any(a.Data).(type): Reduce is only defined for the Numeric
// instantiations this module actually exercises (the ring's float/int
// kinds), not for arbitrary T (booleans, path-with-multiplicity values
// have no natural ordering/magnitude).
func foldLocal[T any](data []T, op algebra.ReduceOp) (T, error) {
	var zero T
	switch d := any(data).(type) {
	case []float64:
		return any(numericFold(d, op)).(T), nil
	case []float32:
		return any(numericFold(d, op)).(T), nil
	case []int:
		return any(numericFold(d, op)).(T), nil
	case []int64:
		return any(numericFold(d, op)).(T), nil
	case []int32:
		return any(numericFold(d, op)).(T), nil
	default:
		return zero, errs.New(errs.InvalidInput, "ctf: Reduce requires a numeric element type, got %T", data)
	}
}

// finishNorm2 applies the single sqrt finishing step NORM2 needs after
// the global sum-of-squares combine (local and cross-rank folding both
// just add, per numericFold's doc).
func finishNorm2[T any](op algebra.ReduceOp, v T) T {
	if op != algebra.NORM2 {
		return v
	}
	switch s := any(v).(type) {
	case float64:
		return any(math.Sqrt(s)).(T)
	case float32:
		return any(float32(math.Sqrt(float64(s)))).(T)
	default:
		return v
	}
}

// numericReducer binds a Structure's collective Reduce hook (C1's Bind,
// §4.1) to World's communicator: an elementwise AllReduce over buf using
// numericCombine, dispatched by T's concrete numeric kind.
func numericReducer[T any](c comm.Comm) algebra.Reducer[T] {
	return func(ctx context.Context, buf []T, op algebra.ReduceOp) error {
		reduceFn, err := combineFunc[T](op)
		if err != nil {
			return err
		}
		return c.AllReduce(ctx, x.AsBytes(buf), x.Sizeof[T](), reduceFn)
	}
}

// combineFunc builds the byte-level ReduceFunc comm.Comm.AllReduce wants,
// dispatched on T's concrete numeric kind the same way foldLocal is.
func combineFunc[T any](op algebra.ReduceOp) (comm.ReduceFunc, error) {
	switch any(*new(T)).(type) {
	case float64:
		return byteCombine(func(a, b float64) float64 { return numericCombine(a, b, op) }), nil
	case float32:
		return byteCombine(func(a, b float32) float32 { return numericCombine(a, b, op) }), nil
	case int:
		return byteCombine(func(a, b int) int { return numericCombine(a, b, op) }), nil
	case int64:
		return byteCombine(func(a, b int64) int64 { return numericCombine(a, b, op) }), nil
	case int32:
		return byteCombine(func(a, b int32) int32 { return numericCombine(a, b, op) }), nil
	default:
		return nil, errs.New(errs.InvalidInput, "ctf: Reduce requires a numeric element type, got %T", *new(T))
	}
}

func byteCombine[N any](fn func(a, b N) N) comm.ReduceFunc {
	return func(dst, src []byte) {
		dstT := x.FromBytes[N](dst)
		srcT := x.FromBytes[N](src)
		for i := range dstT {
			dstT[i] = fn(dstT[i], srcT[i])
		}
	}
}
