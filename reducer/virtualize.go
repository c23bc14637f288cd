// Package reducer implements the virtualization reducer (C4) and the
// replication reducer (C5): the two layers of the
// Replicate(Virtualize(Symmetrize(LocalKernel))) tree the planner (C7)
// builds for each operation (§4.4, §4.5).
//
// Grounded on gomlx-stablehlo's collective.go: the same
// validate-then-invoke-once-per-group shape CollectiveBroadcast/AllToAll
// use for replica groups is reused here for virtual blocks and
// replication sub-communicators.
package reducer

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/kernel"
)

// Letter describes one virtualized letter of the union grid V (§4.4):
// how many virtual blocks it has, and the element stride that advancing
// one block along it adds to each operand's flat offset. A zero stride
// means that operand doesn't vary along this letter (it is either not
// virtualized along it, or doesn't carry the letter at all).
type Letter struct {
	Extent              int
	AStride             int
	BStride             int
	CStride             int
	InC                 bool // whether this letter indexes a distinct C block
}

// Virtualize enumerates the union virtual block grid in row-major order
// (Letters[0] slowest) and invokes Inner once per block, passing each
// operand a freshly-shaped Local view of its block (contiguous storage
// per block is the layout convention this module uses, the simplest
// one consistent with "cyclic-then-virtualized" distribution).
type Virtualize[T any] struct {
	S          *algebra.Structure[T]
	Letters    []Letter
	ABlockDims []int
	BBlockDims []int
	CBlockDims []int
	Inner      kernel.Func[T]
}

// AsFunc adapts v to the kernel.Func shape the layer above (Replicate,
// or the planner's top level) dispatches through. a, b, c's Data fields
// are the full per-process buffers spanning every virtual block; their
// Dims/Strides are not consulted, only sliced by the offsets Letters
// compute.
func (v *Virtualize[T]) AsFunc() kernel.Func[T] {
	return v.Run
}

func (v *Virtualize[T]) Run(ctx context.Context, a, b, c kernel.Local[T], alpha, beta T) error {
	total := 1
	cBlocks := 1
	for _, l := range v.Letters {
		total *= l.Extent
		if l.InC {
			cBlocks *= l.Extent
		}
	}
	if total == 0 {
		return nil
	}

	aBlockSize, bBlockSize, cBlockSize := blockSize(v.ABlockDims), blockSize(v.BBlockDims), blockSize(v.CBlockDims)
	touched := make([]bool, cBlocks)

	coord := make([]int, len(v.Letters))
	for linear := 0; linear < total; linear++ {
		rem := linear
		for i := len(v.Letters) - 1; i >= 0; i-- {
			coord[i] = rem % v.Letters[i].Extent
			rem /= v.Letters[i].Extent
		}

		aOff, bOff, cOff, cBlockIdx := 0, 0, 0, 0
		for i, l := range v.Letters {
			aOff += coord[i] * l.AStride
			bOff += coord[i] * l.BStride
			if l.InC {
				cOff += coord[i] * l.CStride
				cBlockIdx = cBlockIdx*l.Extent + coord[i]
			}
		}

		thisBeta := beta
		if touched[cBlockIdx] {
			if v.S.IsSemiring() {
				thisBeta = v.S.One()
			} else {
				// No multiplicative identity for a monoid: rely on the
				// structure's identity annihilating Mul (true for every
				// monoid preset this module ships, e.g. AND(false, x) =
				// false), which reduces the recombination to plain Add.
				thisBeta = v.S.Identity()
			}
		}
		touched[cBlockIdx] = true

		aView := kernel.NewLocal(v.ABlockDims, a.Data[aOff:aOff+aBlockSize])
		bView := kernel.NewLocal(v.BBlockDims, b.Data[bOff:bOff+bBlockSize])
		cView := kernel.NewLocal(v.CBlockDims, c.Data[cOff:cOff+cBlockSize])

		if err := v.Inner(ctx, aView, bView, cView, alpha, thisBeta); err != nil {
			return err
		}
	}
	return nil
}

func blockSize(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
