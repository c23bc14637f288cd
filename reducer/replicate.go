package reducer

import (
	"context"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/comm"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/internal/x"
	"github.com/ctfgo/ctf/kernel"
)

// Replicate implements the 2.5D broadcast/all-reduce protocol (§4.5):
// broadcast A along CdtA, route β per-rank into the sub-reducer (the
// caller's β on CdtB's root, the additive identity elsewhere — which,
// for every structure this module ships, annihilates Mul and so also
// zeroes C on non-root ranks without a separate pass), then all-reduce
// C's contribution along CdtB.
//
// Root is always member index 0 of the respective member list; CdtA and
// CdtB name ranks in World's numbering, the same convention
// comm.Comm.SubComm uses.
type Replicate[T any] struct {
	S     *algebra.Structure[T]
	World comm.Comm
	CdtA  []int
	CdtB  []int
	Inner kernel.Func[T]
}

// AsFunc adapts r to the kernel.Func shape the planner's top level
// dispatches through.
func (r *Replicate[T]) AsFunc() kernel.Func[T] {
	return r.Run
}

func (r *Replicate[T]) Run(ctx context.Context, a, b, c kernel.Local[T], alpha, beta T) error {
	if len(r.CdtA) > 1 {
		cdtA, err := r.World.SubComm(r.CdtA)
		if err != nil {
			return errs.Wrap(errs.CollectiveFailure, err, "reducer: building CdtA sub-communicator")
		}
		if err := cdtA.Bcast(ctx, x.AsBytes(a.Data), 0); err != nil {
			return errs.Wrap(errs.CollectiveFailure, err, "reducer: broadcasting A along CdtA")
		}
	}

	var cdtB comm.Comm
	localBeta := beta
	if len(r.CdtB) > 1 {
		var err error
		cdtB, err = r.World.SubComm(r.CdtB)
		if err != nil {
			return errs.Wrap(errs.CollectiveFailure, err, "reducer: building CdtB sub-communicator")
		}
		if cdtB.Rank() != 0 {
			localBeta = r.S.Identity()
		}
	}

	if err := r.Inner(ctx, a, b, c, alpha, localBeta); err != nil {
		return err
	}

	if cdtB == nil {
		return nil
	}
	add := r.S.Add
	reduce := func(dst, src []byte) {
		dstT := x.FromBytes[T](dst)
		srcT := x.FromBytes[T](src)
		for i := range dstT {
			dstT[i] = add(dstT[i], srcT[i])
		}
	}
	if err := cdtB.AllReduce(ctx, x.AsBytes(c.Data), x.Sizeof[T](), reduce); err != nil {
		return errs.Wrap(errs.CollectiveFailure, err, "reducer: all-reducing C along CdtB")
	}
	return nil
}
