package ctf

import (
	"context"

	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/redist"
)

// Write computes t[keys[i]] <- beta*t[keys[i]] (+) alpha*values[i] for
// each key (§6): keys are global, column-major-decoded indices (§6's
// g = i0 + i1*L0 + ...), sorted by destination rank and exchanged via
// redist's bucketize machinery exactly as a full Redistribute does, just
// for a sparse (key, value) set rather than every owned coordinate.
func (t *Tensor[T]) Write(ctx context.Context, keys []int64, values []T, alpha, beta T) error {
	if err := t.checkPoisoned(); err != nil {
		return err
	}
	if len(keys) != len(values) {
		return errs.New(errs.ShapeMismatch, "ctf: Write keys/values length mismatch: %d vs %d", len(keys), len(values))
	}

	recvKeys, recvValues, err := redist.ExchangeKV(ctx, t.world.Comm, t.mapping, t.lens, keys, values)
	if err != nil {
		return t.poison(err)
	}
	for i, k := range recvKeys {
		coord := redist.GlobalCoord(k, t.lens)
		off := redist.LocalOffset(t.mapping, t.lens, coord)
		if off < len(t.data) {
			t.data[off] = t.structure.Add(t.structure.Mul(beta, t.data[off]), t.structure.Mul(alpha, recvValues[i]))
		}
	}
	return nil
}

// Read computes result[i] <- beta*valuesIn[i] (+) alpha*t[keys[i]] for
// each key (§6; valuesIn nil means beta*Identity). Since the value for a
// given key can live on any rank, Read is a two-phase request/reply: each
// rank routes (key, requesting rank) pairs to the key's owner via the
// same redist.ExchangeKV machinery Write uses, the owner looks the key up
// locally, then replies directly to the requester via a second,
// requester-addressed AllToAllV (ExchangeKV's own routing only ever
// targets a key's owner, not an arbitrary reply destination).
func (t *Tensor[T]) Read(ctx context.Context, keys []int64, alpha, beta T, valuesIn []T) ([]T, error) {
	if err := t.checkPoisoned(); err != nil {
		return nil, err
	}
	if valuesIn != nil && len(valuesIn) != len(keys) {
		return nil, errs.New(errs.ShapeMismatch, "ctf: Read keys/valuesIn length mismatch: %d vs %d", len(keys), len(valuesIn))
	}

	me := int64(t.world.Comm.Rank())
	requesters := make([]int64, len(keys))
	for i := range requesters {
		requesters[i] = me
	}

	ownerKeys, ownerRequesters, err := redist.ExchangeKV(ctx, t.world.Comm, t.mapping, t.lens, keys, requesters)
	if err != nil {
		return nil, t.poison(err)
	}

	byRankKeys := map[int64][]int64{}
	byRankValues := map[int64][]T{}
	for i, k := range ownerKeys {
		coord := redist.GlobalCoord(k, t.lens)
		off := redist.LocalOffset(t.mapping, t.lens, coord)
		var v T
		if off < len(t.data) {
			v = t.data[off]
		}
		r := ownerRequesters[i]
		byRankKeys[r] = append(byRankKeys[r], k)
		byRankValues[r] = append(byRankValues[r], v)
	}

	n := t.world.Comm.Size()
	replyBufs := make([][]byte, n)
	for r, ks := range byRankKeys {
		replyBufs[r] = redist.EncodeKV(ks, byRankValues[r])
	}
	recvBufs, err := t.world.Comm.AllToAllV(ctx, replyBufs)
	if err != nil {
		return nil, t.poison(errs.Wrap(errs.CollectiveFailure, err, "ctf: Read reply exchange"))
	}

	results := make(map[int64]T, len(keys))
	for _, buf := range recvBufs {
		ks, vs := redist.DecodeKV[T](buf)
		for i, k := range ks {
			results[k] = vs[i]
		}
	}

	out := make([]T, len(keys))
	for i, k := range keys {
		prior := t.structure.Identity()
		if valuesIn != nil {
			prior = valuesIn[i]
		}
		out[i] = t.structure.Add(t.structure.Mul(beta, prior), t.structure.Mul(alpha, results[k]))
	}
	return out, nil
}
