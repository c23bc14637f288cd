package ctf

import (
	"context"

	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/redist"
)

// Slice computes dst[dstOffsets:dstEnds] <- beta*dst[dstOffsets:dstEnds] (+) alpha*src[offsets:ends]
// (§6): src and dst may have independent edge lengths, symmetry and
// Mapping; only the sliced window's extents must agree per axis. Unlike
// Contract/Sum this never goes through Plan -- it's pure data movement,
// windowed-and-offset key-value routing through redist's bucketize
// machinery, not an arithmetic reduction.
func (src *Tensor[T]) Slice(ctx context.Context, offsets, ends []int, beta T, dst *Tensor[T], dstOffsets, dstEnds []int, alpha T) error {
	if err := checkPoisonedAll(src, dst); err != nil {
		return err
	}
	if src.world != dst.world {
		return errs.New(errs.InvalidInput, "ctf: Slice operands must share one World")
	}

	order := len(src.lens)
	if len(offsets) != order || len(ends) != order {
		return errs.New(errs.ShapeMismatch, "ctf: Slice src window length does not match src order %d", order)
	}
	if len(dstOffsets) != len(dst.lens) || len(dstEnds) != len(dst.lens) {
		return errs.New(errs.ShapeMismatch, "ctf: Slice dst window length does not match dst order %d", len(dst.lens))
	}
	if len(dstOffsets) != order {
		return errs.New(errs.ShapeMismatch, "ctf: Slice src/dst window orders differ: %d vs %d", order, len(dstOffsets))
	}
	for i := 0; i < order; i++ {
		if ends[i]-offsets[i] != dstEnds[i]-dstOffsets[i] {
			return errs.New(errs.ShapeMismatch, "ctf: Slice window extents differ at dim %d: %d vs %d", i, ends[i]-offsets[i], dstEnds[i]-dstOffsets[i])
		}
	}

	var keys []int64
	var values []T
	redist.OwnedCoords(src.mapping, src.lens, src.world.Comm.Rank(), func(coord []int) {
		for i := range coord {
			if coord[i] < offsets[i] || coord[i] >= ends[i] {
				return
			}
		}
		off := redist.LocalOffset(src.mapping, src.lens, coord)
		if off >= len(src.data) {
			return
		}
		dstCoord := make([]int, order)
		for i := range coord {
			dstCoord[i] = coord[i] - offsets[i] + dstOffsets[i]
		}
		keys = append(keys, redist.GlobalIndex(dstCoord, dst.lens))
		values = append(values, src.data[off])
	})

	recvKeys, recvValues, err := redist.ExchangeKV(ctx, dst.world.Comm, dst.mapping, dst.lens, keys, values)
	if err != nil {
		return dst.poison(err)
	}
	for i, k := range recvKeys {
		coord := redist.GlobalCoord(k, dst.lens)
		off := redist.LocalOffset(dst.mapping, dst.lens, coord)
		if off < len(dst.data) {
			dst.data[off] = dst.structure.Add(dst.structure.Mul(beta, dst.data[off]), dst.structure.Mul(alpha, recvValues[i]))
		}
	}
	return nil
}
