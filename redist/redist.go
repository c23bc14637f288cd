package redist

import (
	"context"
	"encoding/binary"

	"github.com/ctfgo/ctf/comm"
	"github.com/ctfgo/ctf/grid"
	"github.com/ctfgo/ctf/internal/errs"
	"github.com/ctfgo/ctf/internal/x"
)

// Redistribute moves data (this rank's local buffer, shaped by src, of a
// tensor with the given edge lengths) to the shape dst expects,
// returning the process's new local buffer. It implements bucketize →
// compact → exchange → install (§4.6), short-circuiting through two
// fast paths before the general path:
//
//   - src.Equal(dst): identity, data returned unchanged.
//   - src.SameGridDims(dst): only virtualization factors differ, a pure
//     local reshuffle with no communication.
//
// The general path always goes through AllToAllV, including the case of
// a pure processor-grid permutation with uniform per-rank counts: since
// every rank sends/receives exactly one bucket there, AllToAllV's
// variable-length bookkeeping degenerates to the uniform case for free.
func Redistribute[T any](ctx context.Context, c comm.Comm, src, dst *grid.Mapping, lens []int, data []T) ([]T, error) {
	if src.Equal(dst) {
		return data, nil
	}
	if src.SameGridDims(dst) {
		return reshuffleLocal(c, src, dst, lens, data), nil
	}
	return bucketizeExchange(ctx, c, src, dst, lens, data)
}

// reshuffleLocal handles the case where every tensor dimension keeps its
// grid-dimension assignment and only virtualization factors change: the
// set of global coordinates owned by this rank is unchanged (so no
// communication is needed), only their position within the local buffer
// moves.
func reshuffleLocal[T any](c comm.Comm, src, dst *grid.Mapping, lens []int, data []T) []T {
	out := make([]T, LocalSize(dst, lens))
	OwnedCoords(src, lens, c.Rank(), func(coord []int) {
		srcOff := LocalOffset(src, lens, coord)
		dstOff := LocalOffset(dst, lens, coord)
		if srcOff < len(data) && dstOff < len(out) {
			out[dstOff] = data[srcOff]
		}
	})
	return out
}

// bucketizeExchange is the general path: compute each locally-held
// element's destination ranks under dst (every rank whose coordinates on
// the grid dimensions dst assigns match the element's owner, so a grid
// dimension dst leaves unassigned gets a copy on each of its ranks),
// group (bucketize) them into one payload per destination, exchange via
// AllToAllV, then install each received (key, value) pair at its
// dst-local offset.
func bucketizeExchange[T any](ctx context.Context, c comm.Comm, src, dst *grid.Mapping, lens []int, data []T) ([]T, error) {
	n := c.Size()
	buckets := make([][]record[T], n)

	OwnedCoords(src, lens, c.Rank(), func(coord []int) {
		srcOff := LocalOffset(src, lens, coord)
		if srcOff >= len(data) {
			return
		}
		key := GlobalIndex(coord, lens)
		for r := 0; r < n; r++ {
			rc := dst.Grid.Coords(r)
			owns := true
			for i, assign := range dst.Dims {
				if assign.GridDim != grid.Unsharded {
					proc, _, _ := dst.ProcOwning(i, coord[i])
					owns = owns && rc[assign.GridDim] == proc
				}
			}
			if owns {
				buckets[r] = append(buckets[r], record[T]{key: key, value: data[srcOff]})
			}
		}
	})

	sendBufs := make([][]byte, n)
	for r, recs := range buckets {
		sendBufs[r] = encodeRecords(recs)
	}

	recvBufs, err := c.AllToAllV(ctx, sendBufs)
	if err != nil {
		return nil, errs.Wrap(errs.CollectiveFailure, err, "redist: all-to-all exchange")
	}

	out := make([]T, LocalSize(dst, lens))
	for _, buf := range recvBufs {
		for _, rec := range decodeRecords[T](buf) {
			coord := GlobalCoord(rec.key, lens)
			off := LocalOffset(dst, lens, coord)
			if off < len(out) {
				out[off] = rec.value
			}
		}
	}
	return out, nil
}

// ExchangeKV buckets (keys[i], values[i]) pairs by the rank owning each
// key's global coordinate under dst, exchanges via AllToAllV, and
// returns every (key, value) pair this rank received: the same
// bucketize/encode/exchange/decode machinery bucketizeExchange uses for
// a full tensor, reused directly by ctf's key-value Write/Read/Slice so
// they don't re-derive it.
func ExchangeKV[T any](ctx context.Context, c comm.Comm, dst *grid.Mapping, lens []int, keys []int64, values []T) ([]int64, []T, error) {
	n := c.Size()
	buckets := make([][]record[T], n)
	for i, k := range keys {
		coord := GlobalCoord(k, lens)
		rank := DestRank(dst, coord)
		buckets[rank] = append(buckets[rank], record[T]{key: k, value: values[i]})
	}

	sendBufs := make([][]byte, n)
	for r, recs := range buckets {
		sendBufs[r] = encodeRecords(recs)
	}

	recvBufs, err := c.AllToAllV(ctx, sendBufs)
	if err != nil {
		return nil, nil, errs.Wrap(errs.CollectiveFailure, err, "redist: key-value exchange")
	}

	var outKeys []int64
	var outValues []T
	for _, buf := range recvBufs {
		for _, rec := range decodeRecords[T](buf) {
			outKeys = append(outKeys, rec.key)
			outValues = append(outValues, rec.value)
		}
	}
	return outKeys, outValues, nil
}

// EncodeKV serializes parallel (keys, values) slices into the same wire
// format ExchangeKV uses, for callers (ctf.Read's reply phase) that need
// to drive comm.Comm.AllToAllV directly with destinations ExchangeKV's
// key-ownership routing doesn't apply (replies go back to a requesting
// rank, not a key's owner).
func EncodeKV[T any](keys []int64, values []T) []byte {
	recs := make([]record[T], len(keys))
	for i := range keys {
		recs[i] = record[T]{key: keys[i], value: values[i]}
	}
	return encodeRecords(recs)
}

// DecodeKV is EncodeKV's inverse.
func DecodeKV[T any](buf []byte) ([]int64, []T) {
	recs := decodeRecords[T](buf)
	keys := make([]int64, len(recs))
	values := make([]T, len(recs))
	for i, r := range recs {
		keys[i] = r.key
		values[i] = r.value
	}
	return keys, values
}

type record[T any] struct {
	key   int64
	value T
}

func encodeRecords[T any](recs []record[T]) []byte {
	if len(recs) == 0 {
		return nil
	}
	elemSize := x.Sizeof[T]()
	recSize := 8 + elemSize
	out := make([]byte, len(recs)*recSize)
	for i, rec := range recs {
		off := i * recSize
		binary.LittleEndian.PutUint64(out[off:off+8], uint64(rec.key))
		copy(out[off+8:off+recSize], x.AsBytes([]T{rec.value}))
	}
	return out
}

func decodeRecords[T any](buf []byte) []record[T] {
	if len(buf) == 0 {
		return nil
	}
	elemSize := x.Sizeof[T]()
	recSize := 8 + elemSize
	n := len(buf) / recSize
	recs := make([]record[T], n)
	for i := 0; i < n; i++ {
		off := i * recSize
		recs[i].key = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		recs[i].value = x.FromBytes[T](buf[off+8 : off+recSize])[0]
	}
	return recs
}
