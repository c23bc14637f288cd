// Package comm abstracts the communicator of processes the core runs
// across. Bindings to a real message-passing library are explicitly out
// of scope (spec §1); Comm is an interface precisely so such a binding
// could implement it later without the core noticing. The one concrete
// implementation shipped here, the localComm views NewLocalWorld returns,
// simulates ranks as goroutines meeting at a shared in-memory rendezvous
// -- the same way hyperifyio-gnd's
// pkg/primitives/async.go models concurrent tasks, and is what this
// module's tests run against.
package comm

import "context"

// ReduceFunc combines two same-shaped byte-encoded values for a
// collective reduction. Callers pass a closure binding in their algebra.Structure's
// Add so comm never needs to know about T.
type ReduceFunc func(dst, src []byte)

// Comm is one rank's view of a communicator.
type Comm interface {
	// Rank returns this process's rank within the communicator, in [0, Size).
	Rank() int
	// Size returns the number of ranks in the communicator.
	Size() int

	// Barrier blocks until every rank has called Barrier.
	Barrier(ctx context.Context) error

	// Bcast broadcasts buf from root to every rank; non-root ranks'
	// buf is overwritten in place. len(buf) must agree across ranks.
	Bcast(ctx context.Context, buf []byte, root int) error

	// AllReduce combines buf element-group-wise across all ranks using
	// reduce, leaving the combined result in buf on every rank. elemSize
	// is the byte width of one logical element (so reduce is invoked on
	// aligned slices of that width).
	AllReduce(ctx context.Context, buf []byte, elemSize int, reduce ReduceFunc) error

	// AllToAllV exchanges variable-length payloads: sendBufs[r] is shipped
	// to rank r, and the returned slice's r'th entry is what this rank
	// received from rank r. This is the sole all-to-all the redistribution
	// engine (C6) performs per redistribution (§4.6).
	AllToAllV(ctx context.Context, sendBufs [][]byte) ([][]byte, error)

	// SubComm returns a communicator over the ranks listed in members
	// (in the given order, so the returned rank = index into members).
	// Sub-communicators are cached per ordered member list by the underlying
	// LocalWorld so repeated calls with the same shape are cheap (§5).
	SubComm(members []int) (Comm, error)
}
