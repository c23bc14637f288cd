package reducer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/comm"
	"github.com/ctfgo/ctf/kernel"
	"github.com/ctfgo/ctf/reducer"
)

// scalarInner mimics a 1-element contraction: c = alpha*a*b + beta*c.
func scalarInner(s *algebra.Structure[float64]) kernel.Func[float64] {
	return func(ctx context.Context, a, b, c kernel.Local[float64], alpha, beta float64) error {
		c.Data[0] = s.Add(s.Mul(alpha, s.Mul(a.Data[0], b.Data[0])), s.Mul(beta, c.Data[0]))
		return nil
	}
}

func TestReplicate_BroadcastsAAlongCdtA(t *testing.T) {
	ctx := context.Background()
	comms := comm.NewLocalWorld(2)
	s := algebra.Ring[float64]()

	aVals := []float64{5, 999} // rank 1's value must be overwritten by the broadcast
	results := make([]float64, 2)
	done := make(chan int, 2)
	for rank := 0; rank < 2; rank++ {
		go func(rank int) {
			r := &reducer.Replicate[float64]{
				S:     s,
				World: comms[rank],
				CdtA:  []int{0, 1},
				Inner: scalarInner(s),
			}
			a := kernel.NewLocal([]int{1}, []float64{aVals[rank]})
			b := kernel.NewLocal([]int{1}, []float64{2})
			c := kernel.NewLocal([]int{1}, []float64{0})
			require.NoError(t, r.Run(ctx, a, b, c, 1, 0))
			results[rank] = c.Data[0]
			done <- rank
		}(rank)
	}
	for i := 0; i < 2; i++ {
		<-done
	}
	require.Equal(t, []float64{10, 10}, results)
}

func TestReplicate_AllReducesCAlongCdtBWithNonRootBetaZeroed(t *testing.T) {
	ctx := context.Background()
	comms := comm.NewLocalWorld(2)
	s := algebra.Ring[float64]()

	aVals := []float64{3, 4}
	cInit := []float64{1000, 2000}
	results := make([]float64, 2)
	done := make(chan int, 2)
	for rank := 0; rank < 2; rank++ {
		go func(rank int) {
			r := &reducer.Replicate[float64]{
				S:     s,
				World: comms[rank],
				CdtB:  []int{0, 1},
				Inner: scalarInner(s),
			}
			a := kernel.NewLocal([]int{1}, []float64{aVals[rank]})
			b := kernel.NewLocal([]int{1}, []float64{2})
			c := kernel.NewLocal([]int{1}, []float64{cInit[rank]})
			require.NoError(t, r.Run(ctx, a, b, c, 1, 100))
			results[rank] = c.Data[0]
			done <- rank
		}(rank)
	}
	for i := 0; i < 2; i++ {
		<-done
	}
	// root (rank 0) keeps beta=100: 1*3*2 + 100*1000 = 100006
	// non-root (rank 1) gets beta zeroed: 1*4*2 + 0*2000 = 8
	// AllReduce sums the two: 100014, visible on both ranks.
	require.Equal(t, []float64{100014, 100014}, results)
}

func TestReplicate_SkipsCollectivesWhenMemberListsAreSingleton(t *testing.T) {
	ctx := context.Background()
	comms := comm.NewLocalWorld(1)
	s := algebra.Ring[float64]()

	r := &reducer.Replicate[float64]{
		S:     s,
		World: comms[0],
		CdtA:  []int{0},
		CdtB:  []int{0},
		Inner: scalarInner(s),
	}
	a := kernel.NewLocal([]int{1}, []float64{6})
	b := kernel.NewLocal([]int{1}, []float64{7})
	c := kernel.NewLocal([]int{1}, []float64{0})
	require.NoError(t, r.Run(ctx, a, b, c, 1, 0))
	require.Equal(t, 42.0, c.Data[0])
}
