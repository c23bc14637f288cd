package redist_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctfgo/ctf/comm"
	"github.com/ctfgo/ctf/grid"
	"github.com/ctfgo/ctf/redist"
)

func rowSharded(t *testing.T, nprocs int) (*grid.ProcessorGrid, *grid.Mapping) {
	t.Helper()
	g, err := grid.NewProcessorGrid([]int{nprocs})
	require.NoError(t, err)
	m, err := grid.New(g, []grid.DimAssign{
		{GridDim: 0, Virt: 1},
		{GridDim: grid.Unsharded, Virt: 1},
	})
	require.NoError(t, err)
	return g, m
}

func colSharded(t *testing.T, nprocs int) *grid.Mapping {
	t.Helper()
	g, err := grid.NewProcessorGrid([]int{nprocs})
	require.NoError(t, err)
	m, err := grid.New(g, []grid.DimAssign{
		{GridDim: grid.Unsharded, Virt: 1},
		{GridDim: 0, Virt: 1},
	})
	require.NoError(t, err)
	return m
}

// value at global coordinate (i,j) of the n x n test matrix.
func cellValue(i, j, n int) float64 { return float64(i*n + j) }

// TestRedistribute_GridPermutation moves a 4x4 tensor from row-sharded to
// column-sharded across 2 ranks and checks every global element landed
// at the rank/offset the new Mapping says it should. Both the seeding
// and the verification walk coordinates through OwnedCoords/LocalOffset
// rather than assuming a block distribution, since DestRank's owning
// rank is globalIndex % phys (cyclic), not a contiguous block.
func TestRedistribute_GridPermutation(t *testing.T) {
	ctx := context.Background()
	const n, nprocs = 4, 2
	lens := []int{n, n}
	_, src := rowSharded(t, nprocs)
	dst := colSharded(t, nprocs)

	comms := comm.NewLocalWorld(nprocs)

	srcData := make([][]float64, nprocs)
	for r := 0; r < nprocs; r++ {
		buf := make([]float64, redist.LocalSize(src, lens))
		redist.OwnedCoords(src, lens, r, func(coord []int) {
			off := redist.LocalOffset(src, lens, coord)
			buf[off] = cellValue(coord[0], coord[1], n)
		})
		srcData[r] = buf
	}

	results := make([][]float64, nprocs)
	done := make(chan int, nprocs)
	for r := 0; r < nprocs; r++ {
		go func(r int) {
			out, err := redist.Redistribute(ctx, comms[r], src, dst, lens, srcData[r])
			require.NoError(t, err)
			results[r] = out
			done <- r
		}(r)
	}
	for i := 0; i < nprocs; i++ {
		<-done
	}

	for r := 0; r < nprocs; r++ {
		redist.OwnedCoords(dst, lens, r, func(coord []int) {
			off := redist.LocalOffset(dst, lens, coord)
			want := cellValue(coord[0], coord[1], n)
			require.Equal(t, want, results[r][off], "rank %d, coord %v", r, coord)
		})
	}
}

func TestRedistribute_IdentityShortCircuit(t *testing.T) {
	ctx := context.Background()
	comms := comm.NewLocalWorld(1)
	_, m := rowSharded(t, 1)
	data := []float64{1, 2, 3, 4}

	out, err := redist.Redistribute(ctx, comms[0], m, m, []int{2, 2}, data)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestExchangeKV_RoutesByDestinationOwnership(t *testing.T) {
	ctx := context.Background()
	const n, nprocs = 4, 2
	lens := []int{n}
	comms := comm.NewLocalWorld(nprocs)

	g, err := grid.NewProcessorGrid([]int{nprocs})
	require.NoError(t, err)
	dst, err := grid.New(g, []grid.DimAssign{{GridDim: 0, Virt: 1}})
	require.NoError(t, err)

	// Every rank sends the same 4 keys/values; each key should be
	// received exactly once, by the rank owning it under dst.
	keys := []int64{0, 1, 2, 3}
	values := []float64{10, 11, 12, 13}

	recvKeys := make([][]int64, nprocs)
	recvValues := make([][]float64, nprocs)
	done := make(chan int, nprocs)
	for r := 0; r < nprocs; r++ {
		go func(r int) {
			ks, vs, err := redist.ExchangeKV(ctx, comms[r], dst, lens, keys, values)
			require.NoError(t, err)
			recvKeys[r] = ks
			recvValues[r] = vs
			done <- r
		}(r)
	}
	for i := 0; i < nprocs; i++ {
		<-done
	}

	seen := map[int64]float64{}
	totalReceived := 0
	for r := 0; r < nprocs; r++ {
		totalReceived += len(recvKeys[r])
		for i, k := range recvKeys[r] {
			seen[k] = recvValues[r][i]
		}
	}
	// nprocs senders each ship all 4 keys to their single owner: each
	// owning rank receives the key nprocs times over (once per sender).
	require.Equal(t, n*nprocs, totalReceived)
	require.Len(t, seen, n)
	for i, k := range keys {
		require.Equal(t, values[i], seen[k])
	}
}

func TestEncodeDecodeKV_RoundTrip(t *testing.T) {
	keys := []int64{5, 2, 9}
	values := []float64{1.5, -2.5, 3.0}

	buf := redist.EncodeKV(keys, values)
	gotKeys, gotValues := redist.DecodeKV[float64](buf)

	gotPairs := make(map[int64]float64, len(gotKeys))
	for i, k := range gotKeys {
		gotPairs[k] = gotValues[i]
	}
	require.ElementsMatch(t, keys, gotKeys)
	for i, k := range keys {
		require.Equal(t, values[i], gotPairs[k])
	}
}

func TestEncodeKV_Empty(t *testing.T) {
	buf := redist.EncodeKV[float64](nil, nil)
	require.Nil(t, buf)
	keys, values := redist.DecodeKV[float64](buf)
	require.Empty(t, keys)
	require.Empty(t, values)
}
