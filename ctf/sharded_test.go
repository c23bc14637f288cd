package ctf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctfgo/ctf/algebra"
	"github.com/ctfgo/ctf/comm"
	"github.com/ctfgo/ctf/grid"
)

// rowShardedMapping assigns tensor dim 0 to grid dim 0 (row-sharded
// across the communicator) and leaves dim 1 replicated.
func rowShardedMapping(t *testing.T, g *grid.ProcessorGrid) *grid.Mapping {
	t.Helper()
	m, err := grid.New(g, []grid.DimAssign{
		{GridDim: 0, Virt: 1},
		{GridDim: grid.Unsharded, Virt: 1},
	})
	require.NoError(t, err)
	return m
}

// TestContract_RowSharded exercises Contract across multiple ranks: A
// and C are sharded by row across two ranks, B's contracted axis starts
// out row-sharded too (mirroring A and C's own Mapping) and must be
// aligned by the planner's redistribution step before the local kernel
// runs.
func TestContract_RowSharded(t *testing.T) {
	const n, nprocs = 4, 2
	ctx := context.Background()
	comms := comm.NewLocalWorld(nprocs)
	s := algebra.Ring[float64]()

	// A = identity, B = arbitrary values -> C should equal B exactly.
	aVals := make([]float64, n*n)
	bVals := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				aVals[i*n+j] = 1
			}
			bVals[i*n+j] = float64(i*n + j + 1)
		}
	}

	results := make([][]float64, nprocs)
	done := make(chan struct{}, nprocs)
	for r := 0; r < nprocs; r++ {
		go func(r int) {
			defer func() { done <- struct{}{} }()
			g, err := grid.NewProcessorGrid([]int{nprocs})
			require.NoError(t, err)
			mapping := rowShardedMapping(t, g)

			w := NewWorld(comms[r])
			a, err := NewTensor(w, s, []int{n, n}, nil, mapping)
			require.NoError(t, err)
			b, err := NewTensor(w, s, []int{n, n}, nil, mapping)
			require.NoError(t, err)
			c, err := NewTensor(w, s, []int{n, n}, nil, mapping)
			require.NoError(t, err)

			// Seed via Write so every rank's local buffer gets the
			// right rows regardless of row-sharding details.
			keys := make([]int64, n*n)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					keys[i*n+j] = int64(i + j*n) // column-major key, row i, col j
				}
			}
			require.NoError(t, a.Write(ctx, keys, aVals, 1, 0))
			require.NoError(t, b.Write(ctx, keys, bVals, 1, 0))

			require.NoError(t, c.Contract(ctx, 1.0, a, "ik", b, "kj", 0.0, "ij"))

			got, err := c.Read(ctx, keys, 1, 0, nil)
			require.NoError(t, err)
			results[r] = got
		}(r)
	}
	for i := 0; i < nprocs; i++ {
		<-done
	}

	for r := 0; r < nprocs; r++ {
		require.Equal(t, bVals, results[r])
	}
}
