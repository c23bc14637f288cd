package ctf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctfgo/ctf/algebra"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	ctx := context.Background()
	w := singleRankWorld(t)
	s := algebra.Ring[float64]()
	m := unshardedMapping(t, 2)

	a, err := NewTensor(w, s, []int{2, 2}, nil, m)
	require.NoError(t, err)

	keys := []int64{0, 1, 2, 3}
	values := []float64{10, 20, 30, 40}
	require.NoError(t, a.Write(ctx, keys, values, 1, 0))

	got, err := a.Read(ctx, keys, 1, 0, nil)
	require.NoError(t, err)
	require.Equal(t, values, got)
}

func TestWrite_BetaAccumulates(t *testing.T) {
	ctx := context.Background()
	w := singleRankWorld(t)
	s := algebra.Ring[float64]()
	m := unshardedMapping(t, 1)

	a, err := NewTensor(w, s, []int{4}, nil, m)
	require.NoError(t, err)
	copy(a.Data(), []float64{1, 1, 1, 1})

	// a[k] <- 2*a[k] + 1*v
	require.NoError(t, a.Write(ctx, []int64{0, 2}, []float64{5, 7}, 1, 2))
	require.Equal(t, []float64{7, 1, 9, 1}, a.Data())
}

func TestRead_WithPriorValuesAndBeta(t *testing.T) {
	ctx := context.Background()
	w := singleRankWorld(t)
	s := algebra.Ring[float64]()
	m := unshardedMapping(t, 1)

	a, err := NewTensor(w, s, []int{3}, nil, m)
	require.NoError(t, err)
	copy(a.Data(), []float64{1, 2, 3})

	keys := []int64{0, 1, 2}
	prior := []float64{100, 100, 100}
	got, err := a.Read(ctx, keys, 1, 2, prior)
	require.NoError(t, err)
	require.Equal(t, []float64{201, 202, 203}, got)
}

func TestRead_MissingKeyIsIdentity(t *testing.T) {
	ctx := context.Background()
	w := singleRankWorld(t)
	s := algebra.Ring[float64]()
	m := unshardedMapping(t, 1)

	a, err := NewTensor(w, s, []int{4}, nil, m)
	require.NoError(t, err)
	require.NoError(t, a.Write(ctx, []int64{1}, []float64{9}, 1, 0))

	got, err := a.Read(ctx, []int64{0, 1, 2, 3}, 1, 0, nil)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 9, 0, 0}, got)
}
