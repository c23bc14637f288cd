package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctfgo/ctf/algebra"
)

func TestExecute_GEMMFastPath(t *testing.T) {
	ctx := context.Background()
	s := algebra.Ring[float64]()

	// A = 2x2 identity, B arbitrary -> C should equal B exactly.
	a := NewLocal([]int{2, 2}, []float64{1, 0, 0, 1})
	b := NewLocal([]int{2, 2}, []float64{5, 6, 7, 8})
	c := NewLocal([]int{2, 2}, nil)
	spec := ContractionSpec{AContracting: []int{1}, BContracting: []int{0}}

	require.NoError(t, Execute(ctx, s, a, b, c, spec, 1, 0, nil))
	require.Equal(t, []float64{5, 6, 7, 8}, c.Data)
}

func TestExecute_NestedLoopFallbackForBatchedContraction(t *testing.T) {
	ctx := context.Background()
	s := algebra.Ring[float64]()

	// Two stacked 2x2 identity-times-B batches -> GEMM doesn't qualify
	// (batch axis present), so this exercises the nested-loop fallback.
	a := NewLocal([]int{2, 2, 2}, []float64{
		1, 0, 0, 1,
		1, 0, 0, 1,
	})
	b := NewLocal([]int{2, 2, 2}, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})
	c := NewLocal([]int{2, 2, 2}, nil)
	spec := ContractionSpec{
		AContracting: []int{2}, BContracting: []int{1},
		ABatch: []int{0}, BBatch: []int{0},
	}

	require.NoError(t, Execute(ctx, s, a, b, c, spec, 1, 0, nil))
	require.Equal(t, b.Data, c.Data)
}

func TestExecute_BetaAccumulates(t *testing.T) {
	ctx := context.Background()
	s := algebra.Ring[float64]()

	a := NewLocal([]int{2, 2}, []float64{1, 0, 0, 1})
	b := NewLocal([]int{2, 2}, []float64{1, 1, 1, 1})
	c := NewLocal([]int{2, 2}, []float64{10, 10, 10, 10})
	spec := ContractionSpec{AContracting: []int{1}, BContracting: []int{0}}

	require.NoError(t, Execute(ctx, s, a, b, c, spec, 2, 3, nil))
	// c <- 3*c + 2*(A@B) = 30 + 2*1 = 32 for every cell (A@B == B here).
	require.Equal(t, []float64{32, 32, 32, 32}, c.Data)
}

func TestExecute_ZeroExtentScalesCInPlace(t *testing.T) {
	ctx := context.Background()
	s := algebra.Ring[float64]()

	a := NewLocal([]int{0, 2}, nil)
	b := NewLocal([]int{2, 2}, []float64{1, 2, 3, 4})
	c := NewLocal([]int{0, 2}, nil)
	spec := ContractionSpec{AContracting: []int{1}, BContracting: []int{0}}

	require.NoError(t, Execute(ctx, s, a, b, c, spec, 1, 5, nil))
	require.Empty(t, c.Data)
}

func TestExecute_RejectsMismatchedContractingAxisLength(t *testing.T) {
	ctx := context.Background()
	s := algebra.Ring[float64]()

	a := NewLocal([]int{2, 3}, nil)
	b := NewLocal([]int{4, 2}, nil)
	c := NewLocal([]int{2, 2}, nil)
	spec := ContractionSpec{AContracting: []int{1}, BContracting: []int{0}}

	err := Execute(ctx, s, a, b, c, spec, 1, 0, nil)
	require.Error(t, err)
}

func TestExecute1_PermutesFreeAxis(t *testing.T) {
	a := NewLocal([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	c := NewLocal([]int{3, 2}, nil)

	// c[j][i] = a[i][j]: transpose.
	require.NoError(t, Execute1(algebra.Ring[float64](), a, c, []int{1, 0}, 1, 0))
	require.Equal(t, []float64{1, 4, 2, 5, 3, 6}, c.Data)
}

func TestExecute1_NilPermIsIdentity(t *testing.T) {
	a := NewLocal([]int{2, 2}, []float64{1, 2, 3, 4})
	c := NewLocal([]int{2, 2}, nil)

	require.NoError(t, Execute1(algebra.Ring[float64](), a, c, nil, 1, 0))
	require.Equal(t, a.Data, c.Data)
}

func TestExecute1_BetaAccumulates(t *testing.T) {
	a := NewLocal([]int{2}, []float64{1, 2})
	c := NewLocal([]int{2}, []float64{10, 20})

	require.NoError(t, Execute1(algebra.Ring[float64](), a, c, nil, 2, 3))
	require.Equal(t, []float64{32, 64}, c.Data)
}

func TestExecute1_RejectsPermLengthMismatch(t *testing.T) {
	a := NewLocal([]int{2, 2}, nil)
	c := NewLocal([]int{2, 2}, nil)

	err := Execute1(algebra.Ring[float64](), a, c, []int{0}, 1, 0)
	require.Error(t, err)
}

func TestContractionSpec_ValidateRejectsOutputOrderMismatch(t *testing.T) {
	spec := ContractionSpec{AContracting: []int{1}, BContracting: []int{0}}
	err := spec.validate([]int{2, 3}, []int{3, 4}, []int{2})
	require.Error(t, err)

	require.NoError(t, spec.validate([]int{2, 3}, []int{3, 4}, []int{2, 4}))
}
