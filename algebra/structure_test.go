package algebra_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctfgo/ctf/algebra"
)

func TestNew_RequiresIdentityAddMul(t *testing.T) {
	_, err := algebra.New[int]("broken", nil, nil, func(a, b int) int { return a + b }, func(a, b int) int { return a * b }, false, false)
	require.Error(t, err)
}

func TestNew_SemiringRequiresOne(t *testing.T) {
	_, err := algebra.New[int]("broken", func() int { return 0 }, nil,
		func(a, b int) int { return a + b }, func(a, b int) int { return a * b }, true, false)
	require.Error(t, err)
}

func TestNew_MonoidWithoutOneIsFine(t *testing.T) {
	s, err := algebra.New[int]("monoid", func() int { return 0 }, nil,
		func(a, b int) int { return a + b }, func(a, b int) int { return a * b }, false, false)
	require.NoError(t, err)
	require.False(t, s.IsSemiring())
}

func TestRing_BasicOps(t *testing.T) {
	s := algebra.Ring[float64]()
	require.Equal(t, 0.0, s.Identity())
	require.Equal(t, 1.0, s.One())
	require.Equal(t, 7.0, s.Add(3, 4))
	require.Equal(t, 12.0, s.Mul(3, 4))
	require.True(t, s.IsSemiring())
	require.False(t, s.Ordered())
}

func TestRing_NegateAndScale(t *testing.T) {
	s := algebra.Ring[float64]()
	neg, ok := s.Negate(5)
	require.True(t, ok)
	require.Equal(t, -5.0, neg)

	scaled, ok := s.Scale(4, 0.5)
	require.True(t, ok)
	require.Equal(t, 2.0, scaled)
}

func TestBoolean_WithoutNegationOrScale(t *testing.T) {
	s := algebra.Boolean()
	require.Equal(t, false, s.Identity())
	require.Equal(t, true, s.Add(false, true))
	require.Equal(t, false, s.Mul(true, false))

	_, ok := s.Negate(true)
	require.False(t, ok)
	_, ok = s.Scale(true, 2)
	require.False(t, ok)
}

func TestTropical_AddPicksMin(t *testing.T) {
	s := algebra.Tropical()
	require.Equal(t, 3.0, s.Add(3, 5))
	require.Equal(t, 8.0, s.Mul(3, 5))
	require.True(t, s.IsSemiring())
}

func TestTropicalWithTiebreak_AccumulatesMultiplicityOnTie(t *testing.T) {
	s := algebra.TropicalWithTiebreak()
	a := algebra.PathWithMultiplicity{Dist: 4, Count: 2}
	b := algebra.PathWithMultiplicity{Dist: 4, Count: 3}
	got := s.Add(a, b)
	require.Equal(t, algebra.PathWithMultiplicity{Dist: 4, Count: 5}, got)

	shorter := s.Add(algebra.PathWithMultiplicity{Dist: 1, Count: 1}, a)
	require.Equal(t, algebra.PathWithMultiplicity{Dist: 1, Count: 1}, shorter)
	require.True(t, s.Ordered())
}

func TestStructure_ReduceRequiresBind(t *testing.T) {
	s := algebra.Ring[float64]()
	err := s.Reduce(context.Background(), []float64{1, 2}, algebra.SUM)
	require.Error(t, err)
}

func TestStructure_BindRejectsNilReducer(t *testing.T) {
	s := algebra.Ring[float64]()
	_, err := s.Bind(nil)
	require.Error(t, err)
}

func TestStructure_BindLeavesOriginalUnboundAndReturnsUsableCopy(t *testing.T) {
	s := algebra.Ring[float64]()
	var seen []float64
	bound, err := s.Bind(func(ctx context.Context, buf []float64, op algebra.ReduceOp) error {
		seen = append(seen, buf...)
		require.Equal(t, algebra.SUM, op)
		return nil
	})
	require.NoError(t, err)

	require.Error(t, s.Reduce(context.Background(), []float64{1}, algebra.SUM))
	require.NoError(t, bound.Reduce(context.Background(), []float64{1, 2, 3}, algebra.SUM))
	require.Equal(t, []float64{1, 2, 3}, seen)
}

func TestReduceOp_String(t *testing.T) {
	require.Equal(t, "SUM", algebra.SUM.String())
	require.Equal(t, "NORM2", algebra.NORM2.String())
	require.Equal(t, "UNKNOWN", algebra.ReduceOp(99).String())
}
