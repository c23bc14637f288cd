package algebra

import "math"

// Numeric constrains the built-in ring presets, following the same
// "~kind | ~kind | ..." shape itohio-EasyRobot's generics/helpers.Numeric
// constraint uses for its BLAS-like kernels.
type Numeric interface {
	~float64 | ~float32 | ~int64 | ~int32 | ~int | ~int16 | ~int8
}

// Ring builds the standard (0, +, *) semiring over any Numeric type.
func Ring[T Numeric]() *Structure[T] {
	s, err := New[T]("ring", func() T { return 0 }, func() T { return 1 },
		func(a, b T) T { return a + b },
		func(a, b T) T { return a * b },
		true, false)
	if err != nil {
		// Unreachable: identity/add are always non-nil here.
		panic(err)
	}
	return s.WithNegation(func(a T) T { return -a }).
		WithScale(func(a T, w float64) T { return T(float64(a) * w) })
}

// Boolean builds the (false, OR, AND) monoid-cum-semiring over bool.
func Boolean() *Structure[bool] {
	s, err := New[bool]("boolean", func() bool { return false }, func() bool { return true },
		func(a, b bool) bool { return a || b },
		func(a, b bool) bool { return a && b },
		true, false)
	if err != nil {
		panic(err)
	}
	return s
}

// Tropical builds the (+∞, min, +) tropical semiring used for shortest
// paths: Add picks the shorter distance, Mul composes path lengths.
func Tropical() *Structure[float64] {
	s, err := New[float64]("tropical", func() float64 { return math.Inf(1) }, func() float64 { return 0 },
		func(a, b float64) float64 {
			if a < b {
				return a
			}
			return b
		},
		func(a, b float64) float64 { return a + b },
		true, false)
	if err != nil {
		panic(err)
	}
	return s
}

// PathWithMultiplicity is the value type of the tie-broken path semiring
// from original_source/examples/btwn_central.cxx: a shortest-path distance
// paired with the number of shortest paths achieving it.
type PathWithMultiplicity struct {
	Dist  float64
	Count float64
}

// TropicalWithTiebreak builds the path semiring used by betweenness
// centrality: Add keeps the shorter distance, summing multiplicities when
// two paths tie, and is marked Ordered since the tie-break makes Add
// associative only up to the canonical (dist, then accumulated count)
// ordering (§4.1).
func TropicalWithTiebreak() *Structure[PathWithMultiplicity] {
	add := func(a, b PathWithMultiplicity) PathWithMultiplicity {
		switch {
		case a.Dist < b.Dist:
			return a
		case b.Dist < a.Dist:
			return b
		default:
			return PathWithMultiplicity{Dist: a.Dist, Count: a.Count + b.Count}
		}
	}
	mul := func(a, b PathWithMultiplicity) PathWithMultiplicity {
		return PathWithMultiplicity{Dist: a.Dist + b.Dist, Count: a.Count * b.Count}
	}
	s, err := New[PathWithMultiplicity]("tropical_tiebreak",
		func() PathWithMultiplicity { return PathWithMultiplicity{Dist: math.Inf(1), Count: 0} },
		func() PathWithMultiplicity { return PathWithMultiplicity{Dist: 0, Count: 1} },
		add, mul, true, true)
	if err != nil {
		panic(err)
	}
	return s
}
