package symmetry

import "github.com/ctfgo/ctf/internal/errs"

// PackedSize returns the number of representative tuples stored for a
// group of the given tag and size over dimensions of edge length n:
// n choose k for AS/SH (strictly increasing tuples), the stars-and-bars
// count n+k-1 choose k for SY (non-decreasing tuples, the same n+k-1
// shift Multisets uses), or n itself for an ungrouped (NS) dimension.
func PackedSize(tag Tag, n, k int) int {
	switch tag {
	case NS:
		return n
	case AS, SH:
		return binomial(n, k)
	case SY:
		return binomial(n+k-1, k)
	default:
		return 0
	}
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 0; i < k; i++ {
		result = result * (n - i) / (i + 1)
	}
	return result
}

// Rank returns the lexicographic rank of a canonical representative
// tuple among all representatives of its group, i.e. its offset into
// packed storage. rep must already be canonical (as returned by
// Canonicalize or Representatives).
func Rank(tag Tag, n int, rep []int) (int, error) {
	k := len(rep)
	if tag == NS {
		if k != 1 {
			return 0, errs.New(errs.InvalidInput, "symmetry: NS group rank expects a single index, got %d", k)
		}
		return rep[0], nil
	}
	var shifted []int
	if tag.Strict() {
		shifted = rep
	} else {
		shifted = make([]int, k)
		for i, v := range rep {
			shifted[i] = v + i
		}
		n = n + k - 1
	}
	// Lexicographic rank of a strictly increasing k-combination of
	// {0,...,n-1}: standard combinatorial-number-system formula.
	rank := 0
	prev := -1
	for i, v := range shifted {
		for x := prev + 1; x < v; x++ {
			rank += binomial(n-1-x, k-1-i)
		}
		prev = v
	}
	return rank, nil
}

// Unpacked computes how many rectangular (logical) cells a packed group
// expands to: n^k.
func Unpacked(n, k int) int {
	size := 1
	for i := 0; i < k; i++ {
		size *= n
	}
	return size
}
