package symmetry

// Combinations enumerates, in lexicographic order, every strictly
// increasing k-tuple drawn from {0,...,n-1}: the representative tuples
// of an AS or SH group (§3: "i < i+1").
func Combinations(n, k int) [][]int {
	if k == 0 {
		return [][]int{{}}
	}
	if k > n {
		return nil
	}
	var result [][]int
	combo := make([]int, k)
	for i := range combo {
		combo[i] = i
	}
	for {
		result = append(result, append([]int(nil), combo...))
		// advance to the next combination in lexicographic order
		i := k - 1
		for i >= 0 && combo[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		combo[i]++
		for j := i + 1; j < k; j++ {
			combo[j] = combo[j-1] + 1
		}
	}
	return result
}

// Multisets enumerates, in lexicographic order, every non-decreasing
// k-tuple drawn from {0,...,n-1}: the representative tuples of a SY
// group (§3: "i <= i+1"). It reuses Combinations via the standard
// bijection between non-decreasing k-tuples over n values and strictly
// increasing k-tuples over n+k-1 values: (t_1,...,t_k) non-decreasing
// <-> (t_1, t_2+1, ..., t_k+k-1) strictly increasing.
func Multisets(n, k int) [][]int {
	shifted := Combinations(n+k-1, k)
	out := make([][]int, len(shifted))
	for i, c := range shifted {
		tuple := make([]int, k)
		for j, v := range c {
			tuple[j] = v - j
		}
		out[i] = tuple
	}
	return out
}

// Representatives enumerates the canonical representative tuples stored
// for a group of the given tag and size, each dimension ranging over
// [0,n).
func Representatives(tag Tag, n, k int) [][]int {
	if tag.Strict() {
		return Combinations(n, k)
	}
	return Multisets(n, k)
}

// Weight returns the number of distinct orderings of tuple that all map
// to the same canonical representative: for SY this is the multinomial
// count k!/∏(multiplicity!) of the tuple's repeated values; for AS/SH
// every representative's entries are distinct so it is always k! (§4.3:
// "scales the contribution by the group's repetition count to
// compensate for the packed storage of that group").
func Weight(tag Tag, tuple []int) int {
	if tag.Strict() {
		return factorial(len(tuple))
	}
	counts := make(map[int]int, len(tuple))
	for _, v := range tuple {
		counts[v]++
	}
	w := factorial(len(tuple))
	for _, c := range counts {
		w /= factorial(c)
	}
	return w
}

func factorial(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return f
}

// Canonicalize maps an arbitrary (possibly unordered, possibly
// repeating) logical tuple accessing a symmetric group into its stored
// representative, the sign to apply, and whether the cell is a forced
// zero (AS/SH diagonal, §3 invariant (c)).
func Canonicalize(tag Tag, tuple []int) (rep []int, sign int, zero bool) {
	rep = append([]int(nil), tuple...)
	if tag == NS {
		return rep, 1, false
	}
	if tag.Strict() {
		for i := range rep {
			for j := i + 1; j < len(rep); j++ {
				if rep[i] == rep[j] {
					return rep, 0, true
				}
			}
		}
	}
	// Selection-sort rep in place while tracking inversion parity, since
	// len(rep) is always small (a symmetry group's degree).
	parity := 1
	for i := 0; i < len(rep); i++ {
		minIdx := i
		for j := i + 1; j < len(rep); j++ {
			if rep[j] < rep[minIdx] {
				minIdx = j
			}
		}
		if minIdx != i {
			rep[i], rep[minIdx] = rep[minIdx], rep[i]
			parity = -parity
		}
	}
	if tag == SY {
		return rep, 1, false
	}
	return rep, parity, false
}
