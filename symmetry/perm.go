package symmetry

// Permutations returns all k! permutations of {0,...,k-1}, in
// lexicographic order, via Heap's-algorithm-free recursive insertion
// (simple and k is always small: a symmetry group's degree rarely
// exceeds 3 or 4 in practice).
func Permutations(k int) [][]int {
	if k <= 0 {
		return [][]int{{}}
	}
	var result [][]int
	used := make([]bool, k)
	cur := make([]int, 0, k)
	var rec func()
	rec = func() {
		if len(cur) == k {
			result = append(result, append([]int(nil), cur...))
			return
		}
		for v := 0; v < k; v++ {
			if used[v] {
				continue
			}
			used[v] = true
			cur = append(cur, v)
			rec()
			cur = cur[:len(cur)-1]
			used[v] = false
		}
	}
	rec()
	return result
}

// Sign returns the parity of a permutation of {0,...,k-1}: +1 for an
// even number of inversions, -1 for odd. Used for the AS/SH sign flip on
// swap (§3, §4.3).
func Sign(perm []int) int {
	inversions := 0
	for i := 0; i < len(perm); i++ {
		for j := i + 1; j < len(perm); j++ {
			if perm[i] > perm[j] {
				inversions++
			}
		}
	}
	if inversions%2 == 0 {
		return 1
	}
	return -1
}

// Apply returns the tuple obtained by reading src through perm:
// dst[i] = src[perm[i]].
func Apply(perm, src []int) []int {
	dst := make([]int, len(perm))
	for i, p := range perm {
		dst[i] = src[p]
	}
	return dst
}
