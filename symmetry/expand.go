package symmetry

// RedundantTerm is one term of the "symmetry preservation by redundant
// computation" expansion (§4.3): a permutation of the group's k slots to
// apply to the operand carrying the group, paired with the sign and
// weight that term contributes.
type RedundantTerm struct {
	Perm   []int
	Sign   int
	Weight float64 // 1/k!, so the k! redundant calls average out correctly
}

// ExpandRedundant returns every term needed to compute a contraction
// across a group that one operand declares symmetric but that isn't
// shared by the result (a "broken" group, per the planner's symmetry
// alignment step, §4.7 step 2). For a SY group every permutation
// contributes with sign +1; for AS/SH every permutation contributes
// with the parity of the permutation -- this is exactly the
// `(A_ik*B_kj - A_jk*B_ki)/2` pattern in §4.3 generalized from pairs
// (k=2) to any group size.
func ExpandRedundant(tag Tag, size int) []RedundantTerm {
	perms := Permutations(size)
	weight := 1.0 / float64(factorial(size))
	terms := make([]RedundantTerm, len(perms))
	for i, p := range perms {
		sign := 1
		if tag.Strict() {
			sign = Sign(p)
		}
		terms[i] = RedundantTerm{Perm: p, Sign: sign, Weight: weight}
	}
	return terms
}
