// Package symmetry implements the symmetry iterator (C3): it wraps a
// dense kernel so it sees a logical rectangular block while the
// underlying storage is a packed simplex for symmetric groups (§4.3).
//
// Grounded on original_source/src/ctr_comm/sum_tsr.cxx's
// sym_seq_sum_tsr, which walks packed storage producing sign and
// weight; re-expressed here as small, composable combinatorics
// (combinations, permutations, parity) instead of the original's
// recursive index-generation macros.
package symmetry

import "github.com/ctfgo/ctf/internal/errs"

// Tag is one of the four relations a dimension can have with its
// successor (§3).
type Tag int

const (
	NS Tag = iota // unrelated
	SY            // symmetric: i <= i+1
	AS            // antisymmetric: i < i+1, sign flips on swap
	SH            // symmetric-hollow: i < i+1, diagonal is identity
)

func (t Tag) String() string {
	switch t {
	case NS:
		return "NS"
	case SY:
		return "SY"
	case AS:
		return "AS"
	case SH:
		return "SH"
	default:
		return "?"
	}
}

// Strict reports whether the group requires strictly increasing
// representative tuples (AS, SH) as opposed to non-decreasing (SY).
func (t Tag) Strict() bool { return t == AS || t == SH }

// Group is a maximal run of consecutive dimensions sharing one non-NS
// tag: S[First]..S[First+Size-2] are all the same tag, giving a group of
// Size dimensions (§3's per-dimension S[i] relates i to i+1, so a chain
// of k-1 equal tags produces a group of k dimensions).
type Group struct {
	First int
	Size  int
	Tag   Tag
}

// BuildGroups partitions a tensor's per-dimension symmetry tags (length
// d, last entry ignored since S[d-1] has no successor) into maximal
// groups. Dimensions with tag NS form their own group of size 1 (also
// returned, so callers can treat every dimension uniformly) tagged NS.
func BuildGroups(tags []Tag) []Group {
	var groups []Group
	i := 0
	for i < len(tags) {
		if tags[i] == NS || i == len(tags)-1 {
			groups = append(groups, Group{First: i, Size: 1, Tag: NS})
			i++
			continue
		}
		tag := tags[i]
		size := 1
		for i+size-1 < len(tags)-1 && tags[i+size-1] == tag {
			size++
		}
		groups = append(groups, Group{First: i, Size: size, Tag: tag})
		i += size
	}
	return groups
}

// Validate checks that a Group's declared dimensions agree with the
// invariant that symmetric pairs share edge length; lens holds the
// tensor's edge lengths.
func (g Group) Validate(lens []int) error {
	if g.Size < 1 {
		return errs.New(errs.InvalidInput, "symmetry: group at dim %d has non-positive size %d", g.First, g.Size)
	}
	if g.Tag == NS {
		return nil
	}
	n := lens[g.First]
	for d := g.First + 1; d < g.First+g.Size; d++ {
		if lens[d] != n {
			return errs.New(errs.ShapeMismatch,
				"symmetry: group at dim %d requires equal edge lengths, got %d at dim %d and %d at dim %d",
				g.First, n, g.First, lens[d], d)
		}
	}
	return nil
}
