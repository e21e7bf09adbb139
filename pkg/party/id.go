// Package party defines the identity type shared by the aggregator and
// every client taking part in a round.
package party

import "sort"

// ID is a client's stable identifier. The total order over IDs is
// canonical byte-lexicographic comparison: the antisymmetric pairwise
// mask construction (spec §3, §4.1) depends on every participant and
// the aggregator agreeing on the same order without coordination.
type ID string

// Less reports whether id comes strictly before other in the canonical
// order used to decide mask signs.
func (id ID) Less(other ID) bool {
	return id < other
}

// IDSlice is a sortable, searchable collection of party IDs.
type IDSlice []ID

func (s IDSlice) Len() int           { return len(s) }
func (s IDSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s IDSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Sort returns a sorted copy of s.
func (s IDSlice) Sort() IDSlice {
	out := make(IDSlice, len(s))
	copy(out, s)
	sort.Sort(out)
	return out
}

// Contains reports whether id appears in s.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// NewIDSlice builds an IDSlice from a set.
func NewIDSlice(set map[ID]struct{}) IDSlice {
	out := make(IDSlice, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out.Sort()
}

// Strings converts s to a slice of plain strings, in the same order.
func Strings(s IDSlice) []string {
	out := make([]string, len(s))
	for i, id := range s {
		out[i] = string(id)
	}
	return out
}

// PairSign returns the sign a participant applies to the pairwise mask
// it shares with other, derived solely from the canonical ID order so
// that every party computes the same value for the same pair without
// coordination (spec §3, §4.1). u adds PairSign(u,other)*p and other
// adds PairSign(other,u)*p == -PairSign(u,other)*p, so the two
// contributions cancel once both are present in the masked sum.
func PairSign(u, other ID) int {
	if u.Less(other) {
		return 1
	}
	return -1
}
