// Package canon finds canonical labelings of small graphs by
// individualize-and-refine search.
//
// A labeling is a rank per vertex. Callers supply the refinement for their
// graph and a serialization of a fully ranked graph; Search returns the
// serialization that sorts first among all labelings the refinement allows,
// so the result does not depend on the input vertex order.
package canon

import (
	"sort"
)

// Problem describes one canonicalization.
type Problem[T any] struct {
	// Refine splits rank classes until stable. It must keep the relative
	// order of existing classes and depend only on the graph and rank.
	Refine func(rank []int) []int
	// Leaf serializes the graph under a rank with one vertex per class.
	Leaf func(rank []int) (string, T)
	// Limit caps the number of leaves serialized. Zero means no cap.
	Limit int
}

// Result is the winning leaf.
type Result[T any] struct {
	Text   string
	Value  T
	Leaves int
}

type leaf[T any] struct {
	path  []int
	order []int
	text  string
	value T
}

type search[T any] struct {
	p      Problem[T]
	leaves int
	first  *leaf[T]
	best   *leaf[T]
	orbits [][]int
}

// Search runs the individualize-and-refine search from rank.
//
// A leaf that serializes like an earlier one reveals a symmetry: the branch
// it sits in mirrors one already explored, so the search returns to where
// the two paths diverge. Symmetries that fix a prefix of the first path also
// prune orbit-equivalent siblings on that path.
func Search[T any](p Problem[T], rank []int) Result[T] {
	s := &search[T]{p: p}
	s.run(append([]int(nil), rank...), nil)
	return Result[T]{Text: s.best.text, Value: s.best.value, Leaves: s.leaves}
}

// run returns the depth the search must return to, or -1.
func (s *search[T]) run(rank []int, path []int) int {
	rank = s.p.Refine(rank)
	cell := FirstCell(rank)
	if cell == nil {
		return s.leaf(rank, path)
	}

	depth := len(path)
	onFirst := s.first == nil || hasPrefix(s.first.path, path)
	var tried []int
	for _, v := range cell {
		if s.p.Limit > 0 && s.leaves >= s.p.Limit {
			return -1
		}
		if onFirst && s.first != nil && s.sameOrbit(depth, v, tried) {
			continue
		}
		child := append(append([]int(nil), path...), v)
		back := s.run(Individualize(rank, v), child)
		tried = append(tried, v)
		if back >= 0 && back < depth {
			return back
		}
	}
	return -1
}

func (s *search[T]) leaf(rank []int, path []int) int {
	text, value := s.p.Leaf(rank)
	l := &leaf[T]{path: path, order: Order(rank), text: text, value: value}
	s.leaves++

	if s.first == nil {
		s.first, s.best = l, l
		s.orbits = make([][]int, len(path))
		return -1
	}
	if l.text == s.first.text {
		d := commonPrefix(s.first.path, path)
		s.recordSymmetry(l, d)
		return d
	}
	if l.text == s.best.text {
		return commonPrefix(s.best.path, path)
	}
	if l.text < s.best.text {
		s.best = l
	}
	return -1
}

// recordSymmetry merges orbits under the map from the first leaf to l at every
// first-path depth up to d, since the map fixes that prefix.
func (s *search[T]) recordSymmetry(l *leaf[T], d int) {
	gamma := make([]int, len(l.order))
	for k, i := range s.first.order {
		gamma[i] = l.order[k]
	}
	for depth := 0; depth <= d && depth < len(s.orbits); depth++ {
		if s.orbits[depth] == nil {
			s.orbits[depth] = make([]int, len(gamma))
			for i := range s.orbits[depth] {
				s.orbits[depth][i] = i
			}
		}
		for i, j := range gamma {
			union(s.orbits[depth], i, j)
		}
	}
}

func (s *search[T]) sameOrbit(depth, v int, tried []int) bool {
	if depth >= len(s.orbits) || s.orbits[depth] == nil {
		return false
	}
	rv := find(s.orbits[depth], v)
	for _, u := range tried {
		if find(s.orbits[depth], u) == rv {
			return true
		}
	}
	return false
}

// Individualize moves v ahead of the other members of its class.
func Individualize(rank []int, v int) []int {
	out := make([]int, len(rank))
	for i, r := range rank {
		out[i] = 2 * r
		if r == rank[v] && i != v {
			out[i]++
		}
	}
	return out
}

// FirstCell returns the members of the lowest-ranked class with more than
// one member in index order, or nil when every vertex has its own rank.
func FirstCell(rank []int) []int {
	members := make(map[int][]int)
	for i, r := range rank {
		members[r] = append(members[r], i)
	}
	best := -1
	for r, m := range members {
		if len(m) > 1 && (best < 0 || r < best) {
			best = r
		}
	}
	if best < 0 {
		return nil
	}
	return members[best]
}

// Order lists vertex indices by ascending rank.
func Order(rank []int) []int {
	order := make([]int, len(rank))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rank[order[a]] < rank[order[b]] })
	return order
}

// RankKeys maps keys to dense ranks in sorted key order.
func RankKeys(keys []string) []int {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	index := make(map[string]int, len(sorted))
	for _, k := range sorted {
		if _, ok := index[k]; !ok {
			index[k] = len(index)
		}
	}
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = index[k]
	}
	return out
}

// Classes counts distinct ranks.
func Classes(rank []int) int {
	seen := make(map[int]struct{}, len(rank))
	for _, r := range rank {
		seen[r] = struct{}{}
	}
	return len(seen)
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

func union(parent []int, a, b int) {
	ra, rb := find(parent, a), find(parent, b)
	if ra != rb {
		parent[rb] = ra
	}
}

func hasPrefix(path, prefix []int) bool {
	return len(prefix) <= len(path) && commonPrefix(path, prefix) == len(prefix)
}

func commonPrefix(a, b []int) int {
	k := 0
	for k < len(a) && k < len(b) && a[k] == b[k] {
		k++
	}
	return k
}
