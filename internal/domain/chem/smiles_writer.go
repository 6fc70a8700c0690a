package chem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/canon"
)

type edge struct {
	to   int
	bond int
}

// smilesWriter emits a molecule in two passes: a ranked depth-first walk that
// fixes the spanning tree and ring closures, then text generation.
type smilesWriter struct {
	m    *Molecule
	adj  [][]edge
	rank []int

	visited  []bool
	usedBond []bool
	children [][]edge
	opens    [][]int // ring bonds opened at an atom
	closes   [][]int // ring bonds closed at an atom

	digitOf map[int]int
	free    []bool
	sb      strings.Builder
}

// maxSMILESLeaves caps the tie-break search over symmetric atoms.
const maxSMILESLeaves = 256

// WriteSMILES renders m as canonical SMILES. Atoms left equivalent by
// neighborhood refinement are ordered by searching their tie-breaks for the
// labeling whose certificate sorts first, so stereo on symmetric atoms does
// not depend on the atom order of m. Molecules needing more than
// maxSMILESLeaves labelings keep the best one found.
func WriteSMILES(m *Molecule) string {
	c := m.Clone()
	c.Compact()
	if len(c.atoms) == 0 {
		return ""
	}
	w := &smilesWriter{m: c}
	w.build()
	res := canon.Search(canon.Problem[[]int]{
		Refine: func(rank []int) []int { return refineAtoms(c, w.adj, rank) },
		Leaf: func(rank []int) (string, []int) {
			return w.certificate(rank), rank
		},
		Limit: maxSMILESLeaves,
	}, initialAtomRanks(c, w.adj))
	return w.render(res.Value)
}

// certificate encodes the molecule labeled by rank: per atom in rank order
// its invariants, its chirality relative to rank-ordered neighbors, and its
// bonds by neighbor position. Two labelings share a certificate only when
// they differ by a stereo-preserving automorphism.
func (w *smilesWriter) certificate(rank []int) string {
	order := canon.Order(rank)
	pos := make([]int, len(order))
	for k, i := range order {
		pos[i] = k
	}
	key := func(x int) int {
		if x == refHydrogen {
			return -1
		}
		return rank[x]
	}
	var sb strings.Builder
	for _, i := range order {
		a := w.m.atoms[i]
		chir := ChiralityNone
		if a.Chirality != ChiralityNone {
			to := append([]int(nil), a.order...)
			sort.Slice(to, func(x, y int) bool { return key(to[x]) < key(to[y]) })
			chir = orientedChirality(a.Chirality, a.order, to)
		}
		nb := make([]string, 0, len(w.adj[i]))
		for _, e := range w.adj[i] {
			nb = append(nb, fmt.Sprintf("%06d:%d", pos[e.to], w.m.bonds[e.bond].Order))
		}
		sort.Strings(nb)
		fmt.Fprintf(&sb, "%s|%t|%d|%d|%d|%d|%v|%s;",
			a.Element, a.Aromatic, a.Charge, a.Isotope, a.Class, w.m.HydrogenCount(i), chir, strings.Join(nb, ","))
	}
	return sb.String()
}

// render writes the molecule with atoms ordered by rank, which must give
// every atom its own value.
func (w *smilesWriter) render(rank []int) string {
	w.rank = rank
	n := len(w.m.atoms)
	w.visited = make([]bool, n)
	w.usedBond = make([]bool, len(w.m.bonds))
	w.children = make([][]edge, n)
	w.opens = make([][]int, n)
	w.closes = make([][]int, n)
	w.digitOf = make(map[int]int)
	w.free = make([]bool, 100)
	for i := 1; i < len(w.free); i++ {
		w.free[i] = true
	}
	w.sb.Reset()

	var starts []int
	for _, comp := range w.components() {
		start := comp[0]
		for _, a := range comp[1:] {
			da, ds := len(w.adj[a]), len(w.adj[start])
			if da < ds || (da == ds && w.rank[a] < w.rank[start]) {
				start = a
			}
		}
		w.walk(start, -1)
		starts = append(starts, start)
	}
	for i, s := range starts {
		if i > 0 {
			w.sb.WriteByte('.')
		}
		w.emit(s, -1)
	}
	return w.sb.String()
}

func (w *smilesWriter) build() {
	w.adj = make([][]edge, len(w.m.atoms))
	for bi, b := range w.m.bonds {
		w.adj[b.A] = append(w.adj[b.A], edge{to: b.B, bond: bi})
		w.adj[b.B] = append(w.adj[b.B], edge{to: b.A, bond: bi})
	}
}

// components returns connected components ordered by their best-ranked atom.
func (w *smilesWriter) components() [][]int {
	seen := make([]bool, len(w.m.atoms))
	var comps [][]int
	for i := range w.m.atoms {
		if seen[i] {
			continue
		}
		comp := []int{i}
		seen[i] = true
		for q := 0; q < len(comp); q++ {
			for _, e := range w.adj[comp[q]] {
				if !seen[e.to] {
					seen[e.to] = true
					comp = append(comp, e.to)
				}
			}
		}
		comps = append(comps, comp)
	}
	minRank := func(c []int) int {
		best := w.rank[c[0]]
		for _, a := range c {
			if w.rank[a] < best {
				best = w.rank[a]
			}
		}
		return best
	}
	sort.SliceStable(comps, func(i, j int) bool { return minRank(comps[i]) < minRank(comps[j]) })
	return comps
}

func (w *smilesWriter) sortedEdges(u int) []edge {
	es := append([]edge(nil), w.adj[u]...)
	sort.Slice(es, func(i, j int) bool { return w.rank[es[i].to] < w.rank[es[j].to] })
	return es
}

func (w *smilesWriter) walk(u, parentBond int) {
	w.visited[u] = true
	for _, e := range w.sortedEdges(u) {
		if e.bond == parentBond || w.usedBond[e.bond] {
			continue
		}
		w.usedBond[e.bond] = true
		if w.visited[e.to] {
			w.opens[e.to] = append(w.opens[e.to], e.bond)
			w.closes[u] = append(w.closes[u], e.bond)
			continue
		}
		w.children[u] = append(w.children[u], e)
		w.walk(e.to, e.bond)
	}
}

func (w *smilesWriter) emit(u, parentBond int) {
	a := w.m.atoms[u]
	hydrogens := w.m.HydrogenCount(u)

	var out []int
	if parentBond >= 0 {
		out = append(out, w.m.bonds[parentBond].other(u))
	}
	bracket := w.needsBracket(u, hydrogens)
	if bracket && hydrogens > 0 {
		out = append(out, refHydrogen)
	}

	var ringText strings.Builder
	for _, bi := range w.closes[u] {
		d := w.digitOf[bi]
		w.free[d] = true
		delete(w.digitOf, bi)
		ringText.WriteString(ringDigit(d))
		out = append(out, w.m.bonds[bi].other(u))
	}
	for _, bi := range w.opens[u] {
		d := w.takeDigit()
		w.digitOf[bi] = d
		ringText.WriteString(w.bondSymbol(bi))
		ringText.WriteString(ringDigit(d))
		out = append(out, w.m.bonds[bi].other(u))
	}
	for _, e := range w.children[u] {
		out = append(out, e.to)
	}

	chir := ChiralityNone
	if a.Chirality != ChiralityNone {
		chir = orientedChirality(a.Chirality, a.order, out)
	}
	w.sb.WriteString(w.atomText(a, hydrogens, bracket, chir))
	w.sb.WriteString(ringText.String())

	for i, e := range w.children[u] {
		last := i == len(w.children[u])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondSymbol(e.bond))
		w.emit(e.to, e.bond)
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) takeDigit() int {
	for d := 1; d < len(w.free); d++ {
		if w.free[d] {
			w.free[d] = false
			return d
		}
	}
	// more than 99 simultaneously open rings
	w.free = append(w.free, false)
	return len(w.free) - 1
}

func ringDigit(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

func (w *smilesWriter) bondSymbol(bi int) string {
	b := w.m.bonds[bi]
	bothAromatic := w.m.atoms[b.A].Aromatic && w.m.atoms[b.B].Aromatic
	switch b.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		if bothAromatic {
			return ""
		}
		return ":"
	}
	if bothAromatic {
		return "-"
	}
	return ""
}

func (w *smilesWriter) needsBracket(u, hydrogens int) bool {
	a := w.m.atoms[u]
	if a.IsAttachment() {
		return a.Class > 0 || a.Isotope > 0 || a.Charge != 0
	}
	if _, organic := organicValences[a.Element]; !organic {
		return true
	}
	if a.Aromatic {
		if _, ok := aromaticSymbols[strings.ToLower(a.Element)]; !ok {
			return true
		}
	}
	if a.Isotope != 0 || a.Charge != 0 || a.Class != 0 || a.Chirality != ChiralityNone {
		return true
	}
	return hydrogens != w.m.defaultHydrogens(u)
}

func (w *smilesWriter) atomText(a Atom, hydrogens int, bracket bool, chir Chirality) string {
	sym := a.Element
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	if !bracket {
		return sym
	}
	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	switch chir {
	case ChiralityCCW:
		sb.WriteString("@")
	case ChiralityCW:
		sb.WriteString("@@")
	}
	if hydrogens > 0 {
		sb.WriteByte('H')
		if hydrogens > 1 {
			sb.WriteString(strconv.Itoa(hydrogens))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		fmt.Fprintf(&sb, "+%d", a.Charge)
	case a.Charge < -1:
		fmt.Fprintf(&sb, "-%d", -a.Charge)
	}
	if a.Class > 0 {
		fmt.Fprintf(&sb, ":%d", a.Class)
	}
	sb.WriteByte(']')
	return sb.String()
}

// orientedChirality re-expresses a chirality given for neighbor order from in
// terms of neighbor order to. Chirality is dropped when the neighbor sets
// differ.
func orientedChirality(c Chirality, from, to []int) Chirality {
	if len(from) != len(to) {
		return ChiralityNone
	}
	pos := make(map[int]int, len(to))
	for i, r := range to {
		pos[r] = i
	}
	perm := make([]int, len(from))
	for i, r := range from {
		p, ok := pos[r]
		if !ok {
			return ChiralityNone
		}
		perm[i] = p
	}
	swaps := 0
	for i := range perm {
		for perm[i] != i {
			j := perm[i]
			perm[i], perm[j] = perm[j], perm[i]
			swaps++
		}
	}
	if swaps%2 == 1 {
		return c.flip()
	}
	return c
}

// initialAtomRanks classes atoms by element, aromaticity, degree, hydrogen
// count, charge, isotope and atom class.
func initialAtomRanks(m *Molecule, adj [][]edge) []int {
	keys := make([]string, len(m.atoms))
	for i, a := range m.atoms {
		e, _ := LookupElement(a.Element)
		arom := 0
		if a.Aromatic {
			arom = 1
		}
		keys[i] = fmt.Sprintf("%03d|%d|%d|%d|%+d|%03d|%03d",
			e.AtomicNumber, arom, len(adj[i]), m.HydrogenCount(i), a.Charge, a.Isotope, a.Class)
	}
	return canon.RankKeys(keys)
}

// refineAtoms splits atom classes by the classes and bond orders of their
// neighbors until the number of classes stops growing.
func refineAtoms(m *Molecule, adj [][]edge, rank []int) []int {
	classes := canon.Classes(rank)
	for classes < len(rank) {
		next := make([]string, len(rank))
		for i := range m.atoms {
			nb := make([]string, 0, len(adj[i]))
			for _, e := range adj[i] {
				nb = append(nb, fmt.Sprintf("%06d:%d", rank[e.to], m.bonds[e.bond].Order))
			}
			sort.Strings(nb)
			next[i] = fmt.Sprintf("%06d|%s", rank[i], strings.Join(nb, ","))
		}
		nr := canon.RankKeys(next)
		nc := canon.Classes(nr)
		rank = nr
		if nc == classes {
			break
		}
		classes = nc
	}
	return rank
}
