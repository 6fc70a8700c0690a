// Package chem is the structure layer behind HELM canonicalization and
// property calculation. It models a molecule as an atom/bond graph, reads and
// writes SMILES (including R-group pseudo-atoms and CXSMILES atom labels),
// stitches monomer fragments at their attachment points and derives formula,
// average molecular weight and monoisotopic mass.
package chem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/helmkit/pkg/errors"
)

// Chirality of a tetrahedral centre relative to its written neighbor order.
type Chirality int8

const (
	ChiralityNone Chirality = iota
	// ChiralityCCW is "@": anticlockwise looking from the first neighbor.
	ChiralityCCW
	// ChiralityCW is "@@".
	ChiralityCW
)

func (c Chirality) flip() Chirality {
	switch c {
	case ChiralityCCW:
		return ChiralityCW
	case ChiralityCW:
		return ChiralityCCW
	}
	return c
}

// BondOrder is the multiplicity of a bond. Aromatic bonds count as one
// towards an atom's valence.
type BondOrder int8

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

func (o BondOrder) valence() int {
	if o == BondAromatic {
		return 1
	}
	return int(o)
}

// Neighbor references in Atom.order that are not atom indices.
const (
	refHydrogen = -1
	refPending  = -2
)

// Atom is a node of the molecular graph. Element is "*" for attachment
// pseudo-atoms, whose R-group number is carried in Class.
type Atom struct {
	Element   string
	Aromatic  bool
	Bracket   bool
	Isotope   int
	Charge    int
	HCount    int
	Class     int
	Chirality Chirality

	// order is the neighbor order the chirality refers to.
	order   []int
	deleted bool
}

// IsAttachment reports whether the atom is an R-group pseudo-atom.
func (a Atom) IsAttachment() bool { return a.Element == "*" }

// RGroup returns the attachment number of a pseudo-atom, or 0.
func (a Atom) RGroup() int {
	if !a.IsAttachment() {
		return 0
	}
	if a.Class > 0 {
		return a.Class
	}
	return a.Isotope
}

// Bond connects atoms A and B.
type Bond struct {
	A, B    int
	Order   BondOrder
	deleted bool
}

func (b Bond) other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// Molecule is a mutable atom/bond graph. Atoms and bonds removed by Join or
// Cap are tombstoned until Compact.
type Molecule struct {
	atoms []Atom
	bonds []Bond
}

// NewMolecule returns an empty molecule.
func NewMolecule() *Molecule {
	return &Molecule{}
}

// Clone returns a deep copy of m.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{
		atoms: make([]Atom, len(m.atoms)),
		bonds: make([]Bond, len(m.bonds)),
	}
	copy(c.bonds, m.bonds)
	for i, a := range m.atoms {
		if a.order != nil {
			a.order = append([]int(nil), a.order...)
		}
		c.atoms[i] = a
	}
	return c
}

// AtomCount returns the number of live atoms, pseudo-atoms included.
func (m *Molecule) AtomCount() int {
	n := 0
	for _, a := range m.atoms {
		if !a.deleted {
			n++
		}
	}
	return n
}

// Atoms returns a copy of the live atoms in index order.
func (m *Molecule) Atoms() []Atom {
	out := make([]Atom, 0, len(m.atoms))
	for _, a := range m.atoms {
		if !a.deleted {
			a.order = nil
			out = append(out, a)
		}
	}
	return out
}

// BondCount returns the number of live bonds.
func (m *Molecule) BondCount() int {
	n := 0
	for _, b := range m.bonds {
		if !b.deleted {
			n++
		}
	}
	return n
}

func (m *Molecule) addAtom(a Atom) int {
	m.atoms = append(m.atoms, a)
	return len(m.atoms) - 1
}

func (m *Molecule) addBond(a, b int, order BondOrder) {
	m.bonds = append(m.bonds, Bond{A: a, B: b, Order: order})
}

// incident returns the indices of live bonds touching atom i.
func (m *Molecule) incident(i int) []int {
	var out []int
	for bi, b := range m.bonds {
		if !b.deleted && (b.A == i || b.B == i) {
			out = append(out, bi)
		}
	}
	return out
}

func (m *Molecule) valenceSum(i int) int {
	sum := 0
	for _, bi := range m.incident(i) {
		sum += m.bonds[bi].Order.valence()
	}
	return sum
}

// defaultHydrogens is the implicit hydrogen count atom i would have if it
// were written outside brackets.
func (m *Molecule) defaultHydrogens(i int) int {
	a := &m.atoms[i]
	vals, ok := organicValences[a.Element]
	if !ok {
		return 0
	}
	sum := m.valenceSum(i)
	if a.Aromatic {
		if h := vals[0] - sum - 1; h > 0 {
			return h
		}
		return 0
	}
	for _, v := range vals {
		if v >= sum {
			return v - sum
		}
	}
	return 0
}

// HydrogenCount returns the total hydrogens on atom i.
func (m *Molecule) HydrogenCount(i int) int {
	a := &m.atoms[i]
	if a.Bracket {
		return a.HCount
	}
	return m.defaultHydrogens(i)
}

func (m *Molecule) replaceRef(atom, from, to int) {
	a := &m.atoms[atom]
	for k, r := range a.order {
		if r == from {
			a.order[k] = to
			return
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Attachment points
// ─────────────────────────────────────────────────────────────────────────────

// RGroups maps each R-group number to its pseudo-atom index. Every
// pseudo-atom must be numbered, unique and singly bonded.
func (m *Molecule) RGroups() (map[int]int, error) {
	out := make(map[int]int)
	for i, a := range m.atoms {
		if a.deleted || !a.IsAttachment() {
			continue
		}
		r := a.RGroup()
		if r <= 0 {
			return nil, errors.New(errors.ErrCodeHELMStructure, "attachment point without R-group number")
		}
		if _, dup := out[r]; dup {
			return nil, errors.Newf(errors.ErrCodeHELMStructure, "duplicate attachment point R%d", r)
		}
		if n := len(m.incident(i)); n != 1 {
			return nil, errors.Newf(errors.ErrCodeHELMStructure, "attachment point R%d has %d bonds, want 1", r, n)
		}
		out[r] = i
	}
	return out, nil
}

// anchor returns the atom a pseudo-atom is bonded to and the bond index.
func (m *Molecule) anchor(dummy int) (int, int, error) {
	if dummy < 0 || dummy >= len(m.atoms) || m.atoms[dummy].deleted || !m.atoms[dummy].IsAttachment() {
		return 0, 0, errors.Newf(errors.ErrCodeHELMStructure, "atom %d is not an attachment point", dummy)
	}
	inc := m.incident(dummy)
	if len(inc) != 1 {
		return 0, 0, errors.Newf(errors.ErrCodeHELMStructure, "attachment point %d has %d bonds", dummy, len(inc))
	}
	return m.bonds[inc[0]].other(dummy), inc[0], nil
}

// Append copies frag into m and returns the index offset of its atoms.
func (m *Molecule) Append(frag *Molecule) int {
	offset := len(m.atoms)
	for _, a := range frag.atoms {
		if a.order != nil {
			order := make([]int, len(a.order))
			for k, r := range a.order {
				if r >= 0 {
					r += offset
				}
				order[k] = r
			}
			a.order = order
		}
		m.atoms = append(m.atoms, a)
	}
	for _, b := range frag.bonds {
		if b.deleted {
			continue
		}
		m.bonds = append(m.bonds, Bond{A: b.A + offset, B: b.B + offset, Order: b.Order})
	}
	return offset
}

// Join bonds the anchors of two pseudo-atoms and removes both pseudo-atoms.
// Chirality of either anchor is kept: the new partner takes the place of the
// pseudo-atom in the neighbor order.
func (m *Molecule) Join(dummyA, dummyB int) error {
	a, bondA, err := m.anchor(dummyA)
	if err != nil {
		return err
	}
	b, bondB, err := m.anchor(dummyB)
	if err != nil {
		return err
	}
	if a == b {
		return errors.New(errors.ErrCodeHELMStructure, "cannot bond an atom to itself")
	}
	order := m.bonds[bondA].Order
	m.bonds[bondA].deleted = true
	m.bonds[bondB].deleted = true
	m.atoms[dummyA].deleted = true
	m.atoms[dummyB].deleted = true
	m.addBond(a, b, order)
	m.replaceRef(a, dummyA, b)
	m.replaceRef(b, dummyB, a)
	return nil
}

// capElements are the leaving groups that replace the pseudo-atom by a
// single heavy atom.
var capElements = map[string]string{
	"OH":  "O",
	"NH2": "N",
	"SH":  "S",
	"CH3": "C",
}

// Cap closes an unused attachment point with its leaving group.
func (m *Molecule) Cap(dummy int, group string) error {
	a, bond, err := m.anchor(dummy)
	if err != nil {
		return err
	}
	group = strings.TrimSpace(group)
	if group == "" || strings.EqualFold(group, "H") {
		before := m.HydrogenCount(a)
		m.bonds[bond].deleted = true
		m.atoms[dummy].deleted = true
		anchor := &m.atoms[a]
		if anchor.Bracket || m.defaultHydrogens(a) != before+1 {
			anchor.Bracket = true
			anchor.HCount = before + 1
		}
		if anchor.Chirality != ChiralityNone {
			if before > 0 {
				anchor.Chirality = ChiralityNone
				anchor.order = nil
			} else {
				m.replaceRef(a, dummy, refHydrogen)
			}
		}
		return nil
	}
	el, ok := capElements[strings.ToUpper(group)]
	if !ok {
		return errors.Newf(errors.ErrCodeHELMStructure, "unsupported cap group %q", group)
	}
	m.atoms[dummy] = Atom{Element: el}
	return nil
}

// Compact drops tombstoned atoms and bonds and renumbers the remainder.
func (m *Molecule) Compact() {
	remap := make([]int, len(m.atoms))
	atoms := make([]Atom, 0, len(m.atoms))
	for i, a := range m.atoms {
		if a.deleted {
			remap[i] = -1
			continue
		}
		remap[i] = len(atoms)
		atoms = append(atoms, a)
	}
	for i := range atoms {
		a := &atoms[i]
		if a.order == nil {
			continue
		}
		for k, r := range a.order {
			if r < 0 {
				continue
			}
			if remap[r] < 0 {
				a.Chirality = ChiralityNone
				a.order = nil
				break
			}
			a.order[k] = remap[r]
		}
	}
	bonds := make([]Bond, 0, len(m.bonds))
	for _, b := range m.bonds {
		if b.deleted || remap[b.A] < 0 || remap[b.B] < 0 {
			continue
		}
		bonds = append(bonds, Bond{A: remap[b.A], B: remap[b.B], Order: b.Order})
	}
	m.atoms = atoms
	m.bonds = bonds
}

// ─────────────────────────────────────────────────────────────────────────────
// Formula and masses
// ─────────────────────────────────────────────────────────────────────────────

// Formula counts atoms per element symbol.
type Formula map[string]int

// String renders the formula in Hill order: C, H, then alphabetical. Without
// carbon every element, H included, is alphabetical.
func (f Formula) String() string {
	keys := make([]string, 0, len(f))
	for k, n := range f {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	_, hasC := f["C"]
	sort.Slice(keys, func(i, j int) bool {
		if hasC {
			ri, rj := hillRank(keys[i]), hillRank(keys[j])
			if ri != rj {
				return ri < rj
			}
		}
		return keys[i] < keys[j]
	})
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		if n := f[k]; n > 1 {
			fmt.Fprintf(&sb, "%d", n)
		}
	}
	return sb.String()
}

func hillRank(sym string) int {
	switch sym {
	case "C":
		return 0
	case "H":
		return 1
	}
	return 2
}

// Formula computes the molecular formula. Pseudo-atoms are not counted.
func (m *Molecule) Formula() Formula {
	f := Formula{}
	for i, a := range m.atoms {
		if a.deleted || a.IsAttachment() {
			continue
		}
		f[a.Element]++
		if h := m.HydrogenCount(i); h > 0 {
			f["H"] += h
		}
	}
	return f
}

// MolecularWeight returns the average molecular weight.
func (m *Molecule) MolecularWeight() (float64, error) {
	return m.mass(func(e Element) float64 { return e.AverageMass })
}

// ExactMass returns the monoisotopic mass.
func (m *Molecule) ExactMass() (float64, error) {
	return m.mass(func(e Element) float64 { return e.MonoisotopicMass })
}

func (m *Molecule) mass(pick func(Element) float64) (float64, error) {
	total := 0.0
	for sym, n := range m.Formula() {
		e, ok := LookupElement(sym)
		if !ok {
			return 0, errors.Newf(errors.ErrCodeHELMStructure, "no mass data for element %s", sym)
		}
		total += pick(e) * float64(n)
	}
	return total, nil
}
