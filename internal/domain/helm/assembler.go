package helm

import (
	"github.com/turtacn/helmkit/internal/domain/chem"
	"github.com/turtacn/helmkit/internal/domain/monomer"
)

// instance is one expanded copy of a written unit.
type instance struct {
	unit    Unit
	pos     int
	monomer *monomer.Monomer
	// sites maps R-group numbers to pseudo-atoms of the assembled molecule.
	sites map[int]int
}

// assembler stitches monomer structures into one molecule.
type assembler struct {
	resolver monomer.Resolver
	mol      *chem.Molecule
	// first maps polymer ID and written position to the first copy.
	first map[string]map[int]*instance
	all   []*instance
}

// Structure assembles the molecular graph of the canonical form of n.
func (e *Engine) Structure(n *Notation) (*chem.Molecule, error) {
	cn, err := e.CanonicalNotation(n)
	if err != nil {
		return nil, err
	}
	return assemble(e.resolver, cn)
}

// CanonicalSMILES returns the canonical SMILES of the whole assembly.
func (e *Engine) CanonicalSMILES(n *Notation) (string, error) {
	mol, err := e.Structure(n)
	if err != nil {
		return "", err
	}
	return chem.WriteSMILES(mol), nil
}

func assemble(r monomer.Resolver, n *Notation) (*chem.Molecule, error) {
	a := &assembler{
		resolver: r,
		mol:      chem.NewMolecule(),
		first:    make(map[string]map[int]*instance, len(n.Polymers)),
	}
	for _, p := range n.Polymers {
		if err := a.addPolymer(p); err != nil {
			return nil, err
		}
	}
	for _, c := range n.Connections {
		if c.IsPair() {
			continue
		}
		if err := a.connect(c); err != nil {
			return nil, err
		}
	}
	for _, in := range a.all {
		for r, atom := range in.sites {
			capGroup, _ := in.monomer.CapFor(rLabel(r))
			if err := a.mol.Cap(atom, capGroup); err != nil {
				return nil, newCanonicalizationError("", "cannot cap %s of %s: %v", rLabel(r), in.monomer.Symbol, err)
			}
		}
	}
	a.mol.Compact()
	return a.mol, nil
}

func (a *assembler) addPolymer(p *Polymer) error {
	if p.Type == monomer.Blob {
		return newCanonicalizationError(p.ID, "BLOB polymer %s has no structure", p.ID)
	}
	a.first[p.ID] = make(map[int]*instance)
	var (
		seq   []*instance
		units []Unit
	)
	pos := 0
	for _, el := range p.Elements {
		if el.Repeat.IsRange() {
			return newCanonicalizationError(p.ID, "repeat range %s has no single structure", el.Repeat)
		}
		for copyN := 0; copyN < el.Repeat.Times(); copyN++ {
			for ui, u := range el.Units {
				in, err := a.place(p, pos+ui+1, u)
				if err != nil {
					return err
				}
				if copyN == 0 {
					a.first[p.ID][in.pos] = in
				}
				seq = append(seq, in)
				units = append(units, u)
			}
		}
		pos += len(el.Units)
	}

	links, orphans := linkSequence(p.Type, units)
	if len(orphans) > 0 {
		return newCanonicalizationError(p.ID, "base at position %d has no sugar", seq[orphans[0]].pos)
	}
	for _, l := range links {
		if err := a.join(p.ID, seq[l.a], l.ra, seq[l.b], l.rb); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) place(p *Polymer, pos int, u Unit) (*instance, error) {
	if u.IsAmbiguous() {
		return nil, newCanonicalizationError(p.ID, "ambiguous monomer at position %d has no single structure", pos)
	}
	m, err := resolveSymbol(a.resolver, p.Type, u.Symbol, u.Inline)
	if err != nil {
		return nil, newCanonicalizationError(p.ID, "monomer %s at position %d has no structure", u.Symbol, pos)
	}
	mol, rgroups := m.Structure()
	offset := a.mol.Append(mol)
	in := &instance{unit: u, pos: pos, monomer: m, sites: make(map[int]int, len(rgroups))}
	for r, atom := range rgroups {
		in.sites[r] = atom + offset
	}
	a.all = append(a.all, in)
	return in, nil
}

func (a *assembler) join(polymerID string, x *instance, rx int, y *instance, ry int) error {
	ax, ok := x.sites[rx]
	if !ok {
		return newCanonicalizationError(polymerID, "%s at position %d has no free %s", x.monomer.Symbol, x.pos, rLabel(rx))
	}
	ay, ok := y.sites[ry]
	if !ok {
		return newCanonicalizationError(polymerID, "%s at position %d has no free %s", y.monomer.Symbol, y.pos, rLabel(ry))
	}
	if err := a.mol.Join(ax, ay); err != nil {
		return newCanonicalizationError(polymerID, "cannot bond position %d to %d: %v", x.pos, y.pos, err)
	}
	delete(x.sites, rx)
	delete(y.sites, ry)
	return nil
}

func (a *assembler) connect(c Connection) error {
	x, ok := a.first[c.Source.PolymerID][c.Source.Position]
	if !ok {
		return newCanonicalizationError(c.Source.PolymerID, "connection %s has no source monomer", c)
	}
	y, ok := a.first[c.Target.PolymerID][c.Target.Position]
	if !ok {
		return newCanonicalizationError(c.Target.PolymerID, "connection %s has no target monomer", c)
	}
	return a.join(c.Source.PolymerID, x, monomer.RGroupNumber(c.Source.Attachment), y, monomer.RGroupNumber(c.Target.Attachment))
}
