package helm

import (
	"fmt"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/pkg/errors"
)

// link is an implicit bond between two units of a sequence: unit a's
// attachment ra bonds to unit b's attachment rb.
type link struct {
	a, b   int
	ra, rb int
}

// linkSequence derives the implicit bonds of a unit sequence. Peptide and
// CHEM units chain R2 to R1. RNA backbone units (sugars and linkers) chain R2
// to R1 and every base binds R1 to the R3 of the backbone unit before it.
// orphans lists bases with no preceding backbone unit.
func linkSequence(t monomer.PolymerType, units []Unit) (links []link, orphans []int) {
	if t != monomer.RNA {
		for i := 1; i < len(units); i++ {
			links = append(links, link{a: i - 1, b: i, ra: 2, rb: 1})
		}
		return links, nil
	}
	last := -1
	for i, u := range units {
		if u.Branch {
			if last < 0 {
				orphans = append(orphans, i)
				continue
			}
			links = append(links, link{a: last, b: i, ra: 3, rb: 1})
			continue
		}
		if last >= 0 {
			links = append(links, link{a: last, b: i, ra: 2, rb: 1})
		}
		last = i
	}
	return links, orphans
}

// repeatLink is the bond that joins consecutive copies of a repeated element:
// the last backbone unit's R2 to the first backbone unit's R1. ok is false
// when the element has no backbone unit.
func repeatLink(units []Unit) (link, bool) {
	first, last := -1, -1
	for i, u := range units {
		if u.Branch {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return link{}, false
	}
	return link{a: last, b: first, ra: 2, rb: 1}, true
}

// flatten returns the units of p in written order.
func flatten(p *Polymer) []Unit {
	var out []Unit
	for _, e := range p.Elements {
		out = append(out, e.Units...)
	}
	return out
}

// resolveUnit returns the monomer of a unit, or one monomer per alternative.
func resolveUnit(r monomer.Resolver, t monomer.PolymerType, u Unit) ([]*monomer.Monomer, error) {
	if !u.IsAmbiguous() {
		m, err := resolveSymbol(r, t, u.Symbol, u.Inline)
		if err != nil {
			return nil, err
		}
		return []*monomer.Monomer{m}, nil
	}
	out := make([]*monomer.Monomer, 0, len(u.Alternatives))
	for _, a := range u.Alternatives {
		m, err := resolveSymbol(r, t, a.Symbol, a.Inline)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func resolveSymbol(r monomer.Resolver, t monomer.PolymerType, symbol string, inline bool) (*monomer.Monomer, error) {
	if inline {
		m, err := monomer.NewInline(t, symbol)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMonomerNotFound, "inline SMILES does not describe a monomer")
		}
		return m, nil
	}
	return r.Resolve(t, symbol)
}

func rLabel(n int) string { return fmt.Sprintf("R%d", n) }
