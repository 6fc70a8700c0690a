package chem

import (
	"strconv"
	"strings"

	"github.com/turtacn/helmkit/pkg/errors"
)

type ringOpen struct {
	atom  int
	order BondOrder // 0 when not written
	slot  int       // index into the opener's stereo order, -1 when not chiral
}

type smilesParser struct {
	src   string
	pos   int
	mol   *Molecule
	rings map[int]ringOpen
}

// ParseSMILES reads a SMILES string with an optional CXSMILES extension
// ("C[*] |$;_R1$|"). Atom labels of the form _Rn number attachment points.
func ParseSMILES(s string) (*Molecule, error) {
	s = strings.TrimSpace(s)
	smiles, ext := s, ""
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		smiles, ext = s[:i], strings.TrimSpace(s[i:])
	}
	if smiles == "" {
		return nil, errors.New(errors.ErrCodeHELMStructure, "empty SMILES")
	}
	p := &smilesParser{src: smiles, mol: NewMolecule(), rings: make(map[int]ringOpen)}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if ext != "" {
		if err := applyCXLabels(p.mol, ext); err != nil {
			return nil, err
		}
	}
	for i := range p.mol.atoms {
		a := &p.mol.atoms[i]
		if a.Chirality != ChiralityNone && len(a.order) != 4 {
			a.Chirality = ChiralityNone
			a.order = nil
		}
	}
	return p.mol, nil
}

// MustParseSMILES is ParseSMILES for literals known to be valid.
func MustParseSMILES(s string) *Molecule {
	m, err := ParseSMILES(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (p *smilesParser) errorf(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeHELMStructure, format, args...).
		WithDetail("SMILES " + p.src + " at offset " + strconv.Itoa(p.pos))
}

func (p *smilesParser) parse() error {
	prev := -1
	var pendingBond BondOrder
	var stack []int

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if prev < 0 {
				return p.errorf("branch without a preceding atom")
			}
			stack = append(stack, prev)
			p.pos++
		case c == ')':
			if len(stack) == 0 {
				return p.errorf("unbalanced ')'")
			}
			if pendingBond != 0 {
				return p.errorf("bond symbol before ')'")
			}
			prev = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			p.pos++
		case c == '.':
			if pendingBond != 0 {
				return p.errorf("bond symbol before '.'")
			}
			prev = -1
			p.pos++
		case strings.IndexByte("-=#:/\\", c) >= 0:
			if pendingBond != 0 {
				return p.errorf("consecutive bond symbols")
			}
			pendingBond = bondFromSymbol(c)
			p.pos++
		case c == '%' || (c >= '0' && c <= '9'):
			if prev < 0 {
				return p.errorf("ring closure without a preceding atom")
			}
			num, err := p.ringNumber()
			if err != nil {
				return err
			}
			if err := p.ring(prev, num, pendingBond); err != nil {
				return err
			}
			pendingBond = 0
		default:
			idx, err := p.atom()
			if err != nil {
				return err
			}
			if prev >= 0 {
				p.link(prev, idx, pendingBond)
			} else if pendingBond != 0 {
				return p.errorf("bond symbol without a preceding atom")
			}
			pendingBond = 0
			if a := &p.mol.atoms[idx]; a.Chirality != ChiralityNone && a.HCount > 0 {
				a.order = append(a.order, refHydrogen)
			}
			prev = idx
		}
	}
	if pendingBond != 0 {
		return p.errorf("dangling bond symbol")
	}
	if len(stack) > 0 {
		return p.errorf("unbalanced '('")
	}
	if len(p.rings) > 0 {
		for num := range p.rings {
			return p.errorf("ring bond %d is not closed", num)
		}
	}
	if len(p.mol.atoms) == 0 {
		return p.errorf("no atoms")
	}
	return nil
}

func bondFromSymbol(c byte) BondOrder {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case ':':
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) defaultOrder(a, b int) BondOrder {
	if p.mol.atoms[a].Aromatic && p.mol.atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) link(a, b int, order BondOrder) {
	if order == 0 {
		order = p.defaultOrder(a, b)
	}
	p.mol.addBond(a, b, order)
	if p.mol.atoms[a].Chirality != ChiralityNone {
		p.mol.atoms[a].order = append(p.mol.atoms[a].order, b)
	}
	if p.mol.atoms[b].Chirality != ChiralityNone {
		p.mol.atoms[b].order = append(p.mol.atoms[b].order, a)
	}
}

func (p *smilesParser) ringNumber() (int, error) {
	if p.src[p.pos] != '%' {
		n := int(p.src[p.pos] - '0')
		p.pos++
		return n, nil
	}
	if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
		return 0, p.errorf("'%%' must be followed by two digits")
	}
	n, _ := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
	p.pos += 3
	return n, nil
}

func (p *smilesParser) ring(atom, num int, order BondOrder) error {
	open, ok := p.rings[num]
	if !ok {
		slot := -1
		if a := &p.mol.atoms[atom]; a.Chirality != ChiralityNone {
			slot = len(a.order)
			a.order = append(a.order, refPending)
		}
		p.rings[num] = ringOpen{atom: atom, order: order, slot: slot}
		return nil
	}
	delete(p.rings, num)
	if open.atom == atom {
		return p.errorf("ring bond %d closes on its own atom", num)
	}
	if order != 0 && open.order != 0 && order != open.order {
		return p.errorf("conflicting bond orders on ring bond %d", num)
	}
	if order == 0 {
		order = open.order
	}
	if order == 0 {
		order = p.defaultOrder(open.atom, atom)
	}
	p.mol.addBond(open.atom, atom, order)
	if open.slot >= 0 {
		p.mol.atoms[open.atom].order[open.slot] = atom
	}
	if a := &p.mol.atoms[atom]; a.Chirality != ChiralityNone {
		a.order = append(a.order, open.atom)
	}
	return nil
}

func (p *smilesParser) atom() (int, error) {
	c := p.src[p.pos]
	if c == '[' {
		return p.bracketAtom()
	}
	if c == '*' {
		p.pos++
		return p.mol.addAtom(Atom{Element: "*"}), nil
	}
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if two == "Cl" || two == "Br" {
			p.pos += 2
			return p.mol.addAtom(Atom{Element: two}), nil
		}
	}
	sym := string(c)
	if el, ok := aromaticSymbols[sym]; ok {
		p.pos++
		return p.mol.addAtom(Atom{Element: el, Aromatic: true}), nil
	}
	if _, ok := organicValences[sym]; ok {
		p.pos++
		return p.mol.addAtom(Atom{Element: sym}), nil
	}
	return 0, p.errorf("unexpected character %q", c)
}

func (p *smilesParser) bracketAtom() (int, error) {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return 0, p.errorf("unterminated bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	a := Atom{Bracket: true}
	i := 0
	for i < len(body) && isDigit(body[i]) {
		i++
	}
	if i > 0 {
		a.Isotope, _ = strconv.Atoi(body[:i])
	}

	switch {
	case i < len(body) && body[i] == '*':
		a.Element = "*"
		i++
	case i+1 < len(body) && bracketAromaticSymbols[body[i:i+2]] != "":
		a.Element = bracketAromaticSymbols[body[i:i+2]]
		a.Aromatic = true
		i += 2
	case i < len(body) && aromaticSymbols[body[i:i+1]] != "":
		a.Element = aromaticSymbols[body[i:i+1]]
		a.Aromatic = true
		i++
	case i < len(body) && isUpper(body[i]):
		sym := body[i : i+1]
		if i+1 < len(body) && isLower(body[i+1]) {
			if _, ok := elements[body[i:i+2]]; ok {
				sym = body[i : i+2]
			}
		}
		if _, ok := elements[sym]; !ok {
			return 0, p.errorf("unknown element in [%s]", body)
		}
		a.Element = sym
		i += len(sym)
	default:
		return 0, p.errorf("missing element in [%s]", body)
	}

	if i < len(body) && body[i] == '@' {
		a.Chirality = ChiralityCCW
		i++
		if i < len(body) && body[i] == '@' {
			a.Chirality = ChiralityCW
			i++
		}
	}
	if i < len(body) && body[i] == 'H' {
		a.HCount = 1
		i++
		j := i
		for j < len(body) && isDigit(body[j]) {
			j++
		}
		if j > i {
			a.HCount, _ = strconv.Atoi(body[i:j])
			i = j
		}
	}
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		ch := body[i]
		i++
		n := 1
		j := i
		for j < len(body) && isDigit(body[j]) {
			j++
		}
		if j > i {
			n, _ = strconv.Atoi(body[i:j])
			i = j
		} else {
			for i < len(body) && body[i] == ch {
				n++
				i++
			}
		}
		a.Charge = sign * n
	}
	if i < len(body) && body[i] == ':' {
		i++
		j := i
		for j < len(body) && isDigit(body[j]) {
			j++
		}
		if j == i {
			return 0, p.errorf("missing atom class in [%s]", body)
		}
		a.Class, _ = strconv.Atoi(body[i:j])
		i = j
	}
	if i != len(body) {
		return 0, p.errorf("unexpected %q in [%s]", body[i:], body)
	}
	if a.Element == "*" {
		a.Chirality = ChiralityNone
	}
	return p.mol.addAtom(a), nil
}

// applyCXLabels reads the atom label block of a CXSMILES extension. Other
// extension blocks are ignored.
func applyCXLabels(m *Molecule, ext string) error {
	if !strings.HasPrefix(ext, "|") || !strings.HasSuffix(ext, "|") || len(ext) < 2 {
		return errors.New(errors.ErrCodeHELMStructure, "malformed CXSMILES extension").WithDetail(ext)
	}
	body := ext[1 : len(ext)-1]
	start := strings.IndexByte(body, '$')
	if start < 0 {
		return nil
	}
	stop := strings.IndexByte(body[start+1:], '$')
	if stop < 0 {
		return errors.New(errors.ErrCodeHELMStructure, "unterminated CXSMILES label block").WithDetail(ext)
	}
	labels := strings.Split(body[start+1:start+1+stop], ";")
	if len(labels) > len(m.atoms) {
		return errors.Newf(errors.ErrCodeHELMStructure, "CXSMILES lists %d labels for %d atoms", len(labels), len(m.atoms))
	}
	for i, lbl := range labels {
		if !strings.HasPrefix(lbl, "_R") {
			continue
		}
		n, err := strconv.Atoi(lbl[2:])
		if err != nil || n <= 0 {
			return errors.Newf(errors.ErrCodeHELMStructure, "invalid R-group label %q", lbl)
		}
		if !m.atoms[i].IsAttachment() {
			return errors.Newf(errors.ErrCodeHELMStructure, "label %q on non-attachment atom %d", lbl, i)
		}
		m.atoms[i].Class = n
	}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
