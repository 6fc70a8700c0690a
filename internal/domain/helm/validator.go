package helm

import (
	"fmt"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Validator checks a Notation against a monomer registry. It never changes
// the notation.
type Validator struct {
	resolver monomer.Resolver
}

// NewValidator returns a Validator that looks monomers up in r.
func NewValidator(r monomer.Resolver) *Validator {
	return &Validator{resolver: r}
}

// siteKey identifies one attachment point of one written position.
type siteKey struct {
	polymer string
	pos     int
	r       int
}

// polymerCheck is the per-polymer state shared by the rule passes.
type polymerCheck struct {
	polymer  *Polymer
	units    []Unit
	monomers [][]*monomer.Monomer
}

type validation struct {
	v          *Validator
	n          *Notation
	polymers   map[string]*polymerCheck
	used       map[siteKey]bool
	violations []Violation
}

// Validate reports every rule n violates in one *ValidationError. Registry
// failures other than a missing monomer are returned as they are.
func (v *Validator) Validate(n *Notation) error {
	s := &validation{
		v:        v,
		n:        n,
		polymers: make(map[string]*polymerCheck, len(n.Polymers)),
		used:     make(map[siteKey]bool),
	}
	for _, p := range n.Polymers {
		if err := s.checkPolymer(p); err != nil {
			return err
		}
	}
	for _, c := range n.Connections {
		s.checkConnection(c)
	}
	s.checkGroups()
	if len(s.violations) > 0 {
		return newValidationError(s.violations)
	}
	return nil
}

func (s *validation) add(rule Rule, polymerID string, pos int, symbol, format string, args ...interface{}) {
	s.violations = append(s.violations, Violation{
		Rule:      rule,
		PolymerID: polymerID,
		Position:  pos,
		Symbol:    symbol,
		Message:   fmt.Sprintf(format, args...),
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Monomers and backbone
// ─────────────────────────────────────────────────────────────────────────────

func (s *validation) checkPolymer(p *Polymer) error {
	pc := &polymerCheck{polymer: p}
	s.polymers[p.ID] = pc
	if p.Type == monomer.Blob {
		return nil
	}
	pc.units = flatten(p)
	pc.monomers = make([][]*monomer.Monomer, len(pc.units))
	for i, u := range pc.units {
		ms, err := s.resolve(p, i+1, u)
		if err != nil {
			return err
		}
		pc.monomers[i] = ms
	}

	links, orphans := linkSequence(p.Type, pc.units)
	for _, i := range orphans {
		s.add(RuleBackbone, p.ID, i+1, unitSymbol(pc.units[i]), "base has no preceding sugar")
	}
	for _, l := range links {
		s.checkLink(pc, l)
	}

	// bonds between copies of a repeated element
	start := 0
	for _, e := range p.Elements {
		if e.Repeat.IsRange() || e.Repeat.Times() > 1 {
			if l, ok := repeatLink(e.Units); ok {
				l.a += start
				l.b += start
				s.checkLink(pc, l)
			}
		}
		start += len(e.Units)
	}
	return nil
}

// resolve looks up every monomer of a unit and records a violation for each
// one that is missing. Only registry failures are returned.
func (s *validation) resolve(p *Polymer, pos int, u Unit) ([]*monomer.Monomer, error) {
	var (
		out     []*monomer.Monomer
		missing bool
	)
	check := func(symbol string, inline bool) error {
		m, err := resolveSymbol(s.v.resolver, p.Type, symbol, inline)
		switch {
		case err == nil:
			out = append(out, m)
			return nil
		case !errors.IsNotFound(err):
			return err
		}
		missing = true
		if inline {
			s.add(RuleUnknownMonomer, p.ID, pos, symbol, "inline SMILES is not a valid monomer")
			return nil
		}
		if others := s.v.resolver.TypesOf(symbol); len(others) > 0 {
			names := make([]string, len(others))
			for i, t := range others {
				names[i] = t.String()
			}
			s.add(RuleTypeMismatch, p.ID, pos, symbol, "monomer is defined for %s, not %s", strings.Join(names, ", "), p.Type)
			return nil
		}
		s.add(RuleUnknownMonomer, p.ID, pos, symbol, "monomer is not in the %s library", p.Type)
		return nil
	}
	if u.IsAmbiguous() {
		for _, a := range u.Alternatives {
			if err := check(a.Symbol, a.Inline); err != nil {
				return nil, err
			}
		}
	} else if err := check(u.Symbol, u.Inline); err != nil {
		return nil, err
	}
	if missing {
		return nil, nil
	}
	if p.Type == monomer.RNA {
		for _, m := range out {
			if m.Inline() {
				continue
			}
			if u.Branch && m.Kind != monomer.KindBase {
				s.add(RuleTypeMismatch, p.ID, pos, m.Symbol, "%s is a %s, not a base", m.Symbol, m.Kind)
			}
			if !u.Branch && m.Kind == monomer.KindBase {
				s.add(RuleBackbone, p.ID, pos, m.Symbol, "base %s must be written as a branch", m.Symbol)
			}
		}
	}
	return out, nil
}

// checkLink verifies that both units of an implicit bond carry the needed
// attachment points and marks them used.
func (s *validation) checkLink(pc *polymerCheck, l link) {
	ok := true
	for _, side := range []struct{ idx, r int }{{l.a, l.ra}, {l.b, l.rb}} {
		for _, m := range pc.monomers[side.idx] {
			if !m.HasAttachment(rLabel(side.r)) {
				s.add(RuleBackbone, pc.polymer.ID, side.idx+1, m.Symbol,
					"%s has no %s to bond position %d to position %d", m.Symbol, rLabel(side.r), l.a+1, l.b+1)
				ok = false
			}
		}
	}
	if ok {
		s.used[siteKey{pc.polymer.ID, l.a + 1, l.ra}] = true
		s.used[siteKey{pc.polymer.ID, l.b + 1, l.rb}] = true
	}
}

func unitSymbol(u Unit) string {
	if u.IsAmbiguous() {
		parts := make([]string, len(u.Alternatives))
		for i, a := range u.Alternatives {
			parts[i] = a.Symbol
		}
		return strings.Join(parts, ",")
	}
	return u.Symbol
}

// ─────────────────────────────────────────────────────────────────────────────
// Connections and groups
// ─────────────────────────────────────────────────────────────────────────────

func (s *validation) checkConnection(c Connection) {
	pair := c.IsPair()
	if !pair && (strings.EqualFold(c.Source.Attachment, AttachmentPair) ||
		strings.EqualFold(c.Target.Attachment, AttachmentPair)) {
		s.add(RuleConnection, c.Source.PolymerID, c.Source.Position, "", "connection %s mixes pair and R-group attachments", c)
		return
	}
	src, okSrc := s.checkEndpoint(c, c.Source, pair)
	tgt, okTgt := s.checkEndpoint(c, c.Target, pair)
	if !okSrc || !okTgt {
		return
	}
	if src == tgt && !pair {
		s.add(RuleConnection, c.Source.PolymerID, c.Source.Position, "", "connection %s bonds an attachment point to itself", c)
		return
	}
	if pair {
		return
	}
	for _, k := range []siteKey{src, tgt} {
		if k.pos == 0 {
			continue
		}
		if s.used[k] {
			s.add(RuleConnection, k.polymer, k.pos, "", "attachment point %s is already used", rLabel(k.r))
			continue
		}
		s.used[k] = true
	}
}

// checkEndpoint returns the site an endpoint occupies. A BLOB endpoint has
// position 0 in the returned key.
func (s *validation) checkEndpoint(c Connection, e Endpoint, pair bool) (siteKey, bool) {
	pc, ok := s.polymers[e.PolymerID]
	if !ok {
		s.add(RuleConnection, e.PolymerID, 0, "", "connection %s names an unknown polymer", c)
		return siteKey{}, false
	}
	if pc.polymer.Type == monomer.Blob {
		return siteKey{polymer: e.PolymerID}, true
	}
	if e.Position < 1 || e.Position > len(pc.units) {
		s.add(RuleConnection, e.PolymerID, e.Position, "", "position %d is outside 1..%d", e.Position, len(pc.units))
		return siteKey{}, false
	}
	u := pc.units[e.Position-1]
	ms := pc.monomers[e.Position-1]
	if pair {
		if pc.polymer.Type != monomer.RNA || !u.Branch {
			s.add(RuleConnection, e.PolymerID, e.Position, unitSymbol(u), "base pairs must join nucleotide bases")
			return siteKey{}, false
		}
		return siteKey{polymer: e.PolymerID, pos: e.Position}, true
	}
	r := monomer.RGroupNumber(e.Attachment)
	if ms == nil {
		// monomer already reported
		return siteKey{}, false
	}
	for _, m := range ms {
		if !m.HasAttachment(e.Attachment) {
			s.add(RuleConnection, e.PolymerID, e.Position, m.Symbol, "%s has no attachment point %s", m.Symbol, e.Attachment)
			return siteKey{}, false
		}
	}
	return siteKey{polymer: e.PolymerID, pos: e.Position, r: r}, true
}

func (s *validation) checkGroups() {
	ids := make(map[string]bool, len(s.n.Groups))
	for _, g := range s.n.Groups {
		if ids[g.ID] {
			s.add(RuleGroup, "", 0, g.ID, "group %s is defined twice", g.ID)
		}
		ids[g.ID] = true
	}
	for _, g := range s.n.Groups {
		if len(g.Members) == 0 {
			s.add(RuleGroup, "", 0, g.ID, "group %s is empty", g.ID)
		}
		seen := make(map[string]bool, len(g.Members))
		for _, m := range g.Members {
			if _, ok := s.polymers[m.PolymerID]; !ok && !ids[m.PolymerID] {
				s.add(RuleGroup, "", 0, g.ID, "group %s names unknown member %s", g.ID, m.PolymerID)
			}
			if m.PolymerID == g.ID {
				s.add(RuleGroup, "", 0, g.ID, "group %s contains itself", g.ID)
			}
			if seen[m.PolymerID] {
				s.add(RuleGroup, "", 0, g.ID, "group %s lists %s twice", g.ID, m.PolymerID)
			}
			seen[m.PolymerID] = true
		}
	}
}
