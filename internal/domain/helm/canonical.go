package helm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/canon"
	"github.com/turtacn/helmkit/internal/domain/chem"
	"github.com/turtacn/helmkit/internal/domain/monomer"
)

// CanonicalNotation returns a copy of n in canonical form. Polymers are
// ordered by type and content, renumbered per type from 1, connections are
// oriented and sorted, groups renumbered and annotations dropped. Inline
// SMILES is rewritten in canonical SMILES.
//
// Polymers that tie on type, content and connection pattern are ordered by
// an individualize-and-refine search that keeps the order whose serialization
// sorts first. Branches shown equivalent by a discovered symmetry are skipped.
func (e *Engine) CanonicalNotation(n *Notation) (*Notation, error) {
	if err := e.Validate(n); err != nil {
		return nil, err
	}
	return e.canonicalize(n)
}

// CanonicalHELM returns the canonical notation as HELM1 text. Notations that
// need HELM2 features fail with a *CanonicalizationError.
func (e *Engine) CanonicalHELM(n *Notation) (string, error) {
	cn, err := e.CanonicalNotation(n)
	if err != nil {
		return "", err
	}
	if err := checkHELM1(cn); err != nil {
		return "", err
	}
	return format(cn, HELM1, formatOptions{}), nil
}

// CanonicalHELM2 returns the canonical notation as HELM2 text.
func (e *Engine) CanonicalHELM2(n *Notation) (string, error) {
	cn, err := e.CanonicalNotation(n)
	if err != nil {
		return "", err
	}
	return format(cn, HELM2, formatOptions{}), nil
}

func (e *Engine) canonicalize(n *Notation) (*Notation, error) {
	polys := make([]*Polymer, len(n.Polymers))
	keys := make([]string, len(n.Polymers))
	for i, p := range n.Polymers {
		cp, err := normalizePolymer(p)
		if err != nil {
			return nil, err
		}
		polys[i] = cp
		keys[i] = fmt.Sprintf("%02d|%s", p.Type.Order(), formatPolymerBody(cp, formatOptions{}))
	}
	links := polymerLinks(n, polys)
	best := canon.Search(canon.Problem[*Notation]{
		Refine: func(rank []int) []int { return refine(rank, links) },
		Leaf: func(rank []int) (string, *Notation) {
			cn := renumber(n, polys, canon.Order(rank))
			return format(cn, HELM2, formatOptions{}), cn
		},
		Limit: e.maxPermutations,
	}, canon.RankKeys(keys))
	return best.Value, nil
}

// normalizePolymer copies p without annotations, rewriting inline SMILES
// canonically and sorting ambiguity lists.
func normalizePolymer(p *Polymer) (*Polymer, error) {
	cp := &Polymer{ID: p.ID, Type: p.Type, Raw: p.Raw}
	for _, el := range p.Elements {
		ne := Element{Group: el.Group, Sizes: append([]int(nil), el.Sizes...), Repeat: el.Repeat}
		for _, u := range el.Units {
			nu := Unit{Symbol: u.Symbol, Inline: u.Inline, Branch: u.Branch, Mixture: u.Mixture}
			if u.Inline {
				s, err := canonicalInline(p, u.Symbol)
				if err != nil {
					return nil, err
				}
				nu.Symbol = s
			}
			if u.IsAmbiguous() {
				nu.Alternatives = make([]Alternative, len(u.Alternatives))
				for i, a := range u.Alternatives {
					if a.Inline {
						s, err := canonicalInline(p, a.Symbol)
						if err != nil {
							return nil, err
						}
						a.Symbol = s
					}
					nu.Alternatives[i] = a
				}
				sortAlternatives(nu.Alternatives)
			}
			ne.Units = append(ne.Units, nu)
		}
		cp.Elements = append(cp.Elements, ne)
	}
	return cp, nil
}

func canonicalInline(p *Polymer, smiles string) (string, error) {
	m, err := monomer.NewInline(p.Type, smiles)
	if err != nil {
		return "", newCanonicalizationError(p.ID, "inline SMILES %q has no resolvable structure", smiles)
	}
	mol, _ := m.Structure()
	return chem.WriteSMILES(mol), nil
}

func sortAlternatives(alts []Alternative) {
	sort.SliceStable(alts, func(i, j int) bool {
		if alts[i].Symbol != alts[j].Symbol {
			return alts[i].Symbol < alts[j].Symbol
		}
		return alts[i].Ratio < alts[j].Ratio
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Renumbering
// ─────────────────────────────────────────────────────────────────────────────

type endpointRank struct {
	index, pos, r int
}

func (a endpointRank) less(b endpointRank) bool {
	if a.index != b.index {
		return a.index < b.index
	}
	if a.pos != b.pos {
		return a.pos < b.pos
	}
	return a.r < b.r
}

// renumber builds the notation for one candidate polymer order.
func renumber(n *Notation, polys []*Polymer, order []int) *Notation {
	out := &Notation{Version: HELM2}
	ids := make(map[string]string, len(order))
	index := make(map[string]int, len(order))
	counters := make(map[monomer.PolymerType]int)
	for k, oi := range order {
		p := *polys[oi]
		counters[p.Type]++
		newID := string(p.Type) + strconv.Itoa(counters[p.Type])
		ids[p.ID] = newID
		index[p.ID] = k
		p.ID = newID
		out.Polymers = append(out.Polymers, &p)
	}

	type ranked struct {
		c        Connection
		src, tgt endpointRank
	}
	conns := make([]ranked, 0, len(n.Connections))
	for _, c := range n.Connections {
		src := endpointRank{index[c.Source.PolymerID], c.Source.Position, monomer.RGroupNumber(c.Source.Attachment)}
		tgt := endpointRank{index[c.Target.PolymerID], c.Target.Position, monomer.RGroupNumber(c.Target.Attachment)}
		nc := Connection{
			Source: Endpoint{ids[c.Source.PolymerID], c.Source.Position, c.Source.Attachment},
			Target: Endpoint{ids[c.Target.PolymerID], c.Target.Position, c.Target.Attachment},
		}
		if nc.IsPair() {
			nc.Source.Attachment, nc.Target.Attachment = AttachmentPair, AttachmentPair
		}
		if tgt.less(src) {
			nc.Source, nc.Target = nc.Target, nc.Source
			src, tgt = tgt, src
		}
		conns = append(conns, ranked{c: nc, src: src, tgt: tgt})
	}
	sort.SliceStable(conns, func(i, j int) bool {
		if conns[i].src != conns[j].src {
			return conns[i].src.less(conns[j].src)
		}
		return conns[i].tgt.less(conns[j].tgt)
	})
	for _, rc := range conns {
		out.Connections = append(out.Connections, rc.c)
	}

	out.Groups = renumberGroups(n.Groups, ids, index)
	return out
}

// renumberGroups maps group members to the new polymer IDs, sorts members and
// groups, and renames groups G1, G2, ... in that order.
func renumberGroups(groups []Group, ids map[string]string, index map[string]int) []Group {
	if len(groups) == 0 {
		return nil
	}
	memberRank := func(m GroupMember) (int, string) {
		if k, ok := index[m.PolymerID]; ok {
			return k, ""
		}
		return len(index), m.PolymerID
	}
	out := make([]Group, len(groups))
	for i, g := range groups {
		ng := Group{ID: g.ID, Mixture: g.Mixture, Members: make([]GroupMember, len(g.Members))}
		copy(ng.Members, g.Members)
		sort.SliceStable(ng.Members, func(a, b int) bool {
			ka, sa := memberRank(ng.Members[a])
			kb, sb := memberRank(ng.Members[b])
			if ka != kb {
				return ka < kb
			}
			return sa < sb
		})
		for j, m := range ng.Members {
			if id, ok := ids[m.PolymerID]; ok {
				ng.Members[j].PolymerID = id
			}
		}
		out[i] = ng
	}
	key := func(g Group) string {
		s := formatGroup(g, formatOptions{})
		return s[strings.IndexByte(s, '('):]
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })

	gids := make(map[string]string, len(out))
	for i := range out {
		gids[out[i].ID] = "G" + strconv.Itoa(i+1)
		out[i].ID = gids[out[i].ID]
	}
	for i := range out {
		for j, m := range out[i].Members {
			if id, ok := gids[m.PolymerID]; ok {
				out[i].Members[j].PolymerID = id
			}
		}
	}
	return out
}
