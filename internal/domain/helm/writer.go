package helm

import (
	"strconv"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/monomer"
)

type formatOptions struct {
	annotations bool
	// sortAlternatives orders ambiguity lists by symbol.
	sortAlternatives bool
}

// Format serializes n in the requested grammar, keeping the written polymer
// order and annotations. HELM1 output fails with a CanonicalizationError when
// n uses HELM2-only features.
func Format(n *Notation, v Version) (string, error) {
	if v == HELM1 {
		if err := checkHELM1(n); err != nil {
			return "", err
		}
	}
	return format(n, v, formatOptions{annotations: true}), nil
}

// ConvertToHELM2 rewrites n as HELM2 text without reordering.
func ConvertToHELM2(n *Notation) (string, error) { return Format(n, HELM2) }

// ConvertToHELM1 rewrites n as HELM1 text without reordering.
func ConvertToHELM1(n *Notation) (string, error) { return Format(n, HELM1) }

// checkHELM1 reports features HELM1 cannot express.
func checkHELM1(n *Notation) error {
	if len(n.Groups) > 0 {
		return newCanonicalizationError("", "polymer groups cannot be expressed in HELM1")
	}
	for _, p := range n.Polymers {
		if p.Type == monomer.Blob {
			return newCanonicalizationError(p.ID, "BLOB polymers cannot be expressed in HELM1")
		}
		for _, e := range p.Elements {
			if e.Repeat.IsRange() {
				return newCanonicalizationError(p.ID, "repeat ranges cannot be expressed in HELM1")
			}
			for _, u := range e.Units {
				if u.IsAmbiguous() {
					return newCanonicalizationError(p.ID, "monomer ambiguity cannot be expressed in HELM1")
				}
			}
		}
	}
	return nil
}

func format(n *Notation, v Version, opts formatOptions) string {
	var sb strings.Builder
	for i, p := range n.Polymers {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(p.ID)
		sb.WriteByte('{')
		sb.WriteString(formatPolymerBody(p, opts))
		sb.WriteByte('}')
		if opts.annotations && p.Annotation != "" {
			sb.WriteString(quote(p.Annotation))
		}
	}
	sb.WriteByte('$')

	var edges, pairs []string
	for _, c := range n.Connections {
		s := c.String()
		if opts.annotations && c.Annotation != "" {
			s += quote(c.Annotation)
		}
		if v == HELM1 && c.IsPair() {
			pairs = append(pairs, s)
		} else {
			edges = append(edges, s)
		}
	}
	sb.WriteString(strings.Join(edges, "|"))
	sb.WriteByte('$')

	if v == HELM1 {
		sb.WriteString(strings.Join(pairs, "|"))
	} else {
		for i, g := range n.Groups {
			if i > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(formatGroup(g, opts))
		}
	}
	sb.WriteByte('$')

	if opts.annotations {
		sb.WriteString(strings.Join(n.Annotations, "|"))
	}
	sb.WriteByte('$')
	if v == HELM2 {
		sb.WriteString(helm2Suffix)
	}
	return sb.String()
}

func quote(s string) string { return "\"" + s + "\"" }

func formatPolymerBody(p *Polymer, opts formatOptions) string {
	if p.Type == monomer.Blob {
		return p.Raw
	}
	parts := make([]string, 0, len(p.Elements))
	for _, e := range p.Elements {
		parts = append(parts, formatElement(p.Type, e, opts))
	}
	return strings.Join(parts, ".")
}

func formatElement(t monomer.PolymerType, e Element, opts formatOptions) string {
	var sb strings.Builder
	if e.Group {
		sb.WriteByte('(')
		start := 0
		for i, size := range e.Sizes {
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(formatUnits(t, e.Units[start:start+size], opts))
			start += size
		}
		sb.WriteByte(')')
	} else {
		sb.WriteString(formatUnits(t, e.Units, opts))
	}
	sb.WriteString(e.Repeat.String())
	if opts.annotations && e.Annotation != "" {
		sb.WriteString(quote(e.Annotation))
	}
	return sb.String()
}

func formatUnits(t monomer.PolymerType, units []Unit, opts formatOptions) string {
	var sb strings.Builder
	for _, u := range units {
		sb.WriteString(formatUnit(t, u, opts))
	}
	return sb.String()
}

func formatUnit(t monomer.PolymerType, u Unit, opts formatOptions) string {
	var s string
	if u.IsAmbiguous() {
		alts := append([]Alternative(nil), u.Alternatives...)
		if opts.sortAlternatives {
			sortAlternatives(alts)
		}
		sep := ","
		if u.Mixture {
			sep = "+"
		}
		parts := make([]string, len(alts))
		for i, a := range alts {
			parts[i] = formatSymbol(t, a.Symbol, a.Inline)
			if a.HasRatio {
				parts[i] += ":" + strconv.FormatFloat(a.Ratio, 'f', -1, 64)
			}
		}
		s = strings.Join(parts, sep)
		if !u.Branch {
			s = "(" + s + ")"
		}
	} else {
		s = formatSymbol(t, u.Symbol, u.Inline)
	}
	if u.Branch {
		return "(" + s + ")"
	}
	return s
}

func formatSymbol(t monomer.PolymerType, symbol string, inline bool) string {
	if inline {
		return "[" + symbol + "]"
	}
	if len(symbol) == 1 || t == monomer.Chem {
		return symbol
	}
	return "[" + symbol + "]"
}

func formatGroup(g Group, opts formatOptions) string {
	sep := ","
	if g.Mixture {
		sep = "+"
	}
	parts := make([]string, len(g.Members))
	for i, m := range g.Members {
		parts[i] = m.PolymerID
		if m.HasRatio {
			parts[i] += ":" + strconv.FormatFloat(m.Ratio, 'f', -1, 64)
		}
	}
	s := g.ID + "(" + strings.Join(parts, sep) + ")"
	if opts.annotations && g.Annotation != "" {
		s += quote(g.Annotation)
	}
	return s
}
