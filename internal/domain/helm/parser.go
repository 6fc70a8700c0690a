package helm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/monomer"
)

// Section names used in ParseError.
const (
	SectionNotation    = "notation"
	SectionPolymers    = "polymers"
	SectionConnections = "connections"
	SectionPairs       = "pairs"
	SectionGroups      = "groups"
	SectionAnnotations = "annotations"
	SectionVersion     = "version"
)

var (
	polymerIDPattern = regexp.MustCompile(`^(PEPTIDE|RNA|CHEM|BLOB)([1-9][0-9]*)$`)
	groupIDPattern   = regexp.MustCompile(`^G[1-9][0-9]*$`)
	attachPattern    = regexp.MustCompile(`^(R[1-9][0-9]*|pair)$`)
)

// Parse reads HELM1 text (polymers$connections$pairs$annotations$) or HELM2
// text (polymers$connections$groups$annotations$V2.0).
func Parse(text string) (*Notation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, newParseError(SectionNotation, "", 0, "empty notation")
	}
	sections, err := splitTop(text, '$', 0, SectionNotation)
	if err != nil {
		return nil, err
	}
	if len(sections) != 5 {
		return nil, newParseError(SectionNotation, "", 0, "expected 5 '$'-separated sections, found %d", len(sections))
	}

	n := &Notation{}
	switch v := strings.TrimSpace(sections[4].text); v {
	case "":
		n.Version = HELM1
	case helm2Suffix:
		n.Version = HELM2
	default:
		return nil, newParseError(SectionVersion, v, sections[4].offset, "unknown version suffix")
	}

	if n.Polymers, err = parsePolymers(sections[0]); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(n.Polymers))
	for _, p := range n.Polymers {
		if seen[p.ID] {
			return nil, newParseError(SectionPolymers, p.ID, sections[0].offset, "duplicate polymer ID")
		}
		seen[p.ID] = true
	}

	if n.Connections, err = parseConnections(sections[1], SectionConnections); err != nil {
		return nil, err
	}
	if n.Version == HELM1 {
		pairs, err := parseConnections(sections[2], SectionPairs)
		if err != nil {
			return nil, err
		}
		for _, c := range pairs {
			if !c.IsPair() {
				return nil, newParseError(SectionPairs, c.String(), sections[2].offset, "pair section holds a covalent connection")
			}
		}
		n.Connections = append(n.Connections, pairs...)
	} else if n.Groups, err = parseGroups(sections[2]); err != nil {
		return nil, err
	}

	if n.Annotations, err = parseAnnotations(sections[3]); err != nil {
		return nil, err
	}
	return n, nil
}

// MustParse is Parse for notations known to be well formed.
func MustParse(text string) *Notation {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Polymers
// ─────────────────────────────────────────────────────────────────────────────

func parsePolymers(sec segment) ([]*Polymer, error) {
	if strings.TrimSpace(sec.text) == "" {
		return nil, newParseError(SectionPolymers, "", sec.offset, "no polymers")
	}
	parts, err := splitTop(sec.text, '|', sec.offset, SectionPolymers)
	if err != nil {
		return nil, err
	}
	out := make([]*Polymer, 0, len(parts))
	for _, part := range parts {
		p, err := parsePolymer(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func parsePolymer(seg segment) (*Polymer, error) {
	s := seg.text
	open := strings.IndexByte(s, '{')
	if open < 0 {
		return nil, newParseError(SectionPolymers, s, seg.offset, "polymer has no '{'")
	}
	id := strings.TrimSpace(s[:open])
	m := polymerIDPattern.FindStringSubmatch(id)
	if m == nil {
		if t := strings.TrimRight(id, "0123456789"); t != "" && polymerIDPattern.FindString(t+"1") == "" {
			return nil, newParseError(SectionPolymers, id, seg.offset, "unknown polymer type")
		}
		return nil, newParseError(SectionPolymers, id, seg.offset, "malformed polymer ID")
	}
	closeIdx := matching(s, open)
	if closeIdx < 0 {
		return nil, newParseError(SectionPolymers, s[open:], seg.offset+open, "missing '}'")
	}
	p := &Polymer{ID: id, Type: monomer.PolymerType(m[1])}

	rest := s[closeIdx+1:]
	if rest != "" {
		_, ann, ok := trailingAnnotation(rest)
		if !ok || !strings.HasPrefix(rest, "\"") {
			return nil, newParseError(SectionPolymers, rest, seg.offset+closeIdx+1, "unexpected text after polymer")
		}
		p.Annotation = ann
	}

	body := s[open+1 : closeIdx]
	bodyOffset := seg.offset + open + 1
	if strings.TrimSpace(body) == "" {
		return nil, newParseError(SectionPolymers, id, seg.offset, "empty polymer")
	}

	switch p.Type {
	case monomer.Blob:
		p.Raw = body
		return p, nil
	case monomer.Chem:
		e, err := parseChemElement(segment{text: body, offset: bodyOffset})
		if err != nil {
			return nil, err
		}
		p.Elements = []Element{e}
		return p, nil
	}

	parts, err := splitTop(body, '.', bodyOffset, SectionPolymers)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		e, err := parseElement(p.Type, part)
		if err != nil {
			return nil, err
		}
		p.Elements = append(p.Elements, e)
	}
	return p, nil
}

// splitDecorations strips a trailing annotation and repeat from an element.
func splitDecorations(seg segment) (string, Repeat, string, error) {
	body, ann, _ := trailingAnnotation(seg.text)
	var rep Repeat
	if strings.HasSuffix(body, "'") {
		open := strings.LastIndexByte(body[:len(body)-1], '\'')
		if open < 0 {
			return "", rep, "", newParseError(SectionPolymers, body, seg.offset, "malformed repeat")
		}
		r, err := parseRepeat(body[open+1 : len(body)-1])
		if err != nil {
			return "", rep, "", newParseError(SectionPolymers, body[open:], seg.offset+open, "malformed repeat")
		}
		rep = r
		body = body[:open]
	}
	return body, rep, ann, nil
}

func parseRepeat(s string) (Repeat, error) {
	lo, hi, isRange := strings.Cut(s, "-")
	from, err := strconv.Atoi(lo)
	if err != nil || from < 1 {
		return Repeat{}, strconv.ErrSyntax
	}
	to := from
	if isRange {
		if to, err = strconv.Atoi(hi); err != nil || to < from {
			return Repeat{}, strconv.ErrSyntax
		}
	}
	return Repeat{Min: from, Max: to}, nil
}

func parseChemElement(seg segment) (Element, error) {
	body, rep, ann, err := splitDecorations(seg)
	if err != nil {
		return Element{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Element{}, newParseError(SectionPolymers, seg.text, seg.offset, "empty monomer")
	}
	var u Unit
	if body[0] == '(' && matching(body, 0) == len(body)-1 && containsTop(body[1:len(body)-1], ",+") {
		u, err = parseAmbiguity(segment{text: body[1 : len(body)-1], offset: seg.offset + 1})
	} else {
		u, err = parseSymbol(monomer.Chem, segment{text: body, offset: seg.offset})
	}
	if err != nil {
		return Element{}, err
	}
	return Element{Units: []Unit{u}, Repeat: rep, Annotation: ann}, nil
}

func parseElement(t monomer.PolymerType, seg segment) (Element, error) {
	body, rep, ann, err := splitDecorations(seg)
	if err != nil {
		return Element{}, err
	}
	if body == "" {
		return Element{}, newParseError(SectionPolymers, seg.text, seg.offset, "empty monomer")
	}
	e := Element{Repeat: rep, Annotation: ann}

	if body[0] == '(' && matching(body, 0) == len(body)-1 {
		inner := body[1 : len(body)-1]
		innerOffset := seg.offset + 1
		switch {
		case t == monomer.Peptide && containsTop(inner, ",+"):
			u, err := parseAmbiguity(segment{text: inner, offset: innerOffset})
			if err != nil {
				return Element{}, err
			}
			e.Units = []Unit{u}
			return e, nil
		case containsTop(inner, "."):
			parts, err := splitTop(inner, '.', innerOffset, SectionPolymers)
			if err != nil {
				return Element{}, err
			}
			e.Group = true
			for _, part := range parts {
				sub, err := parseElement(t, part)
				if err != nil {
					return Element{}, err
				}
				if sub.Group || sub.Repeat.IsSet() {
					return Element{}, newParseError(SectionPolymers, part.text, part.offset, "nested repeat groups are not supported")
				}
				e.Units = append(e.Units, sub.Units...)
				e.Sizes = append(e.Sizes, len(sub.Units))
			}
			return e, nil
		}
	}

	if t == monomer.Peptide {
		u, err := parseSymbol(t, segment{text: body, offset: seg.offset})
		if err != nil {
			return Element{}, err
		}
		e.Units = []Unit{u}
		return e, nil
	}

	units, err := parseNucleotide(segment{text: body, offset: seg.offset})
	if err != nil {
		return Element{}, err
	}
	e.Units = units
	return e, nil
}

// parseNucleotide reads a run such as R(A)P, [dR](T)[sP] or R(A,G)P.
func parseNucleotide(seg segment) ([]Unit, error) {
	s := seg.text
	var units []Unit
	for i := 0; i < len(s); {
		switch s[i] {
		case '(':
			end := matching(s, i)
			if end < 0 {
				return nil, newParseError(SectionPolymers, s[i:], seg.offset+i, "missing ')'")
			}
			inner := segment{text: s[i+1 : end], offset: seg.offset + i + 1}
			var (
				u   Unit
				err error
			)
			if containsTop(inner.text, ",+") {
				u, err = parseAmbiguity(inner)
			} else {
				u, err = parseSymbol(monomer.RNA, inner)
			}
			if err != nil {
				return nil, err
			}
			u.Branch = true
			units = append(units, u)
			i = end + 1
		case '[':
			end := matching(s, i)
			if end < 0 {
				return nil, newParseError(SectionPolymers, s[i:], seg.offset+i, "missing ']'")
			}
			u, err := parseSymbol(monomer.RNA, segment{text: s[i : end+1], offset: seg.offset + i})
			if err != nil {
				return nil, err
			}
			units = append(units, u)
			i = end + 1
		default:
			u, err := parseSymbol(monomer.RNA, segment{text: s[i : i+1], offset: seg.offset + i})
			if err != nil {
				return nil, err
			}
			units = append(units, u)
			i++
		}
	}
	return units, nil
}

// parseSymbol reads a single monomer reference: a one-letter symbol, a
// bracketed symbol, bracketed inline SMILES or, for CHEM, a bare symbol or
// bare SMILES.
func parseSymbol(t monomer.PolymerType, seg segment) (Unit, error) {
	s := strings.TrimSpace(seg.text)
	if s == "" {
		return Unit{}, newParseError(SectionPolymers, seg.text, seg.offset, "empty monomer")
	}
	if s[0] == '[' && matching(s, 0) == len(s)-1 {
		inner := s[1 : len(s)-1]
		if inner == "" {
			return Unit{}, newParseError(SectionPolymers, s, seg.offset, "empty monomer")
		}
		return Unit{Symbol: inner, Inline: strings.Contains(inner, "*")}, nil
	}
	if strings.Contains(s, "*") {
		return Unit{Symbol: s, Inline: true}, nil
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return Unit{}, newParseError(SectionPolymers, s, seg.offset+i, "unexpected character %q in monomer", c)
		}
	}
	if len(s) > 1 && t != monomer.Chem {
		return Unit{}, newParseError(SectionPolymers, s, seg.offset, "multi-character symbol must be bracketed")
	}
	return Unit{Symbol: s}, nil
}

// parseAmbiguity reads A,G or A:1.5+G:0.5.
func parseAmbiguity(seg segment) (Unit, error) {
	sep := byte(',')
	mixture := containsTop(seg.text, "+")
	if mixture {
		sep = '+'
		if containsTop(seg.text, ",") {
			return Unit{}, newParseError(SectionPolymers, seg.text, seg.offset, "ambiguity mixes ',' and '+'")
		}
	}
	parts, err := splitTop(seg.text, sep, seg.offset, SectionPolymers)
	if err != nil {
		return Unit{}, err
	}
	if len(parts) < 2 && !mixture {
		return Unit{}, newParseError(SectionPolymers, seg.text, seg.offset, "ambiguity needs at least two alternatives")
	}
	u := Unit{Mixture: mixture}
	for _, part := range parts {
		text := part.text
		alt := Alternative{}
		if idx := lastTopColon(text); idx >= 0 {
			r, err := strconv.ParseFloat(strings.TrimSpace(text[idx+1:]), 64)
			if err != nil || r < 0 {
				return Unit{}, newParseError(SectionPolymers, text, part.offset+idx, "malformed ratio")
			}
			alt.Ratio, alt.HasRatio = r, true
			text = text[:idx]
		}
		sym, err := parseSymbol(monomer.Chem, segment{text: text, offset: part.offset})
		if err != nil {
			return Unit{}, err
		}
		alt.Symbol, alt.Inline = sym.Symbol, sym.Inline
		u.Alternatives = append(u.Alternatives, alt)
	}
	return u, nil
}

func lastTopColon(s string) int {
	depth := 0
	last := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ':':
			if depth == 0 {
				last = i
			}
		}
	}
	return last
}

// ─────────────────────────────────────────────────────────────────────────────
// Connections, groups, annotations
// ─────────────────────────────────────────────────────────────────────────────

func parseConnections(sec segment, section string) ([]Connection, error) {
	if strings.TrimSpace(sec.text) == "" {
		return nil, nil
	}
	parts, err := splitTop(sec.text, '|', sec.offset, section)
	if err != nil {
		return nil, err
	}
	out := make([]Connection, 0, len(parts))
	for _, part := range parts {
		c, err := parseConnection(part, section)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseConnection(seg segment, section string) (Connection, error) {
	body, ann, _ := trailingAnnotation(seg.text)
	fields := strings.Split(body, ",")
	if len(fields) != 3 {
		return Connection{}, newParseError(section, seg.text, seg.offset, "connection must be SOURCE,TARGET,pos:Rn-pos:Rn")
	}
	src, dst := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
	for _, id := range []string{src, dst} {
		if !polymerIDPattern.MatchString(id) {
			return Connection{}, newParseError(section, id, seg.offset, "malformed polymer ID in connection")
		}
	}
	left, right, ok := strings.Cut(fields[2], "-")
	if !ok {
		return Connection{}, newParseError(section, fields[2], seg.offset, "connection endpoints must be separated by '-'")
	}
	srcPos, srcAtt, err := parseEndpoint(left)
	if err != nil {
		return Connection{}, newParseError(section, left, seg.offset, "malformed connection endpoint")
	}
	dstPos, dstAtt, err := parseEndpoint(right)
	if err != nil {
		return Connection{}, newParseError(section, right, seg.offset, "malformed connection endpoint")
	}
	c := Connection{
		Source:     Endpoint{PolymerID: src, Position: srcPos, Attachment: srcAtt},
		Target:     Endpoint{PolymerID: dst, Position: dstPos, Attachment: dstAtt},
		Annotation: ann,
	}
	if (srcAtt == AttachmentPair) != (dstAtt == AttachmentPair) {
		return Connection{}, newParseError(section, seg.text, seg.offset, "pair connection must use pair on both ends")
	}
	return c, nil
}

func parseEndpoint(s string) (int, string, error) {
	pos, att, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, "", strconv.ErrSyntax
	}
	p, err := strconv.Atoi(pos)
	if err != nil || p < 1 {
		return 0, "", strconv.ErrSyntax
	}
	if strings.EqualFold(att, AttachmentPair) {
		att = AttachmentPair
	}
	if !attachPattern.MatchString(att) {
		return 0, "", strconv.ErrSyntax
	}
	return p, att, nil
}

func parseGroups(sec segment) ([]Group, error) {
	if strings.TrimSpace(sec.text) == "" {
		return nil, nil
	}
	parts, err := splitTop(sec.text, '|', sec.offset, SectionGroups)
	if err != nil {
		return nil, err
	}
	out := make([]Group, 0, len(parts))
	for _, part := range parts {
		g, err := parseGroup(part)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func parseGroup(seg segment) (Group, error) {
	body, ann, _ := trailingAnnotation(seg.text)
	open := strings.IndexByte(body, '(')
	if open < 0 || !strings.HasSuffix(body, ")") || matching(body, open) != len(body)-1 {
		return Group{}, newParseError(SectionGroups, seg.text, seg.offset, "group must be Gn(MEMBER+MEMBER)")
	}
	id := strings.TrimSpace(body[:open])
	if !groupIDPattern.MatchString(id) {
		return Group{}, newParseError(SectionGroups, id, seg.offset, "malformed group ID")
	}
	inner := body[open+1 : len(body)-1]
	g := Group{ID: id, Annotation: ann, Mixture: strings.Contains(inner, "+")}
	sep := ","
	if g.Mixture {
		sep = "+"
		if strings.Contains(inner, ",") {
			return Group{}, newParseError(SectionGroups, inner, seg.offset+open+1, "group mixes ',' and '+'")
		}
	}
	for _, m := range strings.Split(inner, sep) {
		m = strings.TrimSpace(m)
		member := GroupMember{PolymerID: m}
		if pid, ratio, ok := strings.Cut(m, ":"); ok {
			r, err := strconv.ParseFloat(ratio, 64)
			if err != nil || r < 0 {
				return Group{}, newParseError(SectionGroups, m, seg.offset+open+1, "malformed group ratio")
			}
			member = GroupMember{PolymerID: pid, Ratio: r, HasRatio: true}
		}
		if !polymerIDPattern.MatchString(member.PolymerID) && !groupIDPattern.MatchString(member.PolymerID) {
			return Group{}, newParseError(SectionGroups, m, seg.offset+open+1, "malformed group member")
		}
		g.Members = append(g.Members, member)
	}
	return g, nil
}

func parseAnnotations(sec segment) ([]string, error) {
	if strings.TrimSpace(sec.text) == "" {
		return nil, nil
	}
	parts, err := splitTop(sec.text, '|', sec.offset, SectionAnnotations)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part.text); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
