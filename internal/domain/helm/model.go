// Package helm implements the HELM notation pipeline: parsing HELM1 and
// HELM2 text into a Notation, validating it against the monomer registry,
// canonicalization, structure assembly, property calculation and
// natural-analogue sequence extraction.
//
// A Notation is immutable once parsed. Every operation returns new values and
// none of them keeps state between calls, so they are safe for concurrent use
// once the registry is loaded.
package helm

import (
	"strconv"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/monomer"
)

// Version is the grammar a notation was written in.
type Version string

const (
	HELM1 Version = "HELM1"
	HELM2 Version = "HELM2"
)

// helm2Suffix terminates HELM2 text.
const helm2Suffix = "V2.0"

// ─────────────────────────────────────────────────────────────────────────────
// Polymer content
// ─────────────────────────────────────────────────────────────────────────────

// Repeat is a repetition count written as 'n' or 'n-m'. The zero value means
// the element is not repeated.
type Repeat struct {
	Min int
	Max int
}

// IsSet reports whether a repeat was written.
func (r Repeat) IsSet() bool { return r.Min > 0 }

// IsRange reports whether the repeat count is not fixed.
func (r Repeat) IsRange() bool { return r.IsSet() && r.Max != r.Min }

// Times is the number of copies used for counting and assembly: the fixed
// count, the lower bound of a range, or 1 when unset.
func (r Repeat) Times() int {
	if !r.IsSet() {
		return 1
	}
	return r.Min
}

func (r Repeat) String() string {
	switch {
	case !r.IsSet():
		return ""
	case r.IsRange():
		return "'" + strconv.Itoa(r.Min) + "-" + strconv.Itoa(r.Max) + "'"
	}
	return "'" + strconv.Itoa(r.Min) + "'"
}

// Alternative is one option of an ambiguous monomer.
type Alternative struct {
	Symbol   string
	Inline   bool
	Ratio    float64
	HasRatio bool
}

// Unit is one monomer position. Exactly one of Symbol and Alternatives is set.
type Unit struct {
	Symbol string
	// Inline is set when Symbol holds SMILES written in brackets.
	Inline bool
	// Branch marks an RNA base written in parentheses after its sugar.
	Branch bool
	// Alternatives holds an ambiguity list; Mixture selects '+' over ','.
	Alternatives []Alternative
	Mixture      bool
}

// IsAmbiguous reports whether the unit is an ambiguity list.
func (u Unit) IsAmbiguous() bool { return len(u.Alternatives) > 0 }

// Element is one '.'-separated entry of a polymer.
type Element struct {
	Units []Unit
	// Group marks a parenthesized sub-sequence such as (A.G)'3'. Sizes holds
	// the unit count of each of its '.'-separated members.
	Group      bool
	Sizes      []int
	Repeat     Repeat
	Annotation string
}

// Polymer is a single simple polymer of a notation.
type Polymer struct {
	ID       string
	Type     monomer.PolymerType
	Elements []Element
	// Raw is the unparsed content of a BLOB polymer.
	Raw        string
	Annotation string
}

// Position addresses a unit by its 1-based written position.
type Position struct {
	Index   int
	Element int
	Unit    int
}

// Positions lists the written monomer positions of p. Repeats are not
// expanded; a BLOB polymer has a single position.
func (p *Polymer) Positions() []Position {
	var out []Position
	if p.Type == monomer.Blob {
		return []Position{{Index: 1}}
	}
	for ei, e := range p.Elements {
		for ui := range e.Units {
			out = append(out, Position{Index: len(out) + 1, Element: ei, Unit: ui})
		}
	}
	return out
}

// UnitAt returns the unit at 1-based written position pos.
func (p *Polymer) UnitAt(pos int) (Unit, bool) {
	if p.Type == monomer.Blob || pos < 1 {
		return Unit{}, false
	}
	for _, e := range p.Elements {
		if pos <= len(e.Units) {
			return e.Units[pos-1], true
		}
		pos -= len(e.Units)
	}
	return Unit{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Connections and groups
// ─────────────────────────────────────────────────────────────────────────────

// AttachmentPair is the attachment label of hydrogen-bond connections.
const AttachmentPair = "pair"

// Endpoint is one side of a connection.
type Endpoint struct {
	PolymerID  string
	Position   int
	Attachment string
}

func (e Endpoint) String() string {
	return e.PolymerID + ":" + strconv.Itoa(e.Position) + ":" + e.Attachment
}

// Connection links two monomer attachment points.
type Connection struct {
	Source     Endpoint
	Target     Endpoint
	Annotation string
}

// IsPair reports whether the connection is a base pair.
func (c Connection) IsPair() bool {
	return strings.EqualFold(c.Source.Attachment, AttachmentPair) &&
		strings.EqualFold(c.Target.Attachment, AttachmentPair)
}

func (c Connection) String() string {
	return c.Source.PolymerID + "," + c.Target.PolymerID + "," +
		strconv.Itoa(c.Source.Position) + ":" + c.Source.Attachment + "-" +
		strconv.Itoa(c.Target.Position) + ":" + c.Target.Attachment
}

// GroupMember is a polymer reference inside a group.
type GroupMember struct {
	PolymerID string
	Ratio     float64
	HasRatio  bool
}

// Group is a HELM2 polymer group such as G1(PEPTIDE1+PEPTIDE2).
type Group struct {
	ID      string
	Members []GroupMember
	// Mixture selects '+' over ','.
	Mixture    bool
	Annotation string
}

// ─────────────────────────────────────────────────────────────────────────────
// Notation
// ─────────────────────────────────────────────────────────────────────────────

// Notation is the parsed form of a HELM string.
type Notation struct {
	Version     Version
	Polymers    []*Polymer
	Connections []Connection
	Groups      []Group
	Annotations []string
}

// Polymer returns the polymer with the given ID.
func (n *Notation) Polymer(id string) (*Polymer, bool) {
	for _, p := range n.Polymers {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// EdgeConnections returns the covalent connections in written order.
func EdgeConnections(n *Notation) []Connection {
	var out []Connection
	for _, c := range n.Connections {
		if !c.IsPair() {
			out = append(out, c)
		}
	}
	return out
}

// BasePairConnections returns the hydrogen-bond connections in written order.
func BasePairConnections(n *Notation) []Connection {
	var out []Connection
	for _, c := range n.Connections {
		if c.IsPair() {
			out = append(out, c)
		}
	}
	return out
}

// Annotations returns the free-text annotations of the notation.
func Annotations(n *Notation) []string {
	return append([]string(nil), n.Annotations...)
}

// Polymers returns one printable line per polymer: "ID{content}".
func Polymers(n *Notation) []string {
	out := make([]string, 0, len(n.Polymers))
	for _, p := range n.Polymers {
		out = append(out, p.ID+"{"+formatPolymerBody(p, formatOptions{annotations: true})+"}")
	}
	return out
}

// MonomerCount returns the number of monomers over all polymers. Fixed
// repeats are expanded, ranges count at their minimum, an ambiguity list
// counts once and a BLOB polymer counts as one monomer.
func MonomerCount(n *Notation) int {
	total := 0
	for _, p := range n.Polymers {
		total += polymerMonomerCount(p)
	}
	return total
}

func polymerMonomerCount(p *Polymer) int {
	if p.Type == monomer.Blob {
		return 1
	}
	count := 0
	for _, e := range p.Elements {
		count += len(e.Units) * e.Repeat.Times()
	}
	return count
}
