// Package monomer provides the monomer definitions that HELM notations refer
// to and the process-wide Registry that resolves them. A Monomer couples a
// symbol with its structure (SMILES with [*:n] attachment pseudo-atoms), the
// cap group of every attachment point and an optional natural analogue.
package monomer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/chem"
	"github.com/turtacn/helmkit/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Polymer types
// ─────────────────────────────────────────────────────────────────────────────

// PolymerType tags a polymer and the monomer namespace it draws from.
type PolymerType string

const (
	Peptide PolymerType = "PEPTIDE"
	RNA     PolymerType = "RNA"
	Chem    PolymerType = "CHEM"
	Blob    PolymerType = "BLOB"
)

// PolymerTypes lists every polymer type in canonical order.
var PolymerTypes = []PolymerType{Peptide, RNA, Chem, Blob}

// ParsePolymerType converts an upper-case type name.
func ParsePolymerType(s string) (PolymerType, bool) {
	switch PolymerType(s) {
	case Peptide, RNA, Chem, Blob:
		return PolymerType(s), true
	}
	return "", false
}

// Order is the position of t in canonical polymer ordering.
func (t PolymerType) Order() int {
	for i, pt := range PolymerTypes {
		if pt == t {
			return i
		}
	}
	return len(PolymerTypes)
}

func (t PolymerType) String() string { return string(t) }

// Kind is the structural role of a monomer within its polymer.
type Kind string

const (
	KindAminoAcid Kind = "AminoAcid"
	KindSugar     Kind = "Sugar"
	KindBase      Kind = "Base"
	KindLinker    Kind = "Linker"
	KindChemical  Kind = "Chemical"
)

// defaultKind is assumed when a library entry omits the kind.
func defaultKind(t PolymerType) Kind {
	switch t {
	case Peptide:
		return KindAminoAcid
	case RNA:
		return KindSugar
	}
	return KindChemical
}

func validKind(t PolymerType, k Kind) bool {
	switch t {
	case Peptide:
		return k == KindAminoAcid
	case RNA:
		return k == KindSugar || k == KindBase || k == KindLinker
	case Chem:
		return k == KindChemical
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Monomer
// ─────────────────────────────────────────────────────────────────────────────

// Attachment is a named connection point and the group that closes it when
// it is left unused.
type Attachment struct {
	Label string `json:"label" yaml:"label"`
	Cap   string `json:"cap" yaml:"cap"`
}

// Number returns n for label "Rn", or 0.
func (a Attachment) Number() int {
	return RGroupNumber(a.Label)
}

// RGroupNumber parses "R3" as 3. Anything else is 0.
func RGroupNumber(label string) int {
	if len(label) < 2 || (label[0] != 'R' && label[0] != 'r') {
		return 0
	}
	n, err := strconv.Atoi(label[1:])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// Key identifies a monomer within the registry.
type Key struct {
	Type   PolymerType
	Symbol string
}

func (k Key) String() string { return string(k.Type) + "/" + k.Symbol }

// Monomer is an immutable monomer definition. Construct through New or
// NewInline so that the structure is parsed and the attachments checked.
type Monomer struct {
	Symbol        string       `json:"symbol"`
	PolymerType   PolymerType  `json:"polymer_type"`
	Kind          Kind         `json:"kind"`
	Name          string       `json:"name,omitempty"`
	SMILES        string       `json:"smiles"`
	NaturalAnalog string       `json:"natural_analog,omitempty"`
	Attachments   []Attachment `json:"attachments"`

	structure *chem.Molecule
	rgroups   map[int]int
	inline    bool
}

// Spec carries the raw fields of a monomer definition.
type Spec struct {
	Symbol        string
	PolymerType   PolymerType
	Kind          Kind
	Name          string
	SMILES        string
	NaturalAnalog string
	Attachments   []Attachment
}

// New validates spec and returns the monomer. Every declared attachment must
// exist as a pseudo-atom in the SMILES and vice versa.
func New(spec Spec) (*Monomer, error) {
	symbol := strings.TrimSpace(spec.Symbol)
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeMonomerLibraryInvalid, "monomer symbol is empty")
	}
	if _, ok := ParsePolymerType(string(spec.PolymerType)); !ok || spec.PolymerType == Blob {
		return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "monomer %s has invalid polymer type %q", symbol, spec.PolymerType)
	}
	kind := spec.Kind
	if kind == "" {
		kind = defaultKind(spec.PolymerType)
	}
	if !validKind(spec.PolymerType, kind) {
		return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "monomer %s: kind %s is not allowed for %s", symbol, kind, spec.PolymerType)
	}
	if len(spec.NaturalAnalog) > 1 {
		return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "monomer %s: natural analogue %q must be a single letter", symbol, spec.NaturalAnalog)
	}

	mol, err := chem.ParseSMILES(spec.SMILES)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMonomerLibraryInvalid, "monomer "+symbol+" has an invalid structure")
	}
	rgroups, err := mol.RGroups()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMonomerLibraryInvalid, "monomer "+symbol+" has invalid attachment points")
	}

	attachments := make([]Attachment, 0, len(spec.Attachments))
	declared := make(map[int]bool, len(spec.Attachments))
	for _, a := range spec.Attachments {
		n := a.Number()
		if n == 0 {
			return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "monomer %s: invalid attachment label %q", symbol, a.Label)
		}
		if declared[n] {
			return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "monomer %s: attachment R%d declared twice", symbol, n)
		}
		if _, ok := rgroups[n]; !ok {
			return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "monomer %s: attachment R%d is not in the structure", symbol, n)
		}
		declared[n] = true
		capGroup := strings.TrimSpace(a.Cap)
		if capGroup == "" {
			capGroup = "H"
		}
		attachments = append(attachments, Attachment{Label: fmt.Sprintf("R%d", n), Cap: capGroup})
	}
	for n := range rgroups {
		if !declared[n] {
			return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "monomer %s: structure has undeclared attachment R%d", symbol, n)
		}
	}
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].Number() < attachments[j].Number() })

	return &Monomer{
		Symbol:        symbol,
		PolymerType:   spec.PolymerType,
		Kind:          kind,
		Name:          spec.Name,
		SMILES:        spec.SMILES,
		NaturalAnalog: spec.NaturalAnalog,
		Attachments:   attachments,
		structure:     mol,
		rgroups:       rgroups,
	}, nil
}

// NewInline builds an ad-hoc monomer from SMILES written inside a notation.
// Attachment points are taken from the structure and capped with hydrogen.
func NewInline(t PolymerType, smiles string) (*Monomer, error) {
	mol, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	rgroups, err := mol.RGroups()
	if err != nil {
		return nil, err
	}
	if len(rgroups) == 0 {
		return nil, errors.New(errors.ErrCodeHELMStructure, "inline SMILES has no attachment point").WithDetail(smiles)
	}
	spec := Spec{Symbol: smiles, PolymerType: t, SMILES: smiles}
	for n := range rgroups {
		spec.Attachments = append(spec.Attachments, Attachment{Label: fmt.Sprintf("R%d", n), Cap: "H"})
	}
	m, err := New(spec)
	if err != nil {
		return nil, err
	}
	m.inline = true
	return m, nil
}

// Inline reports whether m was built from SMILES inside a notation.
func (m *Monomer) Inline() bool { return m.inline }

// Key returns the registry key of m.
func (m *Monomer) Key() Key { return Key{Type: m.PolymerType, Symbol: m.Symbol} }

// Spec returns the raw definition of m.
func (m *Monomer) Spec() Spec {
	return Spec{
		Symbol:        m.Symbol,
		PolymerType:   m.PolymerType,
		Kind:          m.Kind,
		Name:          m.Name,
		SMILES:        m.SMILES,
		NaturalAnalog: m.NaturalAnalog,
		Attachments:   append([]Attachment(nil), m.Attachments...),
	}
}

// HasAttachment reports whether m declares attachment point label.
func (m *Monomer) HasAttachment(label string) bool {
	_, ok := m.rgroups[RGroupNumber(label)]
	return ok
}

// CapFor returns the cap group of attachment point label.
func (m *Monomer) CapFor(label string) (string, bool) {
	n := RGroupNumber(label)
	for _, a := range m.Attachments {
		if a.Number() == n {
			return a.Cap, true
		}
	}
	return "", false
}

// Structure returns a private copy of the monomer graph together with the
// pseudo-atom index of every attachment point.
func (m *Monomer) Structure() (*chem.Molecule, map[int]int) {
	rg := make(map[int]int, len(m.rgroups))
	for k, v := range m.rgroups {
		rg[k] = v
	}
	return m.structure.Clone(), rg
}

// IsNucleotideComponent reports whether m is a sugar, base or linker.
func (m *Monomer) IsNucleotideComponent() bool {
	return m.Kind == KindSugar || m.Kind == KindBase || m.Kind == KindLinker
}
