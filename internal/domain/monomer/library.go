package monomer

import (
	"bytes"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/helmkit/pkg/errors"
)

// LibraryVersion is written into exported library documents.
const LibraryVersion = 1

type libraryDocument struct {
	Version  int            `yaml:"version"`
	Monomers []libraryEntry `yaml:"monomers"`
}

type libraryEntry struct {
	Symbol      string       `yaml:"symbol"`
	Type        string       `yaml:"type"`
	Kind        string       `yaml:"kind,omitempty"`
	Name        string       `yaml:"name,omitempty"`
	SMILES      string       `yaml:"smiles"`
	Analog      string       `yaml:"analog,omitempty"`
	Attachments []Attachment `yaml:"attachments,flow"`
}

// DecodeLibrary reads a YAML monomer library. A symbol may appear once per
// polymer type.
func DecodeLibrary(r io.Reader) ([]*Monomer, error) {
	var doc libraryDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeMonomerLibraryInvalid, "failed to decode monomer library")
	}
	if doc.Version > LibraryVersion {
		return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "unsupported monomer library version %d", doc.Version)
	}

	out := make([]*Monomer, 0, len(doc.Monomers))
	seen := make(map[Key]bool, len(doc.Monomers))
	for i, e := range doc.Monomers {
		m, err := New(Spec{
			Symbol:        e.Symbol,
			PolymerType:   PolymerType(e.Type),
			Kind:          Kind(e.Kind),
			Name:          e.Name,
			SMILES:        e.SMILES,
			NaturalAnalog: e.Analog,
			Attachments:   e.Attachments,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMonomerLibraryInvalid, "invalid monomer library entry").
				WithDetail("entry " + strconv.Itoa(i))
		}
		if seen[m.Key()] {
			return nil, errors.Newf(errors.ErrCodeMonomerLibraryInvalid, "duplicate monomer %s", m.Key())
		}
		seen[m.Key()] = true
		out = append(out, m)
	}
	return out, nil
}

// DecodeLibraryBytes is DecodeLibrary over an in-memory document.
func DecodeLibraryBytes(data []byte) ([]*Monomer, error) {
	return DecodeLibrary(bytes.NewReader(data))
}

// EncodeLibrary writes monomers as a YAML library, sorted by polymer type
// and symbol.
func EncodeLibrary(w io.Writer, monomers []*Monomer) error {
	sorted := append([]*Monomer(nil), monomers...)
	SortMonomers(sorted)

	doc := libraryDocument{Version: LibraryVersion, Monomers: make([]libraryEntry, 0, len(sorted))}
	for _, m := range sorted {
		doc.Monomers = append(doc.Monomers, libraryEntry{
			Symbol:      m.Symbol,
			Type:        string(m.PolymerType),
			Kind:        string(m.Kind),
			Name:        m.Name,
			SMILES:      m.SMILES,
			Analog:      m.NaturalAnalog,
			Attachments: m.Attachments,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode monomer library")
	}
	return enc.Close()
}

// SortMonomers orders monomers by polymer type, then symbol.
func SortMonomers(ms []*Monomer) {
	sort.Slice(ms, func(i, j int) bool {
		if oi, oj := ms[i].PolymerType.Order(), ms[j].PolymerType.Order(); oi != oj {
			return oi < oj
		}
		return ms[i].Symbol < ms[j].Symbol
	})
}
