package helm

import (
	"strings"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Fallback letters for monomers without a natural analogue.
const (
	PeptideFallback    = 'X'
	NucleotideFallback = 'N'
)

// PolymerSequence is the natural-analogue sequence of one polymer.
type PolymerSequence struct {
	PolymerID string              `json:"polymer_id" msgpack:"polymer_id"`
	Type      monomer.PolymerType `json:"type" msgpack:"type"`
	Sequence  string              `json:"sequence" msgpack:"sequence"`
}

// seqUnit is one expanded monomer as seen by sequence projection.
type seqUnit struct {
	pos    int
	symbol string
	analog string
	kind   monomer.Kind
	branch bool
}

// Sequences projects every polymer of type filter onto its natural-analogue
// letters, in polymer order. filter is PEPTIDE or RNA; empty selects both.
// RNA sequences list the bases only. A monomer without an analogue becomes
// the fallback letter, or fails with *UnknownAnalogueError in strict mode.
func (e *Engine) Sequences(n *Notation, filter monomer.PolymerType) ([]PolymerSequence, error) {
	if filter != "" && filter != monomer.Peptide && filter != monomer.RNA {
		return nil, errors.Newf(errors.ErrCodeBadRequest, "no sequence is defined for %s polymers", filter)
	}
	if err := e.Validate(n); err != nil {
		return nil, err
	}
	out := make([]PolymerSequence, 0, len(n.Polymers))
	for _, p := range n.Polymers {
		if p.Type != monomer.Peptide && p.Type != monomer.RNA {
			continue
		}
		if filter != "" && p.Type != filter {
			continue
		}
		seq, err := e.sequence(p)
		if err != nil {
			return nil, err
		}
		out = append(out, PolymerSequence{PolymerID: p.ID, Type: p.Type, Sequence: seq})
	}
	return out, nil
}

func (e *Engine) sequence(p *Polymer) (string, error) {
	units, err := e.expand(p)
	if err != nil {
		return "", err
	}
	fallback := byte(PeptideFallback)
	if p.Type == monomer.RNA {
		fallback = NucleotideFallback
	}
	var sb strings.Builder
	for _, u := range units {
		if p.Type == monomer.RNA && !u.branch {
			continue
		}
		if u.analog != "" {
			sb.WriteString(u.analog)
			continue
		}
		if e.strict {
			return "", newUnknownAnalogueError(p.ID, u.pos, u.symbol)
		}
		sb.WriteByte(fallback)
	}
	return sb.String(), nil
}

// expand lists the monomers of p with fixed repeats expanded and ranges at
// their minimum.
func (e *Engine) expand(p *Polymer) ([]seqUnit, error) {
	var out []seqUnit
	pos := 0
	for _, el := range p.Elements {
		resolved := make([]seqUnit, len(el.Units))
		for i, u := range el.Units {
			su := seqUnit{pos: pos + i + 1, symbol: unitSymbol(u), branch: u.Branch}
			if !u.IsAmbiguous() && !u.Inline {
				m, err := e.resolver.Resolve(p.Type, u.Symbol)
				if err != nil {
					return nil, err
				}
				su.analog = m.NaturalAnalog
				su.kind = m.Kind
			}
			resolved[i] = su
		}
		for c := 0; c < el.Repeat.Times(); c++ {
			out = append(out, resolved...)
		}
		pos += len(el.Units)
	}
	return out, nil
}
