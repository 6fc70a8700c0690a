package helm

import (
	"math"

	"github.com/turtacn/helmkit/internal/domain/monomer"
)

// Properties are the physico-chemical properties of a whole notation.
type Properties struct {
	MolecularWeight  float64 `json:"molecular_weight" msgpack:"molecular_weight"`
	MolecularFormula string  `json:"molecular_formula" msgpack:"molecular_formula"`
	ExactMass        float64 `json:"exact_mass" msgpack:"exact_mass"`
	// ExtinctionCoefficient is in mM⁻¹·cm⁻¹; nil when undetermined.
	ExtinctionCoefficient *float64 `json:"extinction_coefficient" msgpack:"extinction_coefficient"`
}

// Properties computes weight, formula and exact mass from the assembled
// structure of n, and the extinction coefficient from its sequences.
func (e *Engine) Properties(n *Notation) (*Properties, error) {
	mol, err := e.Structure(n)
	if err != nil {
		return nil, err
	}
	mw, err := mol.MolecularWeight()
	if err != nil {
		return nil, newCanonicalizationError("", "molecular weight: %v", err)
	}
	exact, err := mol.ExactMass()
	if err != nil {
		return nil, newCanonicalizationError("", "exact mass: %v", err)
	}
	ext, err := e.extinction(n)
	if err != nil {
		return nil, err
	}
	return &Properties{
		MolecularWeight:       round(mw, 4),
		MolecularFormula:      mol.Formula().String(),
		ExactMass:             round(exact, 6),
		ExtinctionCoefficient: ext,
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// ─────────────────────────────────────────────────────────────────────────────
// Extinction coefficient
// ─────────────────────────────────────────────────────────────────────────────

// Molar extinction at 280 nm in M⁻¹·cm⁻¹.
const (
	extTryptophan = 5500
	extTyrosine   = 1490
	extCystine    = 125
)

// Nearest-neighbour extinction at 260 nm in mM⁻¹·cm⁻¹.
var (
	rnaPairs = map[string]float64{
		"AA": 13.65, "AC": 10.67, "AG": 12.79, "AU": 12.14,
		"CA": 10.67, "CC": 7.52, "CG": 9.39, "CU": 8.37,
		"GA": 12.92, "GC": 9.19, "GG": 11.43, "GU": 10.96,
		"UA": 12.52, "UC": 8.90, "UG": 10.40, "UU": 9.66,
	}
	rnaSingles = map[byte]float64{'A': 15.34, 'C': 7.6, 'G': 12.16, 'U': 10.21}

	dnaPairs = map[string]float64{
		"AA": 27.4, "AC": 21.2, "AG": 25.0, "AT": 22.8,
		"CA": 21.2, "CC": 14.6, "CG": 18.0, "CT": 15.2,
		"GA": 25.2, "GC": 17.6, "GG": 21.6, "GT": 20.0,
		"TA": 23.4, "TC": 16.2, "TG": 19.0, "TT": 16.8,
	}
	dnaSingles = map[byte]float64{'A': 15.4, 'C': 7.4, 'G': 11.5, 'T': 8.7}
)

// extinction sums the contribution of every peptide and nucleotide polymer.
// It returns nil when nothing contributes or a nucleotide sequence cannot be
// resolved to natural bases.
func (e *Engine) extinction(n *Notation) (*float64, error) {
	var (
		total       float64
		contributed bool
	)
	cystines := e.cystines(n)
	for _, p := range n.Polymers {
		switch p.Type {
		case monomer.Peptide:
			v, err := e.peptideExtinction(p, cystines[p.ID])
			if err != nil {
				return nil, err
			}
			if v > 0 {
				total += v
				contributed = true
			}
		case monomer.RNA:
			v, ok, err := e.nucleotideExtinction(p)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			total += v
			contributed = true
		}
	}
	if !contributed {
		return nil, nil
	}
	total = round(total, 4)
	return &total, nil
}

func (e *Engine) peptideExtinction(p *Polymer, cystines int) (float64, error) {
	units, err := e.expand(p)
	if err != nil {
		return 0, err
	}
	var w, y int
	for _, in := range units {
		switch in.analog {
		case "W":
			w++
		case "Y":
			y++
		}
	}
	return float64(extTryptophan*w+extTyrosine*y+extCystine*cystines) / 1000, nil
}

// cystines counts R3-R3 connections between cysteine analogues, credited to
// the source polymer.
func (e *Engine) cystines(n *Notation) map[string]int {
	out := make(map[string]int)
	isCys := func(ep Endpoint) bool {
		p, ok := n.Polymer(ep.PolymerID)
		if !ok || p.Type != monomer.Peptide || monomer.RGroupNumber(ep.Attachment) != 3 {
			return false
		}
		u, ok := p.UnitAt(ep.Position)
		if !ok || u.IsAmbiguous() || u.Inline {
			return false
		}
		m, err := e.resolver.Resolve(p.Type, u.Symbol)
		if err != nil {
			return false
		}
		return m.Symbol == "C" || m.NaturalAnalog == "C"
	}
	for _, c := range EdgeConnections(n) {
		if isCys(c.Source) && isCys(c.Target) {
			out[c.Source.PolymerID]++
		}
	}
	return out
}

// nucleotideExtinction applies the nearest-neighbour model to the bases of p.
// ok is false when a base has no natural analogue.
func (e *Engine) nucleotideExtinction(p *Polymer) (float64, bool, error) {
	units, err := e.expand(p)
	if err != nil {
		return 0, false, err
	}
	var (
		bases []byte
		dna   bool
	)
	for _, in := range units {
		if in.kind == monomer.KindSugar && in.symbol == "dR" {
			dna = true
		}
		if !in.branch {
			continue
		}
		if in.analog == "" {
			return 0, false, nil
		}
		bases = append(bases, in.analog[0])
	}
	if len(bases) == 0 {
		return 0, false, nil
	}
	pairs, singles := rnaPairs, rnaSingles
	for i, b := range bases {
		switch {
		case dna && b == 'U':
			bases[i] = 'T'
		case !dna && b == 'T':
			bases[i] = 'U'
		}
	}
	if dna {
		pairs, singles = dnaPairs, dnaSingles
	}
	if len(bases) == 1 {
		v, ok := singles[bases[0]]
		return v, ok, nil
	}
	var sum float64
	for i := 0; i+1 < len(bases); i++ {
		v, ok := pairs[string(bases[i:i+2])]
		if !ok {
			return 0, false, nil
		}
		sum += v
	}
	for i := 1; i+1 < len(bases); i++ {
		v, ok := singles[bases[i]]
		if !ok {
			return 0, false, nil
		}
		sum -= v
	}
	return sum, true, nil
}
