// Package notation defines the request and response bodies of the notation
// and monomer HTTP endpoints.
package notation

import (
	"time"

	"github.com/turtacn/helmkit/pkg/types/common"
)

// Notation versions accepted by the canonical and convert endpoints.
const (
	VersionHELM1 = "HELM1"
	VersionHELM2 = "HELM2"
)

// Request is the body of every POST /api/v1/notations/* endpoint. Fields
// other than Notation are read only by the endpoints they apply to.
type Request struct {
	Notation string `json:"notation"`
	// Version selects the output grammar of canonical and convert.
	Version string `json:"version,omitempty"`
	// Type filters sequences and analyze: PEPTIDE, RNA or empty.
	Type string `json:"type,omitempty"`
	// Strict fails sequences on monomers without a natural analogue.
	Strict  *bool  `json:"strict,omitempty"`
	Name    string `json:"name,omitempty"`
	NoCache bool   `json:"no_cache,omitempty"`
	Archive bool   `json:"archive,omitempty"`
}

type ValidateResponse struct {
	Valid      bool               `json:"valid"`
	Version    string             `json:"version"`
	Violations []common.Violation `json:"violations,omitempty"`
}

type CountResponse struct {
	Count int `json:"count"`
}

// NotationResponse carries rewritten notation text (canonical, convert).
type NotationResponse struct {
	Notation string `json:"notation"`
	Version  string `json:"version"`
}

type SMILESResponse struct {
	SMILES string `json:"smiles"`
}

type Properties struct {
	MolecularWeight       float64  `json:"molecular_weight"`
	MolecularFormula      string   `json:"molecular_formula"`
	ExactMass             float64  `json:"exact_mass"`
	ExtinctionCoefficient *float64 `json:"extinction_coefficient"`
}

type PolymerSequence struct {
	PolymerID string `json:"polymer_id"`
	Type      string `json:"type"`
	Sequence  string `json:"sequence"`
}

type SequencesResponse struct {
	Sequences []PolymerSequence `json:"sequences"`
}

type Topology struct {
	Components [][]string `json:"components"`
	Cyclic     bool       `json:"cyclic"`
	Duplex     bool       `json:"duplex"`
}

// AnalysisReport is the body of POST /api/v1/notations/analyze. A failed
// operation leaves its field empty and adds an entry to Errors keyed by the
// operation name.
type AnalysisReport struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Input   string `json:"input"`
	Version string `json:"version,omitempty"`
	Valid   bool   `json:"valid"`

	Polymers        []string `json:"polymers,omitempty"`
	EdgeConnections []string `json:"edge_connections,omitempty"`
	BasePairs       []string `json:"base_pairs,omitempty"`
	Annotations     []string `json:"annotations,omitempty"`
	MonomerCount    int      `json:"monomer_count"`

	CanonicalHELM   string            `json:"canonical_helm,omitempty"`
	CanonicalHELM2  string            `json:"canonical_helm2,omitempty"`
	CanonicalSMILES string            `json:"canonical_smiles,omitempty"`
	Properties      *Properties       `json:"properties,omitempty"`
	Sequences       []PolymerSequence `json:"sequences,omitempty"`
	Topology        *Topology         `json:"topology,omitempty"`

	Errors map[string]*common.ErrorResponse `json:"errors,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
	DurationMS  float64   `json:"duration_ms"`
	Cached      bool      `json:"cached,omitempty"`
	ArchiveKey  string    `json:"archive_key,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Monomers
// ─────────────────────────────────────────────────────────────────────────────

type Attachment struct {
	Label string `json:"label"`
	Cap   string `json:"cap"`
}

type Monomer struct {
	Symbol        string       `json:"symbol"`
	PolymerType   string       `json:"polymer_type"`
	Kind          string       `json:"kind"`
	Name          string       `json:"name,omitempty"`
	SMILES        string       `json:"smiles"`
	NaturalAnalog string       `json:"natural_analog,omitempty"`
	Attachments   []Attachment `json:"attachments"`
}

type MonomerList = common.ListResponse[Monomer]
