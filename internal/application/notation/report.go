package notation

import (
	stderrors "errors"
	"time"

	"github.com/turtacn/helmkit/internal/domain/helm"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Operation names used as keys of AnalysisReport.Errors and as metric labels.
const (
	OpParse          = "parse"
	OpValidate       = "validate"
	OpCount          = "count"
	OpCanonicalHELM  = "canonical_helm"
	OpCanonicalHELM2 = "canonical_helm2"
	OpSMILES         = "smiles"
	OpProperties     = "properties"
	OpSequences      = "sequences"
	OpTopology       = "topology"
	OpConvert        = "convert"
)

// OperationError is the serializable form of a failed operation.
type OperationError struct {
	Code       string           `json:"code" msgpack:"code"`
	Message    string           `json:"message" msgpack:"message"`
	Detail     string           `json:"detail,omitempty" msgpack:"detail,omitempty"`
	Section    string           `json:"section,omitempty" msgpack:"section,omitempty"`
	Offset     int              `json:"offset,omitempty" msgpack:"offset,omitempty"`
	Violations []helm.Violation `json:"violations,omitempty" msgpack:"violations,omitempty"`
}

func (e *OperationError) Error() string {
	if e.Detail != "" {
		return "[" + e.Code + "] " + e.Message + ": " + e.Detail
	}
	return "[" + e.Code + "] " + e.Message
}

// NewOperationError flattens err, keeping parse positions and validation
// violations.
func NewOperationError(err error) *OperationError {
	if err == nil {
		return nil
	}
	oe := &OperationError{Code: string(errors.GetCode(err)), Message: err.Error()}
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		oe.Message = ae.Message
		oe.Detail = ae.Detail
	}
	var pe *helm.ParseError
	if stderrors.As(err, &pe) {
		oe.Section = pe.Section
		oe.Offset = pe.Offset
	}
	var ve *helm.ValidationError
	if stderrors.As(err, &ve) {
		oe.Violations = ve.Violations
	}
	return oe
}

// AnalysisReport gathers the outcome of every operation on one notation.
// Each field is filled independently; a failed operation leaves its field
// empty and records an entry in Errors.
type AnalysisReport struct {
	ID      string `json:"id" msgpack:"id"`
	Name    string `json:"name,omitempty" msgpack:"name,omitempty"`
	Input   string `json:"input" msgpack:"input"`
	Version string `json:"version,omitempty" msgpack:"version,omitempty"`
	Valid   bool   `json:"valid" msgpack:"valid"`

	Polymers        []string `json:"polymers,omitempty" msgpack:"polymers,omitempty"`
	EdgeConnections []string `json:"edge_connections,omitempty" msgpack:"edge_connections,omitempty"`
	BasePairs       []string `json:"base_pairs,omitempty" msgpack:"base_pairs,omitempty"`
	Annotations     []string `json:"annotations,omitempty" msgpack:"annotations,omitempty"`
	MonomerCount    int      `json:"monomer_count" msgpack:"monomer_count"`

	CanonicalHELM   string                 `json:"canonical_helm,omitempty" msgpack:"canonical_helm,omitempty"`
	CanonicalHELM2  string                 `json:"canonical_helm2,omitempty" msgpack:"canonical_helm2,omitempty"`
	CanonicalSMILES string                 `json:"canonical_smiles,omitempty" msgpack:"canonical_smiles,omitempty"`
	Properties      *helm.Properties       `json:"properties,omitempty" msgpack:"properties,omitempty"`
	Sequences       []helm.PolymerSequence `json:"sequences,omitempty" msgpack:"sequences,omitempty"`
	Topology        *helm.Topology         `json:"topology,omitempty" msgpack:"topology,omitempty"`

	Errors map[string]*OperationError `json:"errors,omitempty" msgpack:"errors,omitempty"`

	GeneratedAt time.Time `json:"generated_at" msgpack:"generated_at"`
	DurationMS  float64   `json:"duration_ms" msgpack:"duration_ms"`
	Cached      bool      `json:"cached,omitempty" msgpack:"-"`
	ArchiveKey  string    `json:"archive_key,omitempty" msgpack:"archive_key,omitempty"`
}

// Failed reports whether op recorded an error.
func (r *AnalysisReport) Failed(op string) bool {
	_, ok := r.Errors[op]
	return ok
}

func (r *AnalysisReport) fail(op string, err error) {
	if r.Errors == nil {
		r.Errors = make(map[string]*OperationError)
	}
	r.Errors[op] = NewOperationError(err)
}

func connectionStrings(cs []helm.Connection) []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

// ValidationResult is the outcome of Validate. Violations are reported in
// the result, not as an error.
type ValidationResult struct {
	Valid      bool             `json:"valid"`
	Version    string           `json:"version"`
	Violations []helm.Violation `json:"violations,omitempty"`
}
