// Package wire converts application results to the public request and
// response types of pkg/types. The HTTP, gRPC and CLI surfaces all render
// through it, so every surface emits the same JSON.
package wire

import (
	stderrors "errors"
	"strings"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/domain/helm"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/pkg/types/common"
	dto "github.com/turtacn/helmkit/pkg/types/notation"
)

// ParseVersion accepts HELM1, HELM2, V1, V2, 1 or 2 in any case. Blank
// input yields def; anything else is returned upper-cased for the service
// to reject.
func ParseVersion(s string, def helm.Version) helm.Version {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "":
		return def
	case "1", "V1":
		return helm.HELM1
	case "2", "V2":
		return helm.HELM2
	}
	return helm.Version(s)
}

// ToErrorResponse keeps parse positions and validation violations of err.
func ToErrorResponse(err error) *common.ErrorResponse {
	var oe *notation.OperationError
	if !stderrors.As(err, &oe) {
		oe = notation.NewOperationError(err)
	}
	if oe == nil {
		return nil
	}
	resp := &common.ErrorResponse{
		Code:    oe.Code,
		Message: oe.Message,
		Detail:  oe.Detail,
		Section: oe.Section,
		Offset:  oe.Offset,
	}
	for _, v := range oe.Violations {
		resp.Violations = append(resp.Violations, ToViolation(v))
	}
	return resp
}

func ToViolation(v helm.Violation) common.Violation {
	return common.Violation{
		Rule:      string(v.Rule),
		PolymerID: v.PolymerID,
		Position:  v.Position,
		Symbol:    v.Symbol,
		Message:   v.Message,
	}
}

func ToValidateResponse(res *notation.ValidationResult) *dto.ValidateResponse {
	out := &dto.ValidateResponse{Valid: res.Valid, Version: res.Version}
	for _, v := range res.Violations {
		out.Violations = append(out.Violations, ToViolation(v))
	}
	return out
}

func ToProperties(p *helm.Properties) *dto.Properties {
	if p == nil {
		return nil
	}
	return &dto.Properties{
		MolecularWeight:       p.MolecularWeight,
		MolecularFormula:      p.MolecularFormula,
		ExactMass:             p.ExactMass,
		ExtinctionCoefficient: p.ExtinctionCoefficient,
	}
}

// ToSequences never returns nil.
func ToSequences(seqs []helm.PolymerSequence) []dto.PolymerSequence {
	out := make([]dto.PolymerSequence, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, dto.PolymerSequence{PolymerID: s.PolymerID, Type: string(s.Type), Sequence: s.Sequence})
	}
	return out
}

func ToReport(r *notation.AnalysisReport) *dto.AnalysisReport {
	out := &dto.AnalysisReport{
		ID:              r.ID,
		Name:            r.Name,
		Input:           r.Input,
		Version:         r.Version,
		Valid:           r.Valid,
		Polymers:        r.Polymers,
		EdgeConnections: r.EdgeConnections,
		BasePairs:       r.BasePairs,
		Annotations:     r.Annotations,
		MonomerCount:    r.MonomerCount,
		CanonicalHELM:   r.CanonicalHELM,
		CanonicalHELM2:  r.CanonicalHELM2,
		CanonicalSMILES: r.CanonicalSMILES,
		Properties:      ToProperties(r.Properties),
		GeneratedAt:     r.GeneratedAt,
		DurationMS:      r.DurationMS,
		Cached:          r.Cached,
		ArchiveKey:      r.ArchiveKey,
	}
	if len(r.Sequences) > 0 {
		out.Sequences = ToSequences(r.Sequences)
	}
	if r.Topology != nil {
		out.Topology = &dto.Topology{Components: r.Topology.Components, Cyclic: r.Topology.Cyclic, Duplex: r.Topology.Duplex}
	}
	if len(r.Errors) > 0 {
		out.Errors = make(map[string]*common.ErrorResponse, len(r.Errors))
		for op, oe := range r.Errors {
			out.Errors[op] = ToErrorResponse(oe)
		}
	}
	return out
}

func ToMonomer(m *monomer.Monomer) dto.Monomer {
	out := dto.Monomer{
		Symbol:        m.Symbol,
		PolymerType:   string(m.PolymerType),
		Kind:          string(m.Kind),
		Name:          m.Name,
		SMILES:        m.SMILES,
		NaturalAnalog: m.NaturalAnalog,
		Attachments:   make([]dto.Attachment, 0, len(m.Attachments)),
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, dto.Attachment{Label: a.Label, Cap: a.Cap})
	}
	return out
}

func ToMonomers(ms []*monomer.Monomer) []dto.Monomer {
	out := make([]dto.Monomer, 0, len(ms))
	for _, m := range ms {
		out = append(out, ToMonomer(m))
	}
	return out
}
