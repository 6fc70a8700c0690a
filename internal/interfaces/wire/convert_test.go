package wire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/domain/helm"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/pkg/errors"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		def  helm.Version
		want helm.Version
	}{
		{"", helm.HELM2, helm.HELM2},
		{" v1 ", "", helm.HELM1},
		{"1", "", helm.HELM1},
		{"helm2", "", helm.HELM2},
		{"2", helm.HELM1, helm.HELM2},
		{"x", "", "X"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseVersion(tt.in, tt.def), tt.in)
	}
}

func TestToErrorResponse(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ToErrorResponse(nil))

	resp := ToErrorResponse(errors.New(errors.ErrCodeMonomerNotFound, "monomer not found").WithDetail("PEPTIDE/xyz"))
	assert.Equal(t, "MONO_001", resp.Code)
	assert.Equal(t, "monomer not found", resp.Message)
	assert.Equal(t, "PEPTIDE/xyz", resp.Detail)

	oe := &notation.OperationError{Code: "HELM_001", Message: "malformed", Section: "polymers", Offset: 9}
	resp = ToErrorResponse(oe)
	assert.Equal(t, "HELM_001", resp.Code)
	assert.Equal(t, "polymers", resp.Section)
	assert.Equal(t, 9, resp.Offset)
}

func TestToReport(t *testing.T) {
	t.Parallel()
	reg := monomer.NewBuiltinRegistry(nil)
	require.NoError(t, reg.Load(context.Background()))
	svc := notation.NewService(reg, nil)

	r, err := svc.Analyze(context.Background(), "PEPTIDE1{A.A.C.G.[dK].[xyz].E.C.H.A}$$$$", notation.AnalyzeOptions{Name: "batch-7"})
	require.NoError(t, err)
	out := ToReport(r)

	assert.Equal(t, r.ID, out.ID)
	assert.Equal(t, "batch-7", out.Name)
	assert.False(t, out.Valid)
	assert.Equal(t, r.MonomerCount, out.MonomerCount)
	require.Len(t, out.Errors, len(r.Errors))
	for op, e := range r.Errors {
		assert.Equal(t, e.Code, out.Errors[op].Code, op)
		assert.Len(t, out.Errors[op].Violations, len(e.Violations), op)
	}
	require.NotNil(t, out.Topology)
	assert.Equal(t, r.Topology.Components, out.Topology.Components)
}

func TestToMonomer(t *testing.T) {
	t.Parallel()
	reg := monomer.NewBuiltinRegistry(nil)
	require.NoError(t, reg.Load(context.Background()))
	m, err := reg.Resolve(monomer.Peptide, "dK")
	require.NoError(t, err)

	out := ToMonomer(m)
	assert.Equal(t, "dK", out.Symbol)
	assert.Equal(t, "PEPTIDE", out.PolymerType)
	assert.Equal(t, "K", out.NaturalAnalog)
	assert.Len(t, out.Attachments, 3)
	assert.Equal(t, "R3", out.Attachments[2].Label)

	assert.NotNil(t, ToMonomers(nil))
	assert.NotNil(t, ToSequences(nil))
}
