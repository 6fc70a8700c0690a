package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/application/notation"
	dto "github.com/turtacn/helmkit/pkg/types/notation"
)

const (
	cyclic  = "PEPTIDE1{A.A.C.G.K.[dK].C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$"
	unknown = "PEPTIDE1{A.A.C.G.[dK].[xyz].E.C.H.A}$$$$"
)

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	r := execute(t, "", "validate", cyclic)
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "valid (HELM1)\n", r.stdout)

	r = execute(t, "", "validate", unknown)
	assert.Equal(t, ExitInvalid, r.code)
	assert.Contains(t, r.stdout, "invalid (HELM1): 1 violation(s)")
	assert.Empty(t, r.stderr)

	r = execute(t, "", "-o", "json", "validate", unknown)
	assert.Equal(t, ExitInvalid, r.code)
	var out dto.ValidateResponse
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &out))
	require.Len(t, out.Violations, 1)
	assert.Equal(t, "xyz", out.Violations[0].Symbol)

	r = execute(t, "", "-o", "table", "validate", unknown)
	assert.Contains(t, r.stdout, "RULE")
	assert.Contains(t, r.stdout, "xyz")
}

func TestNotationCommands(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"count", []string{"count", cyclic}, "9\n"},
		{"canonical helm2", []string{"canonical", "PEPTIDE7{G}|PEPTIDE3{A}$$$$"}, "PEPTIDE1{A}|PEPTIDE2{G}$$$$V2.0\n"},
		{"canonical helm1", []string{"canonical", "--version", "helm1", "PEPTIDE7{G}|PEPTIDE3{A}$$$$"}, "PEPTIDE1{A}|PEPTIDE2{G}$$$$\n"},
		{"convert", []string{"convert", "--to", "2", "PEPTIDE1{G}$$$$"}, "PEPTIDE1{G}$$$$V2.0\n"},
		{"sequence", []string{"sequence", cyclic}, "PEPTIDE1\tAACGKKCHA\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := execute(t, "", tt.args...)
			assert.Equal(t, 0, r.code, r.stderr)
			assert.Equal(t, tt.want, r.stdout)
		})
	}
}

func TestNotationFromStdin(t *testing.T) {
	t.Parallel()
	r := execute(t, "  PEPTIDE1{G.G}$$$$\n", "-o", "json", "count")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.JSONEq(t, `{"count":2}`, r.stdout)

	r = execute(t, "", "count", "-")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "notation is required")
}

func TestNotationCommand_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"parse error", []string{"count", "PEPTIDE1{A.G}$$$$V9"}, "HELM_001"},
		{"invalid smiles", []string{"smiles", "PEPTIDE1{[xyz]}$$$$"}, "HELM_002"},
		{"strict sequence", []string{"--strict", "sequence", "PEPTIDE1{A.[Aib].G}$$$$"}, "HELM_004"},
		{"unsupported version", []string{"convert", "--to", "helm3", "PEPTIDE1{G}$$$$"}, "COMMON_002"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := execute(t, "", tt.args...)
			assert.Equal(t, 1, r.code)
			assert.Contains(t, r.stderr, tt.code)
			assert.Empty(t, r.stdout)
		})
	}

	r := execute(t, "", "convert", "PEPTIDE1{G}$$$$")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `required flag(s) "to" not set`)
}

func TestPropertiesCommand(t *testing.T) {
	t.Parallel()
	r := execute(t, "", "properties", "PEPTIDE1{G}$$$$")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "formula:")
	assert.Contains(t, r.stdout, "C2H5NO2")

	r = execute(t, "", "-o", "json", "properties", "PEPTIDE1{G}$$$$")
	var p dto.Properties
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &p))
	assert.InDelta(t, 75.07, p.MolecularWeight, 0.01)
}

func TestAnalyzeCommand(t *testing.T) {
	t.Parallel()
	r := execute(t, "", "-o", "json", "analyze", "--name", "batch-7", unknown)
	assert.Equal(t, 0, r.code, r.stderr)
	var rep dto.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &rep))
	assert.Equal(t, "batch-7", rep.Name)
	assert.False(t, rep.Valid)
	assert.Contains(t, rep.Errors, notation.OpValidate)

	r = execute(t, "", "analyze", "--fail-on-error", unknown)
	assert.Equal(t, ExitFailed, r.code)
	assert.Contains(t, r.stdout, "error validate:")
	assert.Contains(t, r.stdout, "monomers:")

	r = execute(t, "", "analyze", "--fail-on-error", cyclic)
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "cyclic=true")
}

func TestDemoCommand(t *testing.T) {
	t.Parallel()
	r := execute(t, "", "demo")
	assert.Equal(t, 0, r.code, r.stderr)
	for _, s := range notation.Samples {
		assert.Contains(t, r.stdout, "== "+s.Name+" ==")
	}

	r = execute(t, "", "-o", "json", "demo")
	var reports []dto.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &reports))
	require.Len(t, reports, len(notation.Samples))
	assert.True(t, reports[0].Valid)
	assert.False(t, reports[len(reports)-1].Valid)

	r = execute(t, "", "-o", "table", "demo")
	assert.Contains(t, r.stdout, "SAMPLE")
	assert.Equal(t, 1, strings.Count(r.stdout, "unknown monomer"))
}
