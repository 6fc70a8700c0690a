package helm

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		helm1 string
		helm2 string
	}{
		{
			name:  "cyclic peptide",
			input: sampleCyclic,
			helm1: sampleCyclic,
			helm2: "PEPTIDE1{A.A.C.G.K.[dK].C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$V2.0",
		},
		{
			name:  "helm2 input",
			input: sampleHELM2,
			helm1: "PEPTIDE1{A.A.C.G.[dK].E.C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$",
			helm2: sampleHELM2,
		},
		{
			name:  "base pairs move between sections",
			input: "RNA1{R(A)P.R(C)}|RNA2{R(G)P.R(U)}$$RNA1,RNA2,2:pair-5:pair$$",
			helm1: "RNA1{R(A)P.R(C)}|RNA2{R(G)P.R(U)}$$RNA1,RNA2,2:pair-5:pair$$",
			helm2: "RNA1{R(A)P.R(C)}|RNA2{R(G)P.R(U)}$RNA1,RNA2,2:pair-5:pair$$$V2.0",
		},
		{
			name:  "annotations are kept",
			input: `PEPTIDE1{A.G"gly"}"chain"$PEPTIDE1,PEPTIDE1,1:R1-2:R2"ring"$$note$`,
			helm1: `PEPTIDE1{A.G"gly"}"chain"$PEPTIDE1,PEPTIDE1,1:R1-2:R2"ring"$$note$`,
			helm2: `PEPTIDE1{A.G"gly"}"chain"$PEPTIDE1,PEPTIDE1,1:R1-2:R2"ring"$$note$V2.0`,
		},
		{
			name:  "repeats and groups",
			input: "PEPTIDE1{A'3'.(G.[dK])'2'.C}$$$$",
			helm1: "PEPTIDE1{A'3'.(G.[dK])'2'.C}$$$$",
			helm2: "PEPTIDE1{A'3'.(G.[dK])'2'.C}$$$$V2.0",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n := mustParse(t, tt.input)

			got1, err := ConvertToHELM1(n)
			require.NoError(t, err)
			assert.Equal(t, tt.helm1, got1)

			got2, err := ConvertToHELM2(n)
			require.NoError(t, err)
			assert.Equal(t, tt.helm2, got2)

			// both renderings parse back to the same structure
			back := mustParse(t, got2)
			assert.Equal(t, n.Polymers, back.Polymers)
			assert.Equal(t, n.Connections, back.Connections)
		})
	}
}

func TestConvertToHELM1_Unsupported(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
	}{
		{"groups", "PEPTIDE1{A}|PEPTIDE2{G}$$G1(PEPTIDE1,PEPTIDE2)$$V2.0"},
		{"ambiguity", "PEPTIDE1{(A,G).C}$$$$V2.0"},
		{"repeat range", "PEPTIDE1{A'2-5'}$$$$V2.0"},
		{"blob", "BLOB1{Bead}$$$$V2.0"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n := mustParse(t, tt.input)
			_, err := ConvertToHELM1(n)
			var ce *CanonicalizationError
			require.True(t, stderrors.As(err, &ce), "got %v", err)

			got, err := ConvertToHELM2(n)
			require.NoError(t, err)
			assert.Equal(t, tt.input, got)
		})
	}
}
