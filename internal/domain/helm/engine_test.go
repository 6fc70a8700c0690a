package helm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/domain/monomer"
)

const (
	sampleCyclic    = "PEPTIDE1{A.A.C.G.K.[dK].C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$"
	sampleHELM2     = "PEPTIDE1{A.A.C.G.[dK].E.C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$V2.0"
	sampleConjugate = "PEPTIDE1{A.G.G.G.[seC].C.K.K.K.K}|CHEM1{MCC}$PEPTIDE1,CHEM1,9:R3-1:R1$$$"
	sampleInline    = "RNA1{R(A)P.[mR](A)P}|CHEM1{[*]OCCOCCOCCO[*] |$_R1;;;;;;;;;;;_R3$|}$RNA1,CHEM1,6:R2-1:R1$$$"
	sampleUnknown   = "PEPTIDE1{A.A.C.G.[dK].[xyz].E.C.H.A}$$$$"
)

var validSamples = []string{sampleCyclic, sampleHELM2, sampleConjugate, sampleInline}

func newTestRegistry(t *testing.T) *monomer.Registry {
	t.Helper()
	r := monomer.NewBuiltinRegistry(nil)
	require.NoError(t, r.Load(context.Background()))
	return r
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return NewEngine(newTestRegistry(t), opts...)
}

func mustParse(t *testing.T, text string) *Notation {
	t.Helper()
	n, err := Parse(text)
	require.NoError(t, err, text)
	return n
}
