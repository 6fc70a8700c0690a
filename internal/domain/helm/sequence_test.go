package helm

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/pkg/errors"
)

func TestSequences(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		text   string
		filter monomer.PolymerType
		want   []string
	}{
		{"d-lysine maps to lysine", sampleCyclic, monomer.Peptide, []string{"AACGKKCHA"}},
		{"helm2 sample", sampleHELM2, monomer.Peptide, []string{"AACGKECHA"}},
		{"selenocysteine maps to cysteine", sampleConjugate, monomer.Peptide, []string{"AGGGCCKKKK"}},
		{"rna filter skips peptides", sampleConjugate, monomer.RNA, []string{}},
		{"rna bases only", sampleInline, monomer.RNA, []string{"AA"}},
		{"modified base", "RNA1{R(A)P.R([5meC])P.[dR](T)}$$$$", monomer.RNA, []string{"ACT"}},
		{"no analogue falls back", "PEPTIDE1{A.[Aib].[Nle].G}$$$$", monomer.Peptide, []string{"AXXG"}},
		{"ambiguity falls back", "PEPTIDE1{(A,G).C}$$$$V2.0", monomer.Peptide, []string{"XC"}},
		{"fixed repeat expands", "PEPTIDE1{A'3'.(G.C)'2'}$$$$", monomer.Peptide, []string{"AAAGCGC"}},
		{"range repeat at minimum", "PEPTIDE1{A'2-5'.G}$$$$V2.0", monomer.Peptide, []string{"AAG"}},
		{"polymer order kept", "PEPTIDE1{W}|PEPTIDE2{C.C}|RNA1{R(U)}$$$$", "", []string{"W", "CC", "U"}},
	}
	e := newTestEngine(t)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := e.Sequences(mustParse(t, tt.text), tt.filter)
			require.NoError(t, err)
			seqs := make([]string, 0, len(got))
			for _, s := range got {
				seqs = append(seqs, s.Sequence)
			}
			assert.Equal(t, tt.want, seqs)
		})
	}
}

func TestSequences_Strict(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithStrictSequences(true))
	assert.True(t, e.Strict())

	got, err := e.Sequences(mustParse(t, sampleCyclic), monomer.Peptide)
	require.NoError(t, err)
	assert.Equal(t, "AACGKKCHA", got[0].Sequence)

	_, err = e.Sequences(mustParse(t, "PEPTIDE1{A.[Aib].G}$$$$"), monomer.Peptide)
	var ue *UnknownAnalogueError
	require.True(t, stderrors.As(err, &ue), "got %v", err)
	assert.Equal(t, "PEPTIDE1", ue.PolymerID)
	assert.Equal(t, 2, ue.Position)
	assert.Equal(t, "Aib", ue.Symbol)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHELMUnknownAnalogue))
}

func TestSequences_Errors(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	_, err := e.Sequences(mustParse(t, sampleCyclic), monomer.Chem)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = e.Sequences(mustParse(t, sampleUnknown), monomer.Peptide)
	var ve *ValidationError
	assert.True(t, stderrors.As(err, &ve))
}
