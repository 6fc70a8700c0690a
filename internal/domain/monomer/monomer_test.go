package monomer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/pkg/errors"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	r1 := []Attachment{{Label: "R1", Cap: "H"}}
	tests := []struct {
		name string
		spec Spec
	}{
		{"empty symbol", Spec{PolymerType: Chem, SMILES: "[*:1]C", Attachments: r1}},
		{"blob type", Spec{Symbol: "X", PolymerType: Blob, SMILES: "[*:1]C", Attachments: r1}},
		{"unknown type", Spec{Symbol: "X", PolymerType: "DNA", SMILES: "[*:1]C", Attachments: r1}},
		{"kind mismatch", Spec{Symbol: "X", PolymerType: Peptide, Kind: KindBase, SMILES: "[*:1]C", Attachments: r1}},
		{"long analogue", Spec{Symbol: "X", PolymerType: Peptide, NaturalAnalog: "AK", SMILES: "[*:1]C", Attachments: r1}},
		{"bad smiles", Spec{Symbol: "X", PolymerType: Chem, SMILES: "C1CC", Attachments: r1}},
		{"missing attachment", Spec{Symbol: "X", PolymerType: Chem, SMILES: "[*:1]C", Attachments: []Attachment{{Label: "R2"}}}},
		{"undeclared attachment", Spec{Symbol: "X", PolymerType: Chem, SMILES: "[*:1]C[*:2]", Attachments: r1}},
		{"bad label", Spec{Symbol: "X", PolymerType: Chem, SMILES: "[*:1]C", Attachments: []Attachment{{Label: "X1"}}}},
		{"duplicate label", Spec{Symbol: "X", PolymerType: Chem, SMILES: "[*:1]C", Attachments: []Attachment{{Label: "R1"}, {Label: "R1"}}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.spec)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerLibraryInvalid), "got %v", err)
		})
	}
}

func TestNew_DefaultsAndOrdering(t *testing.T) {
	t.Parallel()
	m, err := New(Spec{
		Symbol:      "X",
		PolymerType: Chem,
		SMILES:      "[*:2]CC[*:1]",
		Attachments: []Attachment{{Label: "R2", Cap: "OH"}, {Label: "R1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, KindChemical, m.Kind)
	assert.Equal(t, []Attachment{{Label: "R1", Cap: "H"}, {Label: "R2", Cap: "OH"}}, m.Attachments)

	capGroup, ok := m.CapFor("R2")
	assert.True(t, ok)
	assert.Equal(t, "OH", capGroup)
	_, ok = m.CapFor("R3")
	assert.False(t, ok)

	mol, rg := m.Structure()
	assert.Len(t, rg, 2)
	require.NoError(t, mol.Cap(rg[1], "H"))
	assert.Equal(t, 3, mol.AtomCount())
	assert.Equal(t, 4, m.structure.AtomCount(), "Structure must hand out a copy")
}

func TestNewInline(t *testing.T) {
	t.Parallel()
	m, err := NewInline(Chem, "[*]OCCOCCOCCO[*] |$_R1;;;;;;;;;;;_R3$|")
	require.NoError(t, err)
	assert.True(t, m.HasAttachment("R1"))
	assert.True(t, m.HasAttachment("R3"))
	assert.False(t, m.HasAttachment("R2"))

	_, err = NewInline(Chem, "CCO")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHELMStructure))
}

func TestRGroupNumber(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 3, RGroupNumber("R3"))
	assert.Equal(t, 12, RGroupNumber("R12"))
	assert.Equal(t, 0, RGroupNumber("pair"))
	assert.Equal(t, 0, RGroupNumber("R0"))
	assert.Equal(t, 0, RGroupNumber("R"))
}

func TestPolymerType(t *testing.T) {
	t.Parallel()
	pt, ok := ParsePolymerType("RNA")
	assert.True(t, ok)
	assert.Equal(t, RNA, pt)
	_, ok = ParsePolymerType("rna")
	assert.False(t, ok)
	assert.Less(t, Peptide.Order(), RNA.Order())
	assert.Less(t, RNA.Order(), Chem.Order())
	assert.Less(t, Chem.Order(), Blob.Order())
}

func TestLibrary_EncodeDecode(t *testing.T) {
	t.Parallel()
	ms, err := DecodeLibraryBytes(BuiltinLibrary())
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	var buf bytes.Buffer
	require.NoError(t, EncodeLibrary(&buf, ms))
	again, err := DecodeLibrary(&buf)
	require.NoError(t, err)
	require.Len(t, again, len(ms))

	SortMonomers(ms)
	for i := range ms {
		assert.Equal(t, ms[i].Spec(), again[i].Spec())
	}
}

func TestLibrary_DecodeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "version: 1\nmonomers:\n  - {symbol: X, type: CHEM, smiles: \"[*:1]C\", colour: red}\n"},
		{"future version", "version: 9\nmonomers: []\n"},
		{"duplicate", "monomers:\n  - {symbol: X, type: CHEM, smiles: \"[*:1]C\", attachments: [{label: R1, cap: H}]}\n  - {symbol: X, type: CHEM, smiles: \"[*:1]C\", attachments: [{label: R1, cap: H}]}\n"},
		{"bad entry", "monomers:\n  - {symbol: X, type: CHEM, smiles: \"C1\"}\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeLibraryBytes([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerLibraryInvalid))
		})
	}
}

func TestFileSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.yaml")
	doc := "version: 1\nmonomers:\n  - {symbol: Lnk, type: CHEM, smiles: \"[*:1]CCC[*:2]\", attachments: [{label: R1, cap: H}, {label: R2, cap: H}]}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	src := NewFileSource(path)
	assert.Equal(t, "file:"+path, src.Name())
	ms, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, Key{Type: Chem, Symbol: "Lnk"}, ms[0].Key())

	_, err = NewFileSource(filepath.Join(dir, "missing.yaml")).Load(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerSourceFailed))
}
