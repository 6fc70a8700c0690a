package catalog

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/testutil"
	"github.com/turtacn/helmkit/pkg/errors"
)

const importDoc = `version: 1
monomers:
  - {symbol: Hyp, type: PEPTIDE, name: Hydroxyproline, analog: P, smiles: "[*:1]N1C[C@H](O)C[C@H]1C([*:2])=O", attachments: [{label: R1, cap: H}, {label: R2, cap: OH}]}
  - {symbol: PEG2, type: CHEM, name: PEG2 linker, smiles: "[*:1]OCCOCCO[*:2]", attachments: [{label: R1, cap: H}, {label: R2, cap: H}]}
`

type memoryRepo struct {
	mu    sync.Mutex
	items map[monomer.Key]*monomer.Monomer
	err   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[monomer.Key]*monomer.Monomer)}
}

func (r *memoryRepo) List(_ context.Context, t monomer.PolymerType) ([]*monomer.Monomer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*monomer.Monomer
	for k, m := range r.items {
		if t == "" || k.Type == t {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, key monomer.Key) (*monomer.Monomer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeMonomerNotFound, "not found")
	}
	return m, nil
}

func (r *memoryRepo) Save(_ context.Context, ms []*monomer.Monomer) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range ms {
		r.items[m.Key()] = m
	}
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, key monomer.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

func (r *memoryRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PutLibrary(ctx context.Context, data []byte) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

func loadedRegistry(t *testing.T) *monomer.Registry {
	t.Helper()
	r := monomer.NewBuiltinRegistry(nil)
	require.NoError(t, r.Load(context.Background()))
	return r
}

func TestService_List(t *testing.T) {
	t.Parallel()
	svc := NewService(loadedRegistry(t), nil)

	tests := []struct {
		name    string
		typ     string
		wantErr bool
	}{
		{"all", "", false},
		{"peptide upper", "PEPTIDE", false},
		{"rna lower", "rna", false},
		{"blob rejected", "BLOB", true},
		{"unknown", "lipid", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ms, err := svc.List(context.Background(), tt.typ)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, ms)
			if tt.typ != "" {
				for _, m := range ms {
					assert.Equal(t, strings.ToUpper(tt.typ), string(m.PolymerType))
				}
			}
		})
	}
}

func TestService_Show(t *testing.T) {
	t.Parallel()
	svc := NewService(loadedRegistry(t), nil)
	ctx := context.Background()

	m, err := svc.Show(ctx, "peptide", "[dK]")
	require.NoError(t, err)
	assert.Equal(t, "dK", m.Symbol)
	assert.Equal(t, "K", m.NaturalAnalog)

	_, err = svc.Show(ctx, "PEPTIDE", "xyz")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerNotFound))

	_, err = svc.Show(ctx, "", "A")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = svc.Show(ctx, "PEPTIDE", " ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestService_Import(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("saves to store", func(t *testing.T) {
		t.Parallel()
		repo := newMemoryRepo()
		log := testutil.NewMockLogger()
		svc := NewService(loadedRegistry(t), log, WithStore("sqlite", repo))

		res, err := svc.Import(ctx, strings.NewReader(importDoc))
		require.NoError(t, err)
		assert.Equal(t, "sqlite", res.Store)
		assert.Equal(t, 2, res.Imported)
		assert.Equal(t, map[string]int{"PEPTIDE": 1, "CHEM": 1}, res.ByType)

		n, _ := repo.Count(ctx)
		assert.EqualValues(t, 2, n)
		_, err = repo.Get(ctx, monomer.Key{Type: monomer.Chem, Symbol: "PEG2"})
		assert.NoError(t, err)
		assert.True(t, log.HasMessage("info", "monomers imported"))
	})

	t.Run("no store", func(t *testing.T) {
		t.Parallel()
		svc := NewService(loadedRegistry(t), nil)
		_, err := svc.Import(ctx, strings.NewReader(importDoc))
		assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	})

	t.Run("invalid document", func(t *testing.T) {
		t.Parallel()
		repo := newMemoryRepo()
		svc := NewService(loadedRegistry(t), nil, WithStore("sqlite", repo))
		_, err := svc.Import(ctx, strings.NewReader("version: 1\nmonomers:\n  - {symbol: X, type: LIPID, smiles: C}\n"))
		assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerLibraryInvalid))
		n, _ := repo.Count(ctx)
		assert.Zero(t, n)
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()
		svc := NewService(loadedRegistry(t), nil, WithStore("sqlite", newMemoryRepo()))
		_, err := svc.Import(ctx, strings.NewReader(""))
		assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerLibraryInvalid))
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		repo := newMemoryRepo()
		repo.err = errors.New(errors.ErrCodeDatabaseError, "disk full")
		svc := NewService(loadedRegistry(t), nil, WithStore("postgres", repo))
		_, err := svc.Import(ctx, strings.NewReader(importDoc))
		assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	})
}

func TestService_ExportRoundTrip(t *testing.T) {
	t.Parallel()
	reg := loadedRegistry(t)
	svc := NewService(reg, nil)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), &buf, "CHEM")
	require.NoError(t, err)

	decoded, err := monomer.DecodeLibrary(&buf)
	require.NoError(t, err)
	assert.Len(t, decoded, n)
	for _, m := range decoded {
		assert.Equal(t, monomer.Chem, m.PolymerType)
	}
}

func TestService_Publish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("uploads full library", func(t *testing.T) {
		t.Parallel()
		reg := loadedRegistry(t)
		pub := new(MockPublisher)
		pub.On("PutLibrary", ctx, mock.MatchedBy(func(b []byte) bool {
			ms, err := monomer.DecodeLibraryBytes(b)
			return err == nil && len(ms) == reg.Len()
		})).Return("monomers/library.yaml", nil)

		svc := NewService(reg, nil, WithPublisher(pub))
		key, err := svc.Publish(ctx)
		require.NoError(t, err)
		assert.Equal(t, "monomers/library.yaml", key)
		pub.AssertExpectations(t)
	})

	t.Run("upload failure", func(t *testing.T) {
		t.Parallel()
		pub := new(MockPublisher)
		pub.On("PutLibrary", ctx, mock.Anything).Return("", stderrors.New("bucket missing"))
		svc := NewService(loadedRegistry(t), nil, WithPublisher(pub))
		_, err := svc.Publish(ctx)
		assert.Error(t, err)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		svc := NewService(loadedRegistry(t), nil)
		_, err := svc.Publish(ctx)
		assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	})
}
