package notation

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/domain/helm"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/testutil"
	"github.com/turtacn/helmkit/pkg/errors"
)

const (
	cyclic  = "PEPTIDE1{A.A.C.G.K.[dK].C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$"
	unknown = "PEPTIDE1{A.A.C.G.[dK].[xyz].E.C.H.A}$$$$"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	if r, ok := args.Get(1).(*AnalysisReport); ok && r != nil {
		*(dest.(*AnalysisReport)) = *r
	}
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) PutReport(ctx context.Context, r *AnalysisReport) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

func newRegistry(t *testing.T) *monomer.Registry {
	t.Helper()
	r := monomer.NewBuiltinRegistry(nil)
	require.NoError(t, r.Load(context.Background()))
	return r
}

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	return NewService(newRegistry(t), testutil.NewMockLogger(), opts...)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Validate(ctx, cyclic)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "HELM1", res.Version)

	res, err = svc.Validate(ctx, unknown)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "xyz", res.Violations[0].Symbol)

	_, err = svc.Validate(ctx, "PEPTIDE1{A")
	assert.True(t, errors.IsCode(err, errors.ErrCodeHELMParse))
}

func TestValidate_RegistryNotLoaded(t *testing.T) {
	t.Parallel()
	svc := NewService(monomer.NewBuiltinRegistry(nil), nil)
	_, err := svc.Validate(context.Background(), cyclic)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegistryNotLoaded))
}

func TestSingleOperations(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	count, err := svc.Count(ctx, cyclic)
	require.NoError(t, err)
	assert.Equal(t, 9, count)

	canon, err := svc.Canonical(ctx, "PEPTIDE7{G}|PEPTIDE3{A}$$$$", helm.HELM1)
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDE1{A}|PEPTIDE2{G}$$$$", canon)

	canon2, err := svc.Canonical(ctx, "PEPTIDE7{G}|PEPTIDE3{A}$$$$", "")
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDE1{A}|PEPTIDE2{G}$$$$V2.0", canon2)

	_, err = svc.Canonical(ctx, cyclic, "HELM3")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	smiles, err := svc.SMILES(ctx, "PEPTIDE1{G}$$$$")
	require.NoError(t, err)
	assert.NotEmpty(t, smiles)

	props, err := svc.Properties(ctx, "PEPTIDE1{G}$$$$")
	require.NoError(t, err)
	assert.Equal(t, "C2H5NO2", props.MolecularFormula)

	seqs, err := svc.Sequences(ctx, cyclic, SequenceInput{Type: "peptide"})
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	assert.Equal(t, "AACGKKCHA", seqs[0].Sequence)

	conv, err := svc.Convert(ctx, cyclic, helm.HELM2)
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDE1{A.A.C.G.K.[dK].C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$V2.0", conv)

	_, err = svc.Convert(ctx, cyclic, "V3")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestSequences_StrictOverride(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	text := "PEPTIDE1{A.[Aib].G}$$$$"
	strict := true

	seqs, err := svc.Sequences(context.Background(), text, SequenceInput{})
	require.NoError(t, err)
	assert.Equal(t, "AXG", seqs[0].Sequence)

	_, err = svc.Sequences(context.Background(), text, SequenceInput{Strict: &strict})
	var ue *helm.UnknownAnalogueError
	assert.True(t, stderrors.As(err, &ue))
}

func TestAnalyze_ValidNotation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	r, err := svc.Analyze(context.Background(), cyclic, AnalyzeOptions{})
	require.NoError(t, err)
	assert.Empty(t, r.Errors)
	assert.True(t, r.Valid)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "HELM1", r.Version)
	assert.Equal(t, 9, r.MonomerCount)
	assert.Equal(t, []string{"PEPTIDE1,PEPTIDE1,3:R3-7:R3"}, r.EdgeConnections)
	assert.Empty(t, r.BasePairs)
	assert.Equal(t, cyclic, r.CanonicalHELM)
	assert.NotEmpty(t, r.CanonicalSMILES)
	require.NotNil(t, r.Properties)
	require.NotNil(t, r.Properties.ExtinctionCoefficient)
	assert.InDelta(t, 0.125, *r.Properties.ExtinctionCoefficient, 1e-9)
	require.Len(t, r.Sequences, 1)
	assert.Equal(t, "AACGKKCHA", r.Sequences[0].Sequence)
	require.NotNil(t, r.Topology)
	assert.True(t, r.Topology.Cyclic)
}

func TestAnalyze_FailuresAreIndependent(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	r, err := svc.Analyze(context.Background(), unknown, AnalyzeOptions{})
	require.NoError(t, err)
	assert.False(t, r.Valid)
	assert.Equal(t, 10, r.MonomerCount)
	assert.Len(t, r.Polymers, 1)
	for _, op := range []string{OpValidate, OpCanonicalHELM, OpCanonicalHELM2, OpSMILES, OpProperties, OpSequences} {
		assert.True(t, r.Failed(op), op)
		assert.Equal(t, string(errors.ErrCodeHELMValidation), r.Errors[op].Code)
	}
	assert.False(t, r.Failed(OpTopology))
	require.NotNil(t, r.Topology)
	require.Len(t, r.Errors[OpValidate].Violations, 1)
}

func TestAnalyze_ParseFailure(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	r, err := svc.Analyze(context.Background(), "PEPTIDE1{A.G}$$$$V9", AnalyzeOptions{})
	require.NoError(t, err)
	require.True(t, r.Failed(OpParse))
	assert.Equal(t, helm.SectionVersion, r.Errors[OpParse].Section)
	assert.Len(t, r.Errors, 1)
	assert.Empty(t, r.Polymers)
}

func TestAnalyze_Cancelled(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, cyclic, AnalyzeOptions{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}

func TestAnalyze_CacheHit(t *testing.T) {
	t.Parallel()
	cache := new(MockCache)
	svc := newTestService(t, WithCache(cache, time.Minute))
	key := CacheKey(cyclic, "", false)

	stored := &AnalysisReport{ID: "cached-id", Input: cyclic, Valid: true, MonomerCount: 9}
	cache.On("Get", mock.Anything, key, mock.AnythingOfType("*notation.AnalysisReport")).Return(nil, stored)

	r, err := svc.Analyze(context.Background(), cyclic, AnalyzeOptions{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "cached-id", r.ID)
	assert.True(t, r.Cached)
	assert.Equal(t, "x", r.Name)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyze_CacheMissStoresAndArchives(t *testing.T) {
	t.Parallel()
	cache := new(MockCache)
	archive := new(MockArchive)
	svc := newTestService(t, WithCache(cache, time.Minute), WithArchive(archive))
	key := CacheKey(cyclic, "", false)

	cache.On("Get", mock.Anything, key, mock.Anything).Return(stderrors.New("miss"), nil)
	archive.On("PutReport", mock.Anything, mock.AnythingOfType("*notation.AnalysisReport")).Return("reports/a.json", nil)
	cache.On("Set", mock.Anything, key, mock.AnythingOfType("*notation.AnalysisReport"), time.Minute).Return(nil)

	r, err := svc.Analyze(context.Background(), cyclic, AnalyzeOptions{Archive: true})
	require.NoError(t, err)
	assert.False(t, r.Cached)
	assert.Equal(t, "reports/a.json", r.ArchiveKey)
	cache.AssertExpectations(t)
	archive.AssertExpectations(t)
}

func TestAnalyze_NoCacheSkipsCache(t *testing.T) {
	t.Parallel()
	cache := new(MockCache)
	svc := newTestService(t, WithCache(cache, time.Minute))

	_, err := svc.Analyze(context.Background(), cyclic, AnalyzeOptions{NoCache: true})
	require.NoError(t, err)
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyze_ArchiveFailureIsLogged(t *testing.T) {
	t.Parallel()
	archive := new(MockArchive)
	logger := testutil.NewMockLogger()
	svc := NewService(newRegistry(t), logger, WithArchive(archive))
	archive.On("PutReport", mock.Anything, mock.Anything).Return("", stderrors.New("bucket gone"))

	r, err := svc.Analyze(context.Background(), cyclic, AnalyzeOptions{Archive: true})
	require.NoError(t, err)
	assert.Empty(t, r.ArchiveKey)
	assert.True(t, logger.HasMessage("warn", "failed to archive report"))
}

func TestCacheKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, CacheKey(cyclic, "", false), CacheKey(" "+cyclic+"\n", "", false))
	assert.NotEqual(t, CacheKey(cyclic, "", false), CacheKey(cyclic, "", true))
	assert.NotEqual(t, CacheKey(cyclic, "", false), CacheKey(cyclic, "RNA", false))
	assert.Equal(t, CacheKey(cyclic, "rna", false), CacheKey(cyclic, "RNA", false))
}

func TestDemo(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	reports, err := svc.Demo(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, len(Samples))
	for i, r := range reports[:4] {
		assert.True(t, r.Valid, Samples[i].Name)
		assert.Empty(t, r.Errors, Samples[i].Name)
	}
	last := reports[4]
	assert.False(t, last.Valid)
	assert.Equal(t, "unknown monomer", last.Name)
	assert.Equal(t, "AACGKECHA", reports[1].Sequences[0].Sequence)
	assert.Equal(t, "PEPTIDE1{A.A.C.G.[dK].E.C.H.A}$PEPTIDE1,PEPTIDE1,3:R3-7:R3$$$", reports[1].CanonicalHELM)
}

func TestNewOperationError(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewOperationError(nil))

	_, err := helm.Parse("PEPTIDE1{A.G}$PEPTIDE1,PEPTIDE1,1:R1-2:R2$$$V9")
	oe := NewOperationError(err)
	assert.Equal(t, "HELM_001", oe.Code)
	assert.Equal(t, helm.SectionVersion, oe.Section)
	assert.Equal(t, 44, oe.Offset)
	assert.Contains(t, oe.Error(), "HELM_001")

	plain := NewOperationError(stderrors.New("boom"))
	assert.Equal(t, "COMMON_001", plain.Code)
	assert.Equal(t, "boom", plain.Message)
}
