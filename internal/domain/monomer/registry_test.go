package monomer

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/testutil"
	"github.com/turtacn/helmkit/pkg/errors"
)

type countingSource struct {
	calls    atomic.Int32
	delay    time.Duration
	fail     atomic.Bool
	monomers []*Monomer

	// started and release, when set, hold Load until release is closed.
	started chan struct{}
	release chan struct{}
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Load(ctx context.Context) ([]*Monomer, error) {
	s.calls.Add(1)
	if s.release != nil {
		close(s.started)
		<-s.release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	time.Sleep(s.delay)
	if s.fail.Load() {
		return nil, stderrors.New("source unavailable")
	}
	return s.monomers, nil
}

func mustMonomer(t *testing.T, spec Spec) *Monomer {
	t.Helper()
	m, err := New(spec)
	require.NoError(t, err)
	return m
}

func TestRegistry_ResolveBeforeLoad(t *testing.T) {
	t.Parallel()
	r := NewBuiltinRegistry(nil)
	_, err := r.Resolve(Peptide, "A")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegistryNotLoaded))

	_, err = r.List("")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRegistryNotLoaded))
}

func TestRegistry_Builtin(t *testing.T) {
	t.Parallel()
	r := NewBuiltinRegistry(nil)
	require.NoError(t, r.Load(context.Background()))
	assert.True(t, r.Loaded())

	dK, err := r.Resolve(Peptide, "dK")
	require.NoError(t, err)
	assert.Equal(t, "K", dK.NaturalAnalog)
	assert.True(t, dK.HasAttachment("R3"))

	base, err := r.Resolve(RNA, "A")
	require.NoError(t, err)
	assert.Equal(t, KindBase, base.Kind)

	_, err = r.Resolve(Peptide, "xyz")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	assert.Equal(t, []PolymerType{Peptide, RNA}, r.TypesOf("A"))
	assert.Equal(t, []PolymerType{Chem}, r.TypesOf("MCC"))
	assert.Empty(t, r.TypesOf("xyz"))

	chems, err := r.List(Chem)
	require.NoError(t, err)
	for _, m := range chems {
		assert.Equal(t, Chem, m.PolymerType)
	}
	all, err := r.List("")
	require.NoError(t, err)
	assert.Equal(t, r.Len(), len(all))
}

func TestRegistry_LoadIsSingleFlight(t *testing.T) {
	t.Parallel()
	src := &countingSource{delay: 20 * time.Millisecond}
	r := NewRegistry(testutil.NewMockLogger(), src)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Load(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), src.calls.Load())

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestRegistry_CancelledCallerDoesNotFailJoinedLoad(t *testing.T) {
	t.Parallel()
	src := &countingSource{started: make(chan struct{}), release: make(chan struct{})}
	r := NewRegistry(testutil.NewMockLogger(), src)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- r.Load(ctx) }()
	<-src.started

	joined := make(chan error, 1)
	go func() { joined <- r.Load(context.Background()) }()

	cancel()
	err := <-first
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
	assert.ErrorIs(t, err, context.Canceled)

	close(src.release)
	require.NoError(t, <-joined)
	assert.True(t, r.Loaded())
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestRegistry_FailedLoadCanRetry(t *testing.T) {
	t.Parallel()
	src := &countingSource{}
	src.fail.Store(true)
	log := testutil.NewMockLogger()
	r := NewRegistry(log, src)

	err := r.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerSourceFailed))
	assert.False(t, r.Loaded())
	assert.True(t, log.HasMessage("error", "monomer source failed"))

	src.fail.Store(false)
	require.NoError(t, r.Load(context.Background()))
	assert.True(t, r.Loaded())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestRegistry_LaterSourcesOverride(t *testing.T) {
	t.Parallel()
	custom := mustMonomer(t, Spec{
		Symbol:        "A",
		PolymerType:   Peptide,
		Name:          "Custom alanine",
		SMILES:        "[*:1]N[C@@H](C)C([*:2])=O",
		NaturalAnalog: "A",
		Attachments:   []Attachment{{Label: "R1", Cap: "H"}, {Label: "R2", Cap: "OH"}},
	})
	r := NewRegistry(nil, NewBuiltinSource(), NewStaticSource("custom", custom))
	require.NoError(t, r.Load(context.Background()))

	m, err := r.Resolve(Peptide, "A")
	require.NoError(t, err)
	assert.Equal(t, "Custom alanine", m.Name)
}

func TestRegistry_NoSources(t *testing.T) {
	t.Parallel()
	err := NewRegistry(nil).Load(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeMonomerSourceFailed))
}

func TestRegistry_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewBuiltinRegistry(nil).Load(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}
