package monomer

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Resolver is the read side of the Registry that the notation pipeline needs.
type Resolver interface {
	// Resolve returns the monomer registered under (t, symbol).
	Resolve(t PolymerType, symbol string) (*Monomer, error)
	// TypesOf lists the polymer types that define symbol.
	TypesOf(symbol string) []PolymerType
}

// Registry is the process-wide monomer table. It is filled once by Load from
// its sources and is read-only afterwards, so lookups take only a read lock.
type Registry struct {
	sources []Source
	logger  logging.Logger

	group singleflight.Group

	mu       sync.RWMutex
	loaded   bool
	monomers map[Key]*Monomer
	symbols  map[string][]PolymerType
}

// NewRegistry returns an unloaded registry. Sources are applied in order and
// later ones override earlier definitions of the same (type, symbol).
func NewRegistry(logger logging.Logger, sources ...Source) *Registry {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Registry{sources: sources, logger: logger}
}

// NewBuiltinRegistry returns a registry over the embedded library only.
func NewBuiltinRegistry(logger logging.Logger) *Registry {
	return NewRegistry(logger, NewBuiltinSource())
}

// Load populates the registry. Concurrent callers share one in-flight load
// and calls after a successful load return immediately. A failed load leaves
// the registry empty and may be retried.
//
// The shared load ignores the cancellation of the caller that started it; a
// caller whose ctx ends stops waiting without failing the others.
func (r *Registry) Load(ctx context.Context) error {
	if r.Loaded() {
		return nil
	}
	ch := r.group.DoChan("load", func() (interface{}, error) {
		if r.Loaded() {
			return nil, nil
		}
		return nil, r.load(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "monomer registry load cancelled")
	}
}

func (r *Registry) load(ctx context.Context) error {
	if len(r.sources) == 0 {
		return errors.New(errors.ErrCodeMonomerSourceFailed, "no monomer sources configured")
	}
	table := make(map[Key]*Monomer)
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeTimeout, "monomer registry load cancelled")
		}
		ms, err := src.Load(ctx)
		if err != nil {
			r.logger.Error("monomer source failed", logging.String("source", src.Name()), logging.Err(err))
			return errors.Wrap(err, errors.ErrCodeMonomerSourceFailed, "failed to load monomer source "+src.Name())
		}
		overridden := 0
		for _, m := range ms {
			if _, ok := table[m.Key()]; ok {
				overridden++
			}
			table[m.Key()] = m
		}
		r.logger.Info("monomer source loaded",
			logging.String("source", src.Name()),
			logging.Int("monomers", len(ms)),
			logging.Int("overridden", overridden))
	}

	symbols := make(map[string][]PolymerType)
	for _, t := range PolymerTypes {
		for k := range table {
			if k.Type == t {
				symbols[k.Symbol] = append(symbols[k.Symbol], t)
			}
		}
	}

	r.mu.Lock()
	r.monomers = table
	r.symbols = symbols
	r.loaded = true
	r.mu.Unlock()
	return nil
}

// Loaded reports whether Load has completed successfully.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Resolve returns the monomer registered under (t, symbol).
func (r *Registry) Resolve(t PolymerType, symbol string) (*Monomer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return nil, errors.New(errors.ErrCodeRegistryNotLoaded, "monomer registry is not loaded")
	}
	m, ok := r.monomers[Key{Type: t, Symbol: symbol}]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeMonomerNotFound, "unknown %s monomer %s", t, symbol)
	}
	return m, nil
}

// TypesOf lists the polymer types that define symbol, in canonical order.
func (r *Registry) TypesOf(symbol string) []PolymerType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]PolymerType(nil), r.symbols[symbol]...)
}

// List returns the registered monomers of type t, or all when t is empty,
// sorted by type and symbol.
func (r *Registry) List(t PolymerType) ([]*Monomer, error) {
	r.mu.RLock()
	if !r.loaded {
		r.mu.RUnlock()
		return nil, errors.New(errors.ErrCodeRegistryNotLoaded, "monomer registry is not loaded")
	}
	out := make([]*Monomer, 0, len(r.monomers))
	for k, m := range r.monomers {
		if t == "" || k.Type == t {
			out = append(out, m)
		}
	}
	r.mu.RUnlock()
	SortMonomers(out)
	return out, nil
}

// Len returns the number of registered monomers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.monomers)
}
