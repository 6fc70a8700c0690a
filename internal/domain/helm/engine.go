package helm

import (
	"github.com/turtacn/helmkit/internal/domain/monomer"
)

// DefaultMaxPermutations bounds the number of leaves the canonicalizer's
// tie-break search visits.
const DefaultMaxPermutations = 5040

// Engine runs the derived operations of the pipeline against one monomer
// registry. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	resolver        monomer.Resolver
	validator       *Validator
	maxPermutations int
	strict          bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxPermutations bounds the candidate polymer orders serialized when
// polymers stay tied after refinement. Values below 1 select the default.
func WithMaxPermutations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPermutations = n
		}
	}
}

// WithStrictSequences makes sequence extraction fail on monomers without a
// natural analogue instead of substituting the fallback letter.
func WithStrictSequences(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// NewEngine returns an Engine resolving monomers through r.
func NewEngine(r monomer.Resolver, opts ...Option) *Engine {
	e := &Engine{
		resolver:        r,
		validator:       NewValidator(r),
		maxPermutations: DefaultMaxPermutations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate checks n against the registry.
func (e *Engine) Validate(n *Notation) error {
	return e.validator.Validate(n)
}

// Strict reports whether sequence extraction runs in strict mode.
func (e *Engine) Strict() bool { return e.strict }
