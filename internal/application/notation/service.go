// Package notation is the application service over the HELM engine. It is
// shared by the CLI, the HTTP and gRPC APIs and the batch worker.
package notation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/helmkit/internal/domain/helm"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Service defines the notation operations.
type Service interface {
	Validate(ctx context.Context, text string) (*ValidationResult, error)
	Count(ctx context.Context, text string) (int, error)
	Canonical(ctx context.Context, text string, version helm.Version) (string, error)
	SMILES(ctx context.Context, text string) (string, error)
	Properties(ctx context.Context, text string) (*helm.Properties, error)
	Sequences(ctx context.Context, text string, input SequenceInput) ([]helm.PolymerSequence, error)
	Convert(ctx context.Context, text string, target helm.Version) (string, error)
	Analyze(ctx context.Context, text string, opts AnalyzeOptions) (*AnalysisReport, error)
	Demo(ctx context.Context) ([]*AnalysisReport, error)
}

// SequenceInput selects the polymers and the analogue policy of Sequences.
type SequenceInput struct {
	// Type is PEPTIDE, RNA or empty for both.
	Type string
	// Strict overrides the service default when set.
	Strict *bool
}

// AnalyzeOptions tunes Analyze.
type AnalyzeOptions struct {
	Name         string
	SequenceType string
	Strict       *bool
	// NoCache bypasses the report cache for reads and writes.
	NoCache bool
	// Archive stores the report in the archive, when one is configured.
	Archive bool
}

// ReportCache is the subset of the Redis cache Analyze uses.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportArchive persists finished reports and returns their object key.
type ReportArchive interface {
	PutReport(ctx context.Context, report *AnalysisReport) (string, error)
}

// Option configures the service.
type Option func(*serviceImpl)

func WithCache(c ReportCache, ttl time.Duration) Option {
	return func(s *serviceImpl) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithArchive(a ReportArchive) Option {
	return func(s *serviceImpl) { s.archive = a }
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

func WithMaxPermutations(n int) Option {
	return func(s *serviceImpl) { s.maxPermutations = n }
}

// WithStrictSequences sets the default analogue policy.
func WithStrictSequences(strict bool) Option {
	return func(s *serviceImpl) { s.strict = strict }
}

// WithMetricsSource labels the monomer-count histogram.
func WithMetricsSource(source string) Option {
	return func(s *serviceImpl) { s.source = source }
}

type serviceImpl struct {
	lenient *helm.Engine
	strictE *helm.Engine
	logger  logging.Logger

	cache    ReportCache
	cacheTTL time.Duration
	archive  ReportArchive
	metrics  *prometheus.AppMetrics

	maxPermutations int
	strict          bool
	source          string
}

// NewService builds the service over resolver.
func NewService(resolver monomer.Resolver, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		logger:          logger,
		maxPermutations: helm.DefaultMaxPermutations,
		source:          "api",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lenient = helm.NewEngine(resolver, helm.WithMaxPermutations(s.maxPermutations))
	s.strictE = helm.NewEngine(resolver, helm.WithMaxPermutations(s.maxPermutations), helm.WithStrictSequences(true))
	return s
}

func (s *serviceImpl) engine(strict *bool) *helm.Engine {
	use := s.strict
	if strict != nil {
		use = *strict
	}
	if use {
		return s.strictE
	}
	return s.lenient
}

// observe records one operation and passes err through.
func (s *serviceImpl) observe(op string, start time.Time, err error) error {
	prometheus.RecordOperation(s.metrics, op, time.Since(start), err)
	return err
}

func (s *serviceImpl) parse(ctx context.Context, text string) (*helm.Notation, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "request cancelled")
	}
	start := time.Now()
	n, err := helm.Parse(strings.TrimSpace(text))
	if err != nil {
		return nil, s.observe(OpParse, start, err)
	}
	_ = s.observe(OpParse, start, nil)
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Single operations
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Validate(ctx context.Context, text string) (*ValidationResult, error) {
	n, err := s.parse(ctx, text)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	err = s.observe(OpValidate, start, s.lenient.Validate(n))
	res := &ValidationResult{Valid: err == nil, Version: string(n.Version)}
	var ve *helm.ValidationError
	switch {
	case err == nil:
	case stderrors.As(err, &ve):
		res.Violations = ve.Violations
	default:
		return nil, err
	}
	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, text string) (int, error) {
	n, err := s.parse(ctx, text)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	count := helm.MonomerCount(n)
	_ = s.observe(OpCount, start, nil)
	prometheus.RecordMonomerCount(s.metrics, s.source, count)
	return count, nil
}

func (s *serviceImpl) Canonical(ctx context.Context, text string, version helm.Version) (string, error) {
	n, err := s.parse(ctx, text)
	if err != nil {
		return "", err
	}
	start := time.Now()
	switch version {
	case helm.HELM1:
		out, err := s.lenient.CanonicalHELM(n)
		return out, s.observe(OpCanonicalHELM, start, err)
	case helm.HELM2, "":
		out, err := s.lenient.CanonicalHELM2(n)
		return out, s.observe(OpCanonicalHELM2, start, err)
	default:
		return "", errors.Newf(errors.ErrCodeBadRequest, "unknown notation version %q", version)
	}
}

func (s *serviceImpl) SMILES(ctx context.Context, text string) (string, error) {
	n, err := s.parse(ctx, text)
	if err != nil {
		return "", err
	}
	start := time.Now()
	out, err := s.lenient.CanonicalSMILES(n)
	return out, s.observe(OpSMILES, start, err)
}

func (s *serviceImpl) Properties(ctx context.Context, text string) (*helm.Properties, error) {
	n, err := s.parse(ctx, text)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	p, err := s.lenient.Properties(n)
	return p, s.observe(OpProperties, start, err)
}

func (s *serviceImpl) Sequences(ctx context.Context, text string, input SequenceInput) ([]helm.PolymerSequence, error) {
	n, err := s.parse(ctx, text)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	seqs, err := s.engine(input.Strict).Sequences(n, monomer.PolymerType(strings.ToUpper(input.Type)))
	return seqs, s.observe(OpSequences, start, err)
}

// Convert rewrites text in the target grammar without reordering anything.
func (s *serviceImpl) Convert(ctx context.Context, text string, target helm.Version) (string, error) {
	n, err := s.parse(ctx, text)
	if err != nil {
		return "", err
	}
	if target != helm.HELM1 && target != helm.HELM2 {
		return "", errors.Newf(errors.ErrCodeBadRequest, "unknown notation version %q", target)
	}
	start := time.Now()
	out, err := helm.Format(n, target)
	return out, s.observe(OpConvert, start, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Analyze
// ─────────────────────────────────────────────────────────────────────────────

// CacheKey derives the report cache key from the input and the options that
// change the report.
func CacheKey(text string, seqType string, strict bool) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(text)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToUpper(seqType)))
	if strict {
		h.Write([]byte{1})
	}
	return "analysis:" + hex.EncodeToString(h.Sum(nil))
}

func (s *serviceImpl) Analyze(ctx context.Context, text string, opts AnalyzeOptions) (*AnalysisReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "request cancelled")
	}
	strict := s.strict
	if opts.Strict != nil {
		strict = *opts.Strict
	}
	key := CacheKey(text, opts.SequenceType, strict)

	if s.cache != nil && !opts.NoCache {
		var cached AnalysisReport
		err := s.cache.Get(ctx, key, &cached)
		prometheus.RecordCacheAccess(s.metrics, "analysis", err == nil)
		if err == nil {
			cached.Cached = true
			cached.Name = opts.Name
			return &cached, nil
		}
	}

	r := s.analyze(ctx, text, opts, strict)

	if s.archive != nil && opts.Archive {
		if objKey, err := s.archive.PutReport(ctx, r); err != nil {
			s.logger.Warn("failed to archive report", logging.String("id", r.ID), logging.Err(err))
		} else {
			r.ArchiveKey = objKey
		}
	}
	if s.cache != nil && !opts.NoCache {
		if err := s.cache.Set(ctx, key, r, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache report", logging.String("id", r.ID), logging.Err(err))
		}
	}
	return r, nil
}

func (s *serviceImpl) analyze(ctx context.Context, text string, opts AnalyzeOptions, strict bool) *AnalysisReport {
	began := time.Now()
	r := &AnalysisReport{
		ID:          uuid.NewString(),
		Name:        opts.Name,
		Input:       text,
		GeneratedAt: began.UTC(),
	}
	defer func() {
		r.DurationMS = float64(time.Since(began).Microseconds()) / 1000
		s.logger.Debug("notation analysed",
			logging.String("id", r.ID),
			logging.Bool("valid", r.Valid),
			logging.Int("errors", len(r.Errors)),
			logging.Float64("duration_ms", r.DurationMS))
	}()

	n, err := s.parse(ctx, text)
	if err != nil {
		r.fail(OpParse, err)
		return r
	}
	e := s.lenient
	if strict {
		e = s.strictE
	}

	r.Version = string(n.Version)
	r.Polymers = helm.Polymers(n)
	r.EdgeConnections = connectionStrings(helm.EdgeConnections(n))
	r.BasePairs = connectionStrings(helm.BasePairConnections(n))
	r.Annotations = helm.Annotations(n)
	r.MonomerCount = helm.MonomerCount(n)
	prometheus.RecordMonomerCount(s.metrics, s.source, r.MonomerCount)

	run := func(op string, fn func() error) {
		start := time.Now()
		if err := s.observe(op, start, fn()); err != nil {
			r.fail(op, err)
		}
	}

	run(OpValidate, func() error { return e.Validate(n) })
	r.Valid = !r.Failed(OpValidate)

	run(OpCanonicalHELM, func() (err error) {
		r.CanonicalHELM, err = e.CanonicalHELM(n)
		return err
	})
	run(OpCanonicalHELM2, func() (err error) {
		r.CanonicalHELM2, err = e.CanonicalHELM2(n)
		return err
	})
	run(OpSMILES, func() (err error) {
		r.CanonicalSMILES, err = e.CanonicalSMILES(n)
		return err
	})
	run(OpProperties, func() (err error) {
		r.Properties, err = e.Properties(n)
		return err
	})
	run(OpSequences, func() (err error) {
		r.Sequences, err = e.Sequences(n, monomer.PolymerType(strings.ToUpper(opts.SequenceType)))
		return err
	})
	run(OpTopology, func() (err error) {
		r.Topology, err = helm.BuildTopology(n)
		return err
	})
	return r
}
