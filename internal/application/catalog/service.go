// Package catalog is the application service over the monomer registry and
// its writable stores.
package catalog

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Registry is the read side of the monomer registry.
type Registry interface {
	Resolve(t monomer.PolymerType, symbol string) (*monomer.Monomer, error)
	List(t monomer.PolymerType) ([]*monomer.Monomer, error)
}

// LibraryPublisher uploads an encoded library document.
type LibraryPublisher interface {
	PutLibrary(ctx context.Context, data []byte) (string, error)
}

// ImportResult summarises an import.
type ImportResult struct {
	Store    string         `json:"store"`
	Imported int            `json:"imported"`
	ByType   map[string]int `json:"by_type"`
}

// Service defines the monomer catalog operations.
type Service interface {
	List(ctx context.Context, polymerType string) ([]*monomer.Monomer, error)
	Show(ctx context.Context, polymerType, symbol string) (*monomer.Monomer, error)
	// Import decodes a YAML library and saves it to the writable store.
	Import(ctx context.Context, r io.Reader) (*ImportResult, error)
	// Export writes the effective registry contents as a YAML library.
	Export(ctx context.Context, w io.Writer, polymerType string) (int, error)
	// Publish uploads the effective registry contents to object storage.
	Publish(ctx context.Context) (string, error)
}

type Option func(*serviceImpl)

// WithStore sets the store Import writes to.
func WithStore(name string, repo monomer.Repository) Option {
	return func(s *serviceImpl) {
		s.storeName = name
		s.store = repo
	}
}

func WithPublisher(p LibraryPublisher) Option {
	return func(s *serviceImpl) { s.publisher = p }
}

type serviceImpl struct {
	registry  Registry
	store     monomer.Repository
	storeName string
	publisher LibraryPublisher
	logger    logging.Logger
}

func NewService(registry Registry, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{registry: registry, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// parseType accepts an empty string (all types) or a polymer type name in
// any case.
func parseType(s string) (monomer.PolymerType, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	t, ok := monomer.ParsePolymerType(strings.ToUpper(strings.TrimSpace(s)))
	if !ok || t == monomer.Blob {
		return "", errors.Newf(errors.ErrCodeBadRequest, "unknown polymer type %q", s)
	}
	return t, nil
}

func (s *serviceImpl) List(_ context.Context, polymerType string) ([]*monomer.Monomer, error) {
	t, err := parseType(polymerType)
	if err != nil {
		return nil, err
	}
	return s.registry.List(t)
}

func (s *serviceImpl) Show(_ context.Context, polymerType, symbol string) (*monomer.Monomer, error) {
	t, err := parseType(polymerType)
	if err != nil {
		return nil, err
	}
	if t == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "polymer type is required")
	}
	symbol = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(symbol), "["), "]")
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "monomer symbol is required")
	}
	return s.registry.Resolve(t, symbol)
}

func (s *serviceImpl) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if s.store == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "no writable monomer store is configured")
	}
	ms, err := monomer.DecodeLibrary(r)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, errors.New(errors.ErrCodeMonomerLibraryInvalid, "monomer library is empty")
	}
	if err := s.store.Save(ctx, ms); err != nil {
		return nil, err
	}

	res := &ImportResult{Store: s.storeName, Imported: len(ms), ByType: make(map[string]int)}
	for _, m := range ms {
		res.ByType[string(m.PolymerType)]++
	}
	s.logger.Info("monomers imported", logging.String("store", s.storeName), logging.Int("count", len(ms)))
	return res, nil
}

func (s *serviceImpl) Export(ctx context.Context, w io.Writer, polymerType string) (int, error) {
	ms, err := s.List(ctx, polymerType)
	if err != nil {
		return 0, err
	}
	if err := monomer.EncodeLibrary(w, ms); err != nil {
		return 0, err
	}
	return len(ms), nil
}

func (s *serviceImpl) Publish(ctx context.Context) (string, error) {
	if s.publisher == nil {
		return "", errors.New(errors.ErrCodeBadRequest, "no object storage is configured")
	}
	var buf bytes.Buffer
	n, err := s.Export(ctx, &buf, "")
	if err != nil {
		return "", err
	}
	key, err := s.publisher.PutLibrary(ctx, buf.Bytes())
	if err != nil {
		return "", err
	}
	s.logger.Info("monomer library published", logging.String("object", key), logging.Int("count", n))
	return key, nil
}
