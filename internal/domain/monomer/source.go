package monomer

import (
	"context"
	_ "embed"
	"os"

	"github.com/turtacn/helmkit/pkg/errors"
)

// Source supplies monomer definitions to the Registry.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Load returns every monomer the source holds.
	Load(ctx context.Context) ([]*Monomer, error)
}

// Repository is the persistence contract of a monomer store.
type Repository interface {
	// List returns all stored monomers, optionally restricted to one polymer
	// type when t is non-empty.
	List(ctx context.Context, t PolymerType) ([]*Monomer, error)

	// Get returns the monomer stored under key.
	// Returns ErrCodeMonomerNotFound if it does not exist.
	Get(ctx context.Context, key Key) (*Monomer, error)

	// Save inserts or replaces monomers in a single transaction.
	Save(ctx context.Context, monomers []*Monomer) error

	// Delete removes the monomer stored under key.
	// Returns ErrCodeMonomerNotFound if it does not exist.
	Delete(ctx context.Context, key Key) error

	// Count returns the number of stored monomers.
	Count(ctx context.Context) (int64, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Built-in library
// ─────────────────────────────────────────────────────────────────────────────

//go:embed library.yaml
var builtinLibrary []byte

// BuiltinLibrary returns the raw embedded library document.
func BuiltinLibrary() []byte { return builtinLibrary }

type builtinSource struct{}

// NewBuiltinSource returns the source backed by the embedded library.
func NewBuiltinSource() Source { return builtinSource{} }

func (builtinSource) Name() string { return "builtin" }

func (builtinSource) Load(_ context.Context) ([]*Monomer, error) {
	return DecodeLibraryBytes(builtinLibrary)
}

// ─────────────────────────────────────────────────────────────────────────────
// File
// ─────────────────────────────────────────────────────────────────────────────

// FileSource reads a YAML library from the local filesystem.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) Load(_ context.Context) ([]*Monomer, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMonomerSourceFailed, "failed to open monomer library").WithDetail(s.Path)
	}
	defer f.Close()
	return DecodeLibrary(f)
}

// ─────────────────────────────────────────────────────────────────────────────
// Repository adapter
// ─────────────────────────────────────────────────────────────────────────────

type repositorySource struct {
	name string
	repo Repository
}

// NewRepositorySource exposes a monomer store as a registry Source.
func NewRepositorySource(name string, repo Repository) Source {
	return &repositorySource{name: name, repo: repo}
}

func (s *repositorySource) Name() string { return s.name }

func (s *repositorySource) Load(ctx context.Context) ([]*Monomer, error) {
	return s.repo.List(ctx, "")
}

// ─────────────────────────────────────────────────────────────────────────────
// Static
// ─────────────────────────────────────────────────────────────────────────────

type staticSource struct {
	name     string
	monomers []*Monomer
}

// NewStaticSource serves a fixed monomer set. Useful for tests and imports.
func NewStaticSource(name string, monomers ...*Monomer) Source {
	return &staticSource{name: name, monomers: monomers}
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Load(_ context.Context) ([]*Monomer, error) {
	return s.monomers, nil
}
