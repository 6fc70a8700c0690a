// Package sqlite provides the embedded single-file monomer store.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/pkg/errors"
)

//go:embed migrations/*.up.sql
var migrationFS embed.FS

// Store is a SQLite database holding the monomers table.
type Store struct {
	db     *sql.DB
	path   string
	logger logging.Logger
}

// Open opens (creating when needed) the database at path and applies
// pending migrations.
func Open(path string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if path == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create sqlite directory")
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open sqlite database")
	}
	db.SetMaxOpenConns(1) // serialises writers

	s := &Store{db: db, path: path, logger: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("opened sqlite monomer store", logging.String("path", path))
	return s, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Path() string { return s.path }

// Monomers returns the monomer repository backed by this store.
func (s *Store) Monomers(metrics *prometheus.AppMetrics) *repositories.MonomerRepository {
	return repositories.NewMonomerRepo(s.db, s.logger,
		repositories.WithStoreName("sqlite"),
		repositories.WithRepoMetrics(metrics),
	)
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "sqlite health check failed")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read schema version")
	}
	return v, nil
}

// migrate applies every NNN_name.up.sql above the recorded version, each in
// its own transaction.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create schema_migrations")
	}
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to read embedded migrations")
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(migrationFS, "migrations/"+name)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to read migration "+name)
		}
		if err := s.apply(ctx, version, string(content)); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to apply migration "+name)
		}
		s.logger.Debug("applied sqlite migration", logging.String("file", name))
	}
	return nil
}

func (s *Store) apply(ctx context.Context, version int, stmt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
