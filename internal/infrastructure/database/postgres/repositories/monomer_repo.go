package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// MonomerRepository
// ─────────────────────────────────────────────────────────────────────────────

// The statements below are portable between PostgreSQL and SQLite: both
// accept $n placeholders, ON CONFLICT upserts and CURRENT_TIMESTAMP.
const (
	selectMonomerColumns = `SELECT symbol, polymer_type, kind, name, smiles, natural_analog, attachments FROM monomers`

	upsertMonomerSQL = `
		INSERT INTO monomers (symbol, polymer_type, kind, name, smiles, natural_analog, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (polymer_type, symbol) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			smiles = EXCLUDED.smiles,
			natural_analog = EXCLUDED.natural_analog,
			attachments = EXCLUDED.attachments,
			updated_at = CURRENT_TIMESTAMP`
)

// MonomerRepository stores monomer definitions in a SQL database. It
// implements monomer.Repository.
type MonomerRepository struct {
	db      *sql.DB
	store   string
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

var _ monomer.Repository = (*MonomerRepository)(nil)

// MonomerRepoOption configures a MonomerRepository.
type MonomerRepoOption func(*MonomerRepository)

// WithStoreName sets the store label used in logs and metrics.
func WithStoreName(name string) MonomerRepoOption {
	return func(r *MonomerRepository) { r.store = name }
}

func WithRepoMetrics(m *prometheus.AppMetrics) MonomerRepoOption {
	return func(r *MonomerRepository) { r.metrics = m }
}

// NewMonomerRepo returns a repository over db. The schema must already exist.
func NewMonomerRepo(db *sql.DB, log logging.Logger, opts ...MonomerRepoOption) *MonomerRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	r := &MonomerRepository{db: db, store: "postgres", logger: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store label.
func (r *MonomerRepository) Store() string { return r.store }

func (r *MonomerRepository) observe(op string, start time.Time, err error) {
	prometheus.RecordStoreQuery(r.metrics, r.store, op, time.Since(start), err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

func (r *MonomerRepository) List(ctx context.Context, t monomer.PolymerType) (_ []*monomer.Monomer, err error) {
	defer func(start time.Time) { r.observe("list", start, err) }(time.Now())

	var rows *sql.Rows
	if t == "" {
		rows, err = r.db.QueryContext(ctx, selectMonomerColumns+` ORDER BY polymer_type, symbol`)
	} else {
		rows, err = r.db.QueryContext(ctx, selectMonomerColumns+` WHERE polymer_type = $1 ORDER BY symbol`, string(t))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list monomers")
	}
	defer rows.Close()

	var out []*monomer.Monomer
	for rows.Next() {
		m, err := scanMonomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate monomers")
	}
	r.logger.Debug("monomers listed", logging.String("store", r.store), logging.Int("count", len(out)))
	return out, nil
}

func (r *MonomerRepository) Get(ctx context.Context, key monomer.Key) (_ *monomer.Monomer, err error) {
	defer func(start time.Time) { r.observe("get", start, err) }(time.Now())

	row := r.db.QueryRowContext(ctx, selectMonomerColumns+` WHERE polymer_type = $1 AND symbol = $2`, string(key.Type), key.Symbol)
	m, err := scanMonomer(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeMonomerNotFound, "monomer %s not found", key)
		}
		return nil, err
	}
	return m, nil
}

// Save upserts monomers in one transaction.
func (r *MonomerRepository) Save(ctx context.Context, monomers []*monomer.Monomer) (err error) {
	if len(monomers) == 0 {
		return nil
	}
	defer func(start time.Time) { r.observe("save", start, err) }(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertMonomerSQL)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to prepare monomer upsert")
	}
	defer stmt.Close()

	for _, m := range monomers {
		attachments, mErr := json.Marshal(m.Attachments)
		if mErr != nil {
			return errors.Wrap(mErr, errors.ErrCodeSerialization, "failed to encode attachments of "+m.Key().String())
		}
		if _, err = stmt.ExecContext(ctx, m.Symbol, string(m.PolymerType), string(m.Kind), m.Name, m.SMILES, m.NaturalAnalog, string(attachments)); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save monomer "+m.Key().String())
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit monomers")
	}
	r.logger.Info("monomers saved", logging.String("store", r.store), logging.Int("count", len(monomers)))
	return nil
}

func (r *MonomerRepository) Delete(ctx context.Context, key monomer.Key) (err error) {
	defer func(start time.Time) { r.observe("delete", start, err) }(time.Now())

	res, err := r.db.ExecContext(ctx, `DELETE FROM monomers WHERE polymer_type = $1 AND symbol = $2`, string(key.Type), key.Symbol)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete monomer")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete monomer")
	}
	if n == 0 {
		return errors.Newf(errors.ErrCodeMonomerNotFound, "monomer %s not found", key)
	}
	return nil
}

func (r *MonomerRepository) Count(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { r.observe("count", start, err) }(time.Now())

	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM monomers`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count monomers")
	}
	return n, nil
}

// scanMonomer rebuilds a monomer through monomer.New so that stored rows are
// validated like library entries.
// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMonomer(s scanner) (*monomer.Monomer, error) {
	var (
		symbol, polymerType, kind, name, smiles, analog string
		attachments                                     []byte
	)
	if err := s.Scan(&symbol, &polymerType, &kind, &name, &smiles, &analog, &attachments); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan monomer")
	}
	var atts []monomer.Attachment
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &atts); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMonomerLibraryInvalid, "stored attachments of "+polymerType+"/"+symbol+" are malformed")
		}
	}
	return monomer.New(monomer.Spec{
		Symbol:        symbol,
		PolymerType:   monomer.PolymerType(polymerType),
		Kind:          monomer.Kind(kind),
		Name:          name,
		SMILES:        smiles,
		NaturalAnalog: analog,
		Attachments:   atts,
	})
}
