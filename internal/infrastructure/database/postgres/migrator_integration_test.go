//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres"
	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/helmkit/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test helpers
// ─────────────────────────────────────────────────────────────────────────────

// startPostgres launches a PostgreSQL 16 container and returns a connection
// to it. Requires Docker.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "helmkit",
				"POSTGRES_PASSWORD": "helmkit",
				"POSTGRES_DB":       "helmkit_test",
			},
			// The server restarts once after init; the second line marks the real start.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	conn, err := postgres.NewConnection(postgres.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "helmkit_test",
		Username: "helmkit",
		Password: "helmkit",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func ornithine(t *testing.T) *monomer.Monomer {
	t.Helper()
	m, err := monomer.New(monomer.Spec{
		Symbol:        "Orn",
		PolymerType:   monomer.Peptide,
		Name:          "Ornithine",
		SMILES:        "[*:1]N[C@@H](CCCN)C([*:2])=O",
		NaturalAnalog: "K",
		Attachments:   []monomer.Attachment{{Label: "R1", Cap: "H"}, {Label: "R2", Cap: "OH"}},
	})
	require.NoError(t, err)
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Migrations
// ─────────────────────────────────────────────────────────────────────────────

func TestRunMigrations_AppliesAll(t *testing.T) {
	conn := startPostgres(t)

	require.NoError(t, conn.RunMigrations())
	// Second run is a no-op.
	require.NoError(t, conn.RunMigrations())

	version, dirty, err := postgres.MigrationStatus(conn.DB())
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 2, version)
}

func TestRollbackMigration_OneStep(t *testing.T) {
	conn := startPostgres(t)
	require.NoError(t, conn.RunMigrations())

	require.NoError(t, postgres.RollbackMigration(conn.DB(), 1))
	version, _, err := postgres.MigrationStatus(conn.DB())
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	require.NoError(t, conn.RunMigrations())
}

// ─────────────────────────────────────────────────────────────────────────────
// Monomer repository
// ─────────────────────────────────────────────────────────────────────────────

func TestMonomerRepo_RoundTrip(t *testing.T) {
	conn := startPostgres(t)
	require.NoError(t, conn.RunMigrations())
	ctx := context.Background()
	repo := repositories.NewMonomerRepo(conn.DB(), logging.NewNopLogger())

	orn := ornithine(t)
	require.NoError(t, repo.Save(ctx, []*monomer.Monomer{orn}))
	// Upsert keeps one row per key.
	require.NoError(t, repo.Save(ctx, []*monomer.Monomer{orn}))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.Get(ctx, orn.Key())
	require.NoError(t, err)
	assert.Equal(t, orn.Name, got.Name)
	assert.Equal(t, orn.NaturalAnalog, got.NaturalAnalog)
	assert.Equal(t, orn.Attachments, got.Attachments)

	list, err := repo.List(ctx, monomer.RNA)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.Delete(ctx, orn.Key()))
	err = repo.Delete(ctx, orn.Key())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMonomerNotFound))
}
