package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  http:
    addr: ":8181"
  grpc:
    enabled: true
    addr: ":9191"
log:
  level: debug
  format: console
monomers:
  sources: [builtin, sqlite]
helm:
  strict_sequences: true
  max_permutations: 120
cache:
  enabled: true
  ttl: 10m
  redis:
    addr: "redis:6379"
database:
  sqlite:
    path: "/tmp/monomers.db"
messaging:
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    concurrency: 8
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helmkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8181", cfg.Server.HTTP.Addr)
	assert.True(t, cfg.Server.GRPC.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"builtin", "sqlite"}, cfg.Monomers.Sources)
	assert.True(t, cfg.HELM.StrictSequences)
	assert.Equal(t, 120, cfg.HELM.MaxPermutations)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "/tmp/monomers.db", cfg.Database.SQLite.Path)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Messaging.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Messaging.Kafka.Concurrency)
	// defaults still fill the rest
	assert.Equal(t, DefaultKafkaDLQTopic, cfg.Messaging.Kafka.DLQTopic)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HELMKIT_SERVER_HTTP_ADDR", ":7070")
	t.Setenv("HELMKIT_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "monomers:\n  sources: [nowhere]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HELMKIT_MONOMERS_SOURCES", "builtin,sqlite")
	t.Setenv("HELMKIT_DATABASE_SQLITE_PATH", "/var/lib/helmkit/m.db")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"builtin", "sqlite"}, cfg.Monomers.Sources)
	assert.Equal(t, "/var/lib/helmkit/m.db", cfg.Database.SQLite.Path)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTP.Addr)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", "c", ""}))
	assert.Nil(t, splitList(nil))
}
