package prometheus

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/pkg/errors"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_Idempotent(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t)
	require.NotNil(t, NewAppMetrics(c))
	assert.NotPanics(t, func() { NewAppMetrics(c) })
}

func TestRecordHTTPRequest(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)
	RecordHTTPRequest(m, "POST", "/api/v1/notations/validate", 200, 20*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/api/v1/notations/validate",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_http_request_duration_seconds_count{method="POST",path="/api/v1/notations/validate"} 1`)
}

func TestRecordOperation(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)
	RecordOperation(m, "validate", time.Millisecond, nil)
	RecordOperation(m, "validate", time.Millisecond, errors.New(errors.ErrCodeHELMValidation, "bad"))
	RecordOperation(m, "smiles", time.Millisecond, stderrors.New("plain"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_notation_operations_total{operation="validate",status="ok"} 1`)
	assert.Contains(t, out, `test_unit_notation_operations_total{operation="validate",status="HELM_002"} 1`)
	assert.Contains(t, out, `test_unit_notation_operations_total{operation="smiles",status="COMMON_001"} 1`)
}

func TestRecordRegistryLoad(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)
	RecordRegistryLoad(m, map[string]int{"PEPTIDE": 30, "RNA": 12}, 10*time.Millisecond, nil)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_registry_monomers{polymer_type="PEPTIDE"} 30`)
	assert.Contains(t, out, `test_unit_registry_monomers{polymer_type="RNA"} 12`)
	assert.Contains(t, out, `test_unit_registry_load_duration_seconds_count{status="ok"} 1`)
}

func TestRecordCacheAccess(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)
	RecordCacheAccess(m, "analysis", true)
	RecordCacheAccess(m, "analysis", false)
	RecordCacheAccess(m, "analysis", false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="analysis"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="analysis"} 2`)
}

func TestRecordStoreQueryAndMessage(t *testing.T) {
	t.Parallel()
	m, c := newTestAppMetrics(t)
	RecordStoreQuery(m, "postgres", "list", time.Millisecond, errors.New(errors.ErrCodeDatabaseError, "down"))
	RecordMessage(m, "helmkit.analysis.requested", "ok", time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_errors_total{code="COMMON_012",component="postgres"} 1`)
	assert.Contains(t, out, `test_unit_messages_total{status="ok",topic="helmkit.analysis.requested"} 1`)
}

func TestHelpers_NilMetrics(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() {
		RecordHTTPRequest(nil, "GET", "/", 200, 0)
		RecordGRPCRequest(nil, "/x", "OK", 0)
		RecordOperation(nil, "parse", 0, nil)
		RecordMonomerCount(nil, "api", 3)
		RecordRegistryLoad(nil, nil, 0, nil)
		RecordCacheAccess(nil, "analysis", true)
		RecordStoreQuery(nil, "sqlite", "get", 0, nil)
		RecordMessage(nil, "t", "ok", 0)
		RecordError(nil, "x", stderrors.New("y"))
	})
}
