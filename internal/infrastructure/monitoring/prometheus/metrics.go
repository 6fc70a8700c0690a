package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/helmkit/pkg/errors"
)

// AppMetrics holds every metric helmkit exports.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// gRPC
	GRPCRequestsTotal   CounterVec
	GRPCRequestDuration HistogramVec

	// Notation pipeline
	OperationsTotal   CounterVec
	OperationDuration HistogramVec
	MonomerCount      HistogramVec

	// Monomer registry
	RegistryMonomers     GaugeVec
	RegistryLoadDuration HistogramVec

	// Infrastructure
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	StoreQueryDuration     HistogramVec
	MessagesTotal          CounterVec
	MessageProcessDuration HistogramVec
	ActiveWorkers          GaugeVec

	ErrorsTotal CounterVec
}

var (
	DefaultHTTPDurationBuckets      = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultOperationDurationBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1}
	DefaultStoreDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultMonomerCountBuckets      = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.GRPCRequestsTotal = collector.RegisterCounter("grpc_requests_total", "Total gRPC requests", "method", "code")
	m.GRPCRequestDuration = collector.RegisterHistogram("grpc_request_duration_seconds", "gRPC request duration", DefaultHTTPDurationBuckets, "method")

	m.OperationsTotal = collector.RegisterCounter("notation_operations_total", "Notation operations by outcome", "operation", "status")
	m.OperationDuration = collector.RegisterHistogram("notation_operation_duration_seconds", "Notation operation duration", DefaultOperationDurationBuckets, "operation")
	m.MonomerCount = collector.RegisterHistogram("notation_monomer_count", "Monomers per analysed notation", DefaultMonomerCountBuckets, "source")

	m.RegistryMonomers = collector.RegisterGauge("registry_monomers", "Monomers loaded per polymer type", "polymer_type")
	m.RegistryLoadDuration = collector.RegisterHistogram("registry_load_duration_seconds", "Monomer registry load duration", DefaultStoreDurationBuckets, "status")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.StoreQueryDuration = collector.RegisterHistogram("store_query_duration_seconds", "Monomer store query duration", DefaultStoreDurationBuckets, "store", "operation")
	m.MessagesTotal = collector.RegisterCounter("messages_total", "Worker messages by outcome", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("message_process_duration_seconds", "Worker message processing duration", DefaultHTTPDurationBuckets, "topic")
	m.ActiveWorkers = collector.RegisterGauge("active_workers", "Busy worker goroutines", "pool")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers. All of them accept a nil *AppMetrics so callers may run unmetered.
// ─────────────────────────────────────────────────────────────────────────────

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func RecordGRPCRequest(m *AppMetrics, method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordOperation counts one notation operation. The status label is "ok"
// or the error code of err.
func RecordOperation(m *AppMetrics, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = string(errors.GetCode(err))
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func RecordMonomerCount(m *AppMetrics, source string, count int) {
	if m == nil {
		return
	}
	m.MonomerCount.WithLabelValues(source).Observe(float64(count))
}

func RecordRegistryLoad(m *AppMetrics, perType map[string]int, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RegistryLoadDuration.WithLabelValues(status).Observe(d.Seconds())
	for t, n := range perType {
		m.RegistryMonomers.WithLabelValues(t).Set(float64(n))
	}
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordStoreQuery(m *AppMetrics, store, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StoreQueryDuration.WithLabelValues(store, operation).Observe(d.Seconds())
	if err != nil {
		RecordError(m, store, err)
	}
}

func RecordMessage(m *AppMetrics, topic, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(topic, status).Inc()
	m.MessageProcessDuration.WithLabelValues(topic).Observe(d.Seconds())
}

func RecordError(m *AppMetrics, component string, err error) {
	if m == nil || err == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, string(errors.GetCode(err))).Inc()
}
