package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/turtacn/helmkit/pkg/types/common"
)

// HealthChecker is a named dependency probe.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves the liveness, readiness and detailed health endpoints.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
	timeout  time.Duration
}

func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
}

// Liveness handles GET /healthz. It never checks dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, common.HealthResponse{
		Status:  common.HealthUp,
		Version: h.version,
		Uptime:  common.Duration(time.Since(h.startAt).Truncate(time.Second)),
	})
}

// Readiness handles GET /readyz: 503 when any dependency fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	components, healthy := h.checkAll(r.Context())
	resp := common.HealthResponse{Status: common.HealthUp, Components: components}
	code := http.StatusOK
	if !healthy {
		resp.Status = common.HealthDown
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// Detailed handles GET /health with version and uptime. A failed dependency
// reports the service as degraded.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	components, healthy := h.checkAll(r.Context())
	resp := common.HealthResponse{
		Status:     common.HealthUp,
		Version:    h.version,
		Uptime:     common.Duration(time.Since(h.startAt).Truncate(time.Second)),
		Components: components,
	}
	code := http.StatusOK
	if !healthy {
		resp.Status = common.HealthDegraded
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// checkAll runs every checker concurrently under the handler timeout.
func (h *HealthHandler) checkAll(ctx context.Context) (map[string]common.ComponentHealth, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
	)
	results := make(map[string]common.ComponentHealth, len(h.checkers))
	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := c.Check(ctx)
			ch := common.ComponentHealth{
				Status:  common.HealthUp,
				Latency: common.Duration(time.Since(start).Truncate(time.Microsecond)),
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				ch.Status = common.HealthDown
				ch.Error = err.Error()
				healthy = false
			}
			results[c.Name()] = ch
		}(checker)
	}
	wg.Wait()
	return results, healthy
}
