package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/pkg/types/common"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                { return s.name }
func (s stubChecker) Check(context.Context) error { return s.err }

func serve(fn http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestHealthHandler_Liveness(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler("1.2.3", stubChecker{name: "redis", err: stderrors.New("down")})

	w := serve(h.Liveness)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[common.HealthResponse](t, w)
	assert.Equal(t, common.HealthUp, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Empty(t, resp.Components)
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		checkers []HealthChecker
		code     int
		status   common.HealthStatus
	}{
		{"no checkers", nil, http.StatusOK, common.HealthUp},
		{"all healthy", []HealthChecker{stubChecker{name: "monomer_registry"}, stubChecker{name: "redis"}}, http.StatusOK, common.HealthUp},
		{"one failing", []HealthChecker{stubChecker{name: "monomer_registry"}, stubChecker{name: "redis", err: stderrors.New("connection refused")}}, http.StatusServiceUnavailable, common.HealthDown},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := serve(NewHealthHandler("dev", tt.checkers...).Readiness)
			assert.Equal(t, tt.code, w.Code)
			resp := decodeBody[common.HealthResponse](t, w)
			assert.Equal(t, tt.status, resp.Status)
			assert.Len(t, resp.Components, len(tt.checkers))
		})
	}
}

func TestHealthHandler_Detailed(t *testing.T) {
	t.Parallel()
	h := NewHealthHandler("dev", stubChecker{name: "monomer_registry"}, stubChecker{name: "sqlite", err: stderrors.New("locked")})

	w := serve(h.Detailed)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeBody[common.HealthResponse](t, w)
	assert.Equal(t, common.HealthDegraded, resp.Status)
	assert.Equal(t, "dev", resp.Version)
	assert.Equal(t, common.HealthUp, resp.Components["monomer_registry"].Status)
	assert.Equal(t, common.HealthDown, resp.Components["sqlite"].Status)
	assert.Equal(t, "locked", resp.Components["sqlite"].Error)
}
