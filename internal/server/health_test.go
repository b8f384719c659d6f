package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthChecker_Phases(t *testing.T) {
	h := NewHealthChecker()
	assert.Equal(t, PhaseStarting, h.Phase())
	assert.False(t, h.IsReady())

	h.SetPhase(PhaseScanning)
	assert.True(t, h.IsReady())

	h.SetPhase(PhaseFinished)
	assert.True(t, h.IsReady())

	h.SetPhase(PhaseShuttingDown)
	assert.False(t, h.IsReady())
}

func TestHealthChecker_Readiness(t *testing.T) {
	h := NewHealthChecker()

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phase":"starting"`)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	h.SetPhase(PhaseScanning)
	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
