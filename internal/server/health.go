package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Scan phases reported by the probes.
const (
	PhaseStarting     = "starting"
	PhaseScanning     = "scanning"
	PhaseFinished     = "finished"
	PhaseShuttingDown = "shutting down"
)

const (
	healthStatusOK       = "ok"
	healthStatusNotReady = "not ready"
)

// HealthChecker tracks the scan phase for the probe endpoints.
type HealthChecker struct {
	phase     atomic.Value
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker in PhaseStarting.
func NewHealthChecker() *HealthChecker {
	h := &HealthChecker{startTime: time.Now()}
	h.phase.Store(PhaseStarting)
	return h
}

// SetPhase records the current scan phase.
func (h *HealthChecker) SetPhase(phase string) {
	h.phase.Store(phase)
}

// Phase returns the current scan phase.
func (h *HealthChecker) Phase() string {
	return h.phase.Load().(string)
}

// IsReady reports whether the scan is running or done.
func (h *HealthChecker) IsReady() bool {
	switch h.Phase() {
	case PhaseScanning, PhaseFinished:
		return true
	}
	return false
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Phase  string `json:"phase,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status string `json:"status"`
	Phase  string `json:"phase"`
	Uptime string `json:"uptime"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: healthStatusOK, Phase: h.Phase()}
		code := http.StatusOK
		if !h.IsReady() {
			resp.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed endpoint.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := DetailedHealthResponse{
			Status: healthStatusOK,
			Phase:  h.Phase(),
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}
		code := http.StatusOK
		if !h.IsReady() {
			resp.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
