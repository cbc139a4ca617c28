package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

var startTime = time.Now()

// HealthResponse reports process liveness and each provider's circuit
// breaker state (spec §5 "Shared resources").
type HealthResponse struct {
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	System    SystemInfo        `json:"system"`
	Providers map[string]string `json:"providers"`
}

type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAllocBytes uint64 `json:"mem_alloc_bytes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	providers := map[string]string{}
	status := "healthy"
	if s.breakers != nil {
		for _, p := range s.breakers.UnhealthyProviders() {
			status = "degraded"
			providers[p] = "unhealthy"
		}
	}

	resp := HealthResponse{
		Status: status, Uptime: time.Since(startTime).String(), Timestamp: time.Now().UTC(),
		System: SystemInfo{
			GoVersion: runtime.Version(), NumGoroutines: runtime.NumGoroutine(), MemAllocBytes: mem.Alloc,
		},
		Providers: providers,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := s.reports.Get()
	if report == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no run has completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
