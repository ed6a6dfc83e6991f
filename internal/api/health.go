package api

import (
	"net/http"
	"runtime"
	"time"
)

const serviceVersion = "1.0.0"

var startedAt = time.Now()

// healthStatus is the GET /health payload. The runtime numbers make a
// quick curl useful when memory questions come up.
type healthStatus struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Version   string       `json:"version,omitempty"`
	Uptime    string       `json:"uptime,omitempty"`
	Memory    *memoryUsage `json:"memory,omitempty"`
}

type memoryUsage struct {
	AllocMB      uint64 `json:"alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	const mb = 1 << 20
	s.writeJSON(w, http.StatusOK, healthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   serviceVersion,
		Uptime:    time.Since(startedAt).Round(time.Second).String(),
		Memory: &memoryUsage{
			AllocMB:      m.Alloc / mb,
			TotalAllocMB: m.TotalAlloc / mb,
			SysMB:        m.Sys / mb,
			NumGC:        m.NumGC,
		},
	})
}
