package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthChecker probes a backing dependency.
type HealthChecker func() error

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	checkStorage HealthChecker
	queueStats   func() (length, capacity int)
	log          *zap.Logger
}

func NewHealthHandlers(checkStorage HealthChecker, queueStats func() (int, int), log *zap.Logger) *HealthHandlers {
	return &HealthHandlers{checkStorage: checkStorage, queueStats: queueStats, log: log}
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Queue     QueueInfo `json:"queue"`
}

// QueueInfo reports the recorder queue occupancy.
type QueueInfo struct {
	Length   int `json:"length"`
	Capacity int `json:"capacity"`
}

// Health handles GET /health. It succeeds whenever the process can
// respond; storage problems only degrade the reported status.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.checkStorage(); err != nil {
		h.log.Warn("storage health check failed", zap.Error(err))
		status = "degraded"
	}

	length, capacity := h.queueStats()
	writeJSON(w, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Queue:     QueueInfo{Length: length, Capacity: capacity},
	}, http.StatusOK)
}

// Ready handles GET /ready. It fails when storage is unreachable so
// load balancers stop routing traffic here.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.checkStorage(); err != nil {
		h.log.Error("readiness check failed", zap.Error(err))
		writeError(w, "Storage unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}
