package handlers

import (
	"net/http"
	"time"

	"github.com/simfleet/fleetview/internal/realtime"
	"github.com/simfleet/fleetview/models"
)

// PollStatusSource exposes the poller's bookkeeping
type PollStatusSource interface {
	Status() realtime.Status
}

// HealthHandler reports on backend reachability and data freshness
type HealthHandler struct {
	poller PollStatusSource
	store  StateReader
	now    func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(poller PollStatusSource, st StateReader) *HealthHandler {
	return &HealthHandler{poller: poller, store: st, now: time.Now}
}

// HealthResponse is the JSON response for GET /health
type HealthResponse struct {
	Status       string     `json:"status"`
	Backend      string     `json:"backend"`
	LastPolledAt *time.Time `json:"lastPolledAt,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	Error        string     `json:"error,omitempty"`
}

// GetHealth handles GET /health
// 503 until the first poll succeeds; afterwards 200 with the backend's
// current reachability.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	st := h.poller.Status()
	resp := HealthResponse{
		Status:       "ok",
		Backend:      "reachable",
		LastPolledAt: st.LastSuccess,
		Timestamp:    h.now().UTC(),
	}
	if st.ConsecutiveFailures > 0 {
		resp.Backend = "unreachable"
		resp.Error = st.LastError
	}

	if st.LastSuccess == nil {
		resp.Status = "error"
		writeJSON(w, http.StatusServiceUnavailable, "no-store", resp)
		return
	}
	writeJSON(w, http.StatusOK, "no-store", resp)
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// GetDataFreshness handles GET /api/health/data
func (h *HealthHandler) GetDataFreshness(w http.ResponseWriter, r *http.Request) {
	st := h.poller.Status()

	freshness := models.DataFreshness{
		LastPolledAt:        st.LastSuccess,
		AgeSeconds:          -1,
		EntityCount:         h.store.EntityCount(),
		ConsecutiveFailures: st.ConsecutiveFailures,
		LastError:           st.LastError,
	}
	if st.LastSuccess != nil {
		freshness.AgeSeconds = int(h.now().Sub(*st.LastSuccess).Seconds())
	}
	freshness.Status = models.CalculateFreshnessStatus(freshness.AgeSeconds)
	freshness.Score = models.CalculateFreshnessScore(freshness.AgeSeconds)

	writeJSON(w, http.StatusOK, "no-store", freshness)
}
