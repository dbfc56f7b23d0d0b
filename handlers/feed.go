package handlers

import (
	"net/http"
	"time"

	"github.com/simfleet/fleetview/internal/feed"
)

// FeedHandler exports the live fleet as GTFS-realtime
type FeedHandler struct {
	store StateReader
}

// NewFeedHandler creates a feed handler reading from st
func NewFeedHandler(st StateReader) *FeedHandler {
	return &FeedHandler{store: st}
}

// GetVehiclePositions handles GET /api/feed/vehicle_positions.pb
// ?format=json returns the protojson view instead of the wire format.
func (h *FeedHandler) GetVehiclePositions(w http.ResponseWriter, r *http.Request) {
	msg := feed.VehiclePositions(h.store.State(), time.Now())

	if r.URL.Query().Get("format") == "json" {
		data, err := feed.MarshalJSON(msg)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode feed", map[string]interface{}{
				"internal": err.Error(),
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	data, err := feed.Marshal(msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode feed", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
