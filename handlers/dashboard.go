package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/simfleet/fleetview/internal/store"
	"github.com/simfleet/fleetview/models"
)

// StateReader is the read side of the reconciled store
type StateReader interface {
	State() models.DashboardState
	Map() models.MapSettings
	Transports() []models.Marker
	Customers() []models.Marker
	Stations() []models.Marker
	Vehicles() []models.Marker
	Paths() []models.Path
	Stats() models.Stats
	Tree() json.RawMessage
	Marker(id string) (models.Marker, error)
	Version() uint64
	LastUpdated() *time.Time
	EntityCount() int
}

// DashboardHandler serves the reconciled simulation state
type DashboardHandler struct {
	store        StateReader
	cacheControl string
}

// NewDashboardHandler creates a handler reading from st
func NewDashboardHandler(st StateReader, cacheControl string) *DashboardHandler {
	return &DashboardHandler{store: st, cacheControl: cacheControl}
}

// MarkersResponse is the JSON response for the per-kind marker endpoints
type MarkersResponse struct {
	Markers []models.Marker `json:"markers"`
	Count   int             `json:"count"`
	Version uint64          `json:"version"`
}

// PathsResponse is the JSON response for GET /api/paths
type PathsResponse struct {
	Paths   []models.Path `json:"paths"`
	Count   int           `json:"count"`
	Version uint64        `json:"version"`
}

// GetInit handles GET /init
// Returns the map centre and zoom the dashboard starts from
func (h *DashboardHandler) GetInit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "public, max-age=60", h.store.Map())
}

// GetState handles GET /api/state
func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cacheControl, h.store.State())
}

// GetTransports handles GET /api/transports
func (h *DashboardHandler) GetTransports(w http.ResponseWriter, r *http.Request) {
	h.writeMarkers(w, h.store.Transports())
}

// GetCustomers handles GET /api/customers
func (h *DashboardHandler) GetCustomers(w http.ResponseWriter, r *http.Request) {
	h.writeMarkers(w, h.store.Customers())
}

// GetStations handles GET /api/stations
func (h *DashboardHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	h.writeMarkers(w, h.store.Stations())
}

// GetVehicles handles GET /api/vehicles
func (h *DashboardHandler) GetVehicles(w http.ResponseWriter, r *http.Request) {
	h.writeMarkers(w, h.store.Vehicles())
}

func (h *DashboardHandler) writeMarkers(w http.ResponseWriter, markers []models.Marker) {
	if markers == nil {
		markers = []models.Marker{}
	}
	writeJSON(w, http.StatusOK, h.cacheControl, MarkersResponse{
		Markers: markers,
		Count:   len(markers),
		Version: h.store.Version(),
	})
}

// GetPaths handles GET /api/paths
func (h *DashboardHandler) GetPaths(w http.ResponseWriter, r *http.Request) {
	paths := h.store.Paths()
	if paths == nil {
		paths = []models.Path{}
	}
	writeJSON(w, http.StatusOK, h.cacheControl, PathsResponse{
		Paths:   paths,
		Count:   len(paths),
		Version: h.store.Version(),
	})
}

// GetStats handles GET /api/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cacheControl, h.store.Stats())
}

// GetTree handles GET /api/tree
// The tree is passed through exactly as the backend sent it; null when absent.
func (h *DashboardHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	tree := h.store.Tree()
	if len(tree) == 0 {
		tree = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, h.cacheControl, tree)
}

// GetMarker handles GET /api/markers/{id}
func (h *DashboardHandler) GetMarker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	marker, err := h.store.Marker(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Marker not found", map[string]interface{}{
				"id": id,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to retrieve marker", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, h.cacheControl, marker)
}
