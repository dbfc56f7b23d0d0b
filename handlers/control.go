package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/simfleet/fleetview/internal/control"
)

// Controller relays control-panel actions to the simulation backend.
// Calls return as soon as the action is dispatched.
type Controller interface {
	Run()
	Stop()
	Clean()
	Generate(taxis, passengers int) error
}

// ControlHandler handles the fire-and-forget control endpoints
type ControlHandler struct {
	control Controller
}

// NewControlHandler creates a handler dispatching to c
func NewControlHandler(c Controller) *ControlHandler {
	return &ControlHandler{control: c}
}

// ControlResponse is returned once an action has been dispatched. It says
// nothing about whether the backend carried it out.
type ControlResponse struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

func accepted(w http.ResponseWriter, action string) {
	writeJSON(w, http.StatusAccepted, "no-store", ControlResponse{
		Status: "accepted",
		Action: action,
	})
}

// Run handles GET /run
func (h *ControlHandler) Run(w http.ResponseWriter, r *http.Request) {
	h.control.Run()
	accepted(w, control.ActionRun)
}

// Stop handles GET /stop
func (h *ControlHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.control.Stop()
	accepted(w, control.ActionStop)
}

// Clean handles GET /clean
func (h *ControlHandler) Clean(w http.ResponseWriter, r *http.Request) {
	h.control.Clean()
	accepted(w, control.ActionClean)
}

// Generate handles GET /generate/taxis/{taxis}/passengers/{passengers}
func (h *ControlHandler) Generate(w http.ResponseWriter, r *http.Request) {
	taxis, errT := strconv.Atoi(chi.URLParam(r, "taxis"))
	passengers, errP := strconv.Atoi(chi.URLParam(r, "passengers"))
	if errT != nil || errP != nil {
		writeError(w, http.StatusBadRequest, "taxis and passengers must be integers", map[string]interface{}{
			"taxis":      chi.URLParam(r, "taxis"),
			"passengers": chi.URLParam(r, "passengers"),
		})
		return
	}

	if err := h.control.Generate(taxis, passengers); err != nil {
		if errors.Is(err, control.ErrInvalidCount) {
			writeError(w, http.StatusBadRequest, err.Error(), map[string]interface{}{
				"taxis":      taxis,
				"passengers": passengers,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to dispatch generate", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	accepted(w, control.ActionGenerate)
}
