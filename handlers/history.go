package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/simfleet/fleetview/models"
)

// ErrHistoryDisabled is reported when no history store is configured
var ErrHistoryDisabled = errors.New("history disabled")

// maxHistoryLimit bounds the limit query parameter
const maxHistoryLimit = 5000

// HistoryRepository defines the read side of recorded snapshot history
type HistoryRepository interface {
	RecentStats(ctx context.Context, limit int) ([]models.HistoryPoint, error)
	UnitTrail(ctx context.Context, entityID string, limit int) ([]models.UnitTrailPoint, error)
}

// HistoryHandler serves recorded history. repo may be nil.
type HistoryHandler struct {
	repo HistoryRepository
}

// NewHistoryHandler creates a handler reading from repo
func NewHistoryHandler(repo HistoryRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// HistoryStatsResponse is the JSON response for GET /api/history/stats
type HistoryStatsResponse struct {
	Points []models.HistoryPoint `json:"points"`
	Count  int                   `json:"count"`
}

// UnitTrailResponse is the JSON response for GET /api/history/units/{id}
type UnitTrailResponse struct {
	EntityID string                  `json:"entityId"`
	Trail    []models.UnitTrailPoint `json:"trail"`
	Count    int                     `json:"count"`
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit, nil
}

func (h *HistoryHandler) ready(w http.ResponseWriter) bool {
	if h.repo == nil {
		writeError(w, http.StatusNotFound, ErrHistoryDisabled.Error(), nil)
		return false
	}
	return true
}

// GetStats handles GET /api/history/stats?limit=N
func (h *HistoryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	points, err := h.repo.RecentStats(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve history", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, "public, max-age=5", HistoryStatsResponse{
		Points: points,
		Count:  len(points),
	})
}

// GetUnitTrail handles GET /api/history/units/{id}?limit=N
func (h *HistoryHandler) GetUnitTrail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id := chi.URLParam(r, "id")
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trail, err := h.repo.UnitTrail(ctx, id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve unit trail", map[string]interface{}{
			"internal": err.Error(),
			"id":       id,
		})
		return
	}

	writeJSON(w, http.StatusOK, "public, max-age=5", UnitTrailResponse{
		EntityID: id,
		Trail:    trail,
		Count:    len(trail),
	})
}
