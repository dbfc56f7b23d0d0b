package models

import (
	"encoding/json"
	"time"

	"github.com/simfleet/fleetview/internal/metrics"
	"github.com/simfleet/fleetview/internal/status"
)

// LatLng is a [lat, lon] pair, the order Leaflet expects
type LatLng [2]float64

// Marker is one entity on the map, fully decorated for display.
// Transports, vehicles, customers and stations share this shape; fields
// that do not apply to a kind are left empty.
type Marker struct {
	ID         string            `json:"id"`
	Kind       status.EntityKind `json:"kind"`
	LatLng     LatLng            `json:"latlng"`
	Dest       *LatLng           `json:"dest,omitempty"`
	Status     status.Code       `json:"status"`
	StatusCode int               `json:"statusCode"`
	Indicator  *status.Indicator `json:"indicator,omitempty"`
	Popup      string            `json:"popup"`
	IconURL    string            `json:"iconUrl"`
	Visible    bool              `json:"visible"`

	// Units
	Speed       *float64 `json:"speed,omitempty"`
	Customer    *string  `json:"customer,omitempty"`
	Assignments *float64 `json:"assignments,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
	Autonomy    *float64 `json:"autonomy,omitempty"`
	MaxAutonomy *float64 `json:"maxAutonomy,omitempty"`
	Fleet       string   `json:"fleet,omitempty"`
	Service     string   `json:"service,omitempty"`

	// Requesters
	Transport *string  `json:"transport,omitempty"`
	Waiting   *float64 `json:"waiting,omitempty"`

	// Stations
	Power  *float64 `json:"power,omitempty"`
	Places *float64 `json:"places,omitempty"`
}

// Path is a polyline overlay for a unit heading somewhere
type Path struct {
	UnitID  string            `json:"unitId"`
	Kind    status.EntityKind `json:"kind"`
	LatLngs []LatLng          `json:"latlngs"`
	Color   string            `json:"color,omitempty"`
}

// Stats are the aggregate simulation stats shown in the control panel
type Stats struct {
	WaitingTime float64         `json:"waitingTime"`
	TotalTime   float64         `json:"totalTime"`
	IsRunning   bool            `json:"isRunning"`
	Finished    bool            `json:"finished"`
	Running     bool            `json:"running"`
	Waiting     metrics.Summary `json:"waitingSummary"`
}

// MapSettings centre the map on first load
type MapSettings struct {
	Coords LatLng `json:"coords"`
	Zoom   int    `json:"zoom"`
}

// DashboardState is everything a dashboard needs to draw one frame
type DashboardState struct {
	Version    uint64          `json:"version"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
	Map        MapSettings     `json:"map"`
	Transports []Marker        `json:"transports"`
	Customers  []Marker        `json:"customers"`
	Stations   []Marker        `json:"stations"`
	Vehicles   []Marker        `json:"vehicles"`
	Paths      []Path          `json:"paths"`
	Stats      Stats           `json:"stats"`
	Tree       json.RawMessage `json:"tree,omitempty"`
	Active     bool            `json:"active"`
}
