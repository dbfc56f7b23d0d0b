package models

import "time"

// HistoryPoint is one recorded snapshot of the aggregate stats
type HistoryPoint struct {
	SnapshotID     string    `json:"snapshotId"`
	PolledAtUTC    time.Time `json:"polledAtUtc"`
	WaitingTime    float64   `json:"waitingTime"`
	TotalTime      float64   `json:"totalTime"`
	Running        bool      `json:"running"`
	TransportCount int       `json:"transportCount"`
	CustomerCount  int       `json:"customerCount"`
	StationCount   int       `json:"stationCount"`
	VehicleCount   int       `json:"vehicleCount"`
}

// UnitTrailPoint is one recorded position of a unit or requester
type UnitTrailPoint struct {
	SnapshotID  string    `json:"snapshotId"`
	EntityID    string    `json:"entityId"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Speed       *float64  `json:"speed,omitempty"`
	PolledAtUTC time.Time `json:"polledAtUtc"`
}

// TrackedUnits lists every transport, vehicle and customer in state once.
// A vehicle also listed under transports keeps only its transport entry.
func TrackedUnits(state DashboardState) []Marker {
	out := make([]Marker, 0, len(state.Transports)+len(state.Vehicles)+len(state.Customers))
	seen := make(map[string]bool, len(state.Transports))
	for _, m := range state.Transports {
		seen[m.ID] = true
		out = append(out, m)
	}
	for _, m := range state.Vehicles {
		if !seen[m.ID] {
			out = append(out, m)
		}
	}
	return append(out, state.Customers...)
}
