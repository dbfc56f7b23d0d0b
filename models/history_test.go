package models

import (
	"testing"

	"github.com/simfleet/fleetview/internal/status"
)

func TestTrackedUnits(t *testing.T) {
	state := DashboardState{
		Transports: []Marker{{ID: "taxi1"}, {ID: "bus1", Kind: status.EntityTransport}},
		Vehicles:   []Marker{{ID: "bus1", Kind: status.EntityVehicle}, {ID: "bike1", Kind: status.EntityVehicle}},
		Customers:  []Marker{{ID: "p1"}},
		Stations:   []Marker{{ID: "s1"}},
	}

	units := TrackedUnits(state)
	var ids []string
	for _, m := range units {
		ids = append(ids, m.ID)
	}
	expected := []string{"taxi1", "bus1", "bike1", "p1"}
	if len(ids) != len(expected) {
		t.Fatalf("ids = %v, expected %v", ids, expected)
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Errorf("ids[%d] = %q, expected %q", i, ids[i], expected[i])
		}
	}
	if units[1].Kind != status.EntityTransport {
		t.Errorf("dual-listed unit kept kind %q, expected transport", units[1].Kind)
	}
}
