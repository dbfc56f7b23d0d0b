package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/simfleet/fleetview/internal/status"
	"github.com/simfleet/fleetview/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return db
}

func sampleState(lat float64) models.DashboardState {
	speed := 12.5
	return models.DashboardState{
		Transports: []models.Marker{
			{ID: "taxi1", Kind: status.EntityTransport, LatLng: models.LatLng{lat, -0.37}, Status: status.TransportMovingToCustomer, Speed: &speed},
		},
		Customers: []models.Marker{
			{ID: "p1", Kind: status.EntityCustomer, LatLng: models.LatLng{39.48, -0.38}, Status: status.CustomerWaiting},
		},
		Stations: []models.Marker{
			{ID: "s1", Kind: status.EntityStation, LatLng: models.LatLng{39.49, -0.39}, Status: status.FreeStation},
		},
		Stats: models.Stats{WaitingTime: 4.5, TotalTime: 20, Running: true},
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}
	var tables int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('snapshots', 'unit_positions')`).Scan(&tables)
	if err != nil || tables != 2 {
		t.Errorf("expected both history tables, got %d (err %v)", tables, err)
	}
}

func TestRecordSnapshot_RecentStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)

	var ids []string
	for i := 0; i < 3; i++ {
		state := sampleState(39.47 + float64(i)*0.001)
		state.Stats.WaitingTime = float64(i)
		id, err := db.RecordSnapshot(ctx, base.Add(time.Duration(i)*time.Second), state)
		if err != nil {
			t.Fatalf("RecordSnapshot failed: %v", err)
		}
		ids = append(ids, id)
	}

	points, err := db.RecentStats(ctx, 2)
	if err != nil {
		t.Fatalf("RecentStats failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	// Newest two, oldest first
	if points[0].SnapshotID != ids[1] || points[1].SnapshotID != ids[2] {
		t.Errorf("unexpected order: %s, %s", points[0].SnapshotID, points[1].SnapshotID)
	}
	p := points[1]
	if p.WaitingTime != 2 || p.TotalTime != 20 || !p.Running {
		t.Errorf("stats not round-tripped: %+v", p)
	}
	if p.TransportCount != 1 || p.CustomerCount != 1 || p.StationCount != 1 || p.VehicleCount != 0 {
		t.Errorf("counts not round-tripped: %+v", p)
	}
	if !p.PolledAtUTC.Equal(base.Add(2 * time.Second).Truncate(time.Nanosecond)) {
		t.Errorf("PolledAtUTC = %v", p.PolledAtUTC)
	}
}

func TestUnitTrail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := db.RecordSnapshot(ctx, base.Add(time.Duration(i)*time.Second), sampleState(39.47+float64(i))); err != nil {
			t.Fatalf("RecordSnapshot failed: %v", err)
		}
	}

	trail, err := db.UnitTrail(ctx, "taxi1", 0)
	if err != nil {
		t.Fatalf("UnitTrail failed: %v", err)
	}
	if len(trail) != 3 {
		t.Fatalf("expected 3 trail points, got %d", len(trail))
	}
	if trail[0].Latitude != 39.47 || trail[2].Latitude != 41.47 {
		t.Errorf("trail not oldest first: %v .. %v", trail[0].Latitude, trail[2].Latitude)
	}
	if trail[0].Kind != "transport" || trail[0].Status != "TRANSPORT_MOVING_TO_CUSTOMER" {
		t.Errorf("unexpected kind/status: %s %s", trail[0].Kind, trail[0].Status)
	}
	if trail[0].Speed == nil || *trail[0].Speed != 12.5 {
		t.Errorf("speed not round-tripped: %v", trail[0].Speed)
	}

	customer, err := db.UnitTrail(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("UnitTrail failed: %v", err)
	}
	if len(customer) != 3 || customer[0].Speed != nil {
		t.Errorf("unexpected customer trail: %+v", customer)
	}

	stations, err := db.UnitTrail(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("UnitTrail failed: %v", err)
	}
	if len(stations) != 0 {
		t.Errorf("stations are not recorded, got %d points", len(stations))
	}
}

func TestCleanup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := db.RecordSnapshot(ctx, now.Add(-3*time.Hour), sampleState(1)); err != nil {
		t.Fatalf("RecordSnapshot failed: %v", err)
	}
	if _, err := db.RecordSnapshot(ctx, now.Add(-10*time.Minute), sampleState(2)); err != nil {
		t.Fatalf("RecordSnapshot failed: %v", err)
	}

	// Retention below an hour is raised to one hour.
	if err := db.Cleanup(ctx, time.Minute); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	points, err := db.RecentStats(ctx, 0)
	if err != nil {
		t.Fatalf("RecentStats failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 snapshot after cleanup, got %d", len(points))
	}
	trail, err := db.UnitTrail(ctx, "taxi1", 0)
	if err != nil {
		t.Fatalf("UnitTrail failed: %v", err)
	}
	if len(trail) != 1 || trail[0].Latitude != 2 {
		t.Errorf("old positions should be gone, got %+v", trail)
	}
}

func TestUnitTrail_DualListedVehicle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)

	for i := 0; i < 2; i++ {
		state := sampleState(39.47)
		bus := models.Marker{ID: "bus1", LatLng: models.LatLng{39.40 + float64(i), -0.30}, Status: status.VehicleMovingToDestination}
		asTransport, asVehicle := bus, bus
		asTransport.Kind = status.EntityTransport
		asVehicle.Kind = status.EntityVehicle
		state.Transports = append(state.Transports, asTransport)
		state.Vehicles = []models.Marker{asVehicle}
		if _, err := db.RecordSnapshot(ctx, base.Add(time.Duration(i)*time.Second), state); err != nil {
			t.Fatalf("RecordSnapshot failed: %v", err)
		}
	}

	trail, err := db.UnitTrail(ctx, "bus1", 0)
	if err != nil {
		t.Fatalf("UnitTrail failed: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected one point per snapshot, got %d", len(trail))
	}
	if trail[0].Kind != "transport" || trail[0].Status != "VEHICLE_MOVING_TO_DESTINATION" {
		t.Errorf("unexpected kind/status: %s %s", trail[0].Kind, trail[0].Status)
	}
	if trail[0].SnapshotID == trail[1].SnapshotID {
		t.Error("points should come from different snapshots")
	}
}
