package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/simfleet/fleetview/internal/status"
	"github.com/simfleet/fleetview/models"
)

// These tests need a live PostgreSQL; they are skipped unless
// HISTORY_DATABASE_URL points at a scratch database.
func setupRepository(t *testing.T) *HistoryRepository {
	t.Helper()
	databaseURL := os.Getenv("HISTORY_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("HISTORY_DATABASE_URL not set, skipping Postgres history tests")
	}

	repo, err := NewHistoryRepository(databaseURL)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(repo.Close)

	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if _, err := repo.pool.Exec(ctx, "TRUNCATE snapshots CASCADE"); err != nil {
		t.Fatalf("Failed to truncate: %v", err)
	}
	return repo
}

func TestHistoryRepository_RoundTrip(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	speed := 8.0
	state := models.DashboardState{
		Transports: []models.Marker{
			{ID: "taxi1", Kind: status.EntityTransport, LatLng: models.LatLng{39.47, -0.37}, Status: status.TransportMovingToDestination, Speed: &speed},
		},
		Customers: []models.Marker{
			{ID: "p1", Kind: status.EntityCustomer, LatLng: models.LatLng{39.48, -0.38}, Status: status.CustomerInTransport},
		},
		Stats: models.Stats{WaitingTime: 3, TotalTime: 9, Running: true},
	}

	old := time.Now().UTC().Add(-2 * time.Hour)
	if _, err := repo.RecordSnapshot(ctx, old, state); err != nil {
		t.Fatalf("RecordSnapshot failed: %v", err)
	}
	id, err := repo.RecordSnapshot(ctx, time.Now().UTC(), state)
	if err != nil {
		t.Fatalf("RecordSnapshot failed: %v", err)
	}

	points, err := repo.RecentStats(ctx, 10)
	if err != nil {
		t.Fatalf("RecentStats failed: %v", err)
	}
	if len(points) != 2 || points[1].SnapshotID != id {
		t.Fatalf("unexpected points: %+v", points)
	}
	if !points[1].Running || points[1].TransportCount != 1 || points[1].CustomerCount != 1 {
		t.Errorf("unexpected point: %+v", points[1])
	}

	trail, err := repo.UnitTrail(ctx, "taxi1", 10)
	if err != nil {
		t.Fatalf("UnitTrail failed: %v", err)
	}
	if len(trail) != 2 || trail[0].Speed == nil || *trail[0].Speed != 8 {
		t.Errorf("unexpected trail: %+v", trail)
	}

	if err := repo.Cleanup(ctx, time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	points, err = repo.RecentStats(ctx, 10)
	if err != nil {
		t.Fatalf("RecentStats failed: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("expected 1 snapshot after cleanup, got %d", len(points))
	}
	trail, _ = repo.UnitTrail(ctx, "taxi1", 10)
	if len(trail) != 1 {
		t.Errorf("positions should cascade with their snapshot, got %d", len(trail))
	}
}

func TestHistoryRepository_EmptyEntityID(t *testing.T) {
	repo := setupRepository(t)
	if _, err := repo.UnitTrail(context.Background(), "", 10); err == nil {
		t.Error("expected error for empty entity id")
	}
}
