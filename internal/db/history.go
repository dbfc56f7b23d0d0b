package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/simfleet/fleetview/models"
)

// DefaultHistoryLimit caps history queries that don't pass a limit
const DefaultHistoryLimit = 500

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RecordSnapshot stores the aggregate stats of state and the position of every
// unit and requester in it, once per entity. Returns the new snapshot id.
func (db *DB) RecordSnapshot(ctx context.Context, polledAt time.Time, state models.DashboardState) (string, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	snapshotID := uuid.New().String()
	polledAtStr := polledAt.UTC().Format(timeLayout)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (
			snapshot_id, polled_at_utc, waiting_time, total_time, running,
			transport_count, customer_count, station_count, vehicle_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshotID, polledAtStr, state.Stats.WaitingTime, state.Stats.TotalTime, state.Stats.Running,
		len(state.Transports), len(state.Customers), len(state.Stations), len(state.Vehicles),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO unit_positions (
			snapshot_id, entity_id, kind, status, latitude, longitude, speed, polled_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare position statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range models.TrackedUnits(state) {
		_, err := stmt.ExecContext(ctx,
			snapshotID, m.ID, string(m.Kind), m.Status.String(),
			m.LatLng[0], m.LatLng[1], m.Speed, polledAtStr,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert position for %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return snapshotID, nil
}

// RecentStats returns up to limit recorded snapshots, oldest first
func (db *DB) RecentStats(ctx context.Context, limit int) ([]models.HistoryPoint, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			snapshot_id,
			polled_at_utc,
			waiting_time,
			total_time,
			running,
			transport_count,
			customer_count,
			station_count,
			vehicle_count
		FROM snapshots
		ORDER BY polled_at_utc DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	points := []models.HistoryPoint{}
	for rows.Next() {
		var p models.HistoryPoint
		var polledAtStr string
		err := rows.Scan(
			&p.SnapshotID,
			&polledAtStr,
			&p.WaitingTime,
			&p.TotalTime,
			&p.Running,
			&p.TransportCount,
			&p.CustomerCount,
			&p.StationCount,
			&p.VehicleCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		p.PolledAtUTC = parseTime(polledAtStr)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	slices.Reverse(points)
	return points, nil
}

// UnitTrail returns up to limit recorded positions of one entity, oldest first
func (db *DB) UnitTrail(ctx context.Context, entityID string, limit int) ([]models.UnitTrailPoint, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			snapshot_id,
			entity_id,
			kind,
			status,
			latitude,
			longitude,
			speed,
			polled_at_utc
		FROM unit_positions
		WHERE entity_id = ?
		ORDER BY polled_at_utc DESC
		LIMIT ?`, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unit trail: %w", err)
	}
	defer rows.Close()

	trail := []models.UnitTrailPoint{}
	for rows.Next() {
		var p models.UnitTrailPoint
		var speed sql.NullFloat64
		var polledAtStr string
		err := rows.Scan(
			&p.SnapshotID,
			&p.EntityID,
			&p.Kind,
			&p.Status,
			&p.Latitude,
			&p.Longitude,
			&speed,
			&polledAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trail row: %w", err)
		}
		if speed.Valid {
			v := speed.Float64
			p.Speed = &v
		}
		p.PolledAtUTC = parseTime(polledAtStr)
		trail = append(trail, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trail rows: %w", err)
	}

	slices.Reverse(trail)
	return trail, nil
}

// Cleanup deletes history older than retention (at least one hour)
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) error {
	if retention < time.Hour {
		retention = time.Hour
	}
	cutoff := time.Now().UTC().Add(-retention).Format(timeLayout)

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	queries := []struct {
		name  string
		query string
	}{
		{name: "unit_positions", query: "DELETE FROM unit_positions WHERE polled_at_utc < ?"},
		{name: "snapshots", query: "DELETE FROM snapshots WHERE polled_at_utc < ?"},
	}

	totalDeleted := 0
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, q.query, cutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", q.name, err)
		}
		rows, _ := result.RowsAffected()
		totalDeleted += int(rows)
	}

	if totalDeleted > 0 {
		log.Printf("Cleanup: deleted %d records older than %s", totalDeleted, retention)
	}
	return nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
