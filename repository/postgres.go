package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/simfleet/fleetview/models"
)

//go:embed schema_postgres.sql
var schemaSQL string

// DefaultHistoryLimit caps history queries that don't pass a limit
const DefaultHistoryLimit = 500

// HistoryRepository records and reads snapshot history in PostgreSQL
type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(databaseURL string) (*HistoryRepository, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &HistoryRepository{pool: pool}, nil
}

func (r *HistoryRepository) Close() {
	r.pool.Close()
}

// EnsureSchema creates tables if they don't exist
func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	log.Println("Postgres history schema ensured")
	return nil
}

func (r *HistoryRepository) RecordSnapshot(ctx context.Context, polledAt time.Time, state models.DashboardState) (string, error) {
	snapshotID := uuid.New().String()
	polledAt = polledAt.UTC()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO snapshots (
			snapshot_id, polled_at_utc, waiting_time, total_time, running,
			transport_count, customer_count, station_count, vehicle_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		snapshotID, polledAt, state.Stats.WaitingTime, state.Stats.TotalTime, state.Stats.Running,
		len(state.Transports), len(state.Customers), len(state.Stations), len(state.Vehicles),
	)
	for _, m := range models.TrackedUnits(state) {
		batch.Queue(`
			INSERT INTO unit_positions (
				snapshot_id, entity_id, kind, status, latitude, longitude, speed, polled_at_utc
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT DO NOTHING`,
			snapshotID, m.ID, string(m.Kind), m.Status.String(),
			m.LatLng[0], m.LatLng[1], m.Speed, polledAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return snapshotID, nil
}

// RecentStats returns up to limit recorded snapshots, oldest first
func (r *HistoryRepository) RecentStats(ctx context.Context, limit int) ([]models.HistoryPoint, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT
			snapshot_id::text,
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
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	points := []models.HistoryPoint{}
	for rows.Next() {
		var p models.HistoryPoint
		err := rows.Scan(
			&p.SnapshotID,
			&p.PolledAtUTC,
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
		p.PolledAtUTC = p.PolledAtUTC.UTC()
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	slices.Reverse(points)
	return points, nil
}

// UnitTrail returns up to limit recorded positions of one entity, oldest first
func (r *HistoryRepository) UnitTrail(ctx context.Context, entityID string, limit int) ([]models.UnitTrailPoint, error) {
	if entityID == "" {
		return nil, errors.New("entity_id cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT
			snapshot_id::text,
			entity_id,
			kind,
			status,
			latitude,
			longitude,
			speed,
			polled_at_utc
		FROM unit_positions
		WHERE entity_id = $1
		ORDER BY polled_at_utc DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unit trail: %w", err)
	}
	defer rows.Close()

	trail := []models.UnitTrailPoint{}
	for rows.Next() {
		var p models.UnitTrailPoint
		err := rows.Scan(
			&p.SnapshotID,
			&p.EntityID,
			&p.Kind,
			&p.Status,
			&p.Latitude,
			&p.Longitude,
			&p.Speed,
			&p.PolledAtUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trail row: %w", err)
		}
		p.PolledAtUTC = p.PolledAtUTC.UTC()
		trail = append(trail, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trail rows: %w", err)
	}

	slices.Reverse(trail)
	return trail, nil
}

// Cleanup deletes history older than retention (at least one hour).
// Positions go with their snapshot through ON DELETE CASCADE.
func (r *HistoryRepository) Cleanup(ctx context.Context, retention time.Duration) error {
	if retention < time.Hour {
		retention = time.Hour
	}
	cutoff := time.Now().UTC().Add(-retention)

	tag, err := r.pool.Exec(ctx, "DELETE FROM snapshots WHERE polled_at_utc < $1", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup snapshots: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Printf("Cleanup: deleted %d snapshots older than %s", n, retention)
	}
	return nil
}
