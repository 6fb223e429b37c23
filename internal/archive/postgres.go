package archive

import (
	"context"
	"errors"
	"fmt"

	"backend-skitrack/internal/db"

	"github.com/jackc/pgx/v5"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS session_summaries (
		id              TEXT PRIMARY KEY,
		rider_id        TEXT NOT NULL,
		start_at_ms     BIGINT NOT NULL,
		end_at_ms       BIGINT NOT NULL,
		duration_sec    BIGINT NOT NULL,
		distance_km     DOUBLE PRECISION NOT NULL,
		top_speed_kmh   DOUBLE PRECISION NOT NULL,
		avg_speed_kmh   DOUBLE PRECISION NOT NULL,
		vertical_drop_m DOUBLE PRECISION NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS session_summaries_rider_idx ON session_summaries (rider_id, start_at_ms DESC);
`

type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q}
}

// EnsureSchema creates the summaries table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("creating session_summaries: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) (Record, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO session_summaries (id, rider_id, start_at_ms, end_at_ms, duration_sec, distance_km, top_speed_kmh, avg_speed_kmh, vertical_drop_m)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, rec.ID, rec.RiderID, rec.StartAtMs, rec.EndAtMs, rec.DurationSec, rec.DistanceKm, rec.TopSpeedKmh, rec.AvgSpeedKmh, rec.VerticalDropM)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("saving summary %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	row := s.db.QueryRow(ctx, `
		SELECT id, rider_id, start_at_ms, end_at_ms, duration_sec, distance_km, top_speed_kmh, avg_speed_kmh, vertical_drop_m, created_at
		FROM session_summaries WHERE id=$1
	`, id)
	err := row.Scan(&rec.ID, &rec.RiderID, &rec.StartAtMs, &rec.EndAtMs, &rec.DurationSec, &rec.DistanceKm, &rec.TopSpeedKmh, &rec.AvgSpeedKmh, &rec.VerticalDropM, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrSummaryNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading summary %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByRider(ctx context.Context, riderID string) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, rider_id, start_at_ms, end_at_ms, duration_sec, distance_km, top_speed_kmh, avg_speed_kmh, vertical_drop_m, created_at
		FROM session_summaries WHERE rider_id=$1
		ORDER BY start_at_ms DESC
	`, riderID)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RiderID, &rec.StartAtMs, &rec.EndAtMs, &rec.DurationSec, &rec.DistanceKm, &rec.TopSpeedKmh, &rec.AvgSpeedKmh, &rec.VerticalDropM, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
