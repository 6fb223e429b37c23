package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS session_summaries (
		id              TEXT PRIMARY KEY,
		rider_id        TEXT NOT NULL,
		start_at_ms     INTEGER NOT NULL,
		end_at_ms       INTEGER NOT NULL,
		duration_sec    INTEGER NOT NULL,
		distance_km     REAL NOT NULL,
		top_speed_kmh   REAL NOT NULL,
		avg_speed_kmh   REAL NOT NULL,
		vertical_drop_m REAL NOT NULL,
		created_at      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS session_summaries_rider_idx ON session_summaries (rider_id, start_at_ms DESC);
`

// SQLiteStore keeps summaries in a local SQLite file, for single-node deployments.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore runs the schema migration on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) (Record, error) {
	rec.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_summaries (id, rider_id, start_at_ms, end_at_ms, duration_sec, distance_km, top_speed_kmh, avg_speed_kmh, vertical_drop_m, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.RiderID, rec.StartAtMs, rec.EndAtMs, rec.DurationSec, rec.DistanceKm, rec.TopSpeedKmh, rec.AvgSpeedKmh, rec.VerticalDropM, rec.CreatedAt.UnixMilli())
	if err != nil {
		return Record{}, fmt.Errorf("saving summary %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rider_id, start_at_ms, end_at_ms, duration_sec, distance_km, top_speed_kmh, avg_speed_kmh, vertical_drop_m, created_at
		FROM session_summaries WHERE id = ?
	`, id)
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrSummaryNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading summary %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListByRider(ctx context.Context, riderID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rider_id, start_at_ms, end_at_ms, duration_sec, distance_km, top_speed_kmh, avg_speed_kmh, vertical_drop_m, created_at
		FROM session_summaries WHERE rider_id = ?
		ORDER BY start_at_ms DESC
	`, riderID)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (Record, error) {
	var rec Record
	var createdMs int64
	err := row.Scan(&rec.ID, &rec.RiderID, &rec.StartAtMs, &rec.EndAtMs, &rec.DurationSec, &rec.DistanceKm, &rec.TopSpeedKmh, &rec.AvgSpeedKmh, &rec.VerticalDropM, &createdMs)
	if err != nil {
		return Record{}, err
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	return rec, nil
}
