package archive

import (
	"context"
	"errors"
	"time"

	"backend-skitrack/internal/session"
)

// ErrSummaryNotFound is returned when no archived session has the requested id.
var ErrSummaryNotFound = errors.New("session summary not found")

// Record is an archived session summary with its owner.
type Record struct {
	ID      string `json:"id"`
	RiderID string `json:"rider_id"`
	session.Summary
	CreatedAt time.Time `json:"created_at"`
}

// Store persists finished sessions.
type Store interface {
	Save(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	ListByRider(ctx context.Context, riderID string) ([]Record, error)
}
