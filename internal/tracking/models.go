package tracking

import (
	"backend-skitrack/internal/sample"
	"backend-skitrack/internal/session"
)

// Session describes an in-progress recording.
type Session struct {
	ID          string            `json:"id"`
	RiderID     string            `json:"rider_id"`
	StartedAtMs int64             `json:"started_at_ms"`
	Live        session.LiveState `json:"live"`
}

// SamplesRequest is the body of POST /sessions/:id/samples.
type SamplesRequest struct {
	Samples []sample.Reading `json:"samples"`
}

// SamplesResponse reports how many readings the pipeline took and the live state afterwards.
type SamplesResponse struct {
	Accepted int               `json:"accepted"`
	Live     session.LiveState `json:"live"`
}
