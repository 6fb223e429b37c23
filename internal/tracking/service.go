package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"backend-skitrack/internal/archive"
	"backend-skitrack/internal/sample"
	"backend-skitrack/internal/session"
	"backend-skitrack/internal/track"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotRecording    = errors.New("session is not recording")
	ErrForbidden       = errors.New("session belongs to another rider")
)

type entry struct {
	riderID  string
	recorder *session.Recorder
	source   *sample.PushSource
}

// Service owns the recorders of every session running on this instance.
type Service struct {
	store archive.Store
	opts  session.Options
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewService archives finished sessions into store. A nil store keeps
// summaries in the response only.
func NewService(store archive.Store, opts session.Options) *Service {
	return &Service{
		store:    store,
		opts:     opts,
		now:      time.Now,
		sessions: map[string]*entry{},
	}
}

func (s *Service) StartSession(ctx context.Context, riderID string) (Session, error) {
	if riderID == "" {
		return Session{}, errors.New("rider id required")
	}
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	id := uuid.NewString()
	src := sample.NewPushSource()
	rec := session.NewRecorder(id, src, s.opts)

	s.mu.Lock()
	s.sessions[id] = &entry{riderID: riderID, recorder: rec, source: src}
	s.mu.Unlock()

	rec.Start()
	return Session{
		ID:          id,
		RiderID:     riderID,
		StartedAtMs: rec.StartAtMs(),
		Live:        rec.Live(),
	}, nil
}

// Owner returns the rider recording session id.
func (s *Service) Owner(id string) (string, error) {
	e, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return e.riderID, nil
}

// PushSamples feeds readings through the session source in order. Accepted
// counts readings the recorder processed; it stops at the first refusal.
func (s *Service) PushSamples(ctx context.Context, id string, readings []sample.Reading) (SamplesResponse, error) {
	e, err := s.lookup(id)
	if err != nil {
		return SamplesResponse{}, err
	}

	var resp SamplesResponse
	for _, r := range readings {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		if !e.source.Push(r) {
			return resp, fmt.Errorf("session %s: %w", id, ErrNotRecording)
		}
		resp.Accepted++
	}
	resp.Live = e.recorder.Live()
	return resp, nil
}

func (s *Service) Live(id string) (session.LiveState, error) {
	e, err := s.lookup(id)
	if err != nil {
		return session.LiveState{}, err
	}
	return e.recorder.Live(), nil
}

func (s *Service) Track(id string) ([]track.Segment, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.recorder.Track(), nil
}

// StopSession ends the recording, forgets the session and archives its summary.
func (s *Service) StopSession(ctx context.Context, id string) (archive.Record, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return archive.Record{}, fmt.Errorf("stop %s: %w", id, ErrSessionNotFound)
	}

	summary, stopped := e.recorder.Stop()
	if !stopped {
		return archive.Record{}, fmt.Errorf("stop %s: %w", id, ErrNotRecording)
	}

	rec := archive.Record{ID: id, RiderID: e.riderID, Summary: summary, CreatedAt: s.now().UTC()}
	if s.store == nil {
		return rec, nil
	}
	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return rec, err
	}
	return saved, nil
}

func (s *Service) Summary(ctx context.Context, id string) (archive.Record, error) {
	if s.store == nil {
		return archive.Record{}, archive.ErrSummaryNotFound
	}
	return s.store.Get(ctx, id)
}

func (s *Service) RiderSummaries(ctx context.Context, riderID string) ([]archive.Record, error) {
	if s.store == nil {
		return []archive.Record{}, nil
	}
	return s.store.ListByRider(ctx, riderID)
}

// Shutdown stops every running session and archives what it can.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if _, err := s.StopSession(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return e, nil
}
