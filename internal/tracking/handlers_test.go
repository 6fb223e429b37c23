package tracking

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-skitrack/internal/archive"
	"backend-skitrack/internal/auth"
	"backend-skitrack/internal/config"
	"backend-skitrack/internal/db"
	"backend-skitrack/internal/session"

	"github.com/gofiber/fiber/v2"
)

const secret = "secret"

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	conn, err := db.OpenSQLite(config.Config{SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	store, err := archive.NewSQLiteStore(conn)
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app.Group("/tracking"), NewService(store, session.DefaultOptions()), auth.JWTMiddleware(secret))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, rider string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if rider != "" {
		token, err := auth.SignToken(secret, rider, auth.DefaultTokenTTL)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestTrackingHandlersSessionFlow(t *testing.T) {
	app := newApp(t)

	resp := do(t, app, http.MethodPost, "/tracking/sessions", "rider-1", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session status %d", resp.StatusCode)
	}
	var sess Session
	decode(t, resp, &sess)
	base := "/tracking/sessions/" + sess.ID

	resp = do(t, app, http.MethodPost, base+"/samples", "rider-1", SamplesRequest{Samples: run(40, 45)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("push samples status %d", resp.StatusCode)
	}
	var pushed SamplesResponse
	decode(t, resp, &pushed)
	if pushed.Accepted != 40 || pushed.Live.DistanceKm <= 0 {
		t.Fatalf("unexpected push response %+v", pushed)
	}

	resp = do(t, app, http.MethodGet, base+"/live", "rider-1", nil)
	var live session.LiveState
	decode(t, resp, &live)
	if !live.IsRecording || live.DistanceKm != pushed.Live.DistanceKm {
		t.Fatalf("unexpected live state %+v", live)
	}

	resp = do(t, app, http.MethodGet, base+"/track", "rider-1", nil)
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	decode(t, resp, &fc)
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("unexpected geojson %+v", fc)
	}

	resp = do(t, app, http.MethodPost, base+"/stop", "rider-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status %d", resp.StatusCode)
	}
	var rec archive.Record
	decode(t, resp, &rec)
	if rec.ID != sess.ID || rec.DistanceKm != pushed.Live.DistanceKm {
		t.Fatalf("unexpected record %+v", rec)
	}

	resp = do(t, app, http.MethodPost, base+"/stop", "rider-1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second stop, got %d", resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/tracking/summaries/"+sess.ID, "rider-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status %d", resp.StatusCode)
	}
	resp = do(t, app, http.MethodGet, "/tracking/summaries/"+sess.ID, "rider-2", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected other riders to get 404, got %d", resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/tracking/summaries", "rider-1", nil)
	var records []archive.Record
	decode(t, resp, &records)
	if len(records) != 1 || records[0].ID != sess.ID {
		t.Fatalf("unexpected summaries %+v", records)
	}
}

func TestTrackingHandlersRejections(t *testing.T) {
	app := newApp(t)

	if resp := do(t, app, http.MethodPost, "/tracking/sessions", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", resp.StatusCode)
	}
	if resp := do(t, app, http.MethodGet, "/tracking/sessions/missing/live", "rider-1", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", resp.StatusCode)
	}

	resp := do(t, app, http.MethodPost, "/tracking/sessions", "rider-1", nil)
	var sess Session
	decode(t, resp, &sess)
	base := "/tracking/sessions/" + sess.ID

	if resp := do(t, app, http.MethodGet, base+"/live", "rider-2", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden for another rider, got %d", resp.StatusCode)
	}
	if resp := do(t, app, http.MethodPost, base+"/samples", "rider-1", SamplesRequest{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for empty batch, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodPost, base+"/samples", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	token, _ := auth.SignToken(secret, "rider-1", auth.DefaultTokenTTL)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed body")
	}

	if resp := do(t, app, http.MethodGet, "/tracking/summaries/missing", "rider-1", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected summary not found, got %d", resp.StatusCode)
	}
}
