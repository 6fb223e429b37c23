package stream

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
)

func pass(c *fiber.Ctx) error { return c.Next() }

func upgradeRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func serve(t *testing.T, hub *Hub, snapshot SnapshotFunc) string {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub, snapshot, pass, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func waitForClient(t *testing.T, hub *Hub, sessionID string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.clients[sessionID])
		hub.mu.RUnlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client for %s never registered", sessionID)
}

func TestStreamHandlersUpgradeRequired(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), NewHub(nil), nil, pass, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream/ws/session-1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426 for non-websocket request, got %d", resp.StatusCode)
	}
}

func TestStreamHandlersWebsocketBroadcast(t *testing.T) {
	hub := NewHub(nil)
	base := serve(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/session-1", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	waitForClient(t, hub, "session-1")

	hub.Broadcast("session-1", []byte("hello"))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(msg) != "hello" {
		t.Fatalf("unexpected message %q", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("client")); err != nil {
		t.Fatalf("write error: %v", err)
	}
}

func TestStreamHandlersSendsSnapshotFirst(t *testing.T) {
	hub := NewHub(nil)
	base := serve(t, hub, func(sessionID string) [][]byte {
		return [][]byte{[]byte("live:" + sessionID), []byte("track:" + sessionID)}
	})

	conn, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/session-9", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	for _, want := range []string{"live:session-9", "track:session-9"} {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if string(msg) != want {
			t.Fatalf("got %q want %q", msg, want)
		}
	}
}

func TestStreamHandlersUnregisterOnClose(t *testing.T) {
	hub := NewHub(nil)
	base := serve(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/session-3", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	waitForClient(t, hub, "session-3")

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	conn.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.clients["session-3"])
		hub.mu.RUnlock()
		if n == 0 {
			return
		}
		hub.Broadcast("session-3", []byte("ping"))
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client not unregistered after close")
}

func TestStreamHandlersRunAuthBeforeUpgrade(t *testing.T) {
	app := fiber.New()
	deny := func(*fiber.Ctx) error { return fiber.ErrUnauthorized }
	RegisterRoutes(app.Group("/stream"), NewHub(nil), nil, deny, nil)

	resp, err := app.Test(upgradeRequest("/stream/ws/session-1"))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 before upgrade, got %d", resp.StatusCode)
	}
}

func TestStreamHandlersAccessCheck(t *testing.T) {
	app := fiber.New()
	var asked string
	access := func(_ *fiber.Ctx, sessionID string) error {
		asked = sessionID
		return fiber.ErrForbidden
	}
	RegisterRoutes(app.Group("/stream"), NewHub(nil), nil, pass, access)

	resp, err := app.Test(upgradeRequest("/stream/ws/session-7"))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden || asked != "session-7" {
		t.Fatalf("expected 403 for session-7, got %d (%q)", resp.StatusCode, asked)
	}
}
