package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SnapshotFunc returns the messages a new subscriber should receive before live updates.
type SnapshotFunc func(sessionID string) [][]byte

// AccessFunc rejects authenticated requests that may not watch sessionID.
type AccessFunc func(c *fiber.Ctx, sessionID string) error

func RegisterRoutes(r fiber.Router, hub *Hub, snapshot SnapshotFunc, authMiddleware fiber.Handler, access AccessFunc) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	r.Get("/ws/:sessionID", authMiddleware, func(c *fiber.Ctx) error {
		if access != nil {
			if err := access(c, c.Params("sessionID")); err != nil {
				return err
			}
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		sessionID := c.Params("sessionID")
		client := hub.Register(sessionID)
		defer hub.Unregister(client)

		if snapshot != nil {
			for _, msg := range snapshot(sessionID) {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case msg := <-client.Send:
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}))
}
