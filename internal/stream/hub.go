package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"backend-skitrack/internal/session"
	"backend-skitrack/internal/track"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "skitrack:"
	channelSuffix = ":feed"
	latestTTL     = time.Hour
	outboxSize    = 256
	redisTimeout  = 2 * time.Second
)

// ErrNoSnapshot is returned by Latest when nothing has been cached for a session.
var ErrNoSnapshot = errors.New("no cached snapshot")

// Hub fans session updates out to websocket clients. With redis configured it
// also relays updates between instances and caches the latest live state.
type Hub struct {
	id      string
	redis   *redis.Client
	pubsub  *redis.PubSub
	outbox  chan outbound
	done    chan struct{}
	once    sync.Once
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

// outbound is a redis write queued for the publisher goroutine.
type outbound struct {
	sessionID string
	payload   []byte
	latest    []byte
}

type Client struct {
	SessionID string
	Send      chan []byte
}

// Message is the websocket envelope.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		done:    make(chan struct{}),
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		h.outbox = make(chan outbound, outboxSize)
		go h.publish()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		pubsub := redisClient.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Printf("redis subscribe error: %v", err)
			_ = pubsub.Close()
		} else {
			h.pubsub = pubsub
			go h.relay(pubsub)
		}
	}
	return h
}

// Close stops the redis publisher and relay.
func (h *Hub) Close() error {
	h.once.Do(func() { close(h.done) })
	if h.pubsub != nil {
		return h.pubsub.Close()
	}
	return nil
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionClients, ok := h.clients[client.SessionID]; ok {
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
	close(client.Send)
}

// Broadcast delivers payload to local clients and queues it for other instances.
// It never waits on the network: slow clients and a full redis queue drop messages.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.deliver(sessionID, payload)
	h.enqueue(outbound{sessionID: sessionID, payload: payload})
}

// PublishLive sends the live state and queues it for the cross-instance cache.
func (h *Hub) PublishLive(sessionID string, live session.LiveState) {
	data, err := json.Marshal(live)
	if err != nil {
		log.Printf("encode live for %s: %v", sessionID, err)
		return
	}
	payload, err := json.Marshal(Message{Type: "live", SessionID: sessionID, Data: data})
	if err != nil {
		log.Printf("encode envelope for %s: %v", sessionID, err)
		return
	}
	h.deliver(sessionID, payload)
	h.enqueue(outbound{sessionID: sessionID, payload: payload, latest: data})
}

// PublishTrack sends both render layers; clients replace their geometry wholesale.
func (h *Hub) PublishTrack(sessionID string, segments []track.Segment) {
	payload, ok := h.envelope("track", sessionID, track.SplitFeed(segments))
	if !ok {
		return
	}
	h.Broadcast(sessionID, payload)
}

// Latest returns the cached live state JSON for a session.
func (h *Hub) Latest(ctx context.Context, sessionID string) ([]byte, error) {
	if h.redis == nil {
		return nil, ErrNoSnapshot
	}
	data, err := h.redis.Get(ctx, latestKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	return data, err
}

func (h *Hub) enqueue(out outbound) {
	if h.outbox == nil {
		return
	}
	select {
	case <-h.done:
	case h.outbox <- out:
	default:
		log.Printf("redis queue full, dropping update for %s", out.sessionID)
	}
}

// publish drains the outbox, bounding every redis call.
func (h *Hub) publish() {
	for {
		select {
		case <-h.done:
			return
		case out := <-h.outbox:
			h.write(out)
		}
	}
}

func (h *Hub) write(out outbound) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := h.redis.Publish(ctx, redisChannel(out.sessionID), h.id+"|"+string(out.payload)).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
	}
	if out.latest != nil {
		if err := h.redis.Set(ctx, latestKey(out.sessionID), out.latest, latestTTL).Err(); err != nil {
			log.Printf("redis cache error: %v", err)
		}
	}
}

func (h *Hub) envelope(kind, sessionID string, v any) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("encode %s for %s: %v", kind, sessionID, err)
		return nil, false
	}
	payload, err := json.Marshal(Message{Type: kind, SessionID: sessionID, Data: data})
	if err != nil {
		log.Printf("encode envelope for %s: %v", sessionID, err)
		return nil, false
	}
	return payload, true
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) relay(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		origin, payload, ok := strings.Cut(msg.Payload, "|")
		if !ok || origin == h.id {
			continue
		}
		sessionID := sessionIDFromChannel(msg.Channel)
		if sessionID == "" {
			continue
		}
		h.deliver(sessionID, []byte(payload))
	}
}

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID + channelSuffix
}

func latestKey(sessionID string) string {
	return channelPrefix + sessionID + ":live"
}

func sessionIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}

// SessionReader exposes sessions recorded by this instance.
type SessionReader interface {
	Live(sessionID string) (session.LiveState, error)
	Track(sessionID string) ([]track.Segment, error)
}

// Snapshot builds the SnapshotFunc for RegisterRoutes. Sessions recorded here
// get live and track messages; others fall back to the cached live state.
func (h *Hub) Snapshot(reader SessionReader) SnapshotFunc {
	return func(sessionID string) [][]byte {
		if reader != nil {
			if live, err := reader.Live(sessionID); err == nil {
				var out [][]byte
				if payload, ok := h.envelope("live", sessionID, live); ok {
					out = append(out, payload)
				}
				if segs, err := reader.Track(sessionID); err == nil {
					if payload, ok := h.envelope("track", sessionID, track.SplitFeed(segs)); ok {
						out = append(out, payload)
					}
				}
				return out
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		data, err := h.Latest(ctx, sessionID)
		if err != nil {
			return nil
		}
		payload, err := json.Marshal(Message{Type: "live", SessionID: sessionID, Data: data})
		if err != nil {
			return nil
		}
		return [][]byte{payload}
	}
}
