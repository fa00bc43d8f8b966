package services

import (
	"encoding/json"
	"sync"
	"time"

	"social-posts-backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	EventPostCreated = "post_created"
	EventPostDeleted = "post_deleted"

	feedWriteTimeout = 5 * time.Second
	feedQueueSize    = 16
)

// FeedEvent is a message pushed to feed subscribers
type FeedEvent struct {
	Type   string       `json:"type"`
	Post   *models.Post `json:"post,omitempty"`
	PostID int64        `json:"post_id,omitempty"`
}

// Publisher receives post events
type Publisher interface {
	Publish(event FeedEvent)
}

type feedConn struct {
	id     string
	conn   *websocket.Conn
	userID int64
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// stop ends the writer and closes the socket; safe to call more than once
func (c *feedConn) stop() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// FeedHub manages WebSocket subscribers of the live post feed. Each
// subscriber has its own send queue drained by a writer goroutine, so
// Publish never waits on a slow client.
type FeedHub struct {
	mu    sync.RWMutex
	conns map[string]*feedConn
}

// NewFeedHub creates a new feed hub
func NewFeedHub() *FeedHub {
	return &FeedHub{
		conns: make(map[string]*feedConn),
	}
}

// Register adds a connection and returns its subscription id
func (h *FeedHub) Register(userID int64, conn *websocket.Conn) string {
	c := &feedConn{
		id:     uuid.New().String(),
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, feedQueueSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()

	go h.writeLoop(c)

	log.Info().Str("subscription_id", c.id).Int64("user_id", userID).Msg("Feed subscriber registered")
	return c.id
}

func (h *FeedHub) writeLoop(c *feedConn) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("subscription_id", c.id).Msg("Failed to send feed event")
				h.Unregister(c.id)
				return
			}
		}
	}
}

// Unregister closes and removes a subscription
func (h *FeedHub) Unregister(id string) {
	h.mu.Lock()
	c, exists := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if exists {
		c.stop()
		log.Info().Str("subscription_id", id).Int64("user_id", c.userID).Msg("Feed subscriber unregistered")
	}
}

// Count returns the number of subscribers
func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish queues the event for every subscriber. A subscriber whose queue is
// full is dropped.
func (h *FeedHub) Publish(event FeedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal feed event")
		return
	}

	var lagging []string
	h.mu.RLock()
	for id, c := range h.conns {
		select {
		case c.send <- data:
		default:
			lagging = append(lagging, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range lagging {
		log.Warn().Str("subscription_id", id).Msg("Feed subscriber is too slow, disconnecting")
		h.Unregister(id)
	}
}

// Close disconnects every subscriber
func (h *FeedHub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*feedConn)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.stop()
	}
}
