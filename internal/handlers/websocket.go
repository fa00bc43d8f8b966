package handlers

import (
	"net/http"
	"time"

	"social-posts-backend/internal/middleware"
	"social-posts-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const feedReadLimit = 512

// FeedHandler upgrades authenticated clients to the live post feed
type FeedHandler struct {
	hub      *services.FeedHub
	tokens   middleware.TokenVerifier
	upgrader websocket.Upgrader
}

// NewFeedHandler creates a feed handler. origins lists the allowed Origin
// headers; "*" allows any.
func NewFeedHandler(hub *services.FeedHub, tokens middleware.TokenVerifier, origins []string) *FeedHandler {
	return &FeedHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(origins),
		},
	}
}

// Subscribe handles GET /ws/posts
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r)
	}
	if token == "" {
		respondError(w, middleware.MsgNoToken, http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.Verify(token)
	if err != nil {
		respondError(w, middleware.MsgInvalidToken, http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	// The server's read timeout still applies to the hijacked connection.
	_ = conn.SetReadDeadline(time.Time{})
	conn.SetReadLimit(feedReadLimit)

	id := h.hub.Register(claims.ID, conn)
	defer h.hub.Unregister(id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Int64("user_id", claims.ID).Msg("WebSocket error")
			}
			return
		}
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
