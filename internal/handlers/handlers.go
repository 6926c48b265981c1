package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"

	"nightfall/internal/config"
	"nightfall/internal/gateway"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	gw     *gateway.Gateway
	events *EventBus
	cfg    *config.ServerConfig
	log    *slog.Logger
}

// New creates a new handler. The event bus must be the same one the
// gateway notifies.
func New(gw *gateway.Gateway, events *EventBus, cfg *config.ServerConfig) *Handler {
	return &Handler{
		gw:     gw,
		events: events,
		cfg:    cfg,
		log:    slog.With("component", "http"),
	}
}

// EventBus fans out "game changed" pings to SSE subscribers. It
// implements gateway.Notifier.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan struct{}
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan struct{}),
	}
}

// Subscribe subscribes to change pings for a game
func (eb *EventBus) Subscribe(gameID string) chan struct{} {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan struct{}, 1)
	eb.subscribers[gameID] = append(eb.subscribers[gameID], ch)
	return ch
}

// Unsubscribe removes a subscription
func (eb *EventBus) Unsubscribe(gameID string, ch chan struct{}) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[gameID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[gameID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
}

// Notify pings every subscriber of the game. A subscriber with a ping
// already queued is skipped; one pending ping is enough to trigger a
// fresh read.
func (eb *EventBus) Notify(gameID string) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[gameID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// getOrCreateSession returns the caller's identity, minting a session
// cookie on first contact. This stands in for the external identity
// provider: downstream code only ever sees the opaque identity string.
func getOrCreateSession(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie("session")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	b := make([]byte, 16)
	rand.Read(b)
	sessionID := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7, // 7 days
	})

	return sessionID
}
