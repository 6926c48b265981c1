package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	datastar "github.com/starfederation/datastar-go/datastar"
)

// StreamGame pushes the caller's read model as datastar signals: once on
// connect, then on every change to the game, plus a periodic heartbeat
// so proxies don't reap the connection.
func (h *Handler) StreamGame(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	view, err := h.gw.View(r.Context(), identity, gameID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	sse := datastar.NewSSE(w, r)

	events := h.events.Subscribe(gameID)
	defer h.events.Unsubscribe(gameID, events)

	if err := sse.MarshalAndPatchSignals(map[string]interface{}{"game": view}); err != nil {
		h.log.Error("initial signal push failed", "game", gameID, "error", err)
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := sse.Send("keepalive", []string{fmt.Sprintf(`{"time":%q}`, time.Now().Format(time.RFC3339))}); err != nil {
				return
			}
		case _, ok := <-events:
			if !ok {
				return
			}
			view, err := h.gw.View(r.Context(), identity, gameID)
			if err != nil {
				h.log.Error("read model refresh failed", "game", gameID, "error", err)
				return
			}
			if err := sse.MarshalAndPatchSignals(map[string]interface{}{"game": view}); err != nil {
				return
			}
		}
	}
}
