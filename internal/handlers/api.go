package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nightfall/internal/game"
)

type createGameRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type createGameResponse struct {
	GameID   string `json:"gameId"`
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

// CreateGame creates a waiting game with the caller as host
func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)

	var req createGameRequest
	decodeOptional(r, &req)

	gm, host, err := h.gw.CreateGame(r.Context(), identity, req.Name, req.Avatar)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, createGameResponse{
		GameID:   gm.ID,
		RoomCode: gm.RoomCode,
		PlayerID: host.ID,
	})
}

type joinGameRequest struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type joinGameResponse struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// JoinGame joins a waiting game by room code; idempotent per identity
func (h *Handler) JoinGame(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)

	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	gm, p, err := h.gw.JoinGame(r.Context(), identity, req.Code, req.Name, req.Avatar)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, joinGameResponse{GameID: gm.ID, PlayerID: p.ID})
}

// GameView returns the caller's read model of the game
func (h *Handler) GameView(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	view, err := h.gw.View(r.Context(), identity, gameID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// StartGame deals roles and opens round 1 (host only)
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	if err := h.gw.StartGame(r.Context(), identity, gameID); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK())
}

type submitActionRequest struct {
	TargetID   string          `json:"targetId"`
	ActionType game.ActionType `json:"actionType"`
}

// SubmitAction records the caller's concealed action for this round
func (h *Handler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	var req submitActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	switch req.ActionType {
	case game.ActionKill, game.ActionHeal, game.ActionInvestigate:
	default:
		http.Error(w, "unknown action type", http.StatusBadRequest)
		return
	}

	if err := h.gw.SubmitAction(r.Context(), identity, gameID, req.TargetID, req.ActionType); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK())
}

type castSuspicionRequest struct {
	TargetID string `json:"targetId"`
}

// CastSuspicion records a villager's suspicion for this round
func (h *Handler) CastSuspicion(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	var req castSuspicionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.gw.CastSuspicion(r.Context(), identity, gameID, req.TargetID); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK())
}

// ForceEndRound resolves the current round immediately (host only)
func (h *Handler) ForceEndRound(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	if err := h.gw.ForceEndRound(r.Context(), identity, gameID); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK())
}

// RestartGame resets a finished game back to the lobby (host only)
func (h *Handler) RestartGame(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	if err := h.gw.RestartGame(r.Context(), identity, gameID); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK())
}

// AcceptNextGame marks the caller ready for the next game
func (h *Handler) AcceptNextGame(w http.ResponseWriter, r *http.Request) {
	identity := getOrCreateSession(w, r)
	gameID := chi.URLParam(r, "id")

	if err := h.gw.AcceptNextGame(r.Context(), identity, gameID); err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusOK())
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps the error taxonomy onto HTTP status codes.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrInvalidPlayer), errors.Is(err, game.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrGameNotActive):
		status = http.StatusConflict
	case errors.Is(err, game.ErrPreconditionFailed):
		status = http.StatusUnprocessableEntity
	default:
		h.log.Error("request failed", "error", err)
		respondJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func statusOK() map[string]string {
	return map[string]string{"status": "ok"}
}

// decodeOptional fills req from the body when one is present; an empty
// or absent body is fine.
func decodeOptional(r *http.Request, req interface{}) {
	if r.Body == nil {
		return
	}
	_ = json.NewDecoder(r.Body).Decode(req)
}
