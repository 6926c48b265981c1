package gateway

import (
	"context"
	"time"

	"nightfall/internal/game"
)

// PlayerView is one player as a given viewer is allowed to see them.
// Roles stay hidden until the game finishes, except the viewer's own.
type PlayerView struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Avatar       string            `json:"avatar,omitempty"`
	IsHost       bool              `json:"isHost"`
	Status       game.PlayerStatus `json:"status"`
	ReadyForNext bool              `json:"readyForNext"`
	Role         game.Role         `json:"role,omitempty"`
}

// View is the read model pushed to one viewer: the game, their own
// player id and role, the player list, and — for the detective — the
// current round's villager suspicion tallies.
type View struct {
	GameID        string          `json:"gameId"`
	RoomCode      string          `json:"roomCode"`
	Status        game.GameStatus `json:"status"`
	CurrentRound  int             `json:"currentRound"`
	RoundDeadline *time.Time      `json:"roundDeadline,omitempty"`
	LastSummary   string          `json:"lastSummary,omitempty"`
	Winner        game.Winner     `json:"winner,omitempty"`
	ViewerID      string          `json:"viewerId"`
	ViewerRole    game.Role       `json:"viewerRole,omitempty"`
	Players       []PlayerView    `json:"players"`
	Suspicions    map[string]int  `json:"suspicions,omitempty"`
}

// View builds the caller's read model for a game.
func (g *Gateway) View(ctx context.Context, identity, gameID string) (*View, error) {
	unlock := g.lockGame(gameID)
	defer unlock()

	gm, caller, err := g.callerInGame(ctx, identity, gameID)
	if err != nil {
		return nil, err
	}
	players, err := g.store.PlayersByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	v := &View{
		GameID:        gm.ID,
		RoomCode:      gm.RoomCode,
		Status:        gm.Status,
		CurrentRound:  gm.CurrentRound,
		RoundDeadline: gm.RoundDeadline,
		LastSummary:   gm.LastSummary,
		Winner:        gm.Winner,
		ViewerID:      caller.ID,
		ViewerRole:    caller.Role,
	}

	for _, p := range players {
		pv := PlayerView{
			ID:           p.ID,
			Name:         p.Name,
			Avatar:       p.Avatar,
			IsHost:       p.IsHost,
			Status:       p.Status,
			ReadyForNext: p.ReadyForNext,
		}
		if p.ID == caller.ID || gm.Status == game.StatusFinished {
			pv.Role = p.Role
		}
		v.Players = append(v.Players, pv)
	}

	// Villager consensus is a hint for the detective's eyes only.
	if caller.Role == game.RoleDetective && gm.Status == game.StatusInProgress {
		suspicions, err := g.store.SuspicionsByRound(ctx, gameID, gm.CurrentRound)
		if err != nil {
			return nil, err
		}
		if len(suspicions) > 0 {
			v.Suspicions = make(map[string]int, len(suspicions))
			for _, s := range suspicions {
				v.Suspicions[s.TargetID]++
			}
		}
	}

	return v, nil
}
