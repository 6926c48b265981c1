package store

import (
	"context"
	"errors"

	"nightfall/internal/game"
)

// ErrNotFound is returned by lookups that resolve to nothing.
var ErrNotFound = errors.New("not found")

// Store is the durable representation of games, players, actions and
// suspicions. Pure data access, no game policy: validation, win logic and
// the per-game critical section live above it in the gateway.
//
// Upserts are keyed by (game, round, actor); the first insert assigns an
// id and records the submission time, later upserts only move the target.
type Store interface {
	CreateGame(ctx context.Context, g *game.Game) error
	GetGame(ctx context.Context, id string) (*game.Game, error)
	// GetGameByCode resolves a room code to the most recently created
	// game using it; codes are only unique among joinable games.
	GetGameByCode(ctx context.Context, code string) (*game.Game, error)
	UpdateGame(ctx context.Context, g *game.Game) error

	CreatePlayer(ctx context.Context, p *game.Player) error
	UpdatePlayer(ctx context.Context, p *game.Player) error
	GetPlayer(ctx context.Context, id string) (*game.Player, error)
	// PlayersByGame returns the game's players ordered by join time.
	PlayersByGame(ctx context.Context, gameID string) ([]*game.Player, error)
	// PlayerByIdentity maps an authenticated caller back to their player
	// row within one game.
	PlayerByIdentity(ctx context.Context, gameID, identity string) (*game.Player, error)

	UpsertAction(ctx context.Context, a *game.Action) error
	ActionsByRound(ctx context.Context, gameID string, round int) ([]*game.Action, error)

	UpsertSuspicion(ctx context.Context, s *game.Suspicion) error
	SuspicionsByRound(ctx context.Context, gameID string, round int) ([]*game.Suspicion, error)

	// PurgeRoundData removes every action and suspicion of the game,
	// used by the full restart transition.
	PurgeRoundData(ctx context.Context, gameID string) error

	Close() error
}
