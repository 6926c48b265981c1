package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nightfall/internal/game"
	"nightfall/internal/scheduler"
	"nightfall/internal/store"
)

// Notifier is told whenever a game's durable state changed, so the
// transport can push fresh read models. A nil notifier is allowed.
type Notifier interface {
	Notify(gameID string)
}

// Gateway validates caller requests, applies them to the store and
// drives round resolution. Every mutating operation on one game runs
// inside that game's critical section; cross-game operations never
// contend.
type Gateway struct {
	store    store.Store
	sched    scheduler.Scheduler
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option customizes a Gateway
type Option func(*Gateway)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithRand overrides the randomness source, for tests.
func WithRand(rng *rand.Rand) Option {
	return func(g *Gateway) { g.rng = rng }
}

// WithLogger sets the gateway's logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) { g.log = log }
}

type noopNotifier struct{}

func (noopNotifier) Notify(string) {}

// New creates a gateway over the given store and scheduler
func New(st store.Store, sched scheduler.Scheduler, notifier Notifier, opts ...Option) *Gateway {
	g := &Gateway{
		store:    st,
		sched:    sched,
		notifier: notifier,
		log:      slog.With("component", "gateway"),
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		locks:    make(map[string]*sync.Mutex),
	}
	if g.notifier == nil {
		g.notifier = noopNotifier{}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// lockGame enters the game's critical section and returns the unlock.
func (g *Gateway) lockGame(gameID string) func() {
	g.locksMu.Lock()
	l, ok := g.locks[gameID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[gameID] = l
	}
	g.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (g *Gateway) withRand(fn func(rng *rand.Rand)) {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	fn(g.rng)
}

// CreateGame creates a waiting game with the caller as its host.
func (g *Gateway) CreateGame(ctx context.Context, identity, name, avatar string) (*game.Game, *game.Player, error) {
	if identity == "" {
		return nil, nil, game.ErrNotAuthenticated
	}
	if name == "" {
		name = "Player"
	}

	code, err := g.freshRoomCode(ctx)
	if err != nil {
		return nil, nil, err
	}

	gm := &game.Game{
		ID:        uuid.NewString(),
		RoomCode:  code,
		Status:    game.StatusWaiting,
		CreatedAt: g.now(),
	}
	host := &game.Player{
		ID:           uuid.NewString(),
		GameID:       gm.ID,
		Identity:     identity,
		Name:         name,
		Avatar:       avatar,
		IsHost:       true,
		Status:       game.PlayerAlive,
		ReadyForNext: true,
		JoinedAt:     g.now(),
	}
	gm.HostID = host.ID

	if err := g.store.CreateGame(ctx, gm); err != nil {
		return nil, nil, fmt.Errorf("create game: %w", err)
	}
	if err := g.store.CreatePlayer(ctx, host); err != nil {
		return nil, nil, fmt.Errorf("create host player: %w", err)
	}

	g.log.Info("game created", "game", gm.ID, "code", gm.RoomCode)
	return gm, host, nil
}

// freshRoomCode draws codes until one is not held by a joinable game.
func (g *Gateway) freshRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < 10; i++ {
		var code string
		g.withRand(func(rng *rand.Rand) {
			code = game.NewRoomCode(rng)
		})
		existing, err := g.store.GetGameByCode(ctx, code)
		if err == store.ErrNotFound {
			return code, nil
		}
		if err != nil {
			return "", err
		}
		if existing.Status == game.StatusFinished {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique room code")
}

// JoinGame adds the caller to a waiting game by room code. Re-joining an
// identity already in the game is idempotent and works in any status.
func (g *Gateway) JoinGame(ctx context.Context, identity, code, name, avatar string) (*game.Game, *game.Player, error) {
	if identity == "" {
		return nil, nil, game.ErrNotAuthenticated
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	gm, err := g.store.GetGameByCode(ctx, code)
	if err == store.ErrNotFound {
		return nil, nil, fmt.Errorf("room %s: %w", code, game.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	unlock := g.lockGame(gm.ID)
	defer unlock()

	if existing, err := g.store.PlayerByIdentity(ctx, gm.ID, identity); err == nil {
		return gm, existing, nil
	} else if err != store.ErrNotFound {
		return nil, nil, err
	}

	if gm.Status != game.StatusWaiting {
		return nil, nil, fmt.Errorf("game already started: %w", game.ErrPreconditionFailed)
	}

	players, err := g.store.PlayersByGame(ctx, gm.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(players) >= game.MaxPlayers {
		return nil, nil, fmt.Errorf("room is full (max %d players): %w", game.MaxPlayers, game.ErrPreconditionFailed)
	}

	if name == "" {
		name = "Player"
	}
	p := &game.Player{
		ID:           uuid.NewString(),
		GameID:       gm.ID,
		Identity:     identity,
		Name:         name,
		Avatar:       avatar,
		Status:       game.PlayerAlive,
		ReadyForNext: true, // ready by default on a first-time join
		JoinedAt:     g.now(),
	}
	if err := g.store.CreatePlayer(ctx, p); err != nil {
		return nil, nil, err
	}

	g.notifier.Notify(gm.ID)
	return gm, p, nil
}

// StartGame deals roles and opens round 1. Host only; needs at least
// three players, all of them ready.
func (g *Gateway) StartGame(ctx context.Context, identity, gameID string) error {
	unlock := g.lockGame(gameID)
	defer unlock()

	gm, caller, err := g.callerInGame(ctx, identity, gameID)
	if err != nil {
		return err
	}
	if !caller.IsHost {
		return game.ErrForbidden
	}
	if gm.Status != game.StatusWaiting {
		return fmt.Errorf("game already started: %w", game.ErrPreconditionFailed)
	}

	players, err := g.store.PlayersByGame(ctx, gameID)
	if err != nil {
		return err
	}
	if len(players) < game.MinPlayers {
		return fmt.Errorf("need at least %d players: %w", game.MinPlayers, game.ErrPreconditionFailed)
	}
	for _, p := range players {
		if !p.ReadyForNext {
			return fmt.Errorf("waiting for everyone to accept the next game: %w", game.ErrPreconditionFailed)
		}
	}

	g.withRand(func(rng *rand.Rand) {
		game.AssignRoles(players, rng)
	})
	for _, p := range players {
		if err := g.store.UpdatePlayer(ctx, p); err != nil {
			return err
		}
	}

	deadline := g.now().Add(game.RoundDuration)
	gm.Status = game.StatusInProgress
	gm.CurrentRound = 1
	gm.RoundDeadline = &deadline
	gm.LastSummary = ""
	gm.Winner = ""
	if err := g.store.UpdateGame(ctx, gm); err != nil {
		return err
	}

	g.armRound(gameID, 1, deadline)
	g.notifier.Notify(gameID)
	g.log.Info("game started", "game", gameID, "players", len(players))
	return nil
}

// SubmitAction upserts the caller's concealed action for the current
// round and resolves early once every alive special role has acted.
func (g *Gateway) SubmitAction(ctx context.Context, identity, gameID, targetID string, actionType game.ActionType) error {
	unlock := g.lockGame(gameID)
	defer unlock()

	gm, caller, err := g.callerInGame(ctx, identity, gameID)
	if err != nil {
		return err
	}
	if gm.Status != game.StatusInProgress {
		return game.ErrGameNotActive
	}
	if caller.Status != game.PlayerAlive {
		return fmt.Errorf("dead players cannot act: %w", game.ErrInvalidPlayer)
	}
	allowed, ok := caller.Role.ActionFor()
	if !ok || allowed != actionType {
		return fmt.Errorf("role %s cannot %s: %w", caller.Role, actionType, game.ErrInvalidPlayer)
	}
	if _, err := g.playerInGame(ctx, gameID, targetID); err != nil {
		return err
	}

	action := &game.Action{
		GameID:   gameID,
		Round:    gm.CurrentRound,
		ActorID:  caller.ID,
		TargetID: targetID,
		Type:     actionType,
	}
	if err := g.store.UpsertAction(ctx, action); err != nil {
		return err
	}
	g.notifier.Notify(gameID)

	done, err := g.allSpecialsActed(ctx, gm)
	if err != nil {
		return err
	}
	if done {
		return g.resolveLocked(ctx, gm.ID, gm.CurrentRound)
	}
	return nil
}

// CastSuspicion upserts a villager's non-binding suspicion for the
// current round. Never triggers resolution.
func (g *Gateway) CastSuspicion(ctx context.Context, identity, gameID, targetID string) error {
	unlock := g.lockGame(gameID)
	defer unlock()

	gm, caller, err := g.callerInGame(ctx, identity, gameID)
	if err != nil {
		return err
	}
	if gm.Status != game.StatusInProgress {
		return game.ErrGameNotActive
	}
	if caller.Status != game.PlayerAlive || caller.Role != game.RoleVillager {
		return fmt.Errorf("only alive villagers cast suspicions: %w", game.ErrInvalidPlayer)
	}
	if _, err := g.playerInGame(ctx, gameID, targetID); err != nil {
		return err
	}

	suspicion := &game.Suspicion{
		GameID:   gameID,
		Round:    gm.CurrentRound,
		ActorID:  caller.ID,
		TargetID: targetID,
	}
	if err := g.store.UpsertSuspicion(ctx, suspicion); err != nil {
		return err
	}
	g.notifier.Notify(gameID)
	return nil
}

// ForceEndRound resolves the current round right now. Host only; runs
// through the same guard as the deadline path.
func (g *Gateway) ForceEndRound(ctx context.Context, identity, gameID string) error {
	unlock := g.lockGame(gameID)
	defer unlock()

	gm, caller, err := g.callerInGame(ctx, identity, gameID)
	if err != nil {
		return err
	}
	if !caller.IsHost {
		return game.ErrForbidden
	}
	if gm.Status != game.StatusInProgress {
		return game.ErrGameNotActive
	}
	return g.resolveLocked(ctx, gm.ID, gm.CurrentRound)
}

// RestartGame returns a finished game to the waiting lobby: roles
// cleared, everyone alive, round zero, all actions and suspicions
// purged. Host only.
func (g *Gateway) RestartGame(ctx context.Context, identity, gameID string) error {
	unlock := g.lockGame(gameID)
	defer unlock()

	gm, caller, err := g.callerInGame(ctx, identity, gameID)
	if err != nil {
		return err
	}
	if !caller.IsHost {
		return game.ErrForbidden
	}

	gm.Status = game.StatusWaiting
	gm.CurrentRound = 0
	gm.RoundDeadline = nil
	gm.LastSummary = ""
	gm.Winner = ""
	if err := g.store.UpdateGame(ctx, gm); err != nil {
		return err
	}

	players, err := g.store.PlayersByGame(ctx, gameID)
	if err != nil {
		return err
	}
	for _, p := range players {
		p.Role = ""
		p.Status = game.PlayerAlive
		p.ReadyForNext = p.IsHost // host is ready by default
		if err := g.store.UpdatePlayer(ctx, p); err != nil {
			return err
		}
	}

	if err := g.store.PurgeRoundData(ctx, gameID); err != nil {
		return err
	}

	g.notifier.Notify(gameID)
	g.log.Info("game restarted", "game", gameID)
	return nil
}

// AcceptNextGame marks the caller ready for the play-again handshake.
func (g *Gateway) AcceptNextGame(ctx context.Context, identity, gameID string) error {
	unlock := g.lockGame(gameID)
	defer unlock()

	_, caller, err := g.callerInGame(ctx, identity, gameID)
	if err != nil {
		return err
	}
	caller.ReadyForNext = true
	if err := g.store.UpdatePlayer(ctx, caller); err != nil {
		return err
	}
	g.notifier.Notify(gameID)
	return nil
}

// callerInGame loads the game and resolves the authenticated caller to
// their player row within it.
func (g *Gateway) callerInGame(ctx context.Context, identity, gameID string) (*game.Game, *game.Player, error) {
	if identity == "" {
		return nil, nil, game.ErrNotAuthenticated
	}
	gm, err := g.store.GetGame(ctx, gameID)
	if err == store.ErrNotFound {
		return nil, nil, fmt.Errorf("game %s: %w", gameID, game.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	caller, err := g.store.PlayerByIdentity(ctx, gameID, identity)
	if err == store.ErrNotFound {
		return nil, nil, fmt.Errorf("caller is not in this game: %w", game.ErrInvalidPlayer)
	}
	if err != nil {
		return nil, nil, err
	}
	return gm, caller, nil
}

// playerInGame checks that the target id names a player of this game.
func (g *Gateway) playerInGame(ctx context.Context, gameID, playerID string) (*game.Player, error) {
	p, err := g.store.GetPlayer(ctx, playerID)
	if err == store.ErrNotFound {
		return nil, fmt.Errorf("target player: %w", game.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if p.GameID != gameID {
		return nil, fmt.Errorf("target player: %w", game.ErrNotFound)
	}
	return p, nil
}

// allSpecialsActed reports whether every alive special role has an
// action row for the current round.
func (g *Gateway) allSpecialsActed(ctx context.Context, gm *game.Game) (bool, error) {
	players, err := g.store.PlayersByGame(ctx, gm.ID)
	if err != nil {
		return false, err
	}
	required := 0
	for _, p := range players {
		if p.Status == game.PlayerAlive && p.Role.IsSpecial() {
			required++
		}
	}

	actions, err := g.store.ActionsByRound(ctx, gm.ID, gm.CurrentRound)
	if err != nil {
		return false, err
	}
	actors := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		actors[a.ActorID] = struct{}{}
	}
	return required > 0 && len(actors) >= required, nil
}

// armRound schedules the deadline callback for (gameID, round).
func (g *Gateway) armRound(gameID string, round int, deadline time.Time) {
	g.sched.ScheduleAt(deadline, func() {
		g.deadlineFired(gameID, round)
	})
}

// deadlineFired is the scheduler callback. It re-reads the game inside
// the critical section; if the round already resolved early the callback
// is stale and no-ops.
func (g *Gateway) deadlineFired(gameID string, round int) {
	ctx := context.Background()

	unlock := g.lockGame(gameID)
	defer unlock()

	if err := g.resolveLocked(ctx, gameID, round); err != nil {
		g.log.Error("deadline resolution failed", "game", gameID, "round", round, "error", err)
	}
}

// resolveLocked resolves the given round. Caller must hold the game's
// lock. A stale round (already resolved, or game no longer in progress)
// is a silent no-op; that guard is the sole defense against the
// submit-path and deadline-path racing for the same round.
func (g *Gateway) resolveLocked(ctx context.Context, gameID string, round int) error {
	gm, err := g.store.GetGame(ctx, gameID)
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if gm.Status != game.StatusInProgress || gm.CurrentRound != round {
		return nil
	}

	players, err := g.store.PlayersByGame(ctx, gameID)
	if err != nil {
		return err
	}
	actions, err := g.store.ActionsByRound(ctx, gameID, round)
	if err != nil {
		return err
	}

	var out game.Outcome
	g.withRand(func(rng *rand.Rand) {
		out = game.ResolveRound(players, actions, rng)
	})

	if out.VictimID != "" {
		for _, p := range players {
			if p.ID == out.VictimID {
				p.Status = game.PlayerDead
				if err := g.store.UpdatePlayer(ctx, p); err != nil {
					return err
				}
				break
			}
		}
	}

	gm.LastSummary = out.Summary
	if out.Finished {
		gm.Status = game.StatusFinished
		gm.Winner = out.Winner
		gm.RoundDeadline = nil
		if err := g.store.UpdateGame(ctx, gm); err != nil {
			return err
		}
		g.log.Info("game finished", "game", gameID, "round", round, "winner", out.Winner)
	} else {
		deadline := g.now().Add(game.RoundDuration)
		gm.CurrentRound = round + 1
		gm.RoundDeadline = &deadline
		if err := g.store.UpdateGame(ctx, gm); err != nil {
			return err
		}
		g.armRound(gameID, gm.CurrentRound, deadline)
		g.log.Info("round resolved", "game", gameID, "round", round, "next_round", gm.CurrentRound)
	}

	g.notifier.Notify(gameID)
	return nil
}
