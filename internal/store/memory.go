package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"nightfall/internal/game"
)

// MemoryStore holds all game state in memory. It hands out copies so
// callers never alias live rows; the default store for tests and
// single-node runs.
type MemoryStore struct {
	mu         sync.RWMutex
	games      map[string]*game.Game
	players    map[string]*game.Player
	actions    map[string]*game.Action
	suspicions map[string]*game.Suspicion
	now        func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:      make(map[string]*game.Game),
		players:    make(map[string]*game.Player),
		actions:    make(map[string]*game.Action),
		suspicions: make(map[string]*game.Suspicion),
		now:        time.Now,
	}
}

// SetClock overrides the submission-time clock, for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *MemoryStore) CreateGame(_ context.Context, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.games[g.ID] = g.Clone()
	return nil
}

func (s *MemoryStore) GetGame(_ context.Context, id string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (s *MemoryStore) GetGameByCode(_ context.Context, code string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *game.Game
	for _, g := range s.games {
		if g.RoomCode != code {
			continue
		}
		if latest == nil || g.CreatedAt.After(latest.CreatedAt) {
			latest = g
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest.Clone(), nil
}

func (s *MemoryStore) UpdateGame(_ context.Context, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.ID]; !ok {
		return ErrNotFound
	}
	s.games[g.ID] = g.Clone()
	return nil
}

func (s *MemoryStore) CreatePlayer(_ context.Context, p *game.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) UpdatePlayer(_ context.Context, p *game.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[p.ID]; !ok {
		return ErrNotFound
	}
	s.players[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) GetPlayer(_ context.Context, id string) (*game.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) PlayersByGame(_ context.Context, gameID string) ([]*game.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []*game.Player
	for _, p := range s.players {
		if p.GameID == gameID {
			players = append(players, p.Clone())
		}
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players, nil
}

func (s *MemoryStore) PlayerByIdentity(_ context.Context, gameID, identity string) (*game.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.players {
		if p.GameID == gameID && p.Identity == identity {
			return p.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpsertAction(_ context.Context, a *game.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.actions {
		if existing.GameID == a.GameID && existing.Round == a.Round && existing.ActorID == a.ActorID {
			existing.TargetID = a.TargetID
			existing.Type = a.Type
			*a = *existing
			return nil
		}
	}

	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	s.actions[a.ID] = a.Clone()
	return nil
}

func (s *MemoryStore) ActionsByRound(_ context.Context, gameID string, round int) ([]*game.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var actions []*game.Action
	for _, a := range s.actions {
		if a.GameID == gameID && a.Round == round {
			actions = append(actions, a.Clone())
		}
	}
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].CreatedAt.Before(actions[j].CreatedAt)
	})
	return actions, nil
}

func (s *MemoryStore) UpsertSuspicion(_ context.Context, sp *game.Suspicion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.suspicions {
		if existing.GameID == sp.GameID && existing.Round == sp.Round && existing.ActorID == sp.ActorID {
			existing.TargetID = sp.TargetID
			*sp = *existing
			return nil
		}
	}

	sp.ID = uuid.NewString()
	sp.CreatedAt = s.now()
	s.suspicions[sp.ID] = sp.Clone()
	return nil
}

func (s *MemoryStore) SuspicionsByRound(_ context.Context, gameID string, round int) ([]*game.Suspicion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var suspicions []*game.Suspicion
	for _, sp := range s.suspicions {
		if sp.GameID == gameID && sp.Round == round {
			suspicions = append(suspicions, sp.Clone())
		}
	}
	sort.Slice(suspicions, func(i, j int) bool {
		return suspicions[i].CreatedAt.Before(suspicions[j].CreatedAt)
	})
	return suspicions, nil
}

func (s *MemoryStore) PurgeRoundData(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range s.actions {
		if a.GameID == gameID {
			delete(s.actions, id)
		}
	}
	for id, sp := range s.suspicions {
		if sp.GameID == gameID {
			delete(s.suspicions, id)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
