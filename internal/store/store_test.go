package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"nightfall/internal/game"
)

// clock is a hand-advanced submission-time source shared by both store
// implementations under test.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	c := &clock{t: time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)}

	mem := NewMemoryStore()
	mem.SetClock(c.now)

	sqlite, err := OpenSqlite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	sqlite.SetClock(c.now)

	return map[string]Store{"memory": mem, "sqlite": sqlite}
}

func newGame(code string) *game.Game {
	return &game.Game{
		ID:        uuid.NewString(),
		RoomCode:  code,
		Status:    game.StatusWaiting,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestStore_GameLifecycle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.GetGame(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			g := newGame("ABCD")
			if err := s.CreateGame(ctx, g); err != nil {
				t.Fatalf("create game: %v", err)
			}

			got, err := s.GetGame(ctx, g.ID)
			if err != nil {
				t.Fatalf("get game: %v", err)
			}
			if got.RoomCode != "ABCD" || got.Status != game.StatusWaiting {
				t.Errorf("unexpected game: %+v", got)
			}

			deadline := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
			got.Status = game.StatusInProgress
			got.CurrentRound = 1
			got.RoundDeadline = &deadline
			got.LastSummary = "A quiet night."
			if err := s.UpdateGame(ctx, got); err != nil {
				t.Fatalf("update game: %v", err)
			}

			got, err = s.GetGame(ctx, g.ID)
			if err != nil {
				t.Fatalf("reload game: %v", err)
			}
			if got.RoundDeadline == nil || !got.RoundDeadline.Equal(deadline) {
				t.Errorf("deadline not persisted: %v", got.RoundDeadline)
			}
			if got.CurrentRound != 1 || got.LastSummary == "" {
				t.Errorf("unexpected game after update: %+v", got)
			}
		})
	}
}

func TestStore_GetGameByCode(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.GetGameByCode(ctx, "WXYZ"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			older := newGame("WXYZ")
			older.CreatedAt = older.CreatedAt.Add(-time.Hour)
			newer := newGame("WXYZ")
			if err := s.CreateGame(ctx, older); err != nil {
				t.Fatal(err)
			}
			if err := s.CreateGame(ctx, newer); err != nil {
				t.Fatal(err)
			}

			got, err := s.GetGameByCode(ctx, "WXYZ")
			if err != nil {
				t.Fatalf("get by code: %v", err)
			}
			if got.ID != newer.ID {
				t.Errorf("expected the most recent game for the code, got %s", got.ID)
			}
		})
	}
}

func TestStore_PlayerIdentityIndex(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGame("PQRS")
			if err := s.CreateGame(ctx, g); err != nil {
				t.Fatal(err)
			}

			base := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
			for i, identity := range []string{"token-a", "token-b", "token-c"} {
				p := &game.Player{
					ID:       uuid.NewString(),
					GameID:   g.ID,
					Identity: identity,
					Name:     "Player",
					Status:   game.PlayerAlive,
					JoinedAt: base.Add(time.Duration(i) * time.Minute),
				}
				if err := s.CreatePlayer(ctx, p); err != nil {
					t.Fatalf("create player: %v", err)
				}
			}

			p, err := s.PlayerByIdentity(ctx, g.ID, "token-b")
			if err != nil {
				t.Fatalf("player by identity: %v", err)
			}
			if p.Identity != "token-b" {
				t.Errorf("wrong player resolved: %+v", p)
			}

			if _, err := s.PlayerByIdentity(ctx, g.ID, "token-x"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			players, err := s.PlayersByGame(ctx, g.ID)
			if err != nil {
				t.Fatalf("players by game: %v", err)
			}
			if len(players) != 3 {
				t.Fatalf("expected 3 players, got %d", len(players))
			}
			if players[0].Identity != "token-a" || players[2].Identity != "token-c" {
				t.Errorf("players not ordered by join time: %v", players)
			}
		})
	}
}

func TestStore_ActionUpsertOverwrites(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGame("LMNO")
			if err := s.CreateGame(ctx, g); err != nil {
				t.Fatal(err)
			}

			first := &game.Action{
				GameID: g.ID, Round: 1, ActorID: "actor-1",
				TargetID: "target-1", Type: game.ActionKill,
			}
			if err := s.UpsertAction(ctx, first); err != nil {
				t.Fatalf("upsert: %v", err)
			}
			if first.ID == "" || first.CreatedAt.IsZero() {
				t.Fatal("first upsert must assign id and submission time")
			}

			second := &game.Action{
				GameID: g.ID, Round: 1, ActorID: "actor-1",
				TargetID: "target-2", Type: game.ActionKill,
			}
			if err := s.UpsertAction(ctx, second); err != nil {
				t.Fatalf("re-upsert: %v", err)
			}

			actions, err := s.ActionsByRound(ctx, g.ID, 1)
			if err != nil {
				t.Fatalf("actions by round: %v", err)
			}
			if len(actions) != 1 {
				t.Fatalf("resubmission must overwrite, got %d rows", len(actions))
			}
			if actions[0].TargetID != "target-2" {
				t.Errorf("target not overwritten: %+v", actions[0])
			}
			if !actions[0].CreatedAt.Equal(first.CreatedAt) {
				t.Errorf("submission time must survive the upsert: %v vs %v",
					actions[0].CreatedAt, first.CreatedAt)
			}

			// A different round is a separate row.
			next := &game.Action{
				GameID: g.ID, Round: 2, ActorID: "actor-1",
				TargetID: "target-1", Type: game.ActionKill,
			}
			if err := s.UpsertAction(ctx, next); err != nil {
				t.Fatal(err)
			}
			round2, err := s.ActionsByRound(ctx, g.ID, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(round2) != 1 {
				t.Errorf("expected 1 action in round 2, got %d", len(round2))
			}
		})
	}
}

func TestStore_SuspicionUpsertOverwrites(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGame("QRST")
			if err := s.CreateGame(ctx, g); err != nil {
				t.Fatal(err)
			}

			for _, target := range []string{"t1", "t2", "t3"} {
				sp := &game.Suspicion{GameID: g.ID, Round: 1, ActorID: "villager-1", TargetID: target}
				if err := s.UpsertSuspicion(ctx, sp); err != nil {
					t.Fatalf("upsert suspicion: %v", err)
				}
			}

			suspicions, err := s.SuspicionsByRound(ctx, g.ID, 1)
			if err != nil {
				t.Fatal(err)
			}
			if len(suspicions) != 1 {
				t.Fatalf("expected 1 suspicion, got %d", len(suspicions))
			}
			if suspicions[0].TargetID != "t3" {
				t.Errorf("last write should win, got %s", suspicions[0].TargetID)
			}
		})
	}
}

func TestStore_PurgeRoundData(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGame("UVWX")
			other := newGame("YZAB")
			if err := s.CreateGame(ctx, g); err != nil {
				t.Fatal(err)
			}
			if err := s.CreateGame(ctx, other); err != nil {
				t.Fatal(err)
			}

			for round := 1; round <= 3; round++ {
				a := &game.Action{GameID: g.ID, Round: round, ActorID: "a1", TargetID: "t", Type: game.ActionKill}
				if err := s.UpsertAction(ctx, a); err != nil {
					t.Fatal(err)
				}
				sp := &game.Suspicion{GameID: g.ID, Round: round, ActorID: "v1", TargetID: "t"}
				if err := s.UpsertSuspicion(ctx, sp); err != nil {
					t.Fatal(err)
				}
			}
			keep := &game.Action{GameID: other.ID, Round: 1, ActorID: "a2", TargetID: "t", Type: game.ActionKill}
			if err := s.UpsertAction(ctx, keep); err != nil {
				t.Fatal(err)
			}

			if err := s.PurgeRoundData(ctx, g.ID); err != nil {
				t.Fatalf("purge: %v", err)
			}

			for round := 1; round <= 3; round++ {
				actions, _ := s.ActionsByRound(ctx, g.ID, round)
				suspicions, _ := s.SuspicionsByRound(ctx, g.ID, round)
				if len(actions) != 0 || len(suspicions) != 0 {
					t.Errorf("round %d not purged: %d actions, %d suspicions",
						round, len(actions), len(suspicions))
				}
			}

			kept, _ := s.ActionsByRound(ctx, other.ID, 1)
			if len(kept) != 1 {
				t.Error("purge must not touch other games")
			}
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	g := newGame("COPY")
	if err := s.CreateGame(ctx, g); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetGame(ctx, g.ID)
	got.Status = game.StatusFinished

	reread, _ := s.GetGame(ctx, g.ID)
	if reread.Status != game.StatusWaiting {
		t.Error("mutating a returned game must not affect the stored row")
	}
}
