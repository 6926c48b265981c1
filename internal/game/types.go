package game

import (
	"time"
)

// GameStatus represents the lifecycle state of a game
type GameStatus string

const (
	StatusWaiting    GameStatus = "waiting"
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
)

// Role is one of the four hidden roles dealt at game start
type Role string

const (
	RoleAssassin  Role = "assassin"
	RoleHealer    Role = "healer"
	RoleDetective Role = "detective"
	RoleVillager  Role = "villager"
)

// IsSpecial reports whether the role must submit an action each round.
// Villagers only cast suspicions.
func (r Role) IsSpecial() bool {
	return r == RoleAssassin || r == RoleHealer || r == RoleDetective
}

// ActionType is the concealed choice a special role submits each round
type ActionType string

const (
	ActionKill        ActionType = "kill"
	ActionHeal        ActionType = "heal"
	ActionInvestigate ActionType = "investigate"
)

// ActionFor returns the action type a role is allowed to submit.
func (r Role) ActionFor() (ActionType, bool) {
	switch r {
	case RoleAssassin:
		return ActionKill, true
	case RoleHealer:
		return ActionHeal, true
	case RoleDetective:
		return ActionInvestigate, true
	}
	return "", false
}

// PlayerStatus is alive or dead; dead never reverts within a game
type PlayerStatus string

const (
	PlayerAlive PlayerStatus = "alive"
	PlayerDead  PlayerStatus = "dead"
)

// Winner identifies the winning faction of a finished game
type Winner string

const (
	WinnerVillagers Winner = "villagers"
	WinnerImpostor  Winner = "impostor"
)

const (
	// MaxPlayers caps how many players may join one game
	MaxPlayers = 10
	// MinPlayers is the minimum required to start a game
	MinPlayers = 3
	// RoundDuration is the fixed wall-clock budget of one round
	RoundDuration = 15 * time.Second
)

// Game is one play session
type Game struct {
	ID            string
	RoomCode      string
	Status        GameStatus
	HostID        string
	CurrentRound  int
	RoundDeadline *time.Time
	LastSummary   string
	Winner        Winner
	CreatedAt     time.Time
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	if g.RoundDeadline != nil {
		d := *g.RoundDeadline
		c.RoundDeadline = &d
	}
	return &c
}

// Player is one participant within exactly one game
type Player struct {
	ID           string
	GameID       string
	Identity     string // stable external caller id
	Name         string
	Avatar       string
	IsHost       bool
	Role         Role // empty while waiting
	Status       PlayerStatus
	ReadyForNext bool
	JoinedAt     time.Time
}

// Clone returns a copy of the player
func (p *Player) Clone() *Player {
	c := *p
	return &c
}

// Action is one concealed choice by a special role for one round.
// At most one exists per (game, round, actor); resubmission overwrites.
type Action struct {
	ID        string
	GameID    string
	Round     int
	ActorID   string
	TargetID  string
	Type      ActionType
	CreatedAt time.Time // first submission time, preserved across upserts
}

// Clone returns a copy of the action
func (a *Action) Clone() *Action {
	c := *a
	return &c
}

// Suspicion is a villager's non-binding opinion for one round.
// Same upsert semantics as Action; never affects resolution directly.
type Suspicion struct {
	ID        string
	GameID    string
	Round     int
	ActorID   string
	TargetID  string
	CreatedAt time.Time
}

// Clone returns a copy of the suspicion
func (s *Suspicion) Clone() *Suspicion {
	c := *s
	return &c
}
