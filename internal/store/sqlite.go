package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"nightfall/internal/game"
)

var schema = `CREATE TABLE IF NOT EXISTS games (
  id TEXT PRIMARY KEY,
  room_code TEXT NOT NULL,
  status TEXT NOT NULL,
  host_id TEXT NOT NULL DEFAULT '',
  current_round INTEGER NOT NULL DEFAULT 0,
  round_deadline INTEGER,
  last_summary TEXT NOT NULL DEFAULT '',
  winner TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_games_room_code ON games(room_code);

CREATE TABLE IF NOT EXISTS players (
  id TEXT PRIMARY KEY,
  game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
  identity TEXT NOT NULL,
  name TEXT NOT NULL,
  avatar TEXT NOT NULL DEFAULT '',
  is_host BOOLEAN NOT NULL DEFAULT 0,
  role TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  ready_for_next BOOLEAN NOT NULL DEFAULT 0,
  joined_at INTEGER NOT NULL,
  CONSTRAINT unq_game_identity UNIQUE (game_id, identity)
);
CREATE INDEX IF NOT EXISTS idx_players_game ON players(game_id);

CREATE TABLE IF NOT EXISTS actions (
  id TEXT PRIMARY KEY,
  game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
  round INTEGER NOT NULL,
  actor_id TEXT NOT NULL,
  target_id TEXT NOT NULL,
  action_type TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  CONSTRAINT unq_action_actor UNIQUE (game_id, round, actor_id)
);
CREATE INDEX IF NOT EXISTS idx_actions_game_round ON actions(game_id, round);

CREATE TABLE IF NOT EXISTS suspicions (
  id TEXT PRIMARY KEY,
  game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
  round INTEGER NOT NULL,
  actor_id TEXT NOT NULL,
  target_id TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  CONSTRAINT unq_suspicion_actor UNIQUE (game_id, round, actor_id)
);
CREATE INDEX IF NOT EXISTS idx_suspicions_game_round ON suspicions(game_id, round);`

// SqliteStore persists game state in sqlite via sqlx. All timestamps are
// stored as unix milliseconds.
type SqliteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenSqlite connects to the sqlite database at dsn and bootstraps the
// schema.
func OpenSqlite(dsn string) (*SqliteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &SqliteStore{db: db, now: time.Now}, nil
}

// SetClock overrides the submission-time clock, for tests.
func (s *SqliteStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

type gameRow struct {
	ID            string        `db:"id"`
	RoomCode      string        `db:"room_code"`
	Status        string        `db:"status"`
	HostID        string        `db:"host_id"`
	CurrentRound  int           `db:"current_round"`
	RoundDeadline sql.NullInt64 `db:"round_deadline"`
	LastSummary   string        `db:"last_summary"`
	Winner        string        `db:"winner"`
	CreatedAt     int64         `db:"created_at"`
}

func (r gameRow) toGame() *game.Game {
	g := &game.Game{
		ID:           r.ID,
		RoomCode:     r.RoomCode,
		Status:       game.GameStatus(r.Status),
		HostID:       r.HostID,
		CurrentRound: r.CurrentRound,
		LastSummary:  r.LastSummary,
		Winner:       game.Winner(r.Winner),
		CreatedAt:    fromMillis(r.CreatedAt),
	}
	if r.RoundDeadline.Valid {
		d := fromMillis(r.RoundDeadline.Int64)
		g.RoundDeadline = &d
	}
	return g
}

func gameArgs(g *game.Game) map[string]interface{} {
	var deadline sql.NullInt64
	if g.RoundDeadline != nil {
		deadline = sql.NullInt64{Int64: toMillis(*g.RoundDeadline), Valid: true}
	}
	return map[string]interface{}{
		"id":             g.ID,
		"room_code":      g.RoomCode,
		"status":         string(g.Status),
		"host_id":        g.HostID,
		"current_round":  g.CurrentRound,
		"round_deadline": deadline,
		"last_summary":   g.LastSummary,
		"winner":         string(g.Winner),
		"created_at":     toMillis(g.CreatedAt),
	}
}

func (s *SqliteStore) CreateGame(ctx context.Context, g *game.Game) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO games
		(id, room_code, status, host_id, current_round, round_deadline, last_summary, winner, created_at)
		VALUES (:id, :room_code, :status, :host_id, :current_round, :round_deadline, :last_summary, :winner, :created_at)`,
		gameArgs(g))
	return err
}

func (s *SqliteStore) GetGame(ctx context.Context, id string) (*game.Game, error) {
	var row gameRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM games WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toGame(), nil
}

func (s *SqliteStore) GetGameByCode(ctx context.Context, code string) (*game.Game, error) {
	var row gameRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM games WHERE room_code = ? ORDER BY created_at DESC LIMIT 1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toGame(), nil
}

func (s *SqliteStore) UpdateGame(ctx context.Context, g *game.Game) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE games SET
		room_code = :room_code, status = :status, host_id = :host_id,
		current_round = :current_round, round_deadline = :round_deadline,
		last_summary = :last_summary, winner = :winner
		WHERE id = :id`, gameArgs(g))
	if err != nil {
		return err
	}
	return requireRow(res)
}

type playerRow struct {
	ID           string `db:"id"`
	GameID       string `db:"game_id"`
	Identity     string `db:"identity"`
	Name         string `db:"name"`
	Avatar       string `db:"avatar"`
	IsHost       bool   `db:"is_host"`
	Role         string `db:"role"`
	Status       string `db:"status"`
	ReadyForNext bool   `db:"ready_for_next"`
	JoinedAt     int64  `db:"joined_at"`
}

func (r playerRow) toPlayer() *game.Player {
	return &game.Player{
		ID:           r.ID,
		GameID:       r.GameID,
		Identity:     r.Identity,
		Name:         r.Name,
		Avatar:       r.Avatar,
		IsHost:       r.IsHost,
		Role:         game.Role(r.Role),
		Status:       game.PlayerStatus(r.Status),
		ReadyForNext: r.ReadyForNext,
		JoinedAt:     fromMillis(r.JoinedAt),
	}
}

func playerArgs(p *game.Player) map[string]interface{} {
	return map[string]interface{}{
		"id":             p.ID,
		"game_id":        p.GameID,
		"identity":       p.Identity,
		"name":           p.Name,
		"avatar":         p.Avatar,
		"is_host":        p.IsHost,
		"role":           string(p.Role),
		"status":         string(p.Status),
		"ready_for_next": p.ReadyForNext,
		"joined_at":      toMillis(p.JoinedAt),
	}
}

func (s *SqliteStore) CreatePlayer(ctx context.Context, p *game.Player) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO players
		(id, game_id, identity, name, avatar, is_host, role, status, ready_for_next, joined_at)
		VALUES (:id, :game_id, :identity, :name, :avatar, :is_host, :role, :status, :ready_for_next, :joined_at)`,
		playerArgs(p))
	return err
}

func (s *SqliteStore) UpdatePlayer(ctx context.Context, p *game.Player) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE players SET
		name = :name, avatar = :avatar, is_host = :is_host, role = :role,
		status = :status, ready_for_next = :ready_for_next
		WHERE id = :id`, playerArgs(p))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SqliteStore) GetPlayer(ctx context.Context, id string) (*game.Player, error) {
	var row playerRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM players WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toPlayer(), nil
}

func (s *SqliteStore) PlayersByGame(ctx context.Context, gameID string) ([]*game.Player, error) {
	var rows []playerRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM players WHERE game_id = ? ORDER BY joined_at, id`, gameID)
	if err != nil {
		return nil, err
	}
	players := make([]*game.Player, len(rows))
	for i, r := range rows {
		players[i] = r.toPlayer()
	}
	return players, nil
}

func (s *SqliteStore) PlayerByIdentity(ctx context.Context, gameID, identity string) (*game.Player, error) {
	var row playerRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM players WHERE game_id = ? AND identity = ?`, gameID, identity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toPlayer(), nil
}

type actionRow struct {
	ID        string `db:"id"`
	GameID    string `db:"game_id"`
	Round     int    `db:"round"`
	ActorID   string `db:"actor_id"`
	TargetID  string `db:"target_id"`
	Type      string `db:"action_type"`
	CreatedAt int64  `db:"created_at"`
}

func (r actionRow) toAction() *game.Action {
	return &game.Action{
		ID:        r.ID,
		GameID:    r.GameID,
		Round:     r.Round,
		ActorID:   r.ActorID,
		TargetID:  r.TargetID,
		Type:      game.ActionType(r.Type),
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

func (s *SqliteStore) UpsertAction(ctx context.Context, a *game.Action) error {
	// Last write wins on the target; id and created_at survive from the
	// first submission so the tie-break still sees the original time.
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO actions
		(id, game_id, round, actor_id, target_id, action_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id, round, actor_id)
		DO UPDATE SET target_id = excluded.target_id, action_type = excluded.action_type`,
		a.ID, a.GameID, a.Round, a.ActorID, a.TargetID, string(a.Type), toMillis(a.CreatedAt))
	if err != nil {
		return err
	}

	var row actionRow
	err = s.db.GetContext(ctx, &row,
		`SELECT * FROM actions WHERE game_id = ? AND round = ? AND actor_id = ?`,
		a.GameID, a.Round, a.ActorID)
	if err != nil {
		return err
	}
	*a = *row.toAction()
	return nil
}

func (s *SqliteStore) ActionsByRound(ctx context.Context, gameID string, round int) ([]*game.Action, error) {
	var rows []actionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM actions WHERE game_id = ? AND round = ? ORDER BY created_at, id`,
		gameID, round)
	if err != nil {
		return nil, err
	}
	actions := make([]*game.Action, len(rows))
	for i, r := range rows {
		actions[i] = r.toAction()
	}
	return actions, nil
}

type suspicionRow struct {
	ID        string `db:"id"`
	GameID    string `db:"game_id"`
	Round     int    `db:"round"`
	ActorID   string `db:"actor_id"`
	TargetID  string `db:"target_id"`
	CreatedAt int64  `db:"created_at"`
}

func (r suspicionRow) toSuspicion() *game.Suspicion {
	return &game.Suspicion{
		ID:        r.ID,
		GameID:    r.GameID,
		Round:     r.Round,
		ActorID:   r.ActorID,
		TargetID:  r.TargetID,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

func (s *SqliteStore) UpsertSuspicion(ctx context.Context, sp *game.Suspicion) error {
	sp.ID = uuid.NewString()
	sp.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO suspicions
		(id, game_id, round, actor_id, target_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id, round, actor_id)
		DO UPDATE SET target_id = excluded.target_id`,
		sp.ID, sp.GameID, sp.Round, sp.ActorID, sp.TargetID, toMillis(sp.CreatedAt))
	if err != nil {
		return err
	}

	var row suspicionRow
	err = s.db.GetContext(ctx, &row,
		`SELECT * FROM suspicions WHERE game_id = ? AND round = ? AND actor_id = ?`,
		sp.GameID, sp.Round, sp.ActorID)
	if err != nil {
		return err
	}
	*sp = *row.toSuspicion()
	return nil
}

func (s *SqliteStore) SuspicionsByRound(ctx context.Context, gameID string, round int) ([]*game.Suspicion, error) {
	var rows []suspicionRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM suspicions WHERE game_id = ? AND round = ? ORDER BY created_at, id`,
		gameID, round)
	if err != nil {
		return nil, err
	}
	suspicions := make([]*game.Suspicion, len(rows))
	for i, r := range rows {
		suspicions[i] = r.toSuspicion()
	}
	return suspicions, nil
}

func (s *SqliteStore) PurgeRoundData(ctx context.Context, gameID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM actions WHERE game_id = ?`, gameID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM suspicions WHERE game_id = ?`, gameID); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
