package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/storage"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Config holds PostgreSQL connection settings
type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DefaultConfig returns sensible defaults for PostgreSQL configuration
func DefaultConfig() Config {
	return Config{
		URL:             "postgres://localhost:5432/numerus?sslmode=disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
	}
}

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

// New connects to PostgreSQL and applies the schema
func New(ctx context.Context, cfg Config, clk clock.Clock) (*Storage, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	s := NewWithPool(pool, clk)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool creates a storage on an existing pool
func NewWithPool(pool *pgxpool.Pool, clk clock.Clock) *Storage {
	return &Storage{pool: pool, clock: clk}
}

// Migrate creates the tables if they do not exist
func (s *Storage) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the pool
func (s *Storage) Close() {
	s.pool.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

const roomColumns = `id, code, difficulty, show_hints, status, current_number, current_partial, current_player_index, created_at`

func scanRoom(row pgx.Row) (*model.Room, error) {
	var r model.Room
	err := row.Scan(&r.ID, &r.Code, &r.Difficulty, &r.ShowHints, &r.Status,
		&r.CurrentNumber, &r.CurrentPartial, &r.CurrentTurnIndex, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error) {
	r := storage.PrepareRoom(room, s.clock.Now())
	query := `
		INSERT INTO rooms (id, code, difficulty, show_hints, status, current_number, current_partial, current_player_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + roomColumns

	created, err := scanRoom(s.pool.QueryRow(ctx, query,
		string(r.ID), string(r.Code), string(r.Difficulty), r.ShowHints, string(r.Status),
		r.CurrentNumber, r.CurrentPartial, r.CurrentTurnIndex, r.CreatedAt))
	if isPgError(err, pgUniqueViolation) {
		return nil, model.ErrRoomCodeTaken
	}
	return created, err
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, string(id)))
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = $1`, string(code)))
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) (*model.Room, error) {
	query := `
		UPDATE rooms SET
			current_number       = COALESCE($2, current_number),
			current_partial      = COALESCE($3, current_partial),
			current_player_index = COALESCE($4, current_player_index),
			status               = COALESCE($5, status),
			difficulty           = COALESCE($6, difficulty),
			show_hints           = COALESCE($7, show_hints)
		WHERE id = $1
		RETURNING ` + roomColumns

	return scanRoom(s.pool.QueryRow(ctx, query, string(id),
		update.CurrentNumber,
		update.CurrentPartial,
		update.CurrentTurnIndex,
		stringPtr(update.Status),
		stringPtr(update.Difficulty),
		update.ShowHints,
	))
}

// Player operations

const playerColumns = `id, room_id, name, is_bot, is_owner, points, turn_order, created_at`

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(&p.ID, &p.RoomID, &p.Name, &p.IsBot, &p.IsOwner, &p.Score, &p.TurnOrder, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Storage) AddPlayer(ctx context.Context, player *model.Player) (*model.Player, error) {
	p := storage.PreparePlayer(player, s.clock.Now())
	query := `
		INSERT INTO room_players (id, room_id, name, is_bot, is_owner, points, turn_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + playerColumns

	created, err := scanPlayer(s.pool.QueryRow(ctx, query,
		string(p.ID), string(p.RoomID), p.Name, p.IsBot, p.IsOwner, p.Score, p.TurnOrder, p.CreatedAt))
	if isPgError(err, pgForeignKeyViolation) {
		return nil, model.ErrRoomNotFound
	}
	return created, err
}

func (s *Storage) ListPlayers(ctx context.Context, roomID model.RoomID) ([]model.Player, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+playerColumns+` FROM room_players WHERE room_id = $1 ORDER BY turn_order, created_at`,
		string(roomID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []model.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func (s *Storage) UpdatePlayerScore(ctx context.Context, id model.PlayerID, score int) (*model.Player, error) {
	return scanPlayer(s.pool.QueryRow(ctx,
		`UPDATE room_players SET points = $2 WHERE id = $1 RETURNING `+playerColumns,
		string(id), score))
}

func (s *Storage) RemovePlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return scanPlayer(s.pool.QueryRow(ctx,
		`DELETE FROM room_players WHERE id = $1 RETURNING `+playerColumns,
		string(id)))
}

// Message operations

const messageColumns = `id, room_id, player_id, player_name, type, text, number, correct_roman, created_at`

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	err := row.Scan(&m.ID, &m.RoomID, &m.PlayerID, &m.PlayerName, &m.Kind, &m.Text, &m.Number, &m.CorrectNumeral, &m.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrMessageNotFound
		}
		return nil, err
	}
	m.Timestamp = m.Timestamp.UTC()
	return &m, nil
}

func (s *Storage) AddMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	m := *msg
	if m.Timestamp.IsZero() {
		m.Timestamp = s.clock.Now()
	}
	query := `
		INSERT INTO room_messages (room_id, player_id, player_name, type, text, number, correct_roman, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + messageColumns

	created, err := scanMessage(s.pool.QueryRow(ctx, query,
		string(m.RoomID), string(m.PlayerID), m.PlayerName, string(m.Kind), m.Text, m.Number, m.CorrectNumeral, m.Timestamp))
	if isPgError(err, pgForeignKeyViolation) {
		return nil, model.ErrRoomNotFound
	}
	return created, err
}

func (s *Storage) ListMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	return s.queryMessages(ctx, `SELECT `+messageColumns+` FROM room_messages WHERE room_id = $1 ORDER BY id`, roomID)
}

func (s *Storage) ClearMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	return s.queryMessages(ctx, `DELETE FROM room_messages WHERE room_id = $1 RETURNING `+messageColumns, roomID)
}

func (s *Storage) queryMessages(ctx context.Context, query string, roomID model.RoomID) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, query, string(roomID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func stringPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
