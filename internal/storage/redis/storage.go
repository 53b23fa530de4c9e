package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/storage"
)

// maxTxRetries bounds optimistic-lock retries for read-modify-write updates
const maxTxRetries = 10

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	clock  clock.Clock
}

// New creates a new Redis storage instance
func New(cfg Config, clk clock.Clock) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg, clk), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, clk clock.Clock) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
		clock:  clk,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error) {
	r := storage.PrepareRoom(room, s.clock.Now())

	// Claim the code first so two rooms can never share it
	claimed, err := s.client.SetNX(ctx, roomCodeIndexKey(r.Code), string(r.ID), s.cfg.RoomTTL).Result()
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, model.ErrRoomCodeTaken
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, roomKey(r.ID), data, s.cfg.RoomTTL).Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	id, err := s.client.Get(ctx, roomCodeIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return s.GetRoom(ctx, model.RoomID(id))
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) (*model.Room, error) {
	key := roomKey(id)
	var result model.Room

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrRoomNotFound
			}
			return err
		}
		var room model.Room
		if err := json.Unmarshal(data, &room); err != nil {
			return err
		}
		update.Apply(&room)
		updated, err := json.Marshal(room)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.cfg.RoomTTL)
			pipe.Expire(ctx, roomCodeIndexKey(room.Code), s.cfg.RoomTTL)
			return nil
		})
		result = room
		return err
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return &result, nil
}

// Player operations

func (s *Storage) AddPlayer(ctx context.Context, player *model.Player) (*model.Player, error) {
	exists, err := s.client.Exists(ctx, roomKey(player.RoomID)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrRoomNotFound
	}

	p := storage.PreparePlayer(player, s.clock.Now())
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	// Use pipeline for atomic save + index update
	indexKey := roomPlayersIndexKey(p.RoomID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, playerKey(p.ID), data, s.cfg.RoomTTL)
	pipe.SAdd(ctx, indexKey, string(p.ID))
	pipe.Expire(ctx, indexKey, s.cfg.RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) ListPlayers(ctx context.Context, roomID model.RoomID) ([]model.Player, error) {
	ids, err := s.client.SMembers(ctx, roomPlayersIndexKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Player{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]model.Player, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Player may have expired
		}
		var p model.Player
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			continue // Skip invalid data
		}
		players = append(players, p)
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].TurnOrder == players[j].TurnOrder {
			return players[i].CreatedAt.Before(players[j].CreatedAt)
		}
		return players[i].TurnOrder < players[j].TurnOrder
	})
	return players, nil
}

func (s *Storage) UpdatePlayerScore(ctx context.Context, id model.PlayerID, score int) (*model.Player, error) {
	key := playerKey(id)
	var result model.Player

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPlayerNotFound
			}
			return err
		}
		var p model.Player
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		p.Score = score
		updated, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.cfg.RoomTTL)
			return nil
		})
		result = p
		return err
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Storage) RemovePlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	// GETDEL makes exactly one concurrent remover win
	data, err := s.client.GetDel(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var p model.Player
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := s.client.SRem(ctx, roomPlayersIndexKey(p.RoomID), string(id)).Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Message operations

func (s *Storage) AddMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	exists, err := s.client.Exists(ctx, roomKey(msg.RoomID)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrRoomNotFound
	}

	id, err := s.client.Incr(ctx, messageSeqKey()).Result()
	if err != nil {
		return nil, err
	}

	m := *msg
	m.ID = model.MessageID(id)
	if m.Timestamp.IsZero() {
		m.Timestamp = s.clock.Now()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	key := roomMessagesKey(m.RoomID)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(m.ID), Member: data})
	pipe.Expire(ctx, key, s.cfg.RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Storage) ListMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	values, err := s.client.ZRange(ctx, roomMessagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return decodeMessages(values), nil
}

func (s *Storage) ClearMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	key := roomMessagesKey(roomID)

	pipe := s.client.TxPipeline()
	rangeCmd := pipe.ZRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return decodeMessages(rangeCmd.Val()), nil
}

func decodeMessages(values []string) []model.Message {
	msgs := make([]model.Message, 0, len(values))
	for _, val := range values {
		var m model.Message
		if err := json.Unmarshal([]byte(val), &m); err != nil {
			continue // Skip invalid data
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// watch runs an optimistic transaction, retrying when a watched key changes underneath it
func (s *Storage) watch(ctx context.Context, txf func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}
