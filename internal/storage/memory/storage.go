package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu    sync.RWMutex
	clock clock.Clock

	rooms     map[model.RoomID]*model.Room
	codeIndex map[model.RoomCode]model.RoomID
	players   map[model.PlayerID]*model.Player
	messages  map[model.RoomID][]model.Message
	nextMsgID model.MessageID
}

// New creates a new in-memory storage instance
func New(clk clock.Clock) *Storage {
	return &Storage{
		clock:     clk,
		rooms:     make(map[model.RoomID]*model.Room),
		codeIndex: make(map[model.RoomCode]model.RoomID),
		players:   make(map[model.PlayerID]*model.Player),
		messages:  make(map[model.RoomID][]model.Message),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codeIndex[room.Code]; taken {
		return nil, model.ErrRoomCodeTaken
	}
	r := storage.PrepareRoom(room, s.clock.Now())
	s.rooms[r.ID] = &r
	s.codeIndex[r.Code] = r.ID
	out := r
	return &out, nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	out := *room
	return &out, nil
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	id, ok := s.codeIndex[code]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return s.GetRoom(ctx, id)
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	update.Apply(room)
	out := *room
	return &out, nil
}

// Player operations

func (s *Storage) AddPlayer(ctx context.Context, player *model.Player) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[player.RoomID]; !ok {
		return nil, model.ErrRoomNotFound
	}
	p := storage.PreparePlayer(player, s.clock.Now())
	s.players[p.ID] = &p
	out := p
	return &out, nil
}

func (s *Storage) ListPlayers(ctx context.Context, roomID model.RoomID) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := []model.Player{}
	for _, p := range s.players {
		if p.RoomID == roomID {
			players = append(players, *p)
		}
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
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p.Score = score
	out := *p
	return &out, nil
}

func (s *Storage) RemovePlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	delete(s.players, id)
	return p, nil
}

// Message operations

func (s *Storage) AddMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[msg.RoomID]; !ok {
		return nil, model.ErrRoomNotFound
	}
	s.nextMsgID++
	m := *msg
	m.ID = s.nextMsgID
	if m.Timestamp.IsZero() {
		m.Timestamp = s.clock.Now()
	}
	s.messages[m.RoomID] = append(s.messages[m.RoomID], m)
	return &m, nil
}

func (s *Storage) ListMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.Message, len(s.messages[roomID]))
	copy(result, s.messages[roomID])
	return result, nil
}

func (s *Storage) ClearMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.messages[roomID]
	delete(s.messages, roomID)
	if removed == nil {
		removed = []model.Message{}
	}
	return removed, nil
}
