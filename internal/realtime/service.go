package realtime

import (
	"context"
	"log/slog"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/storage"
)

// Service is the server-side Backend. Every successful write is published to the broker.
type Service struct {
	store  storage.Storage
	broker Broker
	hubs   *HubManager
	logger *slog.Logger
}

// NewService creates a Service over a storage and broker
func NewService(store storage.Storage, broker Broker, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		broker: broker,
		hubs:   NewHubManager(broker, logger),
		logger: logger.With(slog.String("component", "realtime-service")),
	}
}

var _ Backend = (*Service)(nil)

// Hubs exposes the hub manager for transport handlers
func (s *Service) Hubs() *HubManager {
	return s.hubs
}

// Close stops every hub
func (s *Service) Close() {
	s.hubs.Close()
}

func (s *Service) publish(ctx context.Context, change model.Change) {
	if err := s.broker.Publish(ctx, change); err != nil {
		s.logger.Warn("failed to publish change",
			slog.String("room_id", string(change.RoomID)),
			slog.String("table", string(change.Table)),
			slog.Any("error", err))
	}
}

func (s *Service) CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error) {
	created, err := s.store.CreateRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	change := model.RoomChanged(*created)
	change.Type = model.ChangeInsert
	s.publish(ctx, change)
	return created, nil
}

func (s *Service) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return s.store.GetRoom(ctx, id)
}

func (s *Service) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return s.store.GetRoomByCode(ctx, code)
}

func (s *Service) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) (*model.Room, error) {
	room, err := s.store.UpdateRoom(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.RoomChanged(*room))
	return room, nil
}

func (s *Service) AddPlayer(ctx context.Context, player *model.Player) (*model.Player, error) {
	added, err := s.store.AddPlayer(ctx, player)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.PlayerChanged(model.ChangeInsert, *added))
	return added, nil
}

func (s *Service) ListPlayers(ctx context.Context, roomID model.RoomID) ([]model.Player, error) {
	return s.store.ListPlayers(ctx, roomID)
}

func (s *Service) UpdatePlayerScore(ctx context.Context, id model.PlayerID, score int) (*model.Player, error) {
	player, err := s.store.UpdatePlayerScore(ctx, id, score)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.PlayerChanged(model.ChangeUpdate, *player))
	return player, nil
}

func (s *Service) RemovePlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player, err := s.store.RemovePlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.PlayerChanged(model.ChangeDelete, *player))
	return player, nil
}

func (s *Service) AddMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	added, err := s.store.AddMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.MessageChanged(model.ChangeInsert, *added))
	return added, nil
}

func (s *Service) ListMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	return s.store.ListMessages(ctx, roomID)
}

func (s *Service) ClearMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	removed, err := s.store.ClearMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, msg := range removed {
		s.publish(ctx, model.MessageChanged(model.ChangeDelete, msg))
	}
	return removed, nil
}

// Subscribe streams row changes for a room until ctx is cancelled
func (s *Service) Subscribe(ctx context.Context, roomID model.RoomID) (<-chan model.Change, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	client, err := s.hubs.Join(roomID, nil)
	if err != nil {
		return nil, err
	}

	out := make(chan model.Change, sendBufferSize)
	go pump(ctx, client, out, func(evt Event) (model.Change, bool) {
		if evt.Change == nil {
			return model.Change{}, false
		}
		return *evt.Change, true
	})
	return out, nil
}

// JoinPresence marks self live in the room until ctx is cancelled
func (s *Service) JoinPresence(ctx context.Context, roomID model.RoomID, self model.PresenceMember) (<-chan model.PresenceEvent, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	client, err := s.hubs.Join(roomID, &self)
	if err != nil {
		return nil, err
	}

	out := make(chan model.PresenceEvent, sendBufferSize)
	go pump(ctx, client, out, func(evt Event) (model.PresenceEvent, bool) {
		if evt.Presence == nil {
			return model.PresenceEvent{}, false
		}
		return *evt.Presence, true
	})
	return out, nil
}

func pump[T any](ctx context.Context, client *Client, out chan<- T, pick func(Event) (T, bool)) {
	defer close(out)
	defer client.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-client.Events():
			if !ok {
				return
			}
			v, ok := pick(evt)
			if !ok {
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}
}
