package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/dependencies/mocks"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/storage"
	"github.com/mcoot/numerus/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini  *miniredis.Miniredis
	redis *Storage
	clock *mocks.MockClock
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = s.newStorage
	suite.Run(t, s)
}

func (s *StorageSuite) newStorage() storage.Storage {
	s.mini = miniredis.RunT(s.T())
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.RoomTTL = time.Hour

	s.redis = NewWithClient(client, cfg, s.clock)
	return s.redis
}

func (s *StorageSuite) TearDownTest() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestKeysUseExpectedLayout() {
	room, err := s.Storage.CreateRoom(s.Ctx, &model.Room{Code: "ABC123"})
	s.Require().NoError(err)
	p, err := s.Storage.AddPlayer(s.Ctx, &model.Player{RoomID: room.ID, Name: "Ada"})
	s.Require().NoError(err)
	_, err = s.Storage.AddMessage(s.Ctx, &model.Message{RoomID: room.ID, Text: "hi"})
	s.Require().NoError(err)

	s.True(s.mini.Exists("numerus:room:" + string(room.ID)))
	s.True(s.mini.Exists("numerus:idx:room_code:ABC123"))
	s.True(s.mini.Exists("numerus:player:" + string(p.ID)))
	s.True(s.mini.Exists("numerus:room_messages:" + string(room.ID)))

	members, err := s.mini.SMembers("numerus:idx:room_players:" + string(room.ID))
	s.Require().NoError(err)
	s.Equal([]string{string(p.ID)}, members)
}

func (s *StorageSuite) TestRoomKeysExpire() {
	room, err := s.Storage.CreateRoom(s.Ctx, &model.Room{Code: "ABC123"})
	s.Require().NoError(err)

	s.Equal(time.Hour, s.mini.TTL("numerus:room:"+string(room.ID)))

	s.mini.FastForward(2 * time.Hour)
	_, err = s.Storage.GetRoom(s.Ctx, room.ID)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestLocalUserFlagIsNotPersisted() {
	room, err := s.Storage.CreateRoom(s.Ctx, &model.Room{Code: "ABC123"})
	s.Require().NoError(err)
	_, err = s.Storage.AddPlayer(s.Ctx, &model.Player{RoomID: room.ID, Name: "Ada", IsLocalUser: true})
	s.Require().NoError(err)

	players, err := s.Storage.ListPlayers(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.False(players[0].IsLocalUser)
}
