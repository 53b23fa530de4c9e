package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/dependencies/mocks"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/storage"
	"github.com/mcoot/numerus/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	clock *mocks.MockClock
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.NewStorage = func() storage.Storage { return New(s.clock) }
	suite.Run(t, s)
}

func (s *StorageSuite) TestMessageWithoutTimestampUsesClock() {
	room, err := s.Storage.CreateRoom(s.Ctx, &model.Room{Code: "ABC123"})
	s.Require().NoError(err)

	msg, err := s.Storage.AddMessage(s.Ctx, &model.Message{RoomID: room.ID, Text: "hi"})
	s.Require().NoError(err)
	s.Equal(s.clock.Now(), msg.Timestamp)
}

func (s *StorageSuite) TestReturnedRoomIsACopy() {
	room, err := s.Storage.CreateRoom(s.Ctx, &model.Room{Code: "ABC123"})
	s.Require().NoError(err)
	room.CurrentNumber = 99

	stored, err := s.Storage.GetRoom(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.CurrentNumber)
}
