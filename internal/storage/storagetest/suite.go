// Package storagetest holds the behaviour every Storage implementation must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/storage"
)

// Suite runs the common storage tests. Implementations embed it and set NewStorage.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
}

func (s *Suite) createRoom(code model.RoomCode) *model.Room {
	room, err := s.Storage.CreateRoom(s.Ctx, &model.Room{
		Code:       code,
		Difficulty: model.DifficultyHard,
	})
	s.Require().NoError(err)
	return room
}

func (s *Suite) addPlayer(roomID model.RoomID, name string, order int) *model.Player {
	p, err := s.Storage.AddPlayer(s.Ctx, &model.Player{RoomID: roomID, Name: name, TurnOrder: order})
	s.Require().NoError(err)
	return p
}

// Room tests

func (s *Suite) TestCreateRoomAssignsDefaults() {
	room := s.createRoom("ABC123")
	s.NotEmpty(room.ID)
	s.Equal(model.RoomCode("ABC123"), room.Code)
	s.Equal(model.DifficultyHard, room.Difficulty)
	s.Equal(model.RoomStatusActive, room.Status)
	s.Equal(1, room.CurrentNumber)
	s.Equal(0, room.CurrentTurnIndex)
	s.False(room.CreatedAt.IsZero())
}

func (s *Suite) TestCreateRoomRejectsDuplicateCode() {
	s.createRoom("ABC123")
	_, err := s.Storage.CreateRoom(s.Ctx, &model.Room{Code: "ABC123"})
	s.ErrorIs(err, model.ErrRoomCodeTaken)
}

func (s *Suite) TestGetRoom() {
	room := s.createRoom("ABC123")

	byID, err := s.Storage.GetRoom(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(room.Code, byID.Code)

	byCode, err := s.Storage.GetRoomByCode(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(room.ID, byCode.ID)
}

func (s *Suite) TestGetRoomNotFound() {
	_, err := s.Storage.GetRoom(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRoomNotFound)

	_, err = s.Storage.GetRoomByCode(s.Ctx, "ZZZZZZ")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestUpdateRoomIsPartial() {
	room := s.createRoom("ABC123")
	number, partial := 4, "I"
	updated, err := s.Storage.UpdateRoom(s.Ctx, room.ID, model.RoomUpdate{
		CurrentNumber:  &number,
		CurrentPartial: &partial,
	})
	s.Require().NoError(err)
	s.Equal(4, updated.CurrentNumber)
	s.Equal("I", updated.CurrentPartial)
	s.Equal(model.DifficultyHard, updated.Difficulty)

	status := model.RoomStatusFinished
	updated, err = s.Storage.UpdateRoom(s.Ctx, room.ID, model.RoomUpdate{Status: &status})
	s.Require().NoError(err)
	s.Equal(model.RoomStatusFinished, updated.Status)
	s.Equal(4, updated.CurrentNumber)

	stored, err := s.Storage.GetRoom(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(*updated, *stored)
}

func (s *Suite) TestUpdateRoomNotFound() {
	number := 2
	_, err := s.Storage.UpdateRoom(s.Ctx, "missing", model.RoomUpdate{CurrentNumber: &number})
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Player tests

func (s *Suite) TestPlayersAreListedByTurnOrder() {
	room := s.createRoom("ABC123")
	other := s.createRoom("XYZ789")
	s.addPlayer(room.ID, "Li", 1)
	owner := s.addPlayer(room.ID, "Ada", 0)
	s.addPlayer(other.ID, "Bo", 0)

	s.NotEmpty(owner.ID)
	s.Equal(room.ID, owner.RoomID)

	players, err := s.Storage.ListPlayers(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal("Ada", players[0].Name)
	s.Equal("Li", players[1].Name)
}

func (s *Suite) TestAddPlayerToMissingRoom() {
	_, err := s.Storage.AddPlayer(s.Ctx, &model.Player{RoomID: "missing", Name: "Ada"})
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestUpdatePlayerScore() {
	room := s.createRoom("ABC123")
	p := s.addPlayer(room.ID, "Ada", 0)

	updated, err := s.Storage.UpdatePlayerScore(s.Ctx, p.ID, 3)
	s.Require().NoError(err)
	s.Equal(3, updated.Score)
	s.Equal("Ada", updated.Name)

	_, err = s.Storage.UpdatePlayerScore(s.Ctx, "missing", 1)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestRemovePlayerOnlySucceedsOnce() {
	room := s.createRoom("ABC123")
	p := s.addPlayer(room.ID, "Ada", 0)

	removed, err := s.Storage.RemovePlayer(s.Ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, removed.ID)
	s.Equal(room.ID, removed.RoomID)

	_, err = s.Storage.RemovePlayer(s.Ctx, p.ID)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	players, err := s.Storage.ListPlayers(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Empty(players)
}

// Message tests

func (s *Suite) TestMessagesGetIncreasingIDs() {
	room := s.createRoom("ABC123")
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.Storage.AddMessage(s.Ctx, &model.Message{RoomID: room.ID, Kind: model.MessageKindSystem, Text: "hello", Timestamp: at})
	s.Require().NoError(err)
	second, err := s.Storage.AddMessage(s.Ctx, &model.Message{
		RoomID:         room.ID,
		Kind:           model.MessageKindError,
		Text:           "lost",
		PlayerID:       "p1",
		Number:         2,
		CorrectNumeral: "II",
		Timestamp:      at.Add(time.Second),
	})
	s.Require().NoError(err)
	s.Greater(second.ID, first.ID)

	msgs, err := s.Storage.ListMessages(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal(first.ID, msgs[0].ID)
	s.Equal("II", msgs[1].CorrectNumeral)
	s.Equal(2, msgs[1].Number)
	s.True(at.Equal(msgs[0].Timestamp))
}

func (s *Suite) TestAddMessageToMissingRoom() {
	_, err := s.Storage.AddMessage(s.Ctx, &model.Message{RoomID: "missing", Text: "x"})
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestClearMessagesReturnsRemoved() {
	room := s.createRoom("ABC123")
	other := s.createRoom("XYZ789")
	_, _ = s.Storage.AddMessage(s.Ctx, &model.Message{RoomID: room.ID, Text: "a"})
	_, _ = s.Storage.AddMessage(s.Ctx, &model.Message{RoomID: room.ID, Text: "b"})
	_, _ = s.Storage.AddMessage(s.Ctx, &model.Message{RoomID: other.ID, Text: "c"})

	removed, err := s.Storage.ClearMessages(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Len(removed, 2)

	msgs, err := s.Storage.ListMessages(s.Ctx, room.ID)
	s.Require().NoError(err)
	s.Empty(msgs)

	msgs, err = s.Storage.ListMessages(s.Ctx, other.ID)
	s.Require().NoError(err)
	s.Len(msgs, 1)
}
