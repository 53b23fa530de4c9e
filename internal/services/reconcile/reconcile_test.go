package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/model"
)

type ReconcileSuite struct {
	suite.Suite
	state *model.GameState
	now   time.Time
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileSuite))
}

func (s *ReconcileSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	state := model.NewGameState("ABC123", model.DifficultyNormal)
	state.RoomID = "room-1"
	state.LocalPlayerID = "me"
	s.state = &state
}

func (s *ReconcileSuite) player(id string, order int) model.Player {
	return model.Player{ID: model.PlayerID(id), RoomID: "room-1", Name: id, TurnOrder: order}
}

func (s *ReconcileSuite) room(number int, partial string, turn int) model.Room {
	return model.Room{
		ID:               "room-1",
		Code:             "ABC123",
		Difficulty:       model.DifficultyNormal,
		Status:           model.RoomStatusActive,
		CurrentNumber:    number,
		CurrentPartial:   partial,
		CurrentTurnIndex: turn,
	}
}

// Player changes

func (s *ReconcileSuite) TestPlayerInsertSortsByTurnOrder() {
	Apply(s.state, model.PlayerChanged(model.ChangeInsert, s.player("c", 2)))
	Apply(s.state, model.PlayerChanged(model.ChangeInsert, s.player("a", 0)))
	Apply(s.state, model.PlayerChanged(model.ChangeInsert, s.player("me", 1)))

	s.Require().Len(s.state.Players, 3)
	s.Equal(model.PlayerID("a"), s.state.Players[0].ID)
	s.Equal(model.PlayerID("me"), s.state.Players[1].ID)
	s.Equal(model.PlayerID("c"), s.state.Players[2].ID)
	s.True(s.state.Players[1].IsLocalUser)
	s.False(s.state.Players[0].IsLocalUser)
}

func (s *ReconcileSuite) TestPlayerUpdateIsUpsert() {
	p := s.player("a", 0)
	Apply(s.state, model.PlayerChanged(model.ChangeInsert, p))
	p.Score = 3
	Apply(s.state, model.PlayerChanged(model.ChangeUpdate, p))
	Apply(s.state, model.PlayerChanged(model.ChangeUpdate, p))

	s.Require().Len(s.state.Players, 1)
	s.Equal(3, s.state.Players[0].Score)
}

func (s *ReconcileSuite) TestPlayerUpdateBeforeInsert() {
	p := s.player("a", 0)
	p.Score = 2
	Apply(s.state, model.PlayerChanged(model.ChangeUpdate, p))
	s.Require().Len(s.state.Players, 1)
	s.Equal(2, s.state.Players[0].Score)
}

func (s *ReconcileSuite) TestPlayerDelete() {
	Apply(s.state, model.PlayerChanged(model.ChangeInsert, s.player("a", 0)))
	Apply(s.state, model.PlayerChanged(model.ChangeInsert, s.player("b", 1)))

	s.True(Apply(s.state, model.PlayerChanged(model.ChangeDelete, model.Player{ID: "a", RoomID: "room-1"})))
	s.False(Apply(s.state, model.PlayerChanged(model.ChangeDelete, model.Player{ID: "a", RoomID: "room-1"})))
	s.Require().Len(s.state.Players, 1)
	s.Equal(model.PlayerID("b"), s.state.Players[0].ID)
}

func (s *ReconcileSuite) TestIgnoresOtherRooms() {
	p := s.player("a", 0)
	p.RoomID = "room-2"
	s.False(Apply(s.state, model.PlayerChanged(model.ChangeInsert, p)))
	s.Empty(s.state.Players)
}

// Message changes

func (s *ReconcileSuite) TestMessageInsertIsIdempotentByID() {
	msg := model.Message{ID: 7, RoomID: "room-1", Kind: model.MessageKindPlay, Text: "I", Timestamp: s.now}
	s.True(Apply(s.state, model.MessageChanged(model.ChangeInsert, msg)))
	s.False(Apply(s.state, model.MessageChanged(model.ChangeInsert, msg)))
	s.Len(s.state.Messages, 1)
}

func (s *ReconcileSuite) TestSameContentDifferentIDsAreKept() {
	a := model.Message{ID: 1, RoomID: "room-1", Kind: model.MessageKindPlay, Text: "I", Timestamp: s.now}
	b := a
	b.ID = 2
	Apply(s.state, model.MessageChanged(model.ChangeInsert, a))
	Apply(s.state, model.MessageChanged(model.ChangeInsert, b))
	s.Len(s.state.Messages, 2)
}

func (s *ReconcileSuite) TestMessageWithoutIDDedupesByContent() {
	msg := model.Message{Kind: model.MessageKindSystem, Text: "hello", Timestamp: s.now}
	s.True(AppendMessage(s.state, msg))
	s.False(AppendMessage(s.state, msg))

	later := msg
	later.Timestamp = s.now.Add(time.Millisecond)
	s.True(AppendMessage(s.state, later))
	s.Len(s.state.Messages, 2)
}

func (s *ReconcileSuite) TestMessageDelete() {
	Apply(s.state, model.MessageChanged(model.ChangeInsert, model.Message{ID: 1, RoomID: "room-1", Text: "a"}))
	Apply(s.state, model.MessageChanged(model.ChangeInsert, model.Message{ID: 2, RoomID: "room-1", Text: "b"}))

	s.True(Apply(s.state, model.MessageChanged(model.ChangeDelete, model.Message{ID: 1, RoomID: "room-1"})))
	s.Require().Len(s.state.Messages, 1)
	s.Equal(model.MessageID(2), s.state.Messages[0].ID)
	s.False(RemoveMessage(s.state, 0))
}

// Room changes

func (s *ReconcileSuite) TestRoomUpdateOverwritesFields() {
	room := s.room(5, "", 2)
	room.Status = model.RoomStatusFinished
	room.Difficulty = model.DifficultyHard
	Apply(s.state, model.RoomChanged(room))

	s.Equal(5, s.state.CurrentNumber)
	s.Equal(2, s.state.TurnIndex)
	s.Equal(model.RoomStatusFinished, s.state.Status)
	s.Equal(model.DifficultyHard, s.state.Difficulty)
}

func (s *ReconcileSuite) TestNumberChangeResetsPartialBeforeMessageArrives() {
	Apply(s.state, model.RoomChanged(s.room(3, "II", 1)))
	s.Equal("II", s.state.Partial)

	// The completing "I" message has not been delivered yet
	Apply(s.state, model.RoomChanged(s.room(4, "", 0)))
	s.Equal("", s.state.Partial)
	s.Equal(4, s.state.CurrentNumber)

	Apply(s.state, model.MessageChanged(model.ChangeInsert, model.Message{ID: 9, RoomID: "room-1", Kind: model.MessageKindPlay, Text: "I", Number: 3}))
	s.Equal("", s.state.Partial)
}

func (s *ReconcileSuite) TestStalePartialDoesNotSurviveNumberChange() {
	s.state.CurrentNumber = 3
	s.state.Partial = "II"
	// A record whose partial belongs to the previous number
	Apply(s.state, model.RoomChanged(s.room(4, "II", 0)))
	s.Equal("", s.state.Partial)
}

func (s *ReconcileSuite) TestRoomUpdateReplayIsIdempotent() {
	room := s.room(2, "I", 1)
	Apply(s.state, model.RoomChanged(room))
	first := s.state.Clone()
	Apply(s.state, model.RoomChanged(room))
	s.Equal(first, s.state.Clone())
}

func (s *ReconcileSuite) TestHydrate() {
	room := s.room(2, "I", 1)
	players := []model.Player{s.player("me", 1), s.player("a", 0)}
	messages := []model.Message{
		{ID: 3, RoomID: "room-1", Text: "c"},
		{ID: 1, RoomID: "room-1", Text: "a"},
		{ID: 1, RoomID: "room-1", Text: "a"},
	}

	state := Hydrate(room, players, messages, "me")
	s.Equal(model.RoomID("room-1"), state.RoomID)
	s.Equal("I", state.Partial)
	s.Require().Len(state.Players, 2)
	s.Equal(model.PlayerID("a"), state.Players[0].ID)
	s.True(state.Players[1].IsLocalUser)
	s.Require().Len(state.Messages, 2)
	s.Equal(model.MessageID(1), state.Messages[0].ID)
	s.Equal(model.MessageID(3), state.Messages[1].ID)
}
