package bot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/dependencies/mocks"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/testutil"
)

type DriverSuite struct {
	suite.Suite
	clock  *mocks.MockClock
	driver *Driver
	state  *model.GameState

	mu    sync.Mutex
	moves []Move
}

func TestDriverSuite(t *testing.T) {
	suite.Run(t, new(DriverSuite))
}

func (s *DriverSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.moves = nil
	s.driver = NewDriver(s.clock, 0, func(m Move) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.moves = append(s.moves, m)
	}, testutil.NopLogger())

	state := model.NewGameState("ABC123", model.DifficultyNormal)
	state.Players = []model.Player{
		{ID: "me", Name: "Ada", IsLocalUser: true},
		{ID: "bot", Name: "Igor", IsBot: true},
	}
	s.state = &state
}

func (s *DriverSuite) played() []Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Move(nil), s.moves...)
}

func (s *DriverSuite) TestNoMoveOnHumanTurn() {
	s.driver.Sync(s.state)
	s.clock.Advance(time.Second)
	s.Empty(s.played())
}

func (s *DriverSuite) TestPlaysNextLetterAfterThinkTime() {
	s.state.TurnIndex = 1
	s.state.CurrentNumber = 4
	s.state.Partial = "I"
	s.driver.Sync(s.state)

	s.clock.Advance(DefaultThinkTime - time.Millisecond)
	s.Empty(s.played())

	s.clock.Advance(time.Millisecond)
	s.Require().Len(s.played(), 1)
	move := s.played()[0]
	s.Equal(model.PlayerID("bot"), move.PlayerID)
	s.Equal("V", move.Letter)
	s.Equal(4, move.Number)
	s.True(move.Matches(s.state))
}

func (s *DriverSuite) TestStateChangeCancelsStaleMove() {
	s.state.TurnIndex = 1
	s.driver.Sync(s.state)
	s.clock.Advance(300 * time.Millisecond)

	s.state.TurnIndex = 0
	s.driver.Sync(s.state)
	s.clock.Advance(time.Second)

	s.Empty(s.played())
	_, pending := s.driver.Pending()
	s.False(pending)
}

func (s *DriverSuite) TestPartialChangeReschedules() {
	s.state.TurnIndex = 1
	s.state.CurrentNumber = 3
	s.driver.Sync(s.state)
	s.clock.Advance(300 * time.Millisecond)

	s.state.Partial = "I"
	s.driver.Sync(s.state)
	s.clock.Advance(400 * time.Millisecond)
	s.Empty(s.played())

	s.clock.Advance(250 * time.Millisecond)
	s.Require().Len(s.played(), 1)
	s.Equal("I", s.played()[0].Partial)
}

func (s *DriverSuite) TestSameStateKeepsSchedule() {
	s.state.TurnIndex = 1
	s.driver.Sync(s.state)
	s.clock.Advance(400 * time.Millisecond)
	s.driver.Sync(s.state)
	s.clock.Advance(250 * time.Millisecond)

	s.Len(s.played(), 1)
}

func (s *DriverSuite) TestNoMoveWhenOver() {
	s.state.TurnIndex = 1
	s.state.Status = model.RoomStatusFinished
	s.driver.Sync(s.state)
	s.clock.Advance(time.Second)
	s.Empty(s.played())
}

func (s *DriverSuite) TestStopCancels() {
	s.state.TurnIndex = 1
	s.driver.Sync(s.state)
	s.driver.Stop()
	s.driver.Sync(s.state)
	s.clock.Advance(time.Second)

	s.Empty(s.played())
	s.Equal(0, s.clock.PendingTimers())
}

func (s *DriverSuite) TestMoveNoLongerMatchesAfterRemoval() {
	s.state.TurnIndex = 1
	move, ok := PlanMove(s.state)
	s.Require().True(ok)

	s.state.Players = s.state.Players[:1]
	s.False(move.Matches(s.state))
}

func (s *DriverSuite) TestPickName() {
	rnd := mocks.NewMockRandom()
	s.Equal("Samuele", PickName(s.state, rnd))

	rnd.QueueIntn(1)
	s.state.Players = append(s.state.Players, model.Player{ID: "b2", Name: "Samuele", IsBot: true})
	s.Equal("A Cadore", PickName(s.state, rnd))
	s.Equal(len(Roster)-2, rnd.IntnBounds[1])

	for _, name := range Roster {
		s.state.Players = append(s.state.Players, model.Player{Name: name})
	}
	s.Equal("", PickName(s.state, rnd))
}
