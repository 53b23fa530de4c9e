package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/numeral"
)

type EngineSuite struct {
	suite.Suite
	now time.Time
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *EngineSuite) newState(names ...string) *model.GameState {
	state := model.NewGameState("ABC123", model.DifficultyNormal)
	for i, name := range names {
		state.Players = append(state.Players, model.Player{
			ID:        model.PlayerID(name),
			Name:      name,
			TurnOrder: i,
		})
	}
	return &state
}

func (s *EngineSuite) play(state *model.GameState, letter string) Outcome {
	actor := *state.CurrentPlayer()
	out := SubmitLetter(state, actor, letter, s.now)
	out.Apply(state)
	return out
}

func (s *EngineSuite) TestAdaLiScenario() {
	state := s.newState("Ada", "Li")

	out := s.play(state, "I")
	s.Equal(NumberCompleted, out.Kind)
	s.Equal(1, state.Players[0].Score)
	s.Equal(2, state.CurrentNumber)
	s.Equal("", state.Partial)
	s.Equal(1, state.TurnIndex)

	out = s.play(state, "X")
	s.Equal(Lost, out.Kind)
	s.Equal(model.RoomStatusFinished, state.Status)
	s.Equal(model.MessageKindError, out.Message.Kind)
	s.Equal(2, out.Message.Number)
	s.Equal("II", out.Message.CorrectNumeral)
	s.Contains(out.Message.Text, "Li")
	s.Contains(out.Message.Text, "II")
	s.Equal(0, state.Players[1].Score)
	s.Len(state.Messages, 2)
}

func (s *EngineSuite) TestCompletesOnlyOnFinalLetter() {
	for n := 1; n <= 400; n++ {
		state := s.newState("A", "B", "C")
		state.CurrentNumber = n
		target := numeral.ToRoman(n)
		for i := 0; i < len(target); i++ {
			out := s.play(state, target[i:i+1])
			if i == len(target)-1 {
				s.Equal(NumberCompleted, out.Kind, "n=%d", n)
				s.Equal(n+1, state.CurrentNumber)
				s.Equal("", state.Partial)
			} else {
				s.Equal(LetterAccepted, out.Kind, "n=%d letter %d", n, i)
				s.Equal(target[:i+1], state.Partial)
				s.Equal(n, state.CurrentNumber)
			}
		}
	}
}

func (s *EngineSuite) TestWrongLetterAlwaysLoses() {
	for n := 1; n <= 200; n++ {
		target := numeral.ToRoman(n)
		for pos := 0; pos < len(target); pos++ {
			for _, key := range numeral.Keys {
				if key == target[pos:pos+1] {
					continue
				}
				for actor := 0; actor < 2; actor++ {
					state := s.newState("A", "B")
					state.CurrentNumber = n
					state.Partial = target[:pos]
					state.TurnIndex = actor
					out := SubmitLetter(state, state.Players[actor], key, s.now)
					s.Equal(Lost, out.Kind, "n=%d pos=%d key=%s", n, pos, key)
					s.Equal(model.RoomStatusFinished, out.NextStatus)
					s.Equal(target, out.Message.CorrectNumeral)
				}
			}
		}
	}
}

func (s *EngineSuite) TestTurnsAdvanceCircularly() {
	state := s.newState("A", "B", "C")
	state.CurrentNumber = 3888 // MMMDCCCLXXXVIII
	var visited []int
	for i := 0; i < 6; i++ {
		visited = append(visited, state.TurnIndex)
		out := s.play(state, numeral.NextLetter(state.CurrentNumber, state.Partial))
		s.Equal(LetterAccepted, out.Kind)
	}
	s.Equal([]int{0, 1, 2, 0, 1, 2}, visited)
}

func (s *EngineSuite) TestLostKeepsTurnAndNumber() {
	state := s.newState("A", "B")
	state.CurrentNumber = 4
	state.Partial = "I"
	state.TurnIndex = 1

	out := SubmitLetter(state, state.Players[1], "I", s.now)
	s.Equal(Lost, out.Kind)
	s.Equal(1, out.NextTurnIndex)
	s.Equal(4, out.NextNumber)
	s.Equal("I", out.NextPartial)
	s.Equal(0, out.ScoreDelta)
}

func (s *EngineSuite) TestPlayMessageCarriesActor() {
	state := s.newState("Ada")
	out := SubmitLetter(state, state.Players[0], "I", s.now)
	s.Equal(model.MessageKindPlay, out.Message.Kind)
	s.Equal("I", out.Message.Text)
	s.Equal(model.PlayerID("Ada"), out.Message.PlayerID)
	s.Equal("Ada", out.Message.PlayerName)
	s.Equal(s.now, out.Message.Timestamp)
	s.Equal(0, out.NextTurnIndex)
}

func (s *EngineSuite) TestRoomUpdate() {
	state := s.newState("A", "B")
	state.CurrentNumber = 2

	accepted := SubmitLetter(state, state.Players[0], "I", s.now).RoomUpdate()
	s.Require().NotNil(accepted.CurrentPartial)
	s.Equal("I", *accepted.CurrentPartial)
	s.Equal(2, *accepted.CurrentNumber)
	s.Equal(1, *accepted.CurrentTurnIndex)
	s.Nil(accepted.Status)

	lost := SubmitLetter(state, state.Players[0], "V", s.now).RoomUpdate()
	s.Require().NotNil(lost.Status)
	s.Equal(model.RoomStatusFinished, *lost.Status)
	s.Nil(lost.CurrentNumber)
}

func (s *EngineSuite) TestNextTurnWithNoPlayers() {
	s.Equal(0, NextTurn(0, 0))
	s.Equal(0, NextTurn(5, 0))
	s.Equal(0, NextTurn(2, 3))
}
