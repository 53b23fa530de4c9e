// Package engine decides the outcome of a single submitted letter.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/numeral"
)

// OutcomeKind is the result class of a submission
type OutcomeKind int

const (
	// LetterAccepted extends the partial numeral without completing it
	LetterAccepted OutcomeKind = iota
	// NumberCompleted finishes the numeral and scores a point
	NumberCompleted
	// Lost ends the round
	Lost
)

func (k OutcomeKind) String() string {
	switch k {
	case LetterAccepted:
		return "letter_accepted"
	case NumberCompleted:
		return "number_completed"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Outcome describes how a submission changes the game. It carries the full next state
// of every field the submission touches so callers can apply it locally or write it out.
type Outcome struct {
	Kind    OutcomeKind
	Actor   model.Player
	Letter  string
	Target  string
	Message model.Message

	NextNumber    int
	NextPartial   string
	NextTurnIndex int
	NextStatus    model.RoomStatus
	// ScoreDelta is added to the actor's score
	ScoreDelta int
}

// NextTurn advances a turn index circularly. With no players the index stays 0.
func NextTurn(index, playerCount int) int {
	if playerCount <= 0 {
		return 0
	}
	return (index + 1) % playerCount
}

// SubmitLetter evaluates letter played by actor against state. The caller has already
// checked that the round is active and that it is actor's turn.
func SubmitLetter(state *model.GameState, actor model.Player, letter string, now time.Time) Outcome {
	target := numeral.ToRoman(state.CurrentNumber)
	candidate := state.Partial + letter

	out := Outcome{
		Actor:         actor,
		Letter:        letter,
		Target:        target,
		NextNumber:    state.CurrentNumber,
		NextPartial:   state.Partial,
		NextTurnIndex: state.CurrentTurn(),
		NextStatus:    state.Status,
	}

	if !strings.HasPrefix(target, candidate) {
		out.Kind = Lost
		out.NextStatus = model.RoomStatusFinished
		out.Message = model.Message{
			RoomID:         state.RoomID,
			Kind:           model.MessageKindError,
			Text:           fmt.Sprintf("%s lost: %d is %s, not %s.", actor.Name, state.CurrentNumber, target, candidate),
			PlayerID:       actor.ID,
			PlayerName:     actor.Name,
			Number:         state.CurrentNumber,
			CorrectNumeral: target,
			Timestamp:      now,
		}
		return out
	}

	out.Message = model.Message{
		RoomID:     state.RoomID,
		Kind:       model.MessageKindPlay,
		Text:       letter,
		PlayerID:   actor.ID,
		PlayerName: actor.Name,
		Number:     state.CurrentNumber,
		Timestamp:  now,
	}
	out.NextTurnIndex = NextTurn(state.CurrentTurn(), len(state.Players))

	if candidate == target {
		out.Kind = NumberCompleted
		out.ScoreDelta = 1
		out.NextNumber = state.CurrentNumber + 1
		out.NextPartial = ""
		return out
	}

	out.Kind = LetterAccepted
	out.NextPartial = candidate
	return out
}

// Apply mutates state with the outcome, appending its message to the log
func (o Outcome) Apply(state *model.GameState) {
	if p := state.Player(o.Actor.ID); p != nil {
		p.Score += o.ScoreDelta
	}
	state.CurrentNumber = o.NextNumber
	state.Partial = o.NextPartial
	state.TurnIndex = o.NextTurnIndex
	state.Status = o.NextStatus
	state.Messages = append(state.Messages, o.Message)
}

// RoomUpdate returns the room fields the outcome changes
func (o Outcome) RoomUpdate() model.RoomUpdate {
	u := model.RoomUpdate{}
	if o.Kind == Lost {
		status := model.RoomStatusFinished
		u.Status = &status
		return u
	}
	number, partial, turn := o.NextNumber, o.NextPartial, o.NextTurnIndex
	u.CurrentNumber = &number
	u.CurrentPartial = &partial
	u.CurrentTurnIndex = &turn
	return u
}
