// Package reconcile merges row change notifications into a client's game state.
//
// Every rule is idempotent: delivering the same notification twice, or delivering
// notifications of different kinds out of order, converges on the same state.
package reconcile

import (
	"sort"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/numeral"
)

// Apply merges one change into state. Changes for other rooms are ignored.
// It reports whether state was modified.
func Apply(state *model.GameState, change model.Change) bool {
	if change.RoomID != "" && state.RoomID != "" && change.RoomID != state.RoomID {
		return false
	}

	switch change.Table {
	case model.TablePlayers:
		if change.Player == nil {
			return false
		}
		if change.Type == model.ChangeDelete {
			return RemovePlayer(state, change.Player.ID)
		}
		UpsertPlayer(state, *change.Player)
		return true

	case model.TableMessages:
		if change.Message == nil {
			return false
		}
		if change.Type == model.ChangeDelete {
			return RemoveMessage(state, change.Message.ID)
		}
		return AppendMessage(state, *change.Message)

	case model.TableRooms:
		if change.Room == nil || change.Type == model.ChangeDelete {
			return false
		}
		ApplyRoom(state, *change.Room)
		return true
	}
	return false
}

// UpsertPlayer inserts or replaces a player by id and re-sorts by turn order
func UpsertPlayer(state *model.GameState, p model.Player) {
	p.IsLocalUser = p.ID == state.LocalPlayerID
	if i := state.PlayerIndex(p.ID); i >= 0 {
		state.Players[i] = p
	} else {
		state.Players = append(state.Players, p)
	}
	SortPlayers(state.Players)
}

// SortPlayers orders players by turn order, keeping arrival order among equal values
func SortPlayers(players []model.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].TurnOrder < players[j].TurnOrder
	})
}

// RemovePlayer drops a player by id
func RemovePlayer(state *model.GameState, id model.PlayerID) bool {
	i := state.PlayerIndex(id)
	if i < 0 {
		return false
	}
	state.Players = append(state.Players[:i], state.Players[i+1:]...)
	return true
}

// AppendMessage adds msg unless an equivalent message is already in the log.
// Messages with an id match by id; messages without one match by content.
func AppendMessage(state *model.GameState, msg model.Message) bool {
	for _, existing := range state.Messages {
		if msg.HasID() {
			if existing.ID == msg.ID {
				return false
			}
			continue
		}
		if !existing.HasID() && existing.SameContent(msg) {
			return false
		}
	}
	state.Messages = append(state.Messages, msg)
	return true
}

// RemoveMessage drops a message by id
func RemoveMessage(state *model.GameState, id model.MessageID) bool {
	if id == 0 {
		return false
	}
	for i, m := range state.Messages {
		if m.ID == id {
			state.Messages = append(state.Messages[:i], state.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyRoom overwrites the room fields wholesale. The partial numeral is taken from
// the record only when it is a strict prefix of the record's own number, so a buffer
// tracked for an earlier number never survives a number change.
func ApplyRoom(state *model.GameState, room model.Room) {
	if state.RoomID == "" {
		state.RoomID = room.ID
	}
	if room.Code != "" {
		state.Code = room.Code
	}
	state.CurrentNumber = room.CurrentNumber
	state.TurnIndex = room.CurrentTurnIndex
	state.Status = room.Status
	state.Difficulty = room.Difficulty
	state.ShowHints = room.ShowHints

	state.Partial = ""
	if numeral.IsStrictPrefix(room.CurrentNumber, room.CurrentPartial) {
		state.Partial = room.CurrentPartial
	}
}

// SortMessages orders a hydrated log: remote messages by id, local ones by time
func SortMessages(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].HasID() && msgs[j].HasID() {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// Hydrate builds a state from a full read of the remote rows
func Hydrate(room model.Room, players []model.Player, messages []model.Message, local model.PlayerID) model.GameState {
	state := model.GameState{LocalPlayerID: local}
	ApplyRoom(&state, room)
	for _, p := range players {
		UpsertPlayer(&state, p)
	}
	for _, m := range messages {
		AppendMessage(&state, m)
	}
	SortMessages(state.Messages)
	return state
}
