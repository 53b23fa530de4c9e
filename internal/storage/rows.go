package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/numerus/internal/model"
)

// PrepareRoom fills the server-assigned fields of a new room
func PrepareRoom(room *model.Room, now time.Time) model.Room {
	r := *room
	if r.ID == "" {
		r.ID = model.RoomID(uuid.NewString())
	}
	if r.Difficulty == "" {
		r.Difficulty = model.DifficultyNormal
	}
	r.Status = model.RoomStatusActive
	r.CurrentNumber = 1
	r.CurrentPartial = ""
	r.CurrentTurnIndex = 0
	r.CreatedAt = now
	return r
}

// PreparePlayer fills the server-assigned fields of a new player
func PreparePlayer(player *model.Player, now time.Time) model.Player {
	p := *player
	if p.ID == "" {
		p.ID = model.PlayerID(uuid.NewString())
	}
	p.IsLocalUser = false
	p.CreatedAt = now
	return p
}
