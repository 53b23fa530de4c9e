package model

import "time"

// PlayerID uniquely identifies a player within a room
type PlayerID string

// Player is a participant in a room
type Player struct {
	ID     PlayerID `json:"id"`
	RoomID RoomID   `json:"room_id,omitempty"`
	Name   string   `json:"name"`
	// IsLocalUser marks the player controlled by this client. It never leaves the process.
	IsLocalUser bool      `json:"-"`
	IsBot       bool      `json:"is_bot"`
	IsOwner     bool      `json:"is_owner"`
	Score       int       `json:"points"`
	TurnOrder   int       `json:"turn_order"`
	CreatedAt   time.Time `json:"created_at"`
}

// PresenceMember identifies a participant on the presence channel
type PresenceMember struct {
	PlayerID PlayerID `json:"player_id"`
	Name     string   `json:"name"`
}
