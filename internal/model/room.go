package model

import (
	"strings"
	"time"
)

// RoomID uniquely identifies a room in the remote store
type RoomID string

// RoomCode is the 6-character code players use to join a room
type RoomCode string

// RoomCodeLength is the exact length of a room code
const RoomCodeLength = 6

// NormalizeRoomCode trims and upper-cases a user-entered code
func NormalizeRoomCode(raw string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(raw)))
}

// Valid reports whether the code has the expected shape
func (c RoomCode) Valid() bool {
	if len(c) != RoomCodeLength {
		return false
	}
	for _, r := range c {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Difficulty controls hints and message expiry
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty converts a string into a Difficulty
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return d, nil
	case "":
		return DifficultyNormal, nil
	default:
		return "", ErrInvalidDifficulty
	}
}

// ShowsHints reports whether the target numeral is revealed
func (d Difficulty) ShowsHints() bool {
	return d == DifficultyEasy
}

// MessagesExpire reports whether messages vanish from the log
func (d Difficulty) MessagesExpire() bool {
	return d == DifficultyHard
}

// RoomStatus is the lifecycle state of the current round
type RoomStatus string

const (
	RoomStatusActive   RoomStatus = "active"
	RoomStatusFinished RoomStatus = "finished"
)

// Room is the shared room record
type Room struct {
	ID               RoomID     `json:"id"`
	Code             RoomCode   `json:"code"`
	Difficulty       Difficulty `json:"difficulty"`
	ShowHints        bool       `json:"show_hints"`
	Status           RoomStatus `json:"status"`
	CurrentNumber    int        `json:"current_number"`
	CurrentPartial   string     `json:"current_partial"`
	CurrentTurnIndex int        `json:"current_player_index"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RoomUpdate is a partial update to a room record. Nil fields are left unchanged.
type RoomUpdate struct {
	CurrentNumber    *int        `json:"current_number,omitempty"`
	CurrentPartial   *string     `json:"current_partial,omitempty"`
	CurrentTurnIndex *int        `json:"current_player_index,omitempty"`
	Status           *RoomStatus `json:"status,omitempty"`
	Difficulty       *Difficulty `json:"difficulty,omitempty"`
	ShowHints        *bool       `json:"show_hints,omitempty"`
}

// Apply copies every set field onto the room
func (u RoomUpdate) Apply(room *Room) {
	if u.CurrentNumber != nil {
		room.CurrentNumber = *u.CurrentNumber
	}
	if u.CurrentPartial != nil {
		room.CurrentPartial = *u.CurrentPartial
	}
	if u.CurrentTurnIndex != nil {
		room.CurrentTurnIndex = *u.CurrentTurnIndex
	}
	if u.Status != nil {
		room.Status = *u.Status
	}
	if u.Difficulty != nil {
		room.Difficulty = *u.Difficulty
	}
	if u.ShowHints != nil {
		room.ShowHints = *u.ShowHints
	}
}

// IsEmpty reports whether the update changes nothing
func (u RoomUpdate) IsEmpty() bool {
	return u.CurrentNumber == nil && u.CurrentPartial == nil && u.CurrentTurnIndex == nil &&
		u.Status == nil && u.Difficulty == nil && u.ShowHints == nil
}
