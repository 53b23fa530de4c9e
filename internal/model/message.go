package model

import "time"

// MessageID is assigned by the remote store. Zero means the message was never persisted remotely.
type MessageID int64

// MessageKind classifies log entries
type MessageKind string

const (
	MessageKindSystem MessageKind = "system"
	MessageKindPlay   MessageKind = "play"
	MessageKindError  MessageKind = "error"
)

// Message is an immutable entry in the room log
type Message struct {
	ID             MessageID   `json:"id,omitempty"`
	RoomID         RoomID      `json:"room_id,omitempty"`
	Kind           MessageKind `json:"type"`
	Text           string      `json:"text"`
	PlayerID       PlayerID    `json:"player_id,omitempty"`
	PlayerName     string      `json:"player,omitempty"`
	Number         int         `json:"number,omitempty"`
	CorrectNumeral string      `json:"correct_roman,omitempty"`
	Timestamp      time.Time   `json:"created_at"`
}

// HasID reports whether the message came from the remote store
func (m Message) HasID() bool {
	return m.ID != 0
}

// SameContent matches id-less messages by kind, text and creation instant
func (m Message) SameContent(other Message) bool {
	return m.Kind == other.Kind && m.Text == other.Text && m.Timestamp.Equal(other.Timestamp)
}

// SystemMessage builds a system message
func SystemMessage(text string, at time.Time) Message {
	return Message{Kind: MessageKindSystem, Text: text, Timestamp: at}
}
