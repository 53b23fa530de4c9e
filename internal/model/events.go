package model

// Table names a row collection in the remote store
type Table string

const (
	TableRooms    Table = "rooms"
	TablePlayers  Table = "room_players"
	TableMessages Table = "room_messages"
)

// ChangeType is the kind of row change
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change is a row-level change notification. Exactly one of Room, Player or Message is set,
// matching Table.
type Change struct {
	Table   Table      `json:"table"`
	Type    ChangeType `json:"event_type"`
	RoomID  RoomID     `json:"room_id"`
	Room    *Room      `json:"room,omitempty"`
	Player  *Player    `json:"player,omitempty"`
	Message *Message   `json:"message,omitempty"`
}

// RoomChanged builds an update notification for a room record
func RoomChanged(room Room) Change {
	return Change{Table: TableRooms, Type: ChangeUpdate, RoomID: room.ID, Room: &room}
}

// PlayerChanged builds a notification for a player row
func PlayerChanged(t ChangeType, player Player) Change {
	return Change{Table: TablePlayers, Type: t, RoomID: player.RoomID, Player: &player}
}

// MessageChanged builds a notification for a message row
func MessageChanged(t ChangeType, msg Message) Change {
	return Change{Table: TableMessages, Type: t, RoomID: msg.RoomID, Message: &msg}
}

// PresenceEventKind distinguishes presence notifications
type PresenceEventKind string

const (
	PresenceSync  PresenceEventKind = "sync"
	PresenceLeave PresenceEventKind = "leave"
)

// PresenceEvent reports the live participant set or participants that went silent
type PresenceEvent struct {
	Kind PresenceEventKind `json:"kind"`
	Live []PlayerID        `json:"live,omitempty"`
	Left []PresenceMember  `json:"left,omitempty"`
}
