package redis

import (
	"fmt"

	"github.com/mcoot/numerus/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "numerus"

// roomKey returns the Redis key for a Room record
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomCodeIndexKey maps a room code to its id
func roomCodeIndexKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:idx:room_code:%s", keyPrefix, code)
}

// playerKey returns the Redis key for a Player row
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// roomPlayersIndexKey returns the SET of player ids in a room
func roomPlayersIndexKey(roomID model.RoomID) string {
	return fmt.Sprintf("%s:idx:room_players:%s", keyPrefix, roomID)
}

// roomMessagesKey returns the sorted set of messages in a room, scored by id
func roomMessagesKey(roomID model.RoomID) string {
	return fmt.Sprintf("%s:room_messages:%s", keyPrefix, roomID)
}

// messageSeqKey is the counter that hands out message ids
func messageSeqKey() string {
	return fmt.Sprintf("%s:seq:message_id", keyPrefix)
}
