// Package realtime fans out row changes and presence for rooms. It provides the
// server-side Backend used in-process and over HTTP.
package realtime

import (
	"context"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/storage"
)

// Backend is the shared remote store plus its change and presence feeds
type Backend interface {
	storage.Storage

	// Subscribe streams row changes for a room until ctx is cancelled
	Subscribe(ctx context.Context, roomID model.RoomID) (<-chan model.Change, error)

	// JoinPresence tracks self as live in the room until ctx is cancelled and streams
	// presence notifications for the room
	JoinPresence(ctx context.Context, roomID model.RoomID, self model.PresenceMember) (<-chan model.PresenceEvent, error)
}
