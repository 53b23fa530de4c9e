package storage

import (
	"context"

	"github.com/mcoot/numerus/internal/model"
)

// Storage defines the row store shared by all clients of a room
type Storage interface {
	// Room operations
	CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error)
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error)
	UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) (*model.Room, error)

	// Player operations
	AddPlayer(ctx context.Context, player *model.Player) (*model.Player, error)
	ListPlayers(ctx context.Context, roomID model.RoomID) ([]model.Player, error)
	UpdatePlayerScore(ctx context.Context, id model.PlayerID, score int) (*model.Player, error)
	RemovePlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)

	// Message operations
	AddMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	ListMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error)
	ClearMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error)
}
