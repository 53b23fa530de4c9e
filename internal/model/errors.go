package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomCodeTaken    = errors.New("room code already in use")
	ErrInvalidRoomCode  = errors.New("room code must be 6 letters or digits")
	ErrNoRoom           = errors.New("no room joined")
	ErrRoomFull         = errors.New("room is full")
	ErrNotEnoughPlayers = errors.New("not enough players")

	// Player errors
	ErrPlayerNotFound  = errors.New("player not found")
	ErrInvalidUsername = errors.New("username must not be empty")

	// Message errors
	ErrMessageNotFound = errors.New("message not found")

	// Game errors
	ErrInvalidLetter     = errors.New("invalid letter")
	ErrInvalidDifficulty = errors.New("invalid difficulty")

	// Backend errors
	ErrBackendUnavailable = errors.New("online backend is not configured")
	ErrTransientWrite     = errors.New("online write failed")
)
