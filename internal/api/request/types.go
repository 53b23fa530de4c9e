package request

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	Code       string `json:"code"`
	Difficulty string `json:"difficulty,omitempty"`
	ShowHints  *bool  `json:"show_hints,omitempty"`
}

// AddPlayerRequest is the request body for seating a player in a room
type AddPlayerRequest struct {
	Name      string `json:"name"`
	IsBot     bool   `json:"is_bot"`
	IsOwner   bool   `json:"is_owner"`
	TurnOrder int    `json:"turn_order"`
}

// UpdateScoreRequest is the request body for setting a player's score
type UpdateScoreRequest struct {
	Points *int `json:"points"`
}

// AddMessageRequest is the request body for appending to a room log
type AddMessageRequest struct {
	Type           string `json:"type"`
	Text           string `json:"text"`
	PlayerID       string `json:"player_id,omitempty"`
	PlayerName     string `json:"player,omitempty"`
	Number         int    `json:"number,omitempty"`
	CorrectNumeral string `json:"correct_roman,omitempty"`
	// CreatedAt is the client's creation instant in RFC 3339 form. Empty means now.
	CreatedAt string `json:"created_at,omitempty"`
}
