package model

// StoredPlayer is a player as persisted in a local room snapshot
type StoredPlayer struct {
	ID    PlayerID `json:"id"`
	Name  string   `json:"name"`
	Score int      `json:"points"`
	IsBot bool     `json:"isBot"`
}

// StoredRoomSnapshot is the durable local-mode room. The local user flag is never stored.
type StoredRoomSnapshot struct {
	Code       RoomCode       `json:"code"`
	Players    []StoredPlayer `json:"players"`
	ShowHints  bool           `json:"showHints"`
	Difficulty Difficulty     `json:"difficulty"`
}

// StoredOnlineSession points a returning user at their remote seat
type StoredOnlineSession struct {
	RoomID   RoomID   `json:"roomId"`
	RoomCode RoomCode `json:"roomCode"`
	PlayerID PlayerID `json:"playerId"`
	Username string   `json:"username"`
}

// SnapshotFromState projects a game state onto a storable snapshot
func SnapshotFromState(s *GameState) StoredRoomSnapshot {
	players := make([]StoredPlayer, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, StoredPlayer{ID: p.ID, Name: p.Name, Score: p.Score, IsBot: p.IsBot})
	}
	return StoredRoomSnapshot{Code: s.Code, Players: players, ShowHints: s.ShowHints, Difficulty: s.Difficulty}
}
