package model

// GameState is the in-memory view of one room held by a client
type GameState struct {
	RoomID        RoomID
	Code          RoomCode
	Difficulty    Difficulty
	ShowHints     bool
	Status        RoomStatus
	CurrentNumber int
	Partial       string
	TurnIndex     int
	LocalPlayerID PlayerID
	Players       []Player
	Messages      []Message
}

// NewGameState returns the state of a fresh round
func NewGameState(code RoomCode, difficulty Difficulty) GameState {
	return GameState{
		Code:          code,
		Difficulty:    difficulty,
		ShowHints:     difficulty.ShowsHints(),
		Status:        RoomStatusActive,
		CurrentNumber: 1,
	}
}

// IsOver reports whether the round has been lost
func (s GameState) IsOver() bool {
	return s.Status == RoomStatusFinished
}

// CurrentPlayer returns the player whose turn it is, or nil with no players.
// An index past the end of the list wraps around.
func (s *GameState) CurrentPlayer() *Player {
	if len(s.Players) == 0 {
		return nil
	}
	idx := s.TurnIndex % len(s.Players)
	if idx < 0 {
		idx = 0
	}
	return &s.Players[idx]
}

// CurrentTurn returns the normalized turn index
func (s GameState) CurrentTurn() int {
	if len(s.Players) == 0 || s.TurnIndex < 0 {
		return 0
	}
	return s.TurnIndex % len(s.Players)
}

// LocalPlayer returns the player controlled by this client
func (s *GameState) LocalPlayer() *Player {
	for i := range s.Players {
		if s.Players[i].IsLocalUser {
			return &s.Players[i]
		}
	}
	return nil
}

// Player returns the player with the given id
func (s *GameState) Player(id PlayerID) *Player {
	if i := s.PlayerIndex(id); i >= 0 {
		return &s.Players[i]
	}
	return nil
}

// PlayerIndex returns the position of a player in turn order, or -1
func (s GameState) PlayerIndex(id PlayerID) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// HasPlayerNamed reports whether any player already uses name
func (s GameState) HasPlayerNamed(name string) bool {
	for _, p := range s.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to other goroutines
func (s *GameState) Clone() GameState {
	c := *s
	c.Players = append([]Player(nil), s.Players...)
	c.Messages = append([]Message(nil), s.Messages...)
	return c
}
