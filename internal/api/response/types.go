package response

import "github.com/mcoot/numerus/internal/model"

// Players is the response for listing a room's players
type Players struct {
	Players []model.Player `json:"players"`
}

// Messages is the response for listing or clearing a room's log
type Messages struct {
	Messages []model.Message `json:"messages"`
}

// Health is the response for the health check
type Health struct {
	Status string `json:"status"`
}

// PlayersFromModel wraps a player list, never encoding null
func PlayersFromModel(players []model.Player) Players {
	if players == nil {
		players = []model.Player{}
	}
	return Players{Players: players}
}

// MessagesFromModel wraps a message list, never encoding null
func MessagesFromModel(messages []model.Message) Messages {
	if messages == nil {
		messages = []model.Message{}
	}
	return Messages{Messages: messages}
}
