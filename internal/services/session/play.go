package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/bot"
	"github.com/mcoot/numerus/internal/services/engine"
	"github.com/mcoot/numerus/internal/services/numeral"
)

// SubmitLetter plays letter for the local user. It reports whether the letter was
// played; it is a no-op when it is not the local user's turn or the round is over.
func (s *Session) SubmitLetter(ctx context.Context, letter string) (bool, error) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if !numeral.IsKey(letter) {
		return false, model.ErrInvalidLetter
	}

	s.mu.Lock()
	if s.screen != ScreenGame || s.state.IsOver() || s.inFlight {
		s.mu.Unlock()
		return false, nil
	}
	current := s.state.CurrentPlayer()
	if current == nil || !current.IsLocalUser {
		s.mu.Unlock()
		return false, nil
	}
	if s.mode == ModeRemote && len(s.state.Players) < s.cfg.MinOnlinePlayers {
		s.mu.Unlock()
		return false, model.ErrNotEnoughPlayers
	}

	actor := *current
	outcome := engine.SubmitLetter(&s.state, actor, letter, s.clock.Now())
	s.logger.Debug("letter submitted",
		slog.String("player", actor.Name),
		slog.String("letter", letter),
		slog.String("outcome", outcome.Kind.String()))

	if s.mode == ModeLocal {
		s.applyLocalOutcomeLocked(ctx, outcome)
		s.mu.Unlock()
		return true, nil
	}

	s.inFlight = true
	roomID := s.state.RoomID
	s.mu.Unlock()

	if err := s.publishOutcome(ctx, roomID, outcome); err != nil {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		return false, err
	}
	return true, nil
}

func (s *Session) applyLocalOutcomeLocked(ctx context.Context, outcome engine.Outcome) {
	outcome.Apply(&s.state)
	if outcome.Kind == engine.NumberCompleted {
		if err := s.saveRoomLocked(ctx); err != nil {
			s.logger.Warn("failed to store local room", slog.Any("error", err))
		}
	}
	s.afterChangeLocked()
}

func (s *Session) publishOutcome(ctx context.Context, roomID model.RoomID, outcome engine.Outcome) error {
	msg := outcome.Message
	msg.RoomID = roomID
	if _, err := s.backend.AddMessage(ctx, &msg); err != nil {
		return remoteError("post message", err)
	}
	if outcome.ScoreDelta != 0 {
		if _, err := s.backend.UpdatePlayerScore(ctx, outcome.Actor.ID, outcome.Actor.Score+outcome.ScoreDelta); err != nil {
			return remoteError("update score", err)
		}
	}
	if _, err := s.backend.UpdateRoom(ctx, roomID, outcome.RoomUpdate()); err != nil {
		return remoteError("update room", err)
	}
	return nil
}

// playBotMove is the bot driver's callback. Moves planned against outdated state are dropped.
func (s *Session) playBotMove(move bot.Move) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.mode != ModeLocal || s.screen != ScreenGame || !move.Matches(&s.state) {
		return
	}
	actor := s.state.Player(move.PlayerID)
	outcome := engine.SubmitLetter(&s.state, *actor, move.Letter, s.clock.Now())
	s.applyLocalOutcomeLocked(context.Background(), outcome)
}

// AddBot seats a bot with an unused roster name. It returns nil without error when no
// bot can be added: no room yet, a full room, or every roster name taken.
func (s *Session) AddBot(ctx context.Context) (*model.Player, error) {
	s.mu.Lock()
	if s.screen != ScreenGame || s.state.Code == "" || len(s.state.Players) >= s.cfg.MaxPlayers {
		s.mu.Unlock()
		return nil, nil
	}
	name := bot.PickName(&s.state, s.random)
	if name == "" {
		s.mu.Unlock()
		return nil, nil
	}
	now := s.clock.Now()
	text := fmt.Sprintf("%s joins as a bot.", name)

	if s.mode == ModeLocal {
		defer s.mu.Unlock()
		player := model.Player{
			ID:        model.PlayerID(uuid.NewString()),
			Name:      name,
			IsBot:     true,
			TurnOrder: len(s.state.Players),
			CreatedAt: now,
		}
		s.state.Players = append(s.state.Players, player)
		s.state.Messages = append(s.state.Messages, model.SystemMessage(text, now))
		if err := s.saveRoomLocked(ctx); err != nil {
			s.logger.Warn("failed to store local room", slog.Any("error", err))
		}
		s.afterChangeLocked()
		return &player, nil
	}

	roomID := s.state.RoomID
	turnOrder := nextTurnOrder(s.state.Players)
	s.mu.Unlock()

	player, err := s.backend.AddPlayer(ctx, &model.Player{RoomID: roomID, Name: name, IsBot: true, TurnOrder: turnOrder})
	if err != nil {
		return nil, remoteError("add bot", err)
	}
	if _, err := s.backend.AddMessage(ctx, &model.Message{
		RoomID:    roomID,
		Kind:      model.MessageKindSystem,
		Text:      text,
		PlayerID:  player.ID,
		Timestamp: now,
	}); err != nil {
		return player, remoteError("post message", err)
	}
	return player, nil
}

// Restart starts a new round with a random first player and zeroed scores
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	if s.screen != ScreenGame || len(s.state.Players) == 0 {
		s.mu.Unlock()
		return nil
	}
	start := s.random.Intn(len(s.state.Players))
	msg := model.SystemMessage(fmt.Sprintf("New game! %s starts.", s.state.Players[start].Name), s.clock.Now())

	if s.mode == ModeLocal {
		defer s.mu.Unlock()
		for i := range s.state.Players {
			s.state.Players[i].Score = 0
		}
		s.state.CurrentNumber = 1
		s.state.Partial = ""
		s.state.TurnIndex = start
		s.state.Status = model.RoomStatusActive
		s.state.Messages = []model.Message{msg}
		if err := s.saveRoomLocked(ctx); err != nil {
			s.logger.Warn("failed to store local room", slog.Any("error", err))
		}
		s.afterChangeLocked()
		return nil
	}

	roomID := s.state.RoomID
	ids := make([]model.PlayerID, 0, len(s.state.Players))
	for _, p := range s.state.Players {
		ids = append(ids, p.ID)
	}
	s.mu.Unlock()

	if _, err := s.backend.ClearMessages(ctx, roomID); err != nil {
		return remoteError("clear messages", err)
	}
	msg.RoomID = roomID
	if _, err := s.backend.AddMessage(ctx, &msg); err != nil {
		return remoteError("post message", err)
	}
	for _, id := range ids {
		if _, err := s.backend.UpdatePlayerScore(ctx, id, 0); err != nil {
			return remoteError("reset score", err)
		}
	}
	number, partial, status := 1, "", model.RoomStatusActive
	if _, err := s.backend.UpdateRoom(ctx, roomID, model.RoomUpdate{
		CurrentNumber:    &number,
		CurrentPartial:   &partial,
		CurrentTurnIndex: &start,
		Status:           &status,
	}); err != nil {
		return remoteError("reset room", err)
	}
	return nil
}
