package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/reconcile"
	"github.com/mcoot/numerus/internal/storage/local"
)

// RoomCodeAlphabet excludes characters that are easy to confuse
const RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// JoinRequest describes a create or join. An empty Code creates a new room.
type JoinRequest struct {
	Code       model.RoomCode
	Username   string
	Difficulty model.Difficulty
}

func (s *Session) newRoomCode() model.RoomCode {
	return model.RoomCode(s.random.String(model.RoomCodeLength, RoomCodeAlphabet))
}

// BeginCreate starts the create flow in the given mode
func (s *Session) BeginCreate(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	if mode == ModeRemote && s.backend == nil {
		s.screen = ScreenHome
		s.notify()
		return model.ErrBackendUnavailable
	}
	s.mode = mode
	s.flow = FlowCreate
	s.screen = ScreenUsername
	s.notify()
	return nil
}

// BeginJoin starts the join flow in the given mode
func (s *Session) BeginJoin(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	if mode == ModeRemote && s.backend == nil {
		s.screen = ScreenHome
		s.notify()
		return model.ErrBackendUnavailable
	}
	s.mode = mode
	s.flow = FlowJoin
	s.screen = ScreenJoin
	s.notify()
	return nil
}

// SubmitJoinCode validates a code at the join step. Local mode can only join the
// stored room. On failure the session stays at the join step.
func (s *Session) SubmitJoinCode(ctx context.Context, raw string) error {
	code := model.NormalizeRoomCode(raw)
	if !code.Valid() {
		return model.ErrInvalidRoomCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screen != ScreenJoin {
		return nil
	}

	if s.mode == ModeLocal {
		if s.stored == nil || s.stored.Code != code {
			return model.ErrRoomNotFound
		}
		s.seedFromStoredLocked(*s.stored)
		s.state.Messages = []model.Message{
			model.SystemMessage(fmt.Sprintf("Code %s found. Enter your name to join.", code), s.clock.Now()),
		}
	} else {
		room, err := s.backend.GetRoomByCode(ctx, code)
		if err != nil {
			return remoteError("find room", err)
		}
		s.state = model.NewGameState(room.Code, room.Difficulty)
		reconcile.ApplyRoom(&s.state, *room)
	}

	s.pendingCode = code
	s.screen = ScreenUsername
	s.notify()
	return nil
}

func (s *Session) seedFromStoredLocked(snap model.StoredRoomSnapshot) {
	s.state = model.NewGameState(snap.Code, snap.Difficulty)
	for _, p := range snap.Players {
		s.state.Players = append(s.state.Players, model.Player{
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
			IsBot: p.IsBot,
		})
	}
}

// ChangeDifficulty picks the difficulty before entering the game. It is ignored once
// the game screen is reached.
func (s *Session) ChangeDifficulty(ctx context.Context, level model.Difficulty) error {
	if _, err := model.ParseDifficulty(string(level)); err != nil || level == "" {
		return model.ErrInvalidDifficulty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screen == ScreenGame || s.screen == ScreenReconnecting {
		return nil
	}
	s.state.Difficulty = level
	s.state.ShowHints = level.ShowsHints()
	if s.mode == ModeLocal && s.state.Code != "" {
		if err := s.saveRoomLocked(ctx); err != nil {
			return err
		}
	}
	s.notify()
	return nil
}

// SubmitUsername completes the username step using the flow chosen earlier
func (s *Session) SubmitUsername(ctx context.Context, name string) (*model.Player, error) {
	s.mu.Lock()
	req := JoinRequest{Username: name, Difficulty: s.state.Difficulty}
	if s.flow == FlowJoin {
		req.Code = s.pendingCode
	}
	screen := s.screen
	s.mu.Unlock()

	if screen != ScreenUsername {
		return nil, nil
	}
	return s.CreateOrJoin(ctx, req)
}

// CreateOrJoin seats the local user in a new room or in the room with req.Code
func (s *Session) CreateOrJoin(ctx context.Context, req JoinRequest) (*model.Player, error) {
	name := strings.TrimSpace(req.Username)
	if name == "" {
		return nil, model.ErrInvalidUsername
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyNormal
	}
	if _, err := model.ParseDifficulty(string(difficulty)); err != nil {
		return nil, err
	}
	code := model.NormalizeRoomCode(string(req.Code))
	if code != "" && !code.Valid() {
		return nil, model.ErrInvalidRoomCode
	}

	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	if mode == ModeRemote {
		return s.createOrJoinRemote(ctx, code, name, difficulty)
	}
	return s.createOrJoinLocal(ctx, code, name, difficulty)
}

func (s *Session) createOrJoinLocal(ctx context.Context, code model.RoomCode, name string, difficulty model.Difficulty) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	verb := "created"
	switch {
	case code == "":
		s.stopActivityLocked()
		s.state = model.NewGameState(s.newRoomCode(), difficulty)
		s.flow = FlowCreate
	case s.state.Code == code:
		verb = "joined"
	case s.stored != nil && s.stored.Code == code:
		s.stopActivityLocked()
		s.seedFromStoredLocked(*s.stored)
		verb = "joined"
	default:
		return nil, model.ErrRoomNotFound
	}

	for i := range s.state.Players {
		s.state.Players[i].IsLocalUser = false
	}
	now := s.clock.Now()
	player := model.Player{
		ID:          model.PlayerID(uuid.NewString()),
		Name:        name,
		IsLocalUser: true,
		IsOwner:     verb == "created",
		TurnOrder:   len(s.state.Players),
		CreatedAt:   now,
	}
	s.state.Players = append(s.state.Players, player)
	s.state.LocalPlayerID = player.ID
	s.state.ShowHints = s.state.Difficulty.ShowsHints()
	s.state.Messages = append(s.state.Messages, model.SystemMessage(fmt.Sprintf("%s %s the game.", name, verb), now))
	if len(s.state.Players) == 1 {
		s.state.TurnIndex = 0
	} else {
		s.state.TurnIndex = len(s.state.Players) - 1
	}
	s.state.Status = model.RoomStatusActive
	s.state.CurrentNumber = 1
	s.state.Partial = ""

	s.mode = ModeLocal
	s.username = name
	s.pendingCode = ""
	s.screen = ScreenGame

	if err := s.saveRoomLocked(ctx); err != nil {
		s.logger.Warn("failed to store local room", slog.Any("error", err))
	}
	s.logger.Info("local game started",
		slog.String("code", string(s.state.Code)),
		slog.String("player", name),
		slog.Int("players", len(s.state.Players)))
	s.afterChangeLocked()
	return &player, nil
}

func (s *Session) saveRoomLocked(ctx context.Context) error {
	snap := model.SnapshotFromState(&s.state)
	if err := local.SaveRoom(ctx, s.store, snap); err != nil {
		return err
	}
	s.stored = &snap
	return nil
}

// Rehydrate resumes an online room opened directly by id. The stored seat is reused
// when it belongs to this room and its player row still exists; otherwise the
// session moves to the username step to join the room.
func (s *Session) Rehydrate(ctx context.Context, roomID model.RoomID) error {
	s.mu.Lock()
	s.resetLocked()
	if s.backend == nil {
		s.screen = ScreenHome
		s.notify()
		s.mu.Unlock()
		return model.ErrBackendUnavailable
	}
	s.mode = ModeRemote
	s.flow = FlowJoin
	s.screen = ScreenReconnecting
	seat := s.online
	s.notify()
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		s.resetLocked()
		s.screen = ScreenHome
		s.notify()
		s.mu.Unlock()
		return err
	}

	room, err := s.backend.GetRoom(ctx, roomID)
	if err != nil {
		return fail(remoteError("load room", err))
	}
	players, err := s.backend.ListPlayers(ctx, room.ID)
	if err != nil {
		return fail(remoteError("list players", err))
	}

	if seat != nil && seat.RoomID == room.ID {
		for _, p := range players {
			if p.ID != seat.PlayerID {
				continue
			}
			if err := s.attach(ctx, room, p.ID, seat.Username); err != nil {
				return fail(err)
			}
			s.logger.Info("online seat resumed",
				slog.String("room_id", string(room.ID)),
				slog.String("player_id", string(p.ID)))
			return nil
		}
		if err := s.clearOnlineSession(ctx); err != nil {
			s.logger.Warn("failed to clear stale online session", slog.Any("error", err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.toUsernameStepLocked(*room)
	return nil
}

// toUsernameStepLocked shows room at the username step so the user can join it
// again. The caller holds s.mu.
func (s *Session) toUsernameStepLocked(room model.Room) {
	s.state = model.NewGameState(room.Code, room.Difficulty)
	reconcile.ApplyRoom(&s.state, room)
	s.flow = FlowJoin
	s.pendingCode = room.Code
	s.screen = ScreenUsername
	s.notify()
}

// Exit leaves the room and returns home. Online, the local player's row is removed.
// State is reset even when the removal fails.
func (s *Session) Exit(ctx context.Context) error {
	s.mu.Lock()
	mode := s.mode
	me := s.state.LocalPlayerID
	s.stopActivityLocked()
	done := s.remoteDone
	s.remoteDone = nil
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	var errs []error
	if mode == ModeRemote && me != "" {
		if _, err := s.backend.RemovePlayer(ctx, me); err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
			errs = append(errs, remoteError("remove player", err))
		}
	}
	if err := s.clearOnlineSession(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := local.ClearRoom(ctx, s.store); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	s.stored = nil
	s.resetLocked()
	s.screen = ScreenHome
	s.notify()
	s.mu.Unlock()

	return errors.Join(errs...)
}

func (s *Session) clearOnlineSession(ctx context.Context) error {
	if err := local.ClearOnlineSession(ctx, s.store); err != nil {
		return err
	}
	s.mu.Lock()
	s.online = nil
	s.mu.Unlock()
	return nil
}
