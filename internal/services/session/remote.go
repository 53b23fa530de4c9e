package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/presence"
	"github.com/mcoot/numerus/internal/services/reconcile"
	"github.com/mcoot/numerus/internal/storage/local"
)

// remoteError keeps domain sentinels and marks everything else as a failed write
func remoteError(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrPlayerNotFound),
		errors.Is(err, model.ErrBackendUnavailable),
		errors.Is(err, model.ErrTransientWrite),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %s: %v", model.ErrTransientWrite, op, err)
}

// nextTurnOrder returns a turn order after every seated player
func nextTurnOrder(players []model.Player) int {
	next := len(players)
	for _, p := range players {
		if p.TurnOrder >= next {
			next = p.TurnOrder + 1
		}
	}
	return next
}

func (s *Session) createOrJoinRemote(ctx context.Context, code model.RoomCode, name string, difficulty model.Difficulty) (*model.Player, error) {
	if s.backend == nil {
		s.mu.Lock()
		s.resetLocked()
		s.screen = ScreenHome
		s.notify()
		s.mu.Unlock()
		return nil, model.ErrBackendUnavailable
	}

	owner := code == ""
	var room *model.Room
	var err error
	if owner {
		for attempt := 0; attempt < max(s.cfg.CodeAttempts, 1); attempt++ {
			room, err = s.backend.CreateRoom(ctx, &model.Room{
				Code:       s.newRoomCode(),
				Difficulty: difficulty,
				ShowHints:  difficulty.ShowsHints(),
			})
			if !errors.Is(err, model.ErrRoomCodeTaken) {
				break
			}
		}
		if err != nil {
			return nil, remoteError("create room", err)
		}
	} else {
		room, err = s.backend.GetRoomByCode(ctx, code)
		if err != nil {
			return nil, remoteError("find room", err)
		}
	}

	players, err := s.backend.ListPlayers(ctx, room.ID)
	if err != nil {
		return nil, remoteError("list players", err)
	}
	player, err := s.backend.AddPlayer(ctx, &model.Player{
		RoomID:    room.ID,
		Name:      name,
		IsOwner:   owner,
		TurnOrder: nextTurnOrder(players),
	})
	if err != nil {
		return nil, remoteError("add player", err)
	}

	if err := s.attach(ctx, room, player.ID, name); err != nil {
		if _, rmErr := s.backend.RemovePlayer(ctx, player.ID); rmErr != nil {
			s.logger.Warn("failed to remove orphaned player", slog.Any("error", rmErr))
		}
		return nil, err
	}

	verb := "joined"
	if owner {
		verb = "created"
	}
	if _, err := s.backend.AddMessage(ctx, &model.Message{
		RoomID:    room.ID,
		Kind:      model.MessageKindSystem,
		Text:      fmt.Sprintf("%s %s the game.", name, verb),
		PlayerID:  player.ID,
		Timestamp: s.clock.Now(),
	}); err != nil {
		return player, remoteError("post message", err)
	}

	s.logger.Info("online game joined",
		slog.String("room_id", string(room.ID)),
		slog.String("code", string(room.Code)),
		slog.String("player_id", string(player.ID)),
		slog.Bool("owner", owner))

	seated := *player
	seated.IsLocalUser = true
	return &seated, nil
}

// attach subscribes to the room's feeds, hydrates state from a full read and moves
// to the game screen. Changes arriving during the read are buffered and replayed.
func (s *Session) attach(ctx context.Context, room *model.Room, me model.PlayerID, username string) error {
	feedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	changes, err := s.backend.Subscribe(feedCtx, room.ID)
	if err != nil {
		cancel()
		return remoteError("subscribe", err)
	}
	events, err := s.backend.JoinPresence(feedCtx, room.ID, model.PresenceMember{PlayerID: me, Name: username})
	if err != nil {
		cancel()
		return remoteError("join presence", err)
	}

	latest, err := s.backend.GetRoom(ctx, room.ID)
	if err != nil {
		cancel()
		return remoteError("load room", err)
	}
	players, err := s.backend.ListPlayers(ctx, room.ID)
	if err != nil {
		cancel()
		return remoteError("list players", err)
	}
	messages, err := s.backend.ListMessages(ctx, room.ID)
	if err != nil {
		cancel()
		return remoteError("list messages", err)
	}

	seat := model.StoredOnlineSession{RoomID: room.ID, RoomCode: room.Code, PlayerID: me, Username: username}
	if err := local.SaveOnlineSession(ctx, s.store, seat); err != nil {
		s.logger.Warn("failed to store online session", slog.Any("error", err))
	}

	monitor := presence.NewMonitor(s.clock, s.cfg.GracePeriod, s.removeSilentPlayer, s.logger)
	done := make(chan struct{})

	s.mu.Lock()
	if s.closed || ctx.Err() != nil {
		s.mu.Unlock()
		cancel()
		monitor.Stop()
		if err := ctx.Err(); err != nil {
			return err
		}
		return model.ErrNoRoom
	}
	s.stopActivityLocked()
	s.state = reconcile.Hydrate(*latest, players, messages, me)
	s.mode = ModeRemote
	s.username = username
	s.pendingCode = ""
	s.screen = ScreenGame
	s.online = &seat
	s.monitor = monitor
	s.cancelRemote = cancel
	s.remoteDone = done
	s.inFlight = false
	s.afterChangeLocked()
	s.mu.Unlock()

	go s.pump(feedCtx, changes, events, monitor, done)
	return nil
}

func (s *Session) pump(ctx context.Context, changes <-chan model.Change, events <-chan model.PresenceEvent, monitor *presence.Monitor, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				s.feedLost(ctx)
				return
			}
			s.applyChange(ctx, c)
		case e, ok := <-events:
			if !ok {
				s.feedLost(ctx)
				return
			}
			monitor.Handle(e)
		}
	}
}

// feedLost moves to the reconnecting screen and starts reattaching to the seat when
// a feed ends without the session stopping it
func (s *Session) feedLost(feedCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if feedCtx.Err() != nil || s.closed || s.screen != ScreenGame {
		return
	}
	seat := model.StoredOnlineSession{
		RoomID:   s.state.RoomID,
		RoomCode: s.state.Code,
		PlayerID: s.state.LocalPlayerID,
		Username: s.username,
	}
	if s.online != nil && s.online.RoomID == seat.RoomID {
		seat = *s.online
	}
	s.logger.Warn("online feeds closed, reconnecting",
		slog.String("room_id", string(seat.RoomID)),
		slog.String("player_id", string(seat.PlayerID)))

	s.stopActivityLocked()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancelRemote = cancel
	s.remoteDone = done
	s.screen = ScreenReconnecting
	s.afterChangeLocked()

	go s.reconnect(ctx, seat, done)
}

// reconnect reattaches to seat with exponential backoff. It gives up when the room
// is gone, and falls back to the username step when the seat was removed meanwhile.
func (s *Session) reconnect(ctx context.Context, seat model.StoredOnlineSession, done chan struct{}) {
	defer close(done)

	delay := s.cfg.ReconnectDelay
	for attempt := 1; ; attempt++ {
		err := s.reattach(ctx, seat)
		if err == nil {
			s.logger.Info("online seat reattached",
				slog.String("room_id", string(seat.RoomID)),
				slog.Int("attempt", attempt))
			return
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, model.ErrRoomNotFound) {
			s.logger.Warn("room is gone, leaving", slog.String("room_id", string(seat.RoomID)))
			s.mu.Lock()
			gone := ctx.Err() == nil
			if gone {
				s.resetLocked()
				s.screen = ScreenHome
				s.notify()
			}
			s.mu.Unlock()
			if gone {
				if err := s.clearOnlineSession(context.Background()); err != nil {
					s.logger.Warn("failed to clear online session", slog.Any("error", err))
				}
			}
			return
		}

		s.logger.Warn("reconnect failed",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.Any("error", err))
		if !s.wait(ctx, delay) {
			return
		}
		delay = min(delay*2, s.cfg.MaxReconnectDelay)
	}
}

func (s *Session) reattach(ctx context.Context, seat model.StoredOnlineSession) error {
	room, err := s.backend.GetRoom(ctx, seat.RoomID)
	if err != nil {
		return err
	}
	players, err := s.backend.ListPlayers(ctx, room.ID)
	if err != nil {
		return err
	}
	for _, p := range players {
		if p.ID == seat.PlayerID {
			return s.attach(ctx, room, seat.PlayerID, seat.Username)
		}
	}

	s.logger.Warn("seat was removed while disconnected", slog.String("player_id", string(seat.PlayerID)))
	if err := s.clearOnlineSession(ctx); err != nil {
		s.logger.Warn("failed to clear stale online session", slog.Any("error", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() == nil {
		s.toUsernameStepLocked(*room)
	}
	return nil
}

// wait blocks for d on the session clock. It reports false when ctx ends first.
func (s *Session) wait(ctx context.Context, d time.Duration) bool {
	fired := make(chan struct{})
	timer := s.clock.AfterFunc(d, func() { close(fired) })
	defer timer.Stop()

	select {
	case <-fired:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) applyChange(ctx context.Context, c model.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if c.Table == model.TableRooms {
		s.inFlight = false
	}
	if !reconcile.Apply(&s.state, c) {
		return
	}
	if c.Table == model.TablePlayers && c.Type == model.ChangeDelete && c.Player.ID == s.state.LocalPlayerID {
		s.logger.Warn("local player was removed from the room",
			slog.String("player_id", string(c.Player.ID)))
	}
	s.afterChangeLocked()
}

// removeSilentPlayer removes a player whose grace period ran out. When several
// clients race, only the one whose removal succeeds posts the message.
func (s *Session) removeSilentPlayer(ctx context.Context, member model.PresenceMember) {
	s.mu.Lock()
	me := s.state.LocalPlayerID
	roomID := s.state.RoomID
	s.mu.Unlock()

	if member.PlayerID == me || roomID == "" {
		return
	}

	removed, err := s.backend.RemovePlayer(ctx, member.PlayerID)
	if errors.Is(err, model.ErrPlayerNotFound) {
		s.logger.Debug("silent player already removed", slog.String("player_id", string(member.PlayerID)))
		return
	}
	if err != nil {
		s.logger.Warn("failed to remove silent player",
			slog.String("player_id", string(member.PlayerID)),
			slog.Any("error", err))
		return
	}

	name := member.Name
	if name == "" {
		name = removed.Name
	}
	if name == "" {
		name = "A player"
	}
	if _, err := s.backend.AddMessage(ctx, &model.Message{
		RoomID:    roomID,
		Kind:      model.MessageKindSystem,
		Text:      fmt.Sprintf("%s left the game.", name),
		PlayerID:  member.PlayerID,
		Timestamp: s.clock.Now(),
	}); err != nil {
		s.logger.Warn("failed to post leave message", slog.Any("error", err))
	}
}
