// Package session owns the live state of one game for one client and drives it in
// either local or online mode.
//
// In local mode every outcome is applied directly and snapshotted to the local store.
// In online mode outcomes are only written to the backend; the session's own state
// changes when the backend echoes the write back through the change feed.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/dependencies/random"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/realtime"
	"github.com/mcoot/numerus/internal/services/bot"
	"github.com/mcoot/numerus/internal/services/presence"
	"github.com/mcoot/numerus/internal/storage/local"
)

// Mode selects where state lives
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Screen is the step of the screen flow the session is at
type Screen string

const (
	ScreenHome         Screen = "home"
	ScreenJoin         Screen = "join"
	ScreenUsername     Screen = "username"
	ScreenGame         Screen = "game"
	ScreenReconnecting Screen = "reconnecting"
)

// Flow distinguishes creating a room from joining one
type Flow string

const (
	FlowCreate Flow = "create"
	FlowJoin   Flow = "join"
)

// Dependencies are the collaborators a Session needs. A nil Backend means online
// play is not configured.
type Dependencies struct {
	Clock   clock.Clock
	Random  random.Random
	Store   local.Store
	Backend realtime.Backend
	Logger  *slog.Logger
}

// Session is a single client's game
type Session struct {
	cfg     Config
	clock   clock.Clock
	random  random.Random
	store   local.Store
	backend realtime.Backend
	logger  *slog.Logger

	mu          sync.Mutex
	mode        Mode
	screen      Screen
	flow        Flow
	state       model.GameState
	username    string
	pendingCode model.RoomCode
	stored      *model.StoredRoomSnapshot
	online      *model.StoredOnlineSession

	driver       *bot.Driver
	monitor      *presence.Monitor
	cancelRemote context.CancelFunc
	remoteDone   chan struct{}
	purgeTimer   clock.Timer
	inFlight     bool
	closed       bool

	updates chan struct{}
}

// New creates a Session at the home screen, loading any stored room and online seat
func New(ctx context.Context, cfg Config, deps Dependencies) (*Session, error) {
	s := &Session{
		cfg:     cfg,
		clock:   deps.Clock,
		random:  deps.Random,
		store:   deps.Store,
		backend: deps.Backend,
		logger:  deps.Logger.With(slog.String("component", "session")),
		mode:    ModeLocal,
		screen:  ScreenHome,
		state:   model.NewGameState("", model.DifficultyNormal),
		updates: make(chan struct{}, 1),
	}
	s.driver = bot.NewDriver(s.clock, cfg.BotThinkTime, s.playBotMove, deps.Logger)

	stored, err := local.LoadRoom(ctx, s.store)
	if err != nil {
		return nil, err
	}
	s.stored = stored

	online, err := local.LoadOnlineSession(ctx, s.store)
	if err != nil {
		return nil, err
	}
	s.online = online
	return s, nil
}

// Updates signals after every state change. Signals coalesce.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// State returns a copy of the current game state
func (s *Session) State() model.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Screen returns the current screen
func (s *Session) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

// Mode returns the current mode
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Username returns the name the local user joined with
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// PendingCode returns the room code chosen at the join step
func (s *Session) PendingCode() model.RoomCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCode
}

// StoredRoom returns the last local room, if any
func (s *Session) StoredRoom() *model.StoredRoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		return nil
	}
	c := *s.stored
	c.Players = append([]model.StoredPlayer(nil), s.stored.Players...)
	return &c
}

// OnlineSession returns the stored online seat, if any
func (s *Session) OnlineSession() *model.StoredOnlineSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online == nil {
		return nil
	}
	c := *s.online
	return &c
}

// Close stops timers and feeds without touching stored or remote state
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopActivityLocked()
	done := s.remoteDone
	s.remoteDone = nil
	s.mu.Unlock()

	s.driver.Stop()
	if done != nil {
		<-done
	}
}

// stopActivityLocked cancels the bot, presence timers, the purge loop and the
// remote feeds. The caller holds s.mu.
func (s *Session) stopActivityLocked() {
	s.driver.Cancel()
	if s.monitor != nil {
		s.monitor.Stop()
		s.monitor = nil
	}
	if s.cancelRemote != nil {
		s.cancelRemote()
		s.cancelRemote = nil
	}
	if s.purgeTimer != nil {
		s.purgeTimer.Stop()
		s.purgeTimer = nil
	}
	s.inFlight = false
}

// resetLocked returns to a blank state. The caller holds s.mu.
func (s *Session) resetLocked() {
	s.stopActivityLocked()
	s.state = model.NewGameState("", model.DifficultyNormal)
	s.username = ""
	s.pendingCode = ""
	s.mode = ModeLocal
	s.flow = ""
}

// afterChangeLocked re-arms timers for the new state and signals listeners.
// The caller holds s.mu.
func (s *Session) afterChangeLocked() {
	if s.mode == ModeLocal && s.screen == ScreenGame {
		s.driver.Sync(&s.state)
	} else {
		s.driver.Cancel()
	}
	s.syncPurgeLocked()
	s.notify()
}
