// Package bot drives scripted opponents in local games.
package bot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/numeral"
)

// DefaultThinkTime is the delay before a bot plays its letter
const DefaultThinkTime = 650 * time.Millisecond

// Move identifies the state a scheduled move was planned against
type Move struct {
	PlayerID  model.PlayerID
	Number    int
	Partial   string
	TurnIndex int
	Letter    string
}

// PlayFunc submits a move. Implementations must drop the move if their state no longer
// matches it.
type PlayFunc func(move Move)

type scheduled struct {
	move  Move
	timer clock.Timer
}

// Driver schedules at most one bot move at a time
type Driver struct {
	clock  clock.Clock
	delay  time.Duration
	play   PlayFunc
	logger *slog.Logger

	mu      sync.Mutex
	pending *scheduled
	stopped bool
}

// NewDriver creates a Driver. A non-positive delay uses DefaultThinkTime.
func NewDriver(clk clock.Clock, delay time.Duration, play PlayFunc, logger *slog.Logger) *Driver {
	if delay <= 0 {
		delay = DefaultThinkTime
	}
	return &Driver{
		clock:  clk,
		delay:  delay,
		play:   play,
		logger: logger.With(slog.String("component", "bot-driver")),
	}
}

// PlanMove returns the move a bot should make in state, if any
func PlanMove(state *model.GameState) (Move, bool) {
	if state.IsOver() || len(state.Players) == 0 {
		return Move{}, false
	}
	current := state.CurrentPlayer()
	if !current.IsBot {
		return Move{}, false
	}
	letter := numeral.NextLetter(state.CurrentNumber, state.Partial)
	if letter == "" {
		return Move{}, false
	}
	return Move{
		PlayerID:  current.ID,
		Number:    state.CurrentNumber,
		Partial:   state.Partial,
		TurnIndex: state.CurrentTurn(),
		Letter:    letter,
	}, true
}

// Matches reports whether state is still the one the move was planned against
func (m Move) Matches(state *model.GameState) bool {
	planned, ok := PlanMove(state)
	return ok && planned == m
}

// Sync reschedules against the latest state. A pending move planned against
// different state is cancelled.
func (d *Driver) Sync(state *model.GameState) {
	move, ok := PlanMove(state)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.pending != nil {
		if ok && d.pending.move == move {
			return
		}
		d.pending.timer.Stop()
		d.pending = nil
	}
	if !ok {
		return
	}

	p := &scheduled{move: move}
	p.timer = d.clock.AfterFunc(d.delay, func() { d.fire(p) })
	d.pending = p
	d.logger.Debug("bot move scheduled",
		slog.String("player_id", string(move.PlayerID)),
		slog.Int("number", move.Number),
		slog.String("letter", move.Letter))
}

func (d *Driver) fire(p *scheduled) {
	d.mu.Lock()
	if d.pending != p || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	d.play(p.move)
}

// Pending returns the scheduled move, if any
func (d *Driver) Pending() (Move, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return Move{}, false
	}
	return d.pending.move, true
}

// Cancel drops any scheduled move
func (d *Driver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.timer.Stop()
		d.pending = nil
	}
}

// Stop cancels the scheduled move and ignores later syncs
func (d *Driver) Stop() {
	d.Cancel()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
