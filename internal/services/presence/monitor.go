// Package presence turns presence notifications into debounced player removals.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/model"
)

// DefaultGracePeriod is how long a silent participant has to reconnect
const DefaultGracePeriod = 2 * time.Second

// RemoveFunc removes a participant that stayed silent for the whole grace period
type RemoveFunc func(ctx context.Context, member model.PresenceMember)

type pendingRemoval struct {
	member model.PresenceMember
	timer  clock.Timer
	gen    uint64
}

// Monitor tracks pending removals per player id
type Monitor struct {
	clock  clock.Clock
	grace  time.Duration
	remove RemoveFunc
	logger *slog.Logger

	mu      sync.Mutex
	pending map[model.PlayerID]*pendingRemoval
	gen     uint64
	stopped bool
}

// NewMonitor creates a Monitor. A non-positive grace uses DefaultGracePeriod.
func NewMonitor(clk clock.Clock, grace time.Duration, remove RemoveFunc, logger *slog.Logger) *Monitor {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Monitor{
		clock:   clk,
		grace:   grace,
		remove:  remove,
		logger:  logger.With(slog.String("component", "presence-monitor")),
		pending: make(map[model.PlayerID]*pendingRemoval),
	}
}

// Handle dispatches a presence event
func (m *Monitor) Handle(evt model.PresenceEvent) {
	switch evt.Kind {
	case model.PresenceSync:
		m.HandleSync(evt.Live)
	case model.PresenceLeave:
		m.HandleLeave(evt.Left)
	}
}

// HandleSync cancels pending removals for every id that is live again
func (m *Monitor) HandleSync(live []model.PlayerID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range live {
		p, ok := m.pending[id]
		if !ok {
			continue
		}
		p.timer.Stop()
		delete(m.pending, id)
		m.logger.Info("player returned within grace period", slog.String("player_id", string(id)))
	}
}

// HandleLeave arms a removal timer for each member that does not already have one
func (m *Monitor) HandleLeave(left []model.PresenceMember) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	for _, member := range left {
		if _, ok := m.pending[member.PlayerID]; ok {
			continue
		}
		m.gen++
		p := &pendingRemoval{member: member, gen: m.gen}
		p.timer = m.clock.AfterFunc(m.grace, func() { m.expire(member.PlayerID, p.gen) })
		m.pending[member.PlayerID] = p
		m.logger.Info("player went silent",
			slog.String("player_id", string(member.PlayerID)),
			slog.Duration("grace", m.grace))
	}
}

func (m *Monitor) expire(id model.PlayerID, gen uint64) {
	m.mu.Lock()
	p, ok := m.pending[id]
	if !ok || p.gen != gen || m.stopped {
		m.mu.Unlock()
		return
	}
	delete(m.pending, id)
	m.mu.Unlock()

	m.logger.Info("removing silent player", slog.String("player_id", string(id)))
	m.remove(context.Background(), p.member)
}

// Pending reports whether a removal is scheduled for id
func (m *Monitor) Pending(id model.PlayerID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[id]
	return ok
}

// Stop cancels every pending removal. Later events are ignored.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	for id, p := range m.pending {
		p.timer.Stop()
		delete(m.pending, id)
	}
}
