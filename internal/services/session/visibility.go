package session

import (
	"time"

	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/model"
)

// VisibleMessage is a log entry as it should be shown at a given instant
type VisibleMessage struct {
	model.Message
	// Vanishing marks a hard difficulty message in the last part of its lifetime
	Vanishing bool
}

// VisibleMessages returns the log as visible at now. On hard difficulty expired
// messages are hidden and fading ones are flagged.
func (s *Session) VisibleMessages(now time.Time) []VisibleMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return visibleMessages(s.state.Messages, s.state.Difficulty, s.cfg, now)
}

func visibleMessages(msgs []model.Message, difficulty model.Difficulty, cfg Config, now time.Time) []VisibleMessage {
	out := make([]VisibleMessage, 0, len(msgs))
	for _, m := range msgs {
		if !difficulty.MessagesExpire() {
			out = append(out, VisibleMessage{Message: m})
			continue
		}
		age := now.Sub(m.Timestamp)
		if age >= cfg.MessageLifetime {
			continue
		}
		out = append(out, VisibleMessage{Message: m, Vanishing: age >= cfg.MessageLifetime-cfg.VanishWindow})
	}
	return out
}

// NeedsRedraw reports whether visible messages are fading and the view should be
// refreshed every RedrawInterval
func (s *Session) NeedsRedraw() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Difficulty.MessagesExpire() && len(s.state.Messages) > 0
}

// RedrawInterval returns the redraw cadence for fading messages
func (s *Session) RedrawInterval() time.Duration {
	return s.cfg.RedrawInterval
}

// syncPurgeLocked runs the purge loop only while a hard game is on screen.
// The caller holds s.mu.
func (s *Session) syncPurgeLocked() {
	active := s.screen == ScreenGame && s.state.Difficulty.MessagesExpire()
	switch {
	case active && s.purgeTimer == nil:
		s.schedulePurgeLocked()
	case !active && s.purgeTimer != nil:
		s.purgeTimer.Stop()
		s.purgeTimer = nil
	}
}

func (s *Session) schedulePurgeLocked() {
	var t clock.Timer
	t = s.clock.AfterFunc(s.cfg.PurgeInterval, func() { s.purge(t) })
	s.purgeTimer = t
}

func (s *Session) purge(self clock.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.purgeTimer != self || s.closed {
		return
	}
	s.purgeTimer = nil
	if s.screen != ScreenGame || !s.state.Difficulty.MessagesExpire() {
		return
	}

	cutoff := s.clock.Now().Add(-s.cfg.MessageLifetime)
	kept := s.state.Messages[:0]
	for _, m := range s.state.Messages {
		if !m.Timestamp.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	if len(kept) != len(s.state.Messages) {
		s.state.Messages = kept
		s.notify()
	}
	s.schedulePurgeLocked()
}
