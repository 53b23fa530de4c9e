package session

import (
	"time"

	"github.com/mcoot/numerus/internal/services/bot"
	"github.com/mcoot/numerus/internal/services/presence"
)

// Config holds game timing and room limits
type Config struct {
	// GracePeriod is how long a silent online player has before removal
	GracePeriod time.Duration
	// BotThinkTime is the delay before a bot plays
	BotThinkTime time.Duration
	// MessageLifetime is how long a message stays visible on hard difficulty
	MessageLifetime time.Duration
	// VanishWindow is the final part of the lifetime during which a message fades
	VanishWindow time.Duration
	// PurgeInterval is the cadence of the hard difficulty purge
	PurgeInterval time.Duration
	// RedrawInterval is the cadence at which fading messages should be redrawn
	RedrawInterval time.Duration
	// MaxPlayers is the seat count beyond which no bot is added
	MaxPlayers int
	// MinOnlinePlayers is the number of seats an online room needs before play starts
	MinOnlinePlayers int
	// CodeAttempts bounds retries when a generated room code is taken
	CodeAttempts int
	// ReconnectDelay is the first wait after a failed reconnect; it doubles up to
	// MaxReconnectDelay
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// DefaultConfig returns the default game configuration
func DefaultConfig() Config {
	return Config{
		GracePeriod:      presence.DefaultGracePeriod,
		BotThinkTime:     bot.DefaultThinkTime,
		MessageLifetime:  1000 * time.Millisecond,
		VanishWindow:     600 * time.Millisecond,
		PurgeInterval:    750 * time.Millisecond,
		RedrawInterval:   150 * time.Millisecond,
		MaxPlayers:       8,
		MinOnlinePlayers: 2,
		CodeAttempts:     5,

		ReconnectDelay:    500 * time.Millisecond,
		MaxReconnectDelay: 10 * time.Second,
	}
}
