package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	APIKey    string
	StateDir  string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: os.Getenv("NUMERUS_SERVER"),
		APIKey:    os.Getenv("NUMERUS_API_KEY"),
		StateDir:  getEnvOrDefault("NUMERUS_STATE_DIR", defaultStateDir()),
		Output:    "text",
		Verbose:   false,
	}
}

// StorePath is the local database holding the saved room and online seat
func (c *Config) StorePath() string {
	return filepath.Join(c.StateDir, "numerus.db")
}

// Logger returns the client logger. Logs go to stderr so they don't mix with the game.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".numerus"
	}
	return filepath.Join(home, ".numerus")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
