// Package config loads the server configuration from an optional YAML file and
// NUMERUS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mcoot/numerus/internal/api"
	"github.com/mcoot/numerus/internal/realtime"
	"github.com/mcoot/numerus/internal/storage/postgres"
	redisstorage "github.com/mcoot/numerus/internal/storage/redis"
)

// EnvPrefix prefixes every environment variable the server reads
const EnvPrefix = "NUMERUS"

// Storage and broker type names
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"

	BrokerLocal = "local"
	BrokerNATS  = "nats"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIKey          string        `mapstructure:"api_key"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// HubCleanupInterval is how often rooms with no connected clients drop their hub
	HubCleanupInterval time.Duration `mapstructure:"hub_cleanup_interval"`
}

type StorageConfig struct {
	Type string `mapstructure:"type"`
}

type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	PoolSize int           `mapstructure:"pool_size"`
	RoomTTL  time.Duration `mapstructure:"room_ttl"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// NATSConfig enables cross-instance fan-out when URL is set
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// explicit env names that do not follow the key path
var envAliases = map[string]string{
	"server.port":    EnvPrefix + "_PORT",
	"server.api_key": EnvPrefix + "_API_KEY",
	"storage.type":   EnvPrefix + "_STORAGE_TYPE",
	"redis.url":      EnvPrefix + "_REDIS_URL",
	"database.url":   EnvPrefix + "_DATABASE_URL",
	"nats.url":       EnvPrefix + "_NATS_URL",
	"log.level":      EnvPrefix + "_LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	server := api.DefaultServerConfig()
	redis := redisstorage.DefaultConfig()
	pg := postgres.DefaultConfig()
	nats := realtime.DefaultNATSConfig()

	v.SetDefault("server.host", server.Host)
	v.SetDefault("server.port", server.Port)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.shutdown_timeout", server.ShutdownTimeout)
	v.SetDefault("server.hub_cleanup_interval", time.Minute)
	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("redis.url", redis.URL)
	v.SetDefault("redis.pool_size", redis.PoolSize)
	v.SetDefault("redis.room_ttl", redis.RoomTTL)
	v.SetDefault("database.url", pg.URL)
	v.SetDefault("database.max_conns", pg.MaxConns)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.max_reconnects", nats.MaxReconnects)
	v.SetDefault("nats.reconnect_wait", nats.ReconnectWait)
	v.SetDefault("log.level", "info")
}

// Load reads configuration from path (optional) and the environment. Environment
// variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error
	c.Storage.Type = strings.ToLower(strings.TrimSpace(c.Storage.Type))
	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for redis storage"))
		}
	case StoragePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storage.type %q: must be memory, redis or postgres", c.Storage.Type))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server.port %d", c.Server.Port))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BrokerType is nats when a NATS URL is configured and local otherwise
func (c *Config) BrokerType() string {
	if c.NATS.URL != "" {
		return BrokerNATS
	}
	return BrokerLocal
}

// LogLevel returns the configured slog level
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q", s)
	}
	return level, nil
}

// HTTPServer returns the HTTP server settings
func (c *Config) HTTPServer() api.ServerConfig {
	server := api.DefaultServerConfig()
	server.Host = c.Server.Host
	server.Port = c.Server.Port
	if c.Server.ShutdownTimeout > 0 {
		server.ShutdownTimeout = c.Server.ShutdownTimeout
	}
	return server
}

// RedisStorage returns the redis storage settings
func (c *Config) RedisStorage() redisstorage.Config {
	redis := redisstorage.DefaultConfig()
	redis.URL = c.Redis.URL
	if c.Redis.PoolSize > 0 {
		redis.PoolSize = c.Redis.PoolSize
	}
	if c.Redis.RoomTTL > 0 {
		redis.RoomTTL = c.Redis.RoomTTL
	}
	return redis
}

// PostgresStorage returns the postgres storage settings
func (c *Config) PostgresStorage() postgres.Config {
	pg := postgres.DefaultConfig()
	pg.URL = c.Database.URL
	if c.Database.MaxConns > 0 {
		pg.MaxConns = c.Database.MaxConns
	}
	return pg
}

// NATSBroker returns the NATS connection settings
func (c *Config) NATSBroker() realtime.NATSConfig {
	nats := realtime.DefaultNATSConfig()
	nats.URL = c.NATS.URL
	if c.NATS.MaxReconnects != 0 {
		nats.MaxReconnects = c.NATS.MaxReconnects
	}
	if c.NATS.ReconnectWait > 0 {
		nats.ReconnectWait = c.NATS.ReconnectWait
	}
	return nats
}
