package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/numerus/internal/model"
)

// NATSConfig holds NATS connection settings
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns the default NATS configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: 60,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSBroker distributes changes between server nodes over NATS subjects
type NATSBroker struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSBroker connects to NATS
func NewNATSBroker(cfg NATSConfig, logger *slog.Logger) (*NATSBroker, error) {
	logger = logger.With(slog.String("component", "nats-broker"))
	opts := []nats.Option{
		nats.Name("numerus"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("disconnected from nats", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to nats", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
		nats.Timeout(10 * time.Second),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSBroker{conn: conn, logger: logger}, nil
}

// NewNATSBrokerWithConn wraps an existing connection
func NewNATSBrokerWithConn(conn *nats.Conn, logger *slog.Logger) *NATSBroker {
	return &NATSBroker{conn: conn, logger: logger.With(slog.String("component", "nats-broker"))}
}

var _ Broker = (*NATSBroker)(nil)

// ChangeSubject is the subject row changes for a room are published on
func ChangeSubject(roomID model.RoomID) string {
	return "numerus.rooms." + string(roomID) + ".changes"
}

func (b *NATSBroker) Publish(_ context.Context, change model.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(ChangeSubject(change.RoomID), data); err != nil {
		b.logger.Error("failed to publish change",
			slog.String("room_id", string(change.RoomID)),
			slog.Any("error", err))
		return err
	}
	return nil
}

func (b *NATSBroker) Subscribe(roomID model.RoomID, handler ChangeHandler) (func(), error) {
	sub, err := b.conn.Subscribe(ChangeSubject(roomID), func(msg *nats.Msg) {
		var change model.Change
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			b.logger.Error("failed to unmarshal change", slog.Any("error", err))
			return
		}
		handler(change)
	})
	if err != nil {
		return nil, err
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			b.logger.Warn("failed to unsubscribe", slog.String("room_id", string(roomID)), slog.Any("error", err))
		}
	}, nil
}

// IsConnected reports the connection state
func (b *NATSBroker) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

func (b *NATSBroker) Close() error {
	if b.conn != nil {
		b.conn.Close()
	}
	return nil
}
