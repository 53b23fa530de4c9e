package realtime

import (
	"time"

	"github.com/mcoot/numerus/internal/model"
)

// Buffer size for outgoing events
const sendBufferSize = 256

// Client represents one subscriber of a room hub
type Client struct {
	hub         *Hub
	member      *model.PresenceMember
	send        chan Event
	connectedAt time.Time
}

// NewClient creates a new hub client. A non-nil member makes it a presence client.
func NewClient(hub *Hub, member *model.PresenceMember) *Client {
	return &Client{
		hub:         hub,
		member:      member,
		send:        make(chan Event, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Events returns the channel events are delivered on. It is closed when the client
// is unregistered or the hub stops.
func (c *Client) Events() <-chan Event {
	return c.send
}

// Close unregisters the client from its hub
func (c *Client) Close() {
	c.hub.Unregister(c)
}

func (c *Client) playerID() string {
	if c.member == nil {
		return ""
	}
	return string(c.member.PlayerID)
}
