package realtime

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/numerus/internal/model"
)

// slowClientTimeout bounds how long the hub waits on a client that stopped reading
const slowClientTimeout = 5 * time.Second

// Event names carried to clients
const (
	EventChange   = "change"
	EventPresence = "presence"
)

// Event is one notification delivered to a hub client
type Event struct {
	Name     string
	Change   *model.Change
	Presence *model.PresenceEvent
}

type liveMember struct {
	member model.PresenceMember
	conns  int
}

// Hub manages the clients of a single room
type Hub struct {
	roomID  model.RoomID
	clients map[*Client]bool
	members map[model.PlayerID]*liveMember
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan model.Change
	done       chan struct{}
	closeOnce  sync.Once

	// sendTimeout is how long a full client buffer may hold up delivery before the
	// client is dropped
	sendTimeout time.Duration
}

// NewHub creates a new Hub for a room
func NewHub(roomID model.RoomID, logger *slog.Logger) *Hub {
	return &Hub{
		roomID:     roomID,
		clients:    make(map[*Client]bool),
		members:    make(map[model.PlayerID]*liveMember),
		logger:     logger.With(slog.String("room_id", string(roomID))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.Change, 256),
		done:       make(chan struct{}),

		sendTimeout: slowClientTimeout,
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("realtime hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			if client.member != nil {
				lm, ok := h.members[client.member.PlayerID]
				if !ok {
					lm = &liveMember{member: *client.member}
					h.members[client.member.PlayerID] = lm
				}
				lm.conns++
			}
			h.mu.Unlock()
			h.logger.Info("realtime client registered",
				slog.String("player_id", client.playerID()),
				slog.Int("total_clients", clientCount))
			if client.member != nil {
				h.deliverPresence(h.syncEvent())
			}

		case client := <-h.unregister:
			h.remove(client)

		case change := <-h.broadcast:
			h.deliver(Event{Name: EventChange, Change: &change}, false)

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.members = make(map[model.PlayerID]*liveMember)
			h.mu.Unlock()
			h.logger.Info("realtime hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) syncEvent() model.PresenceEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	live := make([]model.PlayerID, 0, len(h.members))
	for id := range h.members {
		live = append(live, id)
	}
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })
	return model.PresenceEvent{Kind: model.PresenceSync, Live: live}
}

func (h *Hub) deliverPresence(evt model.PresenceEvent) {
	h.deliver(Event{Name: EventPresence, Presence: &evt}, true)
}

// deliver hands evt to every matching client. A client whose buffer stays full for
// sendTimeout is disconnected so its feed ends and it can resync; events are never
// skipped for a client that stays connected.
func (h *Hub) deliver(evt Event, presence bool) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if (client.member != nil) == presence {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range targets {
		select {
		case client.send <- evt:
			continue
		default:
		}

		timer := time.NewTimer(h.sendTimeout)
		select {
		case client.send <- evt:
		case <-timer.C:
			slow = append(slow, client)
		case <-h.done:
		}
		timer.Stop()
	}

	for _, client := range slow {
		h.logger.Warn("realtime client disconnected - buffer full",
			slog.String("player_id", client.playerID()),
			slog.String("event", evt.Name))
		h.remove(client)
	}
}

// remove drops a client and announces a presence leave when it was the member's
// last connection. Only the Run goroutine calls it.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	clientCount := len(h.clients)
	var left *model.PresenceMember
	if client.member != nil {
		if lm, ok := h.members[client.member.PlayerID]; ok {
			lm.conns--
			if lm.conns <= 0 {
				delete(h.members, client.member.PlayerID)
				m := lm.member
				left = &m
			}
		}
	}
	h.mu.Unlock()
	h.logger.Info("realtime client unregistered",
		slog.String("player_id", client.playerID()),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", clientCount))
	if left != nil {
		h.deliverPresence(model.PresenceEvent{Kind: model.PresenceLeave, Left: []model.PresenceMember{*left}})
		h.deliverPresence(h.syncEvent())
	}
}

// Register adds a client to the hub. Registering with a stopped hub closes the client.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastChange queues a row change for every change client. It blocks while the
// hub's queue is full and returns once the hub has stopped.
func (h *Hub) BroadcastChange(change model.Change) {
	select {
	case h.broadcast <- change:
	case <-h.done:
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LiveMembers returns the ids of players with at least one presence connection
func (h *Hub) LiveMembers() []model.PlayerID {
	return h.syncEvent().Live
}

type hubEntry struct {
	hub         *Hub
	unsubscribe func()
}

// HubManager manages hubs for all rooms. Each hub is fed from the broker.
type HubManager struct {
	hubs   map[model.RoomID]*hubEntry
	broker Broker
	mu     sync.Mutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(broker Broker, logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.RoomID]*hubEntry),
		broker: broker,
		logger: logger.With(slog.String("component", "realtime")),
	}
}

// Join attaches a new client to the room's hub, creating the hub if needed.
// A nil member joins the change feed, otherwise the presence feed.
func (m *HubManager) Join(roomID model.RoomID, member *model.PresenceMember) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.getOrCreate(roomID)
	if err != nil {
		return nil, err
	}
	client := NewClient(entry.hub, member)
	entry.hub.Register(client)
	return client, nil
}

func (m *HubManager) getOrCreate(roomID model.RoomID) (*hubEntry, error) {
	if entry, ok := m.hubs[roomID]; ok {
		return entry, nil
	}

	hub := NewHub(roomID, m.logger)
	unsubscribe, err := m.broker.Subscribe(roomID, hub.BroadcastChange)
	if err != nil {
		return nil, err
	}
	entry := &hubEntry{hub: hub, unsubscribe: unsubscribe}
	m.hubs[roomID] = entry
	go hub.Run()
	return entry, nil
}

// GetHub returns the hub for a room, or nil if it doesn't exist
func (m *HubManager) GetHub(roomID model.RoomID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.hubs[roomID]; ok {
		return entry.hub
	}
	return nil
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(roomID model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.hubs[roomID]; ok {
		m.closeEntry(roomID, entry)
		m.logger.Info("realtime hub removed", slog.String("room_id", string(roomID)))
	}
}

func (m *HubManager) closeEntry(roomID model.RoomID, entry *hubEntry) {
	entry.unsubscribe()
	entry.hub.Close()
	delete(m.hubs, roomID)
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for roomID, entry := range m.hubs {
		if entry.hub.ClientCount() == 0 {
			m.closeEntry(roomID, entry)
			removedCount++
		}
	}
	if removedCount > 0 {
		m.logger.Info("realtime empty hubs cleaned up", slog.Int("removed", removedCount))
	}
}

// Close stops every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for roomID, entry := range m.hubs {
		m.closeEntry(roomID, entry)
	}
}
