package realtime

import (
	"context"
	"sync"

	"github.com/mcoot/numerus/internal/model"
)

// ChangeHandler receives row changes for a subscribed room
type ChangeHandler func(model.Change)

// Broker distributes row changes between server nodes
type Broker interface {
	Publish(ctx context.Context, change model.Change) error
	Subscribe(roomID model.RoomID, handler ChangeHandler) (unsubscribe func(), err error)
	Close() error
}

// LocalBroker delivers changes within the process
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[model.RoomID]map[uint64]ChangeHandler
	nextID uint64
}

// NewLocalBroker creates an empty LocalBroker
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[model.RoomID]map[uint64]ChangeHandler)}
}

var _ Broker = (*LocalBroker)(nil)

func (b *LocalBroker) Publish(_ context.Context, change model.Change) error {
	b.mu.RLock()
	handlers := make([]ChangeHandler, 0, len(b.subs[change.RoomID]))
	for _, h := range b.subs[change.RoomID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
	return nil
}

func (b *LocalBroker) Subscribe(roomID model.RoomID, handler ChangeHandler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[uint64]ChangeHandler)
	}
	b.subs[roomID][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[roomID], id)
			if len(b.subs[roomID]) == 0 {
				delete(b.subs, roomID)
			}
		})
	}, nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[model.RoomID]map[uint64]ChangeHandler)
	return nil
}
