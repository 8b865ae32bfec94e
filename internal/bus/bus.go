// Package bus carries messages between the detectors attached to browser
// tabs and the orchestrator. Queries are request/response and addressed to
// one tab; state notifications fan out to every subscriber.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"replydraft/internal/model"
)

var (
	// ErrNoReceiver means no detector is registered for the tab yet.
	ErrNoReceiver = errors.New("receiving end does not exist")
	// ErrNoListener means a notification was sent while nobody subscribed.
	ErrNoListener = errors.New("no listener")
)

const subscriberBuffer = 16

// Handler answers queries for a single tab.
type Handler interface {
	HandleQuery(ctx context.Context, q model.Query) (model.CheckReply, error)
}

// Envelope is a notification tagged with the tab it came from.
type Envelope struct {
	TabID        string
	Notification model.StateNotification
}

type Hub struct {
	mu          sync.RWMutex
	handlers    map[string]*registration
	subscribers []chan Envelope
}

type registration struct {
	h Handler
}

func New() *Hub {
	return &Hub{handlers: make(map[string]*registration)}
}

// Register makes h the receiver of queries for tabID, replacing any earlier
// handler. The returned func removes the registration if it is still the
// current one.
func (b *Hub) Register(tabID string, h Handler) (unregister func()) {
	reg := &registration{h: h}
	b.mu.Lock()
	b.handlers[tabID] = reg
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.handlers[tabID] == reg {
			delete(b.handlers, tabID)
		}
	}
}

// registered reports whether a handler is attached to tabID.
func (b *Hub) registered(tabID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.handlers[tabID]
	return ok
}

// Request sends q to the handler of tabID and waits for its answer.
func (b *Hub) Request(ctx context.Context, tabID string, q model.Query) (model.CheckReply, error) {
	b.mu.RLock()
	reg, ok := b.handlers[tabID]
	b.mu.RUnlock()
	if !ok {
		return model.CheckReply{}, ErrNoReceiver
	}
	if err := ctx.Err(); err != nil {
		return model.CheckReply{}, err
	}

	reply, err := reg.h.HandleQuery(ctx, q)
	if err != nil {
		return model.CheckReply{}, fmt.Errorf("query tab %s: %w", tabID, err)
	}
	return reply, nil
}

// Subscribe returns a channel receiving every notification. The channel is
// buffered; a subscriber that falls behind misses notifications rather than
// blocking the sender.
func (b *Hub) Subscribe() <-chan Envelope {
	ch := make(chan Envelope, subscriberBuffer)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (b *Hub) Unsubscribe(ch <-chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if (<-chan Envelope)(sub) == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Publish delivers env to all subscribers without blocking.
func (b *Hub) Publish(env Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.subscribers) == 0 {
		return ErrNoListener
	}
	for _, sub := range b.subscribers {
		select {
		case sub <- env:
		default:
		}
	}
	return nil
}

// Notifier returns a detector notifier that publishes on behalf of tabID.
func (b *Hub) Notifier(tabID string) *TabNotifier {
	return &TabNotifier{hub: b, tabID: tabID}
}

type TabNotifier struct {
	hub   *Hub
	tabID string
}

func (n *TabNotifier) Notify(_ context.Context, s model.StateNotification) error {
	return n.hub.Publish(Envelope{TabID: n.tabID, Notification: s})
}
