// Package notify is the change notifier: an in-process publish/subscribe
// bus keyed by channel, plus a websocket bridge that carries sync events
// from a background process into the foreground one.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

type Channel string

const (
	ChannelLogin  Channel = "login"
	ChannelLogout Channel = "logout"
	ChannelSync   Channel = "sync"
)

// Message is what handlers receive. Type and ID are set on the sync channel.
type Message struct {
	Channel Channel           `json:"channel"`
	Type    models.ChangeType `json:"type,omitempty"`
	ID      int64             `json:"id,omitempty"`
}

// SyncMessage builds a sync channel message.
func SyncMessage(t models.ChangeType, id int64) Message {
	return Message{Channel: ChannelSync, Type: t, ID: id}
}

// Event returns the change carried by a sync message.
func (m Message) Event() models.ChangeEvent {
	return models.ChangeEvent{Type: m.Type, ID: m.ID}
}

type Handler func(ctx context.Context, msg Message)

// Publisher is implemented by Bus and by the bridge client.
type Publisher interface {
	Publish(ctx context.Context, msg Message)
}

type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus delivers each message synchronously to the handlers of its channel
// in registration order. There is no replay for late subscribers.
type Bus struct {
	mu   sync.Mutex
	next SubscriptionID
	subs map[Channel][]subscription
	log  logging.Logger
}

func NewBus(log logging.Logger) *Bus {
	return &Bus{subs: make(map[Channel][]subscription), log: log.With("component", "notify")}
}

func (b *Bus) Subscribe(ch Channel, h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs[ch] = append(b.subs[ch], subscription{id: b.next, handler: h})
	return b.next
}

func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, subs := range b.subs {
		for i, s := range subs {
			if s.id == id {
				b.subs[ch] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish runs the handlers outside the lock, so a handler may publish or
// (un)subscribe. A panicking handler is logged and skipped.
func (b *Bus) Publish(ctx context.Context, msg Message) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs[msg.Channel]...)
	b.mu.Unlock()

	b.log.Debug(ctx, "publish", "channel", msg.Channel, "handlers", len(subs), "type", msg.Type, "id", msg.ID)
	for _, s := range subs {
		b.call(ctx, s, msg)
	}
}

func (b *Bus) call(ctx context.Context, s subscription, msg Message) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error(ctx, "handler panicked", "channel", msg.Channel, "subscription", s.id, "panic", fmt.Sprint(p))
		}
	}()
	s.handler(ctx, msg)
}

// Fanout publishes to every target in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, msg Message) {
	for _, p := range f {
		p.Publish(ctx, msg)
	}
}
