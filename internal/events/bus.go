// Package events fans state-change events out to in-process subscribers:
// SSE clients and the HCI attach helper.
package events

import (
	"sync"

	"github.com/micro-nova/periphd/internal/models"
)

const subBufferSize = 16

type subscriber struct {
	ch      chan models.Event
	kinds   map[models.EventKind]bool // nil = every kind
	dropped uint64
}

func (s *subscriber) wants(k models.EventKind) bool {
	return s.kinds == nil || s.kinds[k]
}

// Bus never blocks a publisher: a subscriber whose buffer is full misses
// the event and its drop counter is bumped. Publishing is therefore safe
// from the deferred-work path and from the radio driver's locked sections.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers id for the given kinds, or every kind when none are
// given. Re-subscribing an id replaces (and closes) its previous channel.
func (b *Bus) Subscribe(id string, kinds ...models.EventKind) <-chan models.Event {
	s := &subscriber{ch: make(chan models.Event, subBufferSize)}
	if len(kinds) > 0 {
		s.kinds = make(map[models.EventKind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subs[id]; ok {
		close(old.ch)
	}
	b.subs[id] = s
	return s.ch
}

// Unsubscribe removes id and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(s.ch)
	}
}

// Publish delivers ev to every interested subscriber.
func (b *Bus) Publish(ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if !s.wants(ev.Kind) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			s.dropped++
		}
	}
}

// SubscriberCount returns the number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many events id has missed.
func (b *Bus) Dropped(id string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		return s.dropped
	}
	return 0
}
