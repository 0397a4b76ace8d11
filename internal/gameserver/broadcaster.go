package gameserver

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/autobattle/internal/game/combat"
)

// Broadcaster fans combat events out to subscribers. Delivery never blocks
// the emitting session: an event is dropped for any subscriber whose queue
// is full.
type Broadcaster struct {
	logger  *zap.Logger
	buffer  int
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]*subscription
	dropped atomic.Int64
	closed  bool
}

type subscription struct {
	session string
	ch      chan combat.Event
}

// NewBroadcaster creates a Broadcaster whose subscribers queue up to buffer events.
//
// Precondition: buffer >= 1; logger must be non-nil.
func NewBroadcaster(buffer int, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		buffer: max(buffer, 1),
		subs:   make(map[uint64]*subscription),
	}
}

// Subscribe registers an observer for sessionID; an empty sessionID observes
// every session. The returned cancel function closes the channel and is safe
// to call more than once.
//
// Postcondition: After Close, returns an already-closed channel.
func (b *Broadcaster) Subscribe(sessionID string) (<-chan combat.Event, func()) {
	ch := make(chan combat.Event, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.nextID++
	id := b.nextID
	b.subs[id] = &subscription{session: sessionID, ch: ch}
	return ch, func() { b.unsubscribe(id) }
}

func (b *Broadcaster) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Emit delivers e to every matching subscriber without blocking.
func (b *Broadcaster) Emit(e combat.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.session != "" && sub.session != e.SessionID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			if b.dropped.Add(1)%100 == 1 {
				b.logger.Warn("dropping events for slow subscriber",
					zap.String("session", e.SessionID),
					zap.Int64("dropped_total", b.dropped.Load()),
				)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns the total number of undelivered events.
func (b *Broadcaster) Dropped() int64 { return b.dropped.Load() }

// Close closes every subscriber channel and rejects new subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
