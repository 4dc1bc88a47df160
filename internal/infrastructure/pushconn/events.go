package pushconn

import (
	"sync"

	"github.com/playarena/chat-sync/internal/domain/chat"
)

// handlerList keeps handlers in registration order.
type handlerList[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []handlerEntry[T]
}

type handlerEntry[T any] struct {
	id uint64
	fn T
}

func (l *handlerList[T]) add(fn T) chat.Subscription {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, handlerEntry[T]{id: id, fn: fn})
	l.mu.Unlock()

	return &subscription{remove: func() { l.remove(id) }}
}

func (l *handlerList[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

// snapshot returns the handlers to invoke outside the lock.
func (l *handlerList[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.fn)
	}
	return out
}

func (l *handlerList[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type subscription struct {
	once   sync.Once
	remove func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.remove)
}

// bus fans push events out to registered handlers.
type bus struct {
	directory  handlerList[func()]
	messages   handlerList[func(chat.Message)]
	connection handlerList[func(chat.ConnectionEvent)]
}

func (b *bus) publishDirectoryChanged() {
	for _, fn := range b.directory.snapshot() {
		fn()
	}
}

func (b *bus) publishMessage(msg chat.Message) {
	for _, fn := range b.messages.snapshot() {
		fn(msg)
	}
}

func (b *bus) publishConnection(ev chat.ConnectionEvent) {
	for _, fn := range b.connection.snapshot() {
		fn(ev)
	}
}
