package web

import (
	"sync"
)

// Broadcaster fans out encoded state events to N SSE listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
}

// Listener receives events from the broadcaster.
type Listener struct {
	C chan []byte
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C: make(chan []byte, 64), // ~2 seconds of visualizer frames
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener. Its channel is left open; the SSE handler
// stops reading on request cancellation.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
}

func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish sends msg to every listener. Slow listeners get the event dropped
// rather than blocking the controller; the next event carries full state.
func (b *Broadcaster) Publish(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for l := range b.listeners {
		select {
		case l.C <- msg:
		default:
		}
	}
}
