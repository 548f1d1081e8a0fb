package transport

import (
	"context"
	"fmt"
	"sync"
)

// MemoryNetwork pairs a host and a client inside one process.
type MemoryNetwork struct {
	mu    sync.Mutex
	rooms map[string]*memoryChannel
}

func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{rooms: make(map[string]*memoryChannel)}
}

func (n *MemoryNetwork) OpenAsHost(ctx context.Context, code string, events chan<- Event) (Channel, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.rooms[code]; ok {
		return nil, fmt.Errorf("open room %s: %w", code, ErrCodeTaken)
	}
	c := newMemoryChannel(events)
	c.onClose = func() { n.remove(code, c) }
	n.rooms[code] = c
	return c, nil
}

func (n *MemoryNetwork) ConnectAsClient(ctx context.Context, code string, events chan<- Event) (Channel, error) {
	n.mu.Lock()
	host, ok := n.rooms[code]
	if ok {
		delete(n.rooms, code)
	}
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("join room %s: %w", code, ErrRoomNotFound)
	}

	guest := newMemoryChannel(events)
	host.connect(guest)
	guest.connect(host)

	host.notify(Event{Type: EventOpen})
	guest.notify(Event{Type: EventOpen})
	return guest, nil
}

// Waiting reports whether a host is waiting under code.
func (n *MemoryNetwork) Waiting(code string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.rooms[code]
	return ok
}

func (n *MemoryNetwork) remove(code string, c *memoryChannel) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rooms[code] == c {
		delete(n.rooms, code)
	}
}

type memoryChannel struct {
	events  chan<- Event
	done    chan struct{}
	once    sync.Once
	onClose func()

	mu   sync.Mutex
	peer *memoryChannel
}

func newMemoryChannel(events chan<- Event) *memoryChannel {
	return &memoryChannel{events: events, done: make(chan struct{})}
}

func (c *memoryChannel) connect(peer *memoryChannel) {
	c.mu.Lock()
	c.peer = peer
	c.mu.Unlock()
}

func (c *memoryChannel) remote() *memoryChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

// deliver waits for room in the receiver's queue.
func (c *memoryChannel) deliver(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// notify hands over an event that must not be lost without making the
// caller wait.
func (c *memoryChannel) notify(ev Event) {
	select {
	case c.events <- ev:
	default:
		go c.deliver(ev)
	}
}

// offer queues ev only if there is room right now.
func (c *memoryChannel) offer(ev Event) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *memoryChannel) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	peer := c.remote()
	if peer == nil {
		return ErrNotConnected
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	return peer.offer(Event{Type: EventData, Payload: p})
}

func (c *memoryChannel) Close() error {
	err := ErrClosed
	c.once.Do(func() {
		err = nil
		close(c.done)
		if c.onClose != nil {
			c.onClose()
		}
		if peer := c.remote(); peer != nil {
			peer.notify(Event{Type: EventClose})
		}
	})
	return err
}
