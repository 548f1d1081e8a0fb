package transport

import (
	"log/slog"
	"sync"
)

const sendQueueSize = 64

// FrameChannel is a Channel over a FrameConn. Writes happen on a goroutine
// of their own so a slow socket never holds up the caller.
type FrameChannel struct {
	conn FrameConn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func NewFrameChannel(conn FrameConn) *FrameChannel {
	c := &FrameChannel{conn: conn, out: make(chan []byte, sendQueueSize), done: make(chan struct{})}
	go c.writeLoop()
	return c
}

func (c *FrameChannel) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.out <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *FrameChannel) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case p := <-c.out:
			if err := c.conn.WriteFrame(p); err != nil {
				slog.Debug("frame channel write failed", slog.Any("error", err))
			}
		}
	}
}

// Close is idempotent. After it returns no more events are emitted.
func (c *FrameChannel) Close() error {
	err := ErrClosed
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Emit queues ev, waiting for room if needed, unless the channel was closed
// locally first. Only use it for events that must not be lost.
func (c *FrameChannel) Emit(events chan<- Event, ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// offer queues ev only if there is room right now.
func (c *FrameChannel) offer(events chan<- Event, ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case events <- ev:
		return true
	default:
		return false
	}
}

// Pump turns incoming frames into EventData until the connection fails,
// which is reported once as EventClose. Frames that arrive while events is
// full are dropped. It blocks; run it on its own goroutine.
func (c *FrameChannel) Pump(events chan<- Event) {
	for {
		p, err := c.conn.ReadFrame()
		if err != nil {
			slog.Debug("frame channel read ended", slog.Any("error", err))
			c.Emit(events, Event{Type: EventClose})
			return
		}
		if !c.offer(events, Event{Type: EventData, Payload: p}) {
			select {
			case <-c.done:
				return
			default:
				slog.Debug("event queue full, dropping frame", slog.Int("bytes", len(p)))
			}
		}
	}
}
