package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrClosed        = errors.New("channel closed")
	ErrNotConnected  = errors.New("no peer connected")
	ErrRoomNotFound  = errors.New("room not found")
	ErrCodeTaken     = errors.New("room code already in use")
	ErrFrameTooLarge = errors.New("frame too large")
	ErrQueueFull     = errors.New("queue full, message dropped")
)

type EventType int

const (
	EventOpen EventType = iota
	EventData
	EventClose
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventData:
		return "data"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is pushed by transport goroutines and drained by the game loop.
// Payload is set for EventData, Err for EventError.
type Event struct {
	Type    EventType
	Payload []byte
	Err     error
}

// Channel is an ordered message pipe to the other peer. Send never blocks:
// when the peer falls behind, messages are dropped and ErrQueueFull is
// returned.
type Channel interface {
	Send(payload []byte) error
	Close() error
}

// Network opens channels addressed by room code. Both calls return as soon
// as the request is under way; EventOpen arrives on events once the other
// peer is there. A failure after that point is reported as EventError.
type Network interface {
	OpenAsHost(ctx context.Context, code string, events chan<- Event) (Channel, error)
	ConnectAsClient(ctx context.Context, code string, events chan<- Event) (Channel, error)
}
