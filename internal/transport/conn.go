package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds a single frame in either direction.
const MaxFrameSize = 1 << 20

// FrameConn moves whole frames. WriteFrame may be called from several
// goroutines; ReadFrame from one.
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(p []byte) error
	Close() error
}

type streamConn struct {
	conn net.Conn
	r    *bufio.Reader
	mu   sync.Mutex
}

// NewStreamConn frames a byte stream with a uvarint length prefix, the same
// layout as length-delimited protobuf messages.
func NewStreamConn(conn net.Conn) FrameConn {
	return &streamConn{conn: conn, r: bufio.NewReader(conn)}
}

func (s *streamConn) ReadFrame() ([]byte, error) {
	n, err := binary.ReadUvarint(s.r)
	if err != nil {
		return nil, err
	}
	if n > MaxFrameSize {
		return nil, fmt.Errorf("read %d bytes: %w", n, ErrFrameTooLarge)
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(s.r, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *streamConn) WriteFrame(p []byte) error {
	if len(p) > MaxFrameSize {
		return fmt.Errorf("write %d bytes: %w", len(p), ErrFrameTooLarge)
	}
	b := protowire.AppendBytes(make([]byte, 0, len(p)+binary.MaxVarintLen32), p)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Write(b)
	return err
}

func (s *streamConn) Close() error {
	return s.conn.Close()
}

type webSocketConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewWebSocketConn sends one frame per binary message.
func NewWebSocketConn(conn *websocket.Conn) FrameConn {
	conn.SetReadLimit(MaxFrameSize)
	return &webSocketConn{conn: conn}
}

func (w *webSocketConn) ReadFrame() ([]byte, error) {
	_, p, err := w.conn.ReadMessage()
	return p, err
}

func (w *webSocketConn) WriteFrame(p []byte) error {
	if len(p) > MaxFrameSize {
		return fmt.Errorf("write %d bytes: %w", len(p), ErrFrameTooLarge)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.BinaryMessage, p)
}

func (w *webSocketConn) Close() error {
	return w.conn.Close()
}
