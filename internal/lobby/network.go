package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/gorilla/websocket"

	"p2pong/internal/transport"
)

// Network is the player side of the lobby. It implements transport.Network.
type Network struct {
	addr string
	mode string
}

// NewNetwork dials addr over "tcp" or "ws".
func NewNetwork(mode, addr string) (*Network, error) {
	switch mode {
	case "", "tcp":
		mode = "tcp"
	case "ws", "websocket":
		mode = "ws"
	default:
		return nil, fmt.Errorf("unknown lobby transport %q", mode)
	}
	return &Network{addr: addr, mode: mode}, nil
}

func (n *Network) OpenAsHost(ctx context.Context, code string, events chan<- transport.Event) (transport.Channel, error) {
	return n.open(ctx, TypeHost, code, events)
}

func (n *Network) ConnectAsClient(ctx context.Context, code string, events chan<- transport.Event) (transport.Channel, error) {
	return n.open(ctx, TypeJoin, code, events)
}

func (n *Network) open(ctx context.Context, kind, code string, events chan<- transport.Event) (transport.Channel, error) {
	conn, err := n.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial lobby %s: %w", n.addr, err)
	}

	hello, err := Marshal(LobbyMessage{MessageType: kind, Message: Room{Code: code}})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteFrame(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send %s hello: %w", kind, err)
	}

	ch := transport.NewFrameChannel(conn)
	go awaitReady(ch, conn, events)
	return ch, nil
}

func (n *Network) dial(ctx context.Context) (transport.FrameConn, error) {
	if n.mode == "ws" {
		url := n.addr
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			url = "ws://" + url + "/ws"
		}
		c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return transport.NewWebSocketConn(c), nil
	}

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", n.addr)
	if err != nil {
		return nil, err
	}
	return transport.NewStreamConn(c), nil
}

// awaitReady waits for the lobby's answer to the hello, then hands the
// connection over to the frame pump.
func awaitReady(ch *transport.FrameChannel, conn transport.FrameConn, events chan<- transport.Event) {
	b, err := conn.ReadFrame()
	if err != nil {
		ch.Emit(events, transport.Event{Type: transport.EventError, Err: fmt.Errorf("lobby closed: %w", err)})
		ch.Close()
		return
	}

	msg, err := Unmarshal(b)
	if err != nil {
		ch.Emit(events, transport.Event{Type: transport.EventError, Err: err})
		ch.Close()
		return
	}

	switch m := msg.Message.(type) {
	case Ready:
		slog.Debug("lobby paired us", slog.String("relay", m.RelayID))
		if !ch.Emit(events, transport.Event{Type: transport.EventOpen}) {
			return
		}
		ch.Pump(events)
	case Error:
		ch.Emit(events, transport.Event{Type: transport.EventError, Err: lobbyError(m.Message)})
		ch.Close()
	default:
		ch.Emit(events, transport.Event{Type: transport.EventError, Err: fmt.Errorf("unexpected %q reply", msg.MessageType)})
		ch.Close()
	}
}

func lobbyError(text string) error {
	for _, err := range []error{transport.ErrCodeTaken, transport.ErrRoomNotFound} {
		if text == err.Error() {
			return err
		}
	}
	return errors.New(text)
}
