package lobby

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"p2pong/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Lobby pairs a host and a guest by room code and relays frames between
// them. It never looks inside relayed frames.
type Lobby struct {
	registry Registry
	rooms    sync.Map
}

type room struct {
	code string
	id   string
	host transport.FrameConn

	mu    sync.Mutex
	guest transport.FrameConn
}

func (r *room) peer() transport.FrameConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guest
}

func CreateLobby(registry Registry) *Lobby {
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	return &Lobby{registry: registry}
}

// HandleLobbyConnection serves one player until either side of its relay
// goes away. It closes conn before returning.
func (l *Lobby) HandleLobbyConnection(ctx context.Context, conn transport.FrameConn) {
	b, err := conn.ReadFrame()
	if err != nil {
		slog.Debug("player left before saying hello", slog.Any("error", err))
		conn.Close()
		return
	}

	msg, err := Unmarshal(b)
	if err != nil {
		slog.Debug("Invalid message received from player", slog.Any("error", err))
		l.refuse(conn, "invalid hello")
		return
	}

	r, ok := msg.Message.(Room)
	if !ok {
		l.refuse(conn, "invalid hello")
		return
	}

	switch msg.MessageType {
	case TypeHost:
		l.host(ctx, r.Code, conn)
	case TypeJoin:
		l.join(r.Code, conn)
	default:
		l.refuse(conn, "invalid hello")
	}
}

func (l *Lobby) refuse(conn transport.FrameConn, reason string) {
	if b, err := Marshal(errorMessage(reason)); err == nil {
		conn.WriteFrame(b)
	}
	conn.Close()
}

func (l *Lobby) host(ctx context.Context, code string, conn transport.FrameConn) {
	ok, err := l.registry.Reserve(ctx, code)
	if err != nil {
		slog.Error("could not reserve room code", slog.String("code", code), slog.Any("error", err))
		l.refuse(conn, "lobby unavailable")
		return
	}
	if !ok {
		l.refuse(conn, transport.ErrCodeTaken.Error())
		return
	}

	r := &room{code: code, id: uuid.NewString(), host: conn}
	l.rooms.Store(code, r)
	slog.Info("room opened", slog.String("code", code), slog.String("relay", r.id))

	defer func() {
		l.rooms.CompareAndDelete(code, r)
		// the reservation must outlive a cancelled ctx
		if err := l.registry.Release(context.WithoutCancel(ctx), code); err != nil {
			slog.Error("could not release room code", slog.String("code", code), slog.Any("error", err))
		}
		conn.Close()
		if g := r.peer(); g != nil {
			g.Close()
		}
		slog.Info("room closed", slog.String("code", code), slog.String("relay", r.id))
	}()

	// Host to guest. Anything the host says before a guest shows up is dropped.
	for {
		p, err := conn.ReadFrame()
		if err != nil {
			slog.Debug("host left", slog.String("relay", r.id), slog.Any("error", err))
			return
		}
		if g := r.peer(); g != nil {
			if err := g.WriteFrame(p); err != nil {
				slog.Debug("could not relay to guest", slog.String("relay", r.id), slog.Any("error", err))
			}
		}
	}
}

func (l *Lobby) join(code string, conn transport.FrameConn) {
	v, ok := l.rooms.Load(code)
	if !ok {
		l.refuse(conn, transport.ErrRoomNotFound.Error())
		return
	}
	r := v.(*room)

	ready, err := Marshal(LobbyMessage{MessageType: TypeReady, Message: Ready{RelayID: r.id}})
	if err != nil {
		l.refuse(conn, "lobby unavailable")
		return
	}

	r.mu.Lock()
	if r.guest != nil {
		r.mu.Unlock()
		l.refuse(conn, transport.ErrRoomNotFound.Error())
		return
	}
	// the guest must see ready before the first relayed frame
	if err := conn.WriteFrame(ready); err != nil {
		r.mu.Unlock()
		conn.Close()
		return
	}
	r.guest = conn
	r.mu.Unlock()

	if err := r.host.WriteFrame(ready); err != nil {
		slog.Debug("host gone before ready", slog.String("relay", r.id), slog.Any("error", err))
	}
	slog.Info("room paired", slog.String("code", code), slog.String("relay", r.id))

	defer func() {
		conn.Close()
		r.host.Close()
	}()

	for {
		p, err := conn.ReadFrame()
		if err != nil {
			slog.Debug("guest left", slog.String("relay", r.id), slog.Any("error", err))
			return
		}
		if err := r.host.WriteFrame(p); err != nil {
			slog.Debug("could not relay to host", slog.String("relay", r.id), slog.Any("error", err))
			return
		}
	}
}

// Serve accepts TCP players on ln until ctx is done.
func (l *Lobby) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			slog.Debug("accept failed", slog.Any("error", err))
			continue
		}
		go l.HandleLobbyConnection(ctx, transport.NewStreamConn(conn))
	}
}

func (l *Lobby) ListenTCP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	slog.Info("lobby listening", slog.String("transport", "tcp"), slog.String("addr", ln.Addr().String()))
	return l.Serve(ctx, ln)
}

// WebSocketHandler serves players connecting over WebSocket, one frame per
// binary message.
func (l *Lobby) WebSocketHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("websocket upgrade failed", slog.Any("error", err))
			return
		}
		l.HandleLobbyConnection(r.Context(), transport.NewWebSocketConn(c))
	})
	return mux
}
