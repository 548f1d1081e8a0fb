package netwrk

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrUnknownKind  = errors.New("unknown message kind")
	ErrUnknownCodec = errors.New("unknown codec")
)

// Codec turns replicated messages into channel payloads and back.
type Codec interface {
	Name() string
	Encode(m Message) ([]byte, error)
	Decode(b []byte) (Message, error)
}

// CodecByName returns the codec configured for both peers.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "proto", "protobuf":
		return ProtoCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Envelope field numbers, one per message kind.
const (
	fieldGameState  protowire.Number = 1
	fieldPaddleMove protowire.Number = 2
	fieldGameOver   protowire.Number = 3
	fieldPlayAgain  protowire.Number = 4
)

// ProtoCodec writes the protobuf wire format directly:
//
//	message Envelope {
//	  oneof kind {
//	    GameStateSnapshot game_state = 1;
//	    PaddleMove paddle_move = 2;
//	    GameOver game_over = 3;
//	    PlayAgain play_again = 4;
//	  }
//	}
//	message GameStateSnapshot {
//	  int64 score1 = 1; int64 score2 = 2;
//	  double ball_x = 3; double ball_y = 4; double host_paddle_y = 5; double speed = 6;
//	}
//	message PaddleMove { double paddle_y = 1; }
//	message GameOver { int64 winner = 1; }
//	message PlayAgain {}
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }

func (ProtoCodec) Encode(m Message) ([]byte, error) {
	var field protowire.Number
	var body []byte

	switch msg := m.(type) {
	case GameStateSnapshot:
		field = fieldGameState
		body = appendVarintField(body, 1, msg.Score1)
		body = appendVarintField(body, 2, msg.Score2)
		body = appendDoubleField(body, 3, msg.BallX)
		body = appendDoubleField(body, 4, msg.BallY)
		body = appendDoubleField(body, 5, msg.HostPaddleY)
		body = appendDoubleField(body, 6, msg.Speed)
	case PaddleMove:
		field = fieldPaddleMove
		body = appendDoubleField(body, 1, msg.PaddleY)
	case GameOver:
		field = fieldGameOver
		body = appendVarintField(body, 1, msg.Winner)
	case PlayAgain:
		field = fieldPlayAgain
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, m)
	}

	b := protowire.AppendTag(nil, field, protowire.BytesType)
	return protowire.AppendBytes(b, body), nil
}

func (ProtoCodec) Decode(b []byte) (Message, error) {
	var msg Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.BytesType || num < fieldGameState || num > fieldPlayAgain {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}

		body, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		var err error
		msg, err = decodeBody(num, body)
		if err != nil {
			return nil, err
		}
	}
	if msg == nil {
		return nil, ErrUnknownKind
	}
	return msg, nil
}

func decodeBody(kind protowire.Number, b []byte) (Message, error) {
	var snap GameStateSnapshot
	var move PaddleMove
	var over GameOver

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			switch {
			case kind == fieldGameState && num == 1:
				snap.Score1 = int(int64(v))
			case kind == fieldGameState && num == 2:
				snap.Score2 = int(int64(v))
			case kind == fieldGameOver && num == 1:
				over.Winner = int(int64(v))
			}
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			f := math.Float64frombits(v)
			switch {
			case kind == fieldGameState && num == 3:
				snap.BallX = f
			case kind == fieldGameState && num == 4:
				snap.BallY = f
			case kind == fieldGameState && num == 5:
				snap.HostPaddleY = f
			case kind == fieldGameState && num == 6:
				snap.Speed = f
			case kind == fieldPaddleMove && num == 1:
				move.PaddleY = f
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}

	switch kind {
	case fieldGameState:
		return snap, nil
	case fieldPaddleMove:
		return move, nil
	case fieldGameOver:
		return over, nil
	default:
		return PlayAgain{}, nil
	}
}

func appendVarintField(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendDoubleField(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}
