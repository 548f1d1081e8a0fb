package netwrk

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// wireMessage is the flat JSON shape shared by every kind. Field names
// follow the browser client the protocol came from.
type wireMessage struct {
	Type         string   `json:"type"`
	Player1Score *int     `json:"player1Score,omitempty"`
	Player2Score *int     `json:"player2Score,omitempty"`
	BallX        *float64 `json:"ballX,omitempty"`
	BallY        *float64 `json:"ballY,omitempty"`
	Paddle1Y     *float64 `json:"paddle1Y,omitempty"`
	BallSpeed    *float64 `json:"ballSpeed,omitempty"`
	PaddleY      *float64 `json:"paddleY,omitempty"`
	Winner       *int     `json:"winner,omitempty"`
}

// JSONCodec is the human readable alternative to ProtoCodec.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(m Message) ([]byte, error) {
	wm := wireMessage{Type: m.Kind().String()}

	switch msg := m.(type) {
	case GameStateSnapshot:
		wm.Player1Score = &msg.Score1
		wm.Player2Score = &msg.Score2
		wm.BallX = &msg.BallX
		wm.BallY = &msg.BallY
		wm.Paddle1Y = &msg.HostPaddleY
		wm.BallSpeed = &msg.Speed
	case PaddleMove:
		wm.PaddleY = &msg.PaddleY
	case GameOver:
		wm.Winner = &msg.Winner
	case PlayAgain:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, m)
	}

	return json.Marshal(wm)
}

func (JSONCodec) Decode(b []byte) (Message, error) {
	wm := wireMessage{}
	if err := json.Unmarshal(b, &wm); err != nil {
		return nil, err
	}

	switch strings.ToLower(wm.Type) {
	case "gamestate":
		return GameStateSnapshot{
			Score1:      deref(wm.Player1Score),
			Score2:      deref(wm.Player2Score),
			BallX:       deref(wm.BallX),
			BallY:       deref(wm.BallY),
			HostPaddleY: deref(wm.Paddle1Y),
			Speed:       deref(wm.BallSpeed),
		}, nil
	case "paddlemove":
		return PaddleMove{PaddleY: deref(wm.PaddleY)}, nil
	case "gameover":
		return GameOver{Winner: deref(wm.Winner)}, nil
	case "playagain":
		return PlayAgain{}, nil
	default:
		slog.Debug("json message with unknown type", slog.String("type", wm.Type))
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, wm.Type)
	}
}

func deref[T int | float64](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
