package lobby

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	TypeHost  = "host"
	TypeJoin  = "join"
	TypeReady = "ready"
	TypeError = "error"
)

var ErrUnknownMessage = errors.New("unknown message type")

type LobbyMessage struct {
	MessageType string `json:"message_type"`
	Message     any    `json:"message"`
}

type Room struct {
	Code string `json:"code"`
}

type Ready struct {
	RelayID string `json:"relay_id"`
}

type Error struct {
	Message string `json:"message"`
}

type rawLobbyMessage struct {
	MessageType string          `json:"message_type"`
	Message     json.RawMessage `json:"message"`
}

func Marshal(a LobbyMessage) ([]byte, error) {
	slog.Debug("Marshalling message", slog.Any("message type", a.MessageType))
	return json.Marshal(a)
}

// Unmarshal decodes the envelope and puts the matching struct into Message
// so callers can type switch on it.
func Unmarshal(b []byte) (LobbyMessage, error) {
	raw := rawLobbyMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return LobbyMessage{}, err
	}
	lm := LobbyMessage{MessageType: strings.ToLower(raw.MessageType)}

	var err error
	switch lm.MessageType {
	case TypeHost, TypeJoin:
		r := Room{}
		err = json.Unmarshal(raw.Message, &r)
		lm.Message = r
	case TypeReady:
		r := Ready{}
		err = json.Unmarshal(raw.Message, &r)
		lm.Message = r
	case TypeError:
		e := Error{}
		err = json.Unmarshal(raw.Message, &e)
		lm.Message = e
	default:
		return lm, fmt.Errorf("%q: %w", raw.MessageType, ErrUnknownMessage)
	}
	if err != nil {
		slog.Debug(lm.MessageType, slog.Any("error", err))
		return lm, err
	}
	return lm, nil
}

func errorMessage(text string) LobbyMessage {
	return LobbyMessage{MessageType: TypeError, Message: Error{Message: text}}
}
