// Package protocol describes the JSON records exchanged over a room connection.
// Every record carries a mandatory "type" discriminator next to its own fields.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
)

// Client -> server types handled by the room itself. Anything else goes to the game.
const (
	TypeCreateRoom = "create_room"
	TypeJoin       = "join"
	TypeReady      = "ready"
	TypeUnready    = "unready"
	TypeLeave      = "leave"
	TypePing       = "ping"
)

// Server -> client types emitted by the room.
const (
	TypeRoomJoined         = "room_joined"
	TypeRoomLeft           = "room_left"
	TypePlayerJoined       = "player_joined"
	TypePlayerLeft         = "player_left"
	TypePlayerReady        = "player_ready"
	TypeCountdown          = "countdown"
	TypeCountdownCancelled = "countdown_cancelled"
	TypeGameStart          = "game_start"
	TypeGameEnd            = "game_end"
	TypeError              = "error"
	TypePong               = "pong"
)

// Envelope - a decoded inbound record: its discriminator and the full raw body.
type Envelope struct {
	Type string
	Raw  json.RawMessage
}

type header struct {
	Type string `json:"type"`
}

// Decode - parses an inbound frame. Malformed JSON and a missing type are protocol errors.
func Decode(data []byte) (Envelope, error) {
	var head header
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	msgType := strings.TrimSpace(head.Type)
	if msgType == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", apperror.ErrMalformedMessage)
	}

	return Envelope{Type: msgType, Raw: json.RawMessage(data)}, nil
}

// DecodePayload - unmarshals the raw record into T.
func DecodePayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	if len(raw) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	return payload, nil
}
