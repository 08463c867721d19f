package apperror

import "errors"

var (
	ErrRoomFull           = errors.New("room is full")
	ErrGameInProgress     = errors.New("game is already in progress")
	ErrInvalidRoomCode    = errors.New("invalid room code")
	ErrRoomNotFound       = errors.New("room not found")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free room code")
	ErrUnknownGameType    = errors.New("unknown game type")
	ErrGameTypeMismatch   = errors.New("room belongs to another game")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMalformedMessage   = errors.New("malformed message")
	ErrNotInRoom          = errors.New("player is not in the room")
	ErrAlreadyJoined      = errors.New("player already joined the room")
	ErrGameNotStarted     = errors.New("game is not started")
	ErrRoomClosed         = errors.New("room is closed")
	ErrMissingPlayerID    = errors.New("player id is required")
)

type coded struct {
	err  error
	code string
}

// codes is ordered: when an error wraps several sentinels the first listed wins.
var codes = []coded{
	{ErrRoomNotFound, "room_not_found"},
	{ErrRoomFull, "room_full"},
	{ErrGameInProgress, "game_in_progress"},
	{ErrInvalidRoomCode, "invalid_room_code"},
	{ErrCodeSpaceExhausted, "code_space_exhausted"},
	{ErrUnknownGameType, "unknown_game_type"},
	{ErrGameTypeMismatch, "game_type_mismatch"},
	{ErrUnknownMessageType, "unknown_message_type"},
	{ErrMalformedMessage, "malformed_message"},
	{ErrNotInRoom, "not_in_room"},
	{ErrAlreadyJoined, "already_joined"},
	{ErrGameNotStarted, "game_not_started"},
	{ErrRoomClosed, "room_closed"},
	{ErrMissingPlayerID, "missing_player_id"},
}

// Code - returns the machine readable code of the first known sentinel wrapped by err.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return "internal"
}
