package protocol

import (
	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
)

type CreateRoom struct {
	Nickname string           `json:"nickname"`
	Settings *entity.Settings `json:"settings,omitempty"`
}

type Join struct {
	Nickname string `json:"nickname"`
	RoomCode string `json:"roomCode"`
}

type Ping struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

type RoomJoined struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	RoomCode string          `json:"roomCode"`
	PlayerID string          `json:"playerId"`
	IsHost   bool            `json:"isHost"`
	GameType entity.GameType `json:"gameType"`
	Status   entity.Status   `json:"status"`
	Settings entity.Settings `json:"settings"`
	Players  []entity.Player `json:"players"`
}

type RoomLeft struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type PlayerJoined struct {
	Type   string        `json:"type"`
	Player entity.Player `json:"player"`
}

type PlayerLeft struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
}

type PlayerReady struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

type Countdown struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type CountdownCancelled struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type GameStart struct {
	Type      string          `json:"type"`
	GameType  entity.GameType `json:"gameType"`
	Seed      int64           `json:"seed"`
	Settings  entity.Settings `json:"settings"`
	Players   []entity.Player `json:"players"`
	StartedAt int64           `json:"startedAt"`
}

type GameEnd struct {
	Type           string          `json:"type"`
	WinnerID       string          `json:"winnerId"`
	WinnerNickname string          `json:"winnerNickname"`
	Reason         string          `json:"reason"`
	Results        []entity.Result `json:"results"`
}

type Pong struct {
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	ServerTime int64  `json:"serverTime"`
}

type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError - builds an error record for err.
func NewError(err error) Error {
	return Error{
		Type:    TypeError,
		Code:    apperror.Code(err),
		Message: err.Error(),
	}
}
