package entity

import "time"

// Result - one per player entry of a game_end event.
type Result struct {
	PlayerID string         `json:"playerId"`
	Nickname string         `json:"nickname"`
	Winner   bool           `json:"winner"`
	Stats    map[string]any `json:"stats"`
}

// RoomInfo - diagnostic snapshot of a room.
type RoomInfo struct {
	ID        string     `json:"roomId"`
	GameType  GameType   `json:"gameType"`
	HostID    string     `json:"hostId,omitempty"`
	Status    Status     `json:"status"`
	Players   []Player   `json:"players"`
	Sessions  int        `json:"sessions"`
	Capacity  int        `json:"capacity"`
	Settings  Settings   `json:"settings"`
	Seed      int64      `json:"seed,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

func (that RoomInfo) IsFull() bool {
	return len(that.Players) >= that.Capacity
}

func (that RoomInfo) IsWaiting() bool {
	return that.Status == StatusWaiting
}

// ConnectionPath - where clients open the room connection.
func ConnectionPath(gameType GameType, code string) string {
	return "/ws/" + string(gameType) + "/" + code
}

// Ticket - what a client needs to connect to a provisioned room.
type Ticket struct {
	RoomCode       string `json:"roomCode"`
	ConnectionPath string `json:"connectionPath"`
}

func NewTicket(gameType GameType, code string) Ticket {
	return Ticket{RoomCode: code, ConnectionPath: ConnectionPath(gameType, code)}
}

// Match - the outcome of one matchmaking poll.
type Match struct {
	Matched          bool   `json:"matched"`
	RoomID           string `json:"roomId,omitempty"`
	ConnectionPath   string `json:"connectionPath,omitempty"`
	OpponentNickname string `json:"opponentNickname,omitempty"`
}
