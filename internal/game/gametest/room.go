// Package gametest provides a recording game.Room for extension tests.
package gametest

import (
	"encoding/json"
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

type Sent struct {
	To  string
	Msg any
}

type Room struct {
	PlayerList []*entity.Player
	Config     entity.Settings
	Now        time.Duration
	Rng        *rand.Rand

	Sent     []Sent
	Ended    bool
	WinnerID string
	Reason   string
}

// NewRoom - builds a room with alive players named after their ids.
func NewRoom(ids ...string) *Room {
	players := make([]*entity.Player, 0, len(ids))
	for _, id := range ids {
		player := entity.NewPlayer(id, id)
		player.ResetForGame()
		players = append(players, player)
	}

	return &Room{
		PlayerList: players,
		Rng:        rand.New(rand.NewPCG(1, 2)),
	}
}

func (that *Room) ID() string { return "TEST01" }

func (that *Room) Players() []*entity.Player { return that.PlayerList }

func (that *Room) Player(id string) *entity.Player {
	for _, player := range that.PlayerList {
		if player.ID == id {
			return player
		}
	}

	return nil
}

func (that *Room) Opponent(playerID string) *entity.Player {
	for _, player := range that.PlayerList {
		if player.ID != playerID {
			return player
		}
	}

	return nil
}

func (that *Room) Settings() entity.Settings { return that.Config }

func (that *Room) SendTo(playerID string, msg any) {
	that.Sent = append(that.Sent, Sent{To: playerID, Msg: msg})
}

func (that *Room) Broadcast(msg any) {
	for _, player := range that.PlayerList {
		that.SendTo(player.ID, msg)
	}
}

func (that *Room) BroadcastExcept(playerID string, msg any) {
	for _, player := range that.PlayerList {
		if player.ID != playerID {
			that.SendTo(player.ID, msg)
		}
	}
}

func (that *Room) End(winnerID, reason string) {
	that.Ended = true
	that.WinnerID = winnerID
	that.Reason = reason
}

func (that *Room) Elapsed() time.Duration { return that.Now }

func (that *Room) Rand() *rand.Rand { return that.Rng }

// To - messages delivered to one player, in order.
func (that *Room) To(playerID string) []any {
	var out []any
	for _, sent := range that.Sent {
		if sent.To == playerID {
			out = append(out, sent.Msg)
		}
	}

	return out
}

// Reset - forgets recorded traffic.
func (that *Room) Reset() {
	that.Sent = nil
}

// Envelope - encodes v as an inbound record of the given type.
func Envelope(msgType string, v any) protocol.Envelope {
	fields := map[string]any{}
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		if err = json.Unmarshal(raw, &fields); err != nil {
			panic(err)
		}
	}
	fields["type"] = msgType

	raw, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}

	return protocol.Envelope{Type: msgType, Raw: raw}
}

// OfType - filters recorded messages down to T.
func OfType[T any](msgs []any) []T {
	var out []T
	for _, msg := range msgs {
		if typed, ok := msg.(T); ok {
			out = append(out, typed)
		}
	}

	return out
}
