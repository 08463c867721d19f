// Package tetris is the falling-block battle: line clears turn into garbage lines for the opponent.
package tetris

import (
	"encoding/json"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

// Client -> server.
const (
	TypeFieldUpdate = "field_update"
	TypeLineClear   = "line_clear"
	TypeGarbageAck  = "garbage_ack"
	TypeGameOver    = "game_over"
)

// Server -> client.
const (
	TypeOpponentUpdate   = "opponent_update"
	TypeGarbage          = "garbage"
	TypeGarbageUpdate    = "garbage_update"
	TypeOpponentGameOver = "opponent_game_over"
)

// AttackTable - base garbage lines per clear type.
var AttackTable = map[string]int{
	"single":        0,
	"double":        1,
	"triple":        2,
	"tetris":        4,
	"tspin_mini":    0,
	"tspin_single":  2,
	"tspin_double":  4,
	"tspin_triple":  6,
	"perfect_clear": 10,
}

const BackToBackBonus = 1

type FieldUpdate struct {
	Score int             `json:"score"`
	Lines int             `json:"lines"`
	Level int             `json:"level"`
	Field json.RawMessage `json:"field,omitempty"`
}

type LineClear struct {
	ClearType  string `json:"clearType"`
	Combo      int    `json:"combo"`
	BackToBack bool   `json:"backToBack"`
}

type GarbageAck struct {
	Lines int `json:"lines"`
}

type OpponentUpdate struct {
	Type           string          `json:"type"`
	PlayerID       string          `json:"playerId"`
	Score          int             `json:"score"`
	Lines          int             `json:"lines"`
	Level          int             `json:"level"`
	Field          json.RawMessage `json:"field,omitempty"`
	PendingGarbage int             `json:"pendingGarbage"`
}

type Garbage struct {
	Type   string `json:"type"`
	Lines  int    `json:"lines"`
	FromID string `json:"fromId"`
}

type GarbageUpdate struct {
	Type    string `json:"type"`
	Pending int    `json:"pending"`
}

type OpponentGameOver struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

type progress struct {
	score   int
	lines   int
	level   int
	field   json.RawMessage
	pending int
}

type Tetris struct {
	progress map[string]*progress
}

func New() game.Extension {
	return &Tetris{progress: make(map[string]*progress)}
}

func (that *Tetris) Type() entity.GameType {
	return entity.GameTetris
}

func (that *Tetris) Start(players []*entity.Player, _ entity.Settings) {
	that.progress = make(map[string]*progress, len(players))
	for _, player := range players {
		that.progress[player.ID] = &progress{level: 1}
	}
}

func (that *Tetris) Handles(msgType string) bool {
	switch msgType {
	case TypeFieldUpdate, TypeLineClear, TypeGarbageAck, TypeGameOver:
		return true
	}

	return false
}

func (that *Tetris) Handle(room game.Room, from *entity.Player, env protocol.Envelope) error {
	switch env.Type {
	case TypeFieldUpdate:
		msg, err := protocol.DecodePayload[FieldUpdate](env.Raw)
		if err != nil {
			return err
		}
		that.updateField(room, from, msg)
	case TypeLineClear:
		msg, err := protocol.DecodePayload[LineClear](env.Raw)
		if err != nil {
			return err
		}
		that.attack(room, from, msg)
	case TypeGarbageAck:
		msg, err := protocol.DecodePayload[GarbageAck](env.Raw)
		if err != nil {
			return err
		}
		that.acknowledge(from, msg.Lines)
	case TypeGameOver:
		that.gameOver(room, from)
	default:
		return game.UnknownMessage(env.Type)
	}

	return nil
}

func (that *Tetris) updateField(room game.Room, from *entity.Player, msg FieldUpdate) {
	state := that.state(from.ID)
	state.score = msg.Score
	state.lines = msg.Lines
	state.level = msg.Level
	state.field = msg.Field

	room.BroadcastExcept(from.ID, OpponentUpdate{
		Type:           TypeOpponentUpdate,
		PlayerID:       from.ID,
		Score:          state.score,
		Lines:          state.lines,
		Level:          state.level,
		Field:          state.field,
		PendingGarbage: state.pending,
	})
}

// AttackLines - garbage produced by one clear before any offset.
func AttackLines(clear LineClear) int {
	lines := AttackTable[clear.ClearType]
	if clear.Combo > 1 {
		lines += clear.Combo - 1
	}
	if clear.BackToBack {
		lines += BackToBackBonus
	}

	return lines
}

// Offset - cancels incoming garbage with an outgoing attack.
// Returns the attacker's remaining pending count and the lines left to send.
func Offset(pending, attack int) (remainingPending, sent int) {
	if attack <= pending {
		return pending - attack, 0
	}

	return 0, attack - pending
}

func (that *Tetris) attack(room game.Room, from *entity.Player, clear LineClear) {
	lines := AttackLines(clear)
	if lines <= 0 {
		return
	}

	attacker := that.state(from.ID)
	before := attacker.pending
	attacker.pending, lines = Offset(attacker.pending, lines)

	if attacker.pending != before {
		room.SendTo(from.ID, GarbageUpdate{Type: TypeGarbageUpdate, Pending: attacker.pending})
	}

	if lines == 0 {
		return
	}

	opponent := room.Opponent(from.ID)
	if opponent == nil || !opponent.Alive {
		return
	}

	that.state(opponent.ID).pending += lines
	room.SendTo(opponent.ID, Garbage{Type: TypeGarbage, Lines: lines, FromID: from.ID})
}

func (that *Tetris) acknowledge(from *entity.Player, lines int) {
	if lines <= 0 {
		return
	}

	state := that.state(from.ID)
	state.pending = max(0, state.pending-lines)
}

func (that *Tetris) gameOver(room game.Room, from *entity.Player) {
	if !from.Alive {
		return
	}

	from.Alive = false
	room.BroadcastExcept(from.ID, OpponentGameOver{Type: TypeOpponentGameOver, PlayerID: from.ID})

	if winnerID, ok := game.LastStanding(room.Players()); ok {
		if winnerID == "" {
			room.End("", game.ReasonDraw)
			return
		}
		room.End(winnerID, game.ReasonLastStanding)
	}
}

func (that *Tetris) OnLeave(_ game.Room, player *entity.Player) {
	delete(that.progress, player.ID)
}

func (that *Tetris) OnTimeUp(room game.Room) {
	game.EndByScore(room, game.ReasonTimeUp, func(playerID string) int {
		return that.state(playerID).score
	})
}

func (that *Tetris) Results(players []*entity.Player) []entity.Result {
	results := make([]entity.Result, 0, len(players))
	for _, player := range players {
		state := that.state(player.ID)
		results = append(results, entity.Result{
			PlayerID: player.ID,
			Nickname: player.Nickname,
			Stats: map[string]any{
				"score":          state.score,
				"lines":          state.lines,
				"level":          state.level,
				"pendingGarbage": state.pending,
			},
		})
	}

	return results
}

// Pending - garbage lines waiting for the player's acknowledgement.
func (that *Tetris) Pending(playerID string) int {
	return that.state(playerID).pending
}

func (that *Tetris) state(playerID string) *progress {
	state, ok := that.progress[playerID]
	if !ok {
		state = &progress{level: 1}
		that.progress[playerID] = state
	}

	return state
}
