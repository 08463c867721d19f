// Package tilemerge is the 2048 battle: big merges disrupt the opponent's board.
package tilemerge

import (
	"encoding/json"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

// Client -> server.
const (
	TypeMove     = "move"
	TypeGameOver = "game_over"
)

// Server -> client.
const (
	TypeOpponentUpdate   = "opponent_update"
	TypeAttack           = "attack"
	TypeOpponentGameOver = "opponent_game_over"
)

const BoardSize = 4

type Attack struct {
	Kind       string
	Duration   time.Duration // zero is permanent or instant
	TargetCell bool
}

// AttackThresholds - keyed by the merged tile value, never by score.
var AttackThresholds = map[int]Attack{
	256:  {Kind: "lock_tile", Duration: 5 * time.Second, TargetCell: true},
	512:  {Kind: "shuffle"},
	1024: {Kind: "blocker", TargetCell: true},
	2048: {Kind: "freeze", Duration: 3 * time.Second},
}

type Move struct {
	Score   int             `json:"score"`
	MaxTile int             `json:"maxTile"`
	Moves   int             `json:"moves"`
	Board   json.RawMessage `json:"board,omitempty"`
	Merged  []int           `json:"merged,omitempty"`
}

type OpponentUpdate struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId"`
	Score    int             `json:"score"`
	MaxTile  int             `json:"maxTile"`
	Moves    int             `json:"moves"`
	Board    json.RawMessage `json:"board,omitempty"`
}

type AttackMessage struct {
	Type       string `json:"type"`
	AttackType string `json:"attackType"`
	DurationMs int64  `json:"durationMs"`
	Row        *int   `json:"row,omitempty"`
	Col        *int   `json:"col,omitempty"`
	FromID     string `json:"fromId"`
}

type OpponentGameOver struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

type progress struct {
	score   int
	maxTile int
	moves   int
	board   json.RawMessage
}

type TileMerge struct {
	target   int
	progress map[string]*progress
}

func New() game.Extension {
	return &TileMerge{progress: make(map[string]*progress)}
}

func (that *TileMerge) Type() entity.GameType {
	return entity.Game2048
}

func (that *TileMerge) Start(players []*entity.Player, settings entity.Settings) {
	that.target = settings.TargetTile
	that.progress = make(map[string]*progress, len(players))
	for _, player := range players {
		that.progress[player.ID] = &progress{}
	}
}

func (that *TileMerge) Handles(msgType string) bool {
	switch msgType {
	case TypeMove, TypeGameOver:
		return true
	}

	return false
}

func (that *TileMerge) Handle(room game.Room, from *entity.Player, env protocol.Envelope) error {
	switch env.Type {
	case TypeMove:
		msg, err := protocol.DecodePayload[Move](env.Raw)
		if err != nil {
			return err
		}
		that.move(room, from, msg)
	case TypeGameOver:
		that.gameOver(room, from)
	default:
		return game.UnknownMessage(env.Type)
	}

	return nil
}

func (that *TileMerge) move(room game.Room, from *entity.Player, msg Move) {
	if !from.Alive {
		return
	}

	state := that.state(from.ID)
	state.score = msg.Score
	state.maxTile = msg.MaxTile
	state.moves = msg.Moves
	state.board = msg.Board

	room.BroadcastExcept(from.ID, OpponentUpdate{
		Type:     TypeOpponentUpdate,
		PlayerID: from.ID,
		Score:    state.score,
		MaxTile:  state.maxTile,
		Moves:    state.moves,
		Board:    state.board,
	})

	if that.target > 0 && state.maxTile >= that.target {
		room.End(from.ID, game.ReasonTargetReached)
		return
	}

	opponent := room.Opponent(from.ID)
	if opponent == nil || !opponent.Alive {
		return
	}

	for _, value := range msg.Merged {
		attack, ok := AttackThresholds[value]
		if !ok {
			continue
		}

		out := AttackMessage{
			Type:       TypeAttack,
			AttackType: attack.Kind,
			DurationMs: attack.Duration.Milliseconds(),
			FromID:     from.ID,
		}
		if attack.TargetCell {
			row, col := room.Rand().IntN(BoardSize), room.Rand().IntN(BoardSize)
			out.Row, out.Col = &row, &col
		}

		room.SendTo(opponent.ID, out)
	}
}

func (that *TileMerge) gameOver(room game.Room, from *entity.Player) {
	if !from.Alive {
		return
	}

	from.Alive = false
	room.BroadcastExcept(from.ID, OpponentGameOver{
		Type:     TypeOpponentGameOver,
		PlayerID: from.ID,
		Score:    that.state(from.ID).score,
	})

	for _, player := range room.Players() {
		if player.Alive {
			return
		}
	}

	game.EndByScore(room, game.ReasonHigherScore, that.score)
}

func (that *TileMerge) OnLeave(_ game.Room, player *entity.Player) {
	delete(that.progress, player.ID)
}

func (that *TileMerge) OnTimeUp(room game.Room) {
	game.EndByScore(room, game.ReasonTimeUp, that.score)
}

func (that *TileMerge) Results(players []*entity.Player) []entity.Result {
	results := make([]entity.Result, 0, len(players))
	for _, player := range players {
		state := that.state(player.ID)
		results = append(results, entity.Result{
			PlayerID: player.ID,
			Nickname: player.Nickname,
			Stats: map[string]any{
				"score":   state.score,
				"maxTile": state.maxTile,
				"moves":   state.moves,
			},
		})
	}

	return results
}

func (that *TileMerge) score(playerID string) int {
	return that.state(playerID).score
}

func (that *TileMerge) state(playerID string) *progress {
	state, ok := that.progress[playerID]
	if !ok {
		state = &progress{}
		that.progress[playerID] = state
	}

	return state
}
