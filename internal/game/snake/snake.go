// Package snake is the shared-field snake battle.
//
// Both players move on one grid, but every client stays authoritative for its own
// snake: the room only relays positions and picks obstacle cells. Collisions are
// reported by the clients and never re-checked here.
package snake

import (
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

// Client -> server.
const (
	TypeSnakeUpdate = "snake_update"
	TypeFoodEaten   = "food_eaten"
	TypeDeath       = "death"
)

// Server -> client.
const (
	TypeOpponentUpdate    = "opponent_update"
	TypeOpponentFoodEaten = "opponent_food_eaten"
	TypeObstacle          = "obstacle"
	TypeOpponentDied      = "opponent_died"
)

const (
	CauseWall     = "wall"
	CauseSelf     = "self"
	CauseOpponent = "opponent"
)

const defaultGridSize = 20

// obstacleAttempts bounds the random search for a free cell.
const obstacleAttempts = 64

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type SnakeUpdate struct {
	Body      []Position `json:"body"`
	Direction string     `json:"direction"`
	Score     int        `json:"score"`
}

type FoodEaten struct {
	Score    int       `json:"score"`
	Position *Position `json:"position,omitempty"`
}

type Death struct {
	Cause string `json:"cause"`
}

type OpponentUpdate struct {
	Type      string     `json:"type"`
	PlayerID  string     `json:"playerId"`
	Body      []Position `json:"body"`
	Direction string     `json:"direction"`
	Score     int        `json:"score"`
}

type OpponentFoodEaten struct {
	Type     string    `json:"type"`
	PlayerID string    `json:"playerId"`
	Score    int       `json:"score"`
	Position *Position `json:"position,omitempty"`
}

type Obstacle struct {
	Type   string `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	FromID string `json:"fromId"`
}

type OpponentDied struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Cause    string `json:"cause"`
}

type progress struct {
	body      []Position
	direction string
	score     int
	cause     string
}

type Snake struct {
	gridSize  int
	obstacles map[Position]bool
	progress  map[string]*progress
}

func New() game.Extension {
	return &Snake{
		gridSize:  defaultGridSize,
		obstacles: make(map[Position]bool),
		progress:  make(map[string]*progress),
	}
}

func (that *Snake) Type() entity.GameType {
	return entity.GameSnake
}

func (that *Snake) Start(players []*entity.Player, settings entity.Settings) {
	that.gridSize = settings.GridSize
	if that.gridSize <= 0 {
		that.gridSize = defaultGridSize
	}

	that.obstacles = make(map[Position]bool)
	that.progress = make(map[string]*progress, len(players))
	for _, player := range players {
		that.progress[player.ID] = &progress{}
	}
}

func (that *Snake) Handles(msgType string) bool {
	switch msgType {
	case TypeSnakeUpdate, TypeFoodEaten, TypeDeath:
		return true
	}

	return false
}

func (that *Snake) Handle(room game.Room, from *entity.Player, env protocol.Envelope) error {
	switch env.Type {
	case TypeSnakeUpdate:
		msg, err := protocol.DecodePayload[SnakeUpdate](env.Raw)
		if err != nil {
			return err
		}
		that.update(room, from, msg)
	case TypeFoodEaten:
		msg, err := protocol.DecodePayload[FoodEaten](env.Raw)
		if err != nil {
			return err
		}
		that.foodEaten(room, from, msg)
	case TypeDeath:
		msg, err := protocol.DecodePayload[Death](env.Raw)
		if err != nil {
			return err
		}
		that.death(room, from, msg.Cause)
	default:
		return game.UnknownMessage(env.Type)
	}

	return nil
}

func (that *Snake) update(room game.Room, from *entity.Player, msg SnakeUpdate) {
	if !from.Alive {
		return
	}

	state := that.state(from.ID)
	state.body = msg.Body
	state.direction = msg.Direction
	state.score = msg.Score

	room.BroadcastExcept(from.ID, OpponentUpdate{
		Type:      TypeOpponentUpdate,
		PlayerID:  from.ID,
		Body:      state.body,
		Direction: state.direction,
		Score:     state.score,
	})
}

func (that *Snake) foodEaten(room game.Room, from *entity.Player, msg FoodEaten) {
	if !from.Alive {
		return
	}

	that.state(from.ID).score = msg.Score
	room.BroadcastExcept(from.ID, OpponentFoodEaten{
		Type:     TypeOpponentFoodEaten,
		PlayerID: from.ID,
		Score:    msg.Score,
		Position: msg.Position,
	})

	opponent := room.Opponent(from.ID)
	if opponent == nil || !opponent.Alive {
		return
	}

	cell, ok := that.freeCell(room)
	if !ok {
		return
	}

	that.obstacles[cell] = true
	room.SendTo(opponent.ID, Obstacle{Type: TypeObstacle, X: cell.X, Y: cell.Y, FromID: from.ID})
}

// freeCell - a random cell not covered by a reported body or an earlier obstacle.
func (that *Snake) freeCell(room game.Room) (Position, bool) {
	occupied := make(map[Position]bool, len(that.obstacles))
	for cell := range that.obstacles {
		occupied[cell] = true
	}
	for _, state := range that.progress {
		for _, cell := range state.body {
			occupied[cell] = true
		}
	}

	for range obstacleAttempts {
		cell := Position{X: room.Rand().IntN(that.gridSize), Y: room.Rand().IntN(that.gridSize)}
		if !occupied[cell] {
			return cell, true
		}
	}

	return Position{}, false
}

func (that *Snake) death(room game.Room, from *entity.Player, cause string) {
	if !from.Alive {
		return
	}

	switch cause {
	case CauseWall, CauseSelf, CauseOpponent:
	default:
		cause = CauseSelf
	}

	from.Alive = false
	that.state(from.ID).cause = cause
	room.BroadcastExcept(from.ID, OpponentDied{Type: TypeOpponentDied, PlayerID: from.ID, Cause: cause})

	if winnerID, ok := game.LastStanding(room.Players()); ok {
		if winnerID == "" {
			game.EndByScore(room, game.ReasonHigherScore, that.score)
			return
		}
		room.End(winnerID, game.ReasonLastStanding)
	}
}

func (that *Snake) OnLeave(_ game.Room, player *entity.Player) {
	delete(that.progress, player.ID)
}

func (that *Snake) OnTimeUp(room game.Room) {
	game.EndByScore(room, game.ReasonTimeUp, that.score)
}

func (that *Snake) Results(players []*entity.Player) []entity.Result {
	results := make([]entity.Result, 0, len(players))
	for _, player := range players {
		state := that.state(player.ID)
		results = append(results, entity.Result{
			PlayerID: player.ID,
			Nickname: player.Nickname,
			Stats: map[string]any{
				"score":  state.score,
				"length": len(state.body),
				"cause":  state.cause,
			},
		})
	}

	return results
}

func (that *Snake) score(playerID string) int {
	return that.state(playerID).score
}

func (that *Snake) state(playerID string) *progress {
	state, ok := that.progress[playerID]
	if !ok {
		state = &progress{}
		that.progress[playerID] = state
	}

	return state
}
