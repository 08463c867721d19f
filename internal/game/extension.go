// Package game defines the contract between the game-agnostic room coordinator
// and the four battle modes layered on top of it.
package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

// Reasons reported in game_end.
const (
	ReasonOpponentQuit  = "opponent_quit"
	ReasonAbandoned     = "abandoned"
	ReasonLastStanding  = "last_standing"
	ReasonFinishedFirst = "finished_first"
	ReasonTargetReached = "target_reached"
	ReasonHigherScore   = "higher_score"
	ReasonTimeUp        = "time_up"
	ReasonDraw          = "draw"
)

// Room is what a running room exposes to its extension. Every call happens on the
// room's own goroutine, so extensions never lock.
type Room interface {
	ID() string
	Players() []*entity.Player
	Opponent(playerID string) *entity.Player
	Settings() entity.Settings
	SendTo(playerID string, msg any)
	Broadcast(msg any)
	BroadcastExcept(playerID string, msg any)
	// End finishes the current game. An empty winnerID is a draw.
	End(winnerID, reason string)
	Elapsed() time.Duration
	Rand() *rand.Rand
}

// Extension - game specific behaviour plugged into a room.
type Extension interface {
	Type() entity.GameType
	// Start zeroes every player's progress before a game.
	Start(players []*entity.Player, settings entity.Settings)
	// Handles reports whether msgType is one of the game's client messages.
	Handles(msgType string) bool
	// Handle applies a game message sent by a player while the room is playing.
	Handle(room Room, from *entity.Player, env protocol.Envelope) error
	// OnLeave runs after a player left a playing room, before the room resolves the leave.
	OnLeave(room Room, player *entity.Player)
	// OnTimeUp runs when the configured time limit elapses.
	OnTimeUp(room Room)
	Results(players []*entity.Player) []entity.Result
}

type Factory func() Extension

// Registry - builds a fresh extension per room.
type Registry struct {
	factories map[entity.GameType]Factory
}

func NewRegistry(factories ...Factory) *Registry {
	registry := &Registry{factories: make(map[entity.GameType]Factory, len(factories))}
	for _, factory := range factories {
		registry.factories[factory().Type()] = factory
	}

	return registry
}

func (that *Registry) New(gameType entity.GameType) (Extension, error) {
	factory, ok := that.factories[gameType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrUnknownGameType, gameType)
	}

	return factory(), nil
}

func (that *Registry) Supports(gameType entity.GameType) bool {
	_, ok := that.factories[gameType]
	return ok
}

// UnknownMessage - the error every extension returns for a type it does not handle.
func UnknownMessage(msgType string) error {
	return fmt.Errorf("%w: %q", apperror.ErrUnknownMessageType, msgType)
}
