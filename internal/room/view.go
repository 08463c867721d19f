package room

import (
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
)

// The methods below make the coordinator a game.Room.

func (that *coordinator) ID() string {
	return that.handle.id
}

func (that *coordinator) Players() []*entity.Player {
	return that.players
}

func (that *coordinator) Opponent(playerID string) *entity.Player {
	for _, player := range that.players {
		if player.ID != playerID {
			return player
		}
	}

	return nil
}

func (that *coordinator) Settings() entity.Settings {
	return that.settings
}

func (that *coordinator) SendTo(playerID string, msg any) {
	if err := that.sendTo(playerID, msg); err != nil {
		that.logger.Debug("message dropped", "player", playerID, "error", err)
	}
}

func (that *coordinator) Broadcast(msg any) {
	for _, player := range that.players {
		that.SendTo(player.ID, msg)
	}
}

func (that *coordinator) BroadcastExcept(playerID string, msg any) {
	for _, player := range that.players {
		if player.ID != playerID {
			that.SendTo(player.ID, msg)
		}
	}
}

func (that *coordinator) End(winnerID, reason string) {
	that.finish(winnerID, reason)
}

func (that *coordinator) Elapsed() time.Duration {
	if that.startedAt.IsZero() {
		return 0
	}

	return time.Since(that.startedAt)
}

func (that *coordinator) Rand() *rand.Rand {
	return that.rng
}
