package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
)

type GameType string

const (
	GameTetris GameType = "tetris"
	GameTyping GameType = "typing"
	Game2048   GameType = "2048"
	GameSnake  GameType = "snake"
)

// GameTypes - every game type served by the backend.
var GameTypes = []GameType{GameTetris, GameTyping, Game2048, GameSnake}

// ParseGameType - resolves a wire name into a GameType.
func ParseGameType(name string) (GameType, error) {
	gameType := GameType(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range GameTypes {
		if gameType == known {
			return gameType, nil
		}
	}

	return "", fmt.Errorf("%w: %q", apperror.ErrUnknownGameType, name)
}

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCountdown Status = "countdown"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
)

const (
	minGridSize   = 10
	maxGridSize   = 40
	minTargetTile = 256
	maxTargetTile = 1 << 17
	maxWordCount  = 200
	maxTimeLimit  = 3600
)

// Settings - game specific settings. Zero values mean "use the default".
type Settings struct {
	TimeLimitSec int `json:"timeLimitSec,omitempty" yaml:"time-limit-sec"`
	WordCount    int `json:"wordCount,omitempty"    yaml:"word-count"`
	GridSize     int `json:"gridSize,omitempty"     yaml:"grid-size"`
	TargetTile   int `json:"targetTile,omitempty"   yaml:"target-tile"`
}

// WithDefaults - fills unset fields from defaults and clamps out of range values.
func (that Settings) WithDefaults(defaults Settings) Settings {
	out := that

	if out.TimeLimitSec <= 0 {
		out.TimeLimitSec = defaults.TimeLimitSec
	}
	if out.WordCount <= 0 {
		out.WordCount = defaults.WordCount
	}
	if out.GridSize <= 0 {
		out.GridSize = defaults.GridSize
	}
	if out.TargetTile <= 0 {
		out.TargetTile = defaults.TargetTile
	}

	out.TimeLimitSec = clamp(out.TimeLimitSec, 0, maxTimeLimit)
	out.WordCount = clamp(out.WordCount, 0, maxWordCount)
	if out.GridSize != 0 {
		out.GridSize = clamp(out.GridSize, minGridSize, maxGridSize)
	}
	if out.TargetTile != 0 {
		out.TargetTile = clampPowerOfTwo(out.TargetTile)
	}

	return out
}

func clamp(value, lo, hi int) int {
	return max(lo, min(value, hi))
}

// clampPowerOfTwo - rounds down to a power of two inside the allowed tile range.
func clampPowerOfTwo(value int) int {
	value = clamp(value, minTargetTile, maxTargetTile)

	tile := minTargetTile
	for tile*2 <= value {
		tile *= 2
	}

	return tile
}
