// Package typing is the typing race: correct-word streaks fire debuffs at the opponent.
package typing

import (
	"cmp"
	"sort"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

// Client -> server.
const (
	TypeWordTyped    = "word_typed"
	TypeGameFinished = "game_finished"
)

// Server -> client.
const (
	TypeOpponentProgress = "opponent_progress"
	TypeAttack           = "attack"
	TypeStreakBroken     = "streak_broken"
	TypeOpponentFinished = "opponent_finished"
)

// MinBrokenStreak - the shortest streak whose loss is announced.
const MinBrokenStreak = 3

type Attack struct {
	Kind     string
	Duration time.Duration // zero means it lasts until the target's next word
}

// StreakAttacks - one-shot attacks fired when a streak reaches the key.
var StreakAttacks = map[int]Attack{
	3:  {Kind: "blur", Duration: 3 * time.Second},
	5:  {Kind: "reverse", Duration: 4 * time.Second},
	7:  {Kind: "hide_next", Duration: 5 * time.Second},
	10: {Kind: "scramble"},
}

type WordTyped struct {
	WordIndex int     `json:"wordIndex"`
	Correct   bool    `json:"correct"`
	WPM       float64 `json:"wpm"`
	Accuracy  float64 `json:"accuracy"`
}

type GameFinished struct {
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}

type OpponentProgress struct {
	Type      string  `json:"type"`
	PlayerID  string  `json:"playerId"`
	WordIndex int     `json:"wordIndex"`
	WPM       float64 `json:"wpm"`
	Accuracy  float64 `json:"accuracy"`
	Streak    int     `json:"streak"`
}

type AttackMessage struct {
	Type       string `json:"type"`
	AttackType string `json:"attackType"`
	DurationMs int64  `json:"durationMs"`
	Streak     int    `json:"streak"`
	FromID     string `json:"fromId"`
}

type StreakBroken struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Streak   int    `json:"streak"`
}

type OpponentFinished struct {
	Type         string  `json:"type"`
	PlayerID     string  `json:"playerId"`
	FinishTimeMs int64   `json:"finishTimeMs"`
	WPM          float64 `json:"wpm"`
}

type progress struct {
	wordIndex  int
	wpm        float64
	accuracy   float64
	streak     int
	maxStreak  int
	fired      map[int]bool
	finishTime time.Duration
	rank       int
}

type Typing struct {
	progress map[string]*progress
}

func New() game.Extension {
	return &Typing{progress: make(map[string]*progress)}
}

func (that *Typing) Type() entity.GameType {
	return entity.GameTyping
}

func (that *Typing) Start(players []*entity.Player, _ entity.Settings) {
	that.progress = make(map[string]*progress, len(players))
	for _, player := range players {
		that.progress[player.ID] = newProgress()
	}
}

func newProgress() *progress {
	return &progress{accuracy: 100, fired: make(map[int]bool)}
}

func (that *Typing) Handles(msgType string) bool {
	switch msgType {
	case TypeWordTyped, TypeGameFinished:
		return true
	}

	return false
}

func (that *Typing) Handle(room game.Room, from *entity.Player, env protocol.Envelope) error {
	switch env.Type {
	case TypeWordTyped:
		msg, err := protocol.DecodePayload[WordTyped](env.Raw)
		if err != nil {
			return err
		}
		that.wordTyped(room, from, msg)
	case TypeGameFinished:
		msg, err := protocol.DecodePayload[GameFinished](env.Raw)
		if err != nil {
			return err
		}
		that.finish(room, from, msg)
	default:
		return game.UnknownMessage(env.Type)
	}

	return nil
}

func (that *Typing) wordTyped(room game.Room, from *entity.Player, msg WordTyped) {
	if from.Finished {
		return
	}

	state := that.state(from.ID)
	state.wordIndex = msg.WordIndex
	state.wpm = msg.WPM
	state.accuracy = msg.Accuracy

	if msg.Correct {
		that.extendStreak(room, from, state)
	} else {
		that.breakStreak(room, from, state)
	}

	room.BroadcastExcept(from.ID, OpponentProgress{
		Type:      TypeOpponentProgress,
		PlayerID:  from.ID,
		WordIndex: state.wordIndex,
		WPM:       state.wpm,
		Accuracy:  state.accuracy,
		Streak:    state.streak,
	})
}

func (that *Typing) extendStreak(room game.Room, from *entity.Player, state *progress) {
	state.streak++
	state.maxStreak = max(state.maxStreak, state.streak)

	attack, ok := StreakAttacks[state.streak]
	if !ok || state.fired[state.streak] {
		return
	}
	state.fired[state.streak] = true

	opponent := room.Opponent(from.ID)
	if opponent == nil || opponent.Finished {
		return
	}

	room.SendTo(opponent.ID, AttackMessage{
		Type:       TypeAttack,
		AttackType: attack.Kind,
		DurationMs: attack.Duration.Milliseconds(),
		Streak:     state.streak,
		FromID:     from.ID,
	})
}

func (that *Typing) breakStreak(room game.Room, from *entity.Player, state *progress) {
	if state.streak >= MinBrokenStreak {
		room.Broadcast(StreakBroken{Type: TypeStreakBroken, PlayerID: from.ID, Streak: state.streak})
	}

	state.streak = 0
	state.fired = make(map[int]bool)
}

func (that *Typing) finish(room game.Room, from *entity.Player, msg GameFinished) {
	if from.Finished {
		return
	}

	state := that.state(from.ID)
	from.Finished = true
	state.finishTime = room.Elapsed()
	state.wpm = msg.WPM
	state.accuracy = msg.Accuracy

	room.BroadcastExcept(from.ID, OpponentFinished{
		Type:         TypeOpponentFinished,
		PlayerID:     from.ID,
		FinishTimeMs: state.finishTime.Milliseconds(),
		WPM:          state.wpm,
	})

	for _, player := range room.Players() {
		if !player.Finished {
			return
		}
	}

	winnerID, ok := that.winner(room.Players())
	if !ok {
		room.End("", game.ReasonDraw)
		return
	}

	room.End(winnerID, game.ReasonFinishedFirst)
}

func (that *Typing) OnLeave(_ game.Room, player *entity.Player) {
	delete(that.progress, player.ID)
}

func (that *Typing) OnTimeUp(room game.Room) {
	winnerID, ok := that.winner(room.Players())
	if !ok {
		room.End("", game.ReasonDraw)
		return
	}

	room.End(winnerID, game.ReasonTimeUp)
}

// winner - the top ranked player. ok is false when nobody is ranked or the top two tie.
func (that *Typing) winner(players []*entity.Player) (string, bool) {
	ranked := that.rank(players)
	if len(ranked) == 0 {
		return "", false
	}

	if len(ranked) > 1 && that.compare(ranked[0], ranked[1]) == 0 {
		return "", false
	}

	return ranked[0].ID, true
}

// rank - orders finished players by finish time then wpm, followed by unfinished
// players by words typed then wpm. Tied players share a rank.
func (that *Typing) rank(players []*entity.Player) []*entity.Player {
	ranked := make([]*entity.Player, len(players))
	copy(ranked, players)

	sort.SliceStable(ranked, func(i, j int) bool {
		return that.compare(ranked[i], ranked[j]) < 0
	})

	for i, player := range ranked {
		rank := i + 1
		if i > 0 && that.compare(ranked[i-1], player) == 0 {
			rank = that.state(ranked[i-1].ID).rank
		}
		that.state(player.ID).rank = rank
	}

	return ranked
}

// compare - negative when a ranks ahead of b, zero on a full tie.
func (that *Typing) compare(a, b *entity.Player) int {
	sa, sb := that.state(a.ID), that.state(b.ID)

	switch {
	case a.Finished != b.Finished:
		if a.Finished {
			return -1
		}
		return 1
	case a.Finished && sa.finishTime != sb.finishTime:
		return cmp.Compare(sa.finishTime, sb.finishTime)
	case !a.Finished && sa.wordIndex != sb.wordIndex:
		return cmp.Compare(sb.wordIndex, sa.wordIndex)
	default:
		return cmp.Compare(sb.wpm, sa.wpm)
	}
}

func (that *Typing) Results(players []*entity.Player) []entity.Result {
	that.rank(players)

	results := make([]entity.Result, 0, len(players))
	for _, player := range players {
		state := that.state(player.ID)
		results = append(results, entity.Result{
			PlayerID: player.ID,
			Nickname: player.Nickname,
			Stats: map[string]any{
				"wpm":          state.wpm,
				"accuracy":     state.accuracy,
				"wordIndex":    state.wordIndex,
				"maxStreak":    state.maxStreak,
				"finishTimeMs": state.finishTime.Milliseconds(),
				"finished":     player.Finished,
				"rank":         state.rank,
			},
		})
	}

	return results
}

// Streak - the player's current run of correct words.
func (that *Typing) Streak(playerID string) int {
	return that.state(playerID).streak
}

func (that *Typing) state(playerID string) *progress {
	state, ok := that.progress[playerID]
	if !ok {
		state = newProgress()
		that.progress[playerID] = state
	}

	return state
}
