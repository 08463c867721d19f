package room

import (
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

func (that *coordinator) startCountdown() {
	that.cancelTimers()
	that.status = entity.StatusCountdown
	that.countdown = that.opts.CountdownTicks

	that.logger.Info("countdown started", "ticks", that.countdown)
	that.Broadcast(protocol.Countdown{Type: protocol.TypeCountdown, Value: that.countdown})
	that.schedule(timerCountdown, that.opts.CountdownInterval)
}

func (that *coordinator) abortCountdown(reason string) {
	that.cancelTimers()
	that.status = entity.StatusWaiting
	that.countdown = 0

	that.logger.Info("countdown cancelled", "reason", reason)
	that.Broadcast(protocol.CountdownCancelled{Type: protocol.TypeCountdownCancelled, Reason: reason})
}

func (that *coordinator) tick() {
	that.countdown--
	if that.countdown > 0 {
		that.Broadcast(protocol.Countdown{Type: protocol.TypeCountdown, Value: that.countdown})
		that.schedule(timerCountdown, that.opts.CountdownInterval)
		return
	}

	that.startGame()
}

func (that *coordinator) startGame() {
	that.cancelTimers()

	that.seed = rand.Int64()
	that.rng = rand.New(rand.NewPCG(uint64(that.seed), uint64(that.seed)>>1|1))
	for _, player := range that.players {
		player.ResetForGame()
	}

	that.ext.Start(that.players, that.settings)
	that.startedAt = time.Now()
	that.status = entity.StatusPlaying

	that.logger.Info("game started", "seed", that.seed, "players", len(that.players))
	that.Broadcast(protocol.GameStart{
		Type:      protocol.TypeGameStart,
		GameType:  that.handle.gameType,
		Seed:      that.seed,
		Settings:  that.settings,
		Players:   that.snapshot(),
		StartedAt: that.startedAt.UnixMilli(),
	})

	if that.settings.TimeLimitSec > 0 {
		that.schedule(timerTimeUp, time.Duration(that.settings.TimeLimitSec)*time.Second)
	}
}

// finish - announces the outcome and puts the room back into the lobby for a rematch.
func (that *coordinator) finish(winnerID, reason string) {
	if that.status != entity.StatusPlaying {
		return
	}

	that.cancelTimers()
	that.status = entity.StatusFinished

	results := that.ext.Results(that.players)
	for i := range results {
		results[i].Winner = winnerID != "" && results[i].PlayerID == winnerID
	}

	var winnerNickname string
	if winner := that.player(winnerID); winner != nil {
		winnerNickname = winner.Nickname
	}

	that.logger.Info("game finished", "winner", winnerID, "reason", reason, "elapsed", that.Elapsed())
	that.Broadcast(protocol.GameEnd{
		Type:           protocol.TypeGameEnd,
		WinnerID:       winnerID,
		WinnerNickname: winnerNickname,
		Reason:         reason,
		Results:        results,
	})

	for _, player := range that.players {
		player.Ready = false
	}
	that.status = entity.StatusWaiting
}

func (that *coordinator) schedule(kind timerKind, after time.Duration) {
	ev := timerEvent{generation: that.generation, kind: kind}
	that.timers = append(that.timers, time.AfterFunc(after, func() {
		_ = that.handle.post(ev)
	}))
}

// cancelTimers - stops pending timers. Events already queued carry the old
// generation and are dropped by fire.
func (that *coordinator) cancelTimers() {
	for _, timer := range that.timers {
		timer.Stop()
	}
	that.timers = nil
	that.generation++
}

func (that *coordinator) fire(ev timerEvent) {
	if ev.generation != that.generation {
		return
	}

	switch ev.kind {
	case timerCountdown:
		if that.status == entity.StatusCountdown {
			that.tick()
		}
	case timerTimeUp:
		if that.status == entity.StatusPlaying {
			that.logger.Info("time limit reached")
			that.ext.OnTimeUp(that)
			that.finish("", game.ReasonTimeUp)
		}
	}
}
