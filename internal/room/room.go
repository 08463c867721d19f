// Package room implements the room coordinator: one goroutine per room owning the
// players, the ready-up handshake, the countdown and the running game.
package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

const (
	DefaultCapacity          = 2
	DefaultCountdownTicks    = 3
	DefaultCountdownInterval = time.Second

	inboxSize = 256
)

// Session - one client connection attached to a room.
type Session interface {
	ID() string
	// Send queues msg for delivery. It must not block.
	Send(msg any) error
}

type Options struct {
	Capacity          int
	CountdownTicks    int
	CountdownInterval time.Duration
	Defaults          entity.Settings
	// OnClose runs on the room goroutine once the last session detached.
	OnClose func(roomID string)
}

func (that Options) withDefaults() Options {
	if that.Capacity <= 0 {
		that.Capacity = DefaultCapacity
	}
	if that.CountdownTicks <= 0 {
		that.CountdownTicks = DefaultCountdownTicks
	}
	if that.CountdownInterval <= 0 {
		that.CountdownInterval = DefaultCountdownInterval
	}

	return that
}

// Room - the handle other goroutines use to talk to a room. All state lives in the
// coordinator and is only touched by the room goroutine.
type Room struct {
	id       string
	gameType entity.GameType
	logger   *slog.Logger

	inbox     chan event
	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	state *coordinator
}

func New(logger *slog.Logger, id string, ext game.Extension, settings entity.Settings, opts Options) *Room {
	opts = opts.withDefaults()

	that := &Room{
		id:       id,
		gameType: ext.Type(),
		logger:   logger.With("component", "room", "room", id, "game", ext.Type()),
		inbox:    make(chan event, inboxSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	that.state = newCoordinator(that, ext, settings.WithDefaults(opts.Defaults), opts)

	return that
}

func (that *Room) ID() string {
	return that.id
}

func (that *Room) GameType() entity.GameType {
	return that.gameType
}

// Start - launches the room goroutine.
func (that *Room) Start() {
	that.startOnce.Do(func() {
		go that.run()
	})
}

// Stop - terminates the room goroutine and cancels its timers.
func (that *Room) Stop() {
	that.stopOnce.Do(func() {
		close(that.quit)
	})
}

// Done - closed once the room goroutine exited.
func (that *Room) Done() <-chan struct{} {
	return that.done
}

func (that *Room) run() {
	defer close(that.done)
	defer that.state.cancelTimers()

	that.logger.Info("room started")

	for {
		select {
		case ev := <-that.inbox:
			ev.apply(that.state)
			if that.state.closed {
				that.logger.Info("room closed")
				return
			}
		case <-that.quit:
			that.logger.Info("room stopped")
			return
		}
	}
}

func (that *Room) post(ev event) error {
	select {
	case <-that.done:
		return fmt.Errorf("room %s: %w", that.id, apperror.ErrRoomClosed)
	default:
	}

	select {
	case that.inbox <- ev:
		return nil
	case <-that.done:
		return fmt.Errorf("room %s: %w", that.id, apperror.ErrRoomClosed)
	}
}

// Attach - registers a connected session. The session is not a player until it joins.
func (that *Room) Attach(ctx context.Context, session Session) error {
	reply := make(chan error, 1)
	if err := that.post(attachEvent{session: session, reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-that.done:
		return fmt.Errorf("room %s: %w", that.id, apperror.ErrRoomClosed)
	case <-ctx.Done():
		return fmt.Errorf("failed to attach session: %w", ctx.Err())
	}
}

// Detach - the session's connection is gone. Its player, if any, leaves immediately.
func (that *Room) Detach(sessionID string) {
	_ = that.post(detachEvent{sessionID: sessionID})
}

// Dispatch - delivers an inbound record. Records from one session are applied in order.
func (that *Room) Dispatch(sessionID string, env protocol.Envelope) error {
	return that.post(messageEvent{sessionID: sessionID, env: env})
}

// Info - a consistent snapshot of the room.
func (that *Room) Info(ctx context.Context) (entity.RoomInfo, error) {
	reply := make(chan entity.RoomInfo, 1)
	if err := that.post(infoEvent{reply: reply}); err != nil {
		return entity.RoomInfo{}, err
	}

	select {
	case info := <-reply:
		return info, nil
	case <-that.done:
		return entity.RoomInfo{}, fmt.Errorf("room %s: %w", that.id, apperror.ErrRoomClosed)
	case <-ctx.Done():
		return entity.RoomInfo{}, fmt.Errorf("failed to get room info: %w", ctx.Err())
	}
}
