package room

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/game/gametest"
	"github.com/rocketscienceinc/versus-backend/internal/game/tetris"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

const (
	roomID  = "ABC234"
	waitFor = 2 * time.Second
)

var errBrokenPipe = errors.New("broken pipe")

type fakeSession struct {
	id   string
	msgs chan any
	fail atomic.Bool
}

func newSession(id string) *fakeSession {
	return &fakeSession{id: id, msgs: make(chan any, 128)}
}

func (that *fakeSession) ID() string { return that.id }

func (that *fakeSession) Send(msg any) error {
	if that.fail.Load() {
		return errBrokenPipe
	}

	that.msgs <- msg

	return nil
}

// expect - skips ahead to the next message of type T.
func expect[T any](t *testing.T, session *fakeSession) T {
	t.Helper()

	timeout := time.After(waitFor)
	for {
		select {
		case msg := <-session.msgs:
			if typed, ok := msg.(T); ok {
				return typed
			}
		case <-timeout:
			var zero T
			t.Fatalf("session %s: no %T received", session.id, zero)
			return zero
		}
	}
}

// drain - everything received so far.
func drain(session *fakeSession) []any {
	var out []any
	for {
		select {
		case msg := <-session.msgs:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func newTestRoom(t *testing.T, ext game.Extension, settings entity.Settings, opts Options) *Room {
	t.Helper()

	if opts.CountdownInterval == 0 {
		opts.CountdownInterval = 5 * time.Millisecond
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	room := New(logger, roomID, ext, settings, opts)
	room.Start()
	t.Cleanup(room.Stop)

	return room
}

func send(t *testing.T, room *Room, session *fakeSession, msgType string, v any) {
	t.Helper()

	require.NoError(t, room.Dispatch(session.id, gametest.Envelope(msgType, v)))
}

func attach(t *testing.T, room *Room, ids ...string) []*fakeSession {
	t.Helper()

	sessions := make([]*fakeSession, 0, len(ids))
	for _, id := range ids {
		session := newSession(id)
		require.NoError(t, room.Attach(context.Background(), session))
		sessions = append(sessions, session)
	}

	return sessions
}

// seatTwo - A creates, B joins.
func seatTwo(t *testing.T, room *Room) (*fakeSession, *fakeSession) {
	t.Helper()

	sessions := attach(t, room, "a", "b")
	a, b := sessions[0], sessions[1]

	send(t, room, a, protocol.TypeCreateRoom, protocol.CreateRoom{Nickname: "Alice"})
	expect[protocol.RoomJoined](t, a)
	send(t, room, b, protocol.TypeJoin, protocol.Join{Nickname: "Bob", RoomCode: roomID})
	expect[protocol.RoomJoined](t, b)
	expect[protocol.PlayerJoined](t, a)

	return a, b
}

func startGame(t *testing.T, room *Room, a, b *fakeSession) (protocol.GameStart, protocol.GameStart) {
	t.Helper()

	send(t, room, a, protocol.TypeReady, nil)
	send(t, room, b, protocol.TypeReady, nil)

	return expect[protocol.GameStart](t, a), expect[protocol.GameStart](t, b)
}

func TestRoom_Join(t *testing.T) {
	t.Run("Creator is host and the joiner sees both players", func(t *testing.T) {
		// Given: an empty room
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		sessions := attach(t, room, "a", "b")
		a, b := sessions[0], sessions[1]

		// When: A creates and B joins with a lowercase code
		send(t, room, a, protocol.TypeCreateRoom, protocol.CreateRoom{Nickname: "Alice"})
		joinedA := expect[protocol.RoomJoined](t, a)
		send(t, room, b, protocol.TypeJoin, protocol.Join{Nickname: "Bob", RoomCode: "abc234"})
		joinedB := expect[protocol.RoomJoined](t, b)

		// Then: A hosts, B sees both, A is told about B
		assert.True(t, joinedA.IsHost)
		assert.Equal(t, roomID, joinedA.RoomCode)
		assert.False(t, joinedB.IsHost)
		require.Len(t, joinedB.Players, 2)
		assert.Equal(t, "Alice", joinedB.Players[0].Nickname)
		assert.Equal(t, "Bob", expect[protocol.PlayerJoined](t, a).Player.Nickname)
	})

	t.Run("A third player is rejected and the room is unchanged", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		seatTwo(t, room)
		c := attach(t, room, "c")[0]

		send(t, room, c, protocol.TypeJoin, protocol.Join{Nickname: "Carol", RoomCode: roomID})

		assert.Equal(t, "room_full", expect[protocol.Error](t, c).Code)
		info, err := room.Info(context.Background())
		require.NoError(t, err)
		assert.Len(t, info.Players, 2)
		assert.Equal(t, entity.StatusWaiting, info.Status)
	})

	t.Run("A wrong code is rejected", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a := attach(t, room, "a")[0]

		send(t, room, a, protocol.TypeJoin, protocol.Join{RoomCode: "ZZZZZZ"})

		assert.Equal(t, "invalid_room_code", expect[protocol.Error](t, a).Code)
	})

	t.Run("Joining twice is rejected", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, _ := seatTwo(t, room)

		send(t, room, a, protocol.TypeJoin, protocol.Join{RoomCode: roomID})

		assert.Equal(t, "already_joined", expect[protocol.Error](t, a).Code)
	})

	t.Run("Host settings are normalized", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a := attach(t, room, "a")[0]

		send(t, room, a, protocol.TypeCreateRoom, protocol.CreateRoom{Settings: &entity.Settings{GridSize: 99}})

		joined := expect[protocol.RoomJoined](t, a)
		assert.Equal(t, 40, joined.Settings.GridSize)
	})

	t.Run("A duplicate session is refused", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		attach(t, room, "a")

		err := room.Attach(context.Background(), newSession("a"))

		require.Error(t, err)
	})
}

func TestRoom_Countdown(t *testing.T) {
	t.Run("Both ready starts the game with one shared seed", func(t *testing.T) {
		// Given: two seated players
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, b := seatTwo(t, room)

		// When: both ready up
		send(t, room, a, protocol.TypeReady, nil)
		send(t, room, b, protocol.TypeReady, nil)

		// Then: 3, 2, 1 then one game_start with an identical seed
		for _, value := range []int{3, 2, 1} {
			assert.Equal(t, value, expect[protocol.Countdown](t, a).Value)
		}
		startA := expect[protocol.GameStart](t, a)
		startB := expect[protocol.GameStart](t, b)
		assert.Equal(t, startA.Seed, startB.Seed)
		assert.NotZero(t, startA.StartedAt)
		require.Len(t, startA.Players, 2)
		assert.True(t, startA.Players[0].Alive)

		info, err := room.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPlaying, info.Status)
		assert.Equal(t, startA.Seed, info.Seed)
		assert.NotNil(t, info.StartedAt)
	})

	t.Run("One ready player does not start a countdown", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, b := seatTwo(t, room)

		send(t, room, a, protocol.TypeReady, nil)

		ready := expect[protocol.PlayerReady](t, b)
		assert.Equal(t, "a", ready.PlayerID)
		assert.True(t, ready.Ready)
		info, err := room.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWaiting, info.Status)
	})

	t.Run("Unready during the countdown aborts it", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{CountdownInterval: time.Hour})
		a, b := seatTwo(t, room)
		send(t, room, a, protocol.TypeReady, nil)
		send(t, room, b, protocol.TypeReady, nil)
		expect[protocol.Countdown](t, a)

		send(t, room, b, protocol.TypeUnready, nil)

		cancelled := expect[protocol.CountdownCancelled](t, a)
		assert.Equal(t, CancelPlayerUnready, cancelled.Reason)
		info, err := room.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWaiting, info.Status)
	})

	t.Run("A disconnect during the countdown returns to waiting", func(t *testing.T) {
		// Given: a countdown in progress
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{CountdownInterval: time.Hour})
		a, b := seatTwo(t, room)
		send(t, room, a, protocol.TypeReady, nil)
		send(t, room, b, protocol.TypeReady, nil)
		expect[protocol.Countdown](t, a)

		// When: B drops
		room.Detach(b.id)

		// Then: A learns B left, the countdown is cancelled and no game starts
		assert.Equal(t, "b", expect[protocol.PlayerLeft](t, a).PlayerID)
		assert.Equal(t, CancelPlayerLeft, expect[protocol.CountdownCancelled](t, a).Reason)
		info, err := room.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWaiting, info.Status)
		require.Len(t, info.Players, 1)
		assert.True(t, info.Players[0].IsHost)
	})
}

func TestRoom_Playing(t *testing.T) {
	t.Run("A tetris clear sends four garbage lines to the opponent", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, b := seatTwo(t, room)
		startGame(t, room, a, b)

		send(t, room, a, tetris.TypeLineClear, tetris.LineClear{ClearType: "tetris"})

		garbage := expect[tetris.Garbage](t, b)
		assert.Equal(t, 4, garbage.Lines)
		assert.Equal(t, "a", garbage.FromID)
	})

	t.Run("Game messages before the start are rejected", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, _ := seatTwo(t, room)

		send(t, room, a, tetris.TypeLineClear, tetris.LineClear{ClearType: "tetris"})

		assert.Equal(t, "game_not_started", expect[protocol.Error](t, a).Code)
	})

	t.Run("Messages from a session that never joined are rejected", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a := attach(t, room, "a")[0]

		send(t, room, a, protocol.TypeReady, nil)

		assert.Equal(t, "not_in_room", expect[protocol.Error](t, a).Code)
	})

	t.Run("An unknown type is answered with an error", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, b := seatTwo(t, room)
		startGame(t, room, a, b)

		send(t, room, a, "teleport", nil)

		assert.Equal(t, "unknown_message_type", expect[protocol.Error](t, a).Code)
	})

	t.Run("An unknown type before the start is reported as unknown", func(t *testing.T) {
		// Given: two seated players and no game running
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, _ := seatTwo(t, room)

		// When: one sends a type no part of the room handles
		send(t, room, a, "teleport", nil)

		// Then: the type itself is reported
		assert.Equal(t, "unknown_message_type", expect[protocol.Error](t, a).Code)
	})

	t.Run("Ping is answered with pong in any state", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a := attach(t, room, "a")[0]

		send(t, room, a, protocol.TypePing, protocol.Ping{Timestamp: 42})

		pong := expect[protocol.Pong](t, a)
		assert.Equal(t, int64(42), pong.Timestamp)
		assert.NotZero(t, pong.ServerTime)
	})
}

func TestRoom_End(t *testing.T) {
	t.Run("A disconnect while playing is an opponent_quit win", func(t *testing.T) {
		// Given: a running game
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, b := seatTwo(t, room)
		startGame(t, room, a, b)

		// When: A drops
		room.Detach(a.id)

		// Then: B wins and the room is waiting again
		end := expect[protocol.GameEnd](t, b)
		assert.Equal(t, "b", end.WinnerID)
		assert.Equal(t, "Bob", end.WinnerNickname)
		assert.Equal(t, game.ReasonOpponentQuit, end.Reason)
		info, err := room.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.StatusWaiting, info.Status)
		require.Len(t, info.Players, 1)
		assert.False(t, info.Players[0].Ready)
	})

	t.Run("Leave is acknowledged and ends the game the same way", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, b := seatTwo(t, room)
		startGame(t, room, a, b)

		send(t, room, a, protocol.TypeLeave, nil)

		assert.Equal(t, roomID, expect[protocol.RoomLeft](t, a).RoomID)
		assert.Equal(t, game.ReasonOpponentQuit, expect[protocol.GameEnd](t, b).Reason)
	})

	t.Run("A top out ends the game and a rematch needs a new ready-up", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, b := seatTwo(t, room)
		first, _ := startGame(t, room, a, b)

		send(t, room, b, tetris.TypeGameOver, nil)

		end := expect[protocol.GameEnd](t, a)
		assert.Equal(t, "a", end.WinnerID)
		require.Len(t, end.Results, 2)
		assert.True(t, end.Results[0].Winner)
		assert.False(t, end.Results[1].Winner)

		second, _ := startGame(t, room, a, b)
		assert.NotEqual(t, first.Seed, second.Seed)
		require.Len(t, second.Players, 2)
		for _, player := range second.Players {
			assert.True(t, player.Alive)
		}
	})

	t.Run("The time limit ends the game", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{TimeLimitSec: 1}, Options{})
		a, b := seatTwo(t, room)
		startGame(t, room, a, b)

		end := expect[protocol.GameEnd](t, a)

		assert.Contains(t, []string{game.ReasonTimeUp, game.ReasonDraw}, end.Reason)
	})
}

func TestRoom_Close(t *testing.T) {
	t.Run("The last detach closes the room", func(t *testing.T) {
		// Given: a room with one seated player and a close hook
		closed := make(chan string, 1)
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{OnClose: func(id string) { closed <- id }})
		a := attach(t, room, "a")[0]
		send(t, room, a, protocol.TypeCreateRoom, protocol.CreateRoom{})

		// When: the only session drops
		room.Detach(a.id)

		// Then: the hook fires and the room refuses further work
		select {
		case id := <-closed:
			assert.Equal(t, roomID, id)
		case <-time.After(waitFor):
			t.Fatal("room was not closed")
		}
		<-room.Done()
		_, err := room.Info(context.Background())
		require.Error(t, err)
	})

	t.Run("A failing session does not block the others", func(t *testing.T) {
		room := newTestRoom(t, tetris.New(), entity.Settings{}, Options{})
		a, b := seatTwo(t, room)
		a.fail.Store(true)
		drain(b)

		send(t, room, b, protocol.TypeReady, nil)

		assert.True(t, expect[protocol.PlayerReady](t, b).Ready)
	})
}
