package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/versus-backend/internal/config"
	"github.com/rocketscienceinc/versus-backend/internal/directory"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/game/snake"
	"github.com/rocketscienceinc/versus-backend/internal/game/tetris"
	"github.com/rocketscienceinc/versus-backend/internal/game/tilemerge"
	"github.com/rocketscienceinc/versus-backend/internal/game/typing"
	"github.com/rocketscienceinc/versus-backend/internal/matchmaking"
	"github.com/rocketscienceinc/versus-backend/internal/repository"
	"github.com/rocketscienceinc/versus-backend/internal/usecase"
)

func newTestServer(t *testing.T) (*httptest.Server, *directory.Directory) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := game.NewRegistry(tetris.New, typing.New, tilemerge.New, snake.New)
	rooms := directory.New(logger, repository.NewMemoryRoomCodes(0), registry, directory.Options{
		Defaults: (&config.Games{}).Defaults(),
	})
	t.Cleanup(rooms.Close)

	queue := matchmaking.New(logger, rooms, matchmaking.Options{})
	server := NewServer(logger, usecase.NewLobbyUseCase(logger, rooms, queue))

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return ts, rooms
}

func post(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var body T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestServer_CreateAndJoin(t *testing.T) {
	t.Run("Created rooms can be joined by code", func(t *testing.T) {
		// Given: a running lobby
		ts, _ := newTestServer(t)

		// When: a typing room is created
		resp := post(t, ts, "/api/typing/create", map[string]any{"nickname": "Ann", "settings": map[string]any{"wordCount": 40}})

		// Then: a ticket comes back
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		ticket := decode[entity.Ticket](t, resp)
		assert.Len(t, ticket.RoomCode, directory.CodeLength)
		assert.Equal(t, "/ws/typing/"+ticket.RoomCode, ticket.ConnectionPath)

		// And: the code is accepted by join, whatever its case
		resp = post(t, ts, "/api/typing/join", map[string]string{"roomCode": " " + string(bytes.ToLower([]byte(ticket.RoomCode)))})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, ticket, decode[entity.Ticket](t, resp))
	})

	t.Run("An empty body creates a room with default settings", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := post(t, ts, "/api/2048/create", "")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		ticket := decode[entity.Ticket](t, resp)

		infoResp, err := http.Get(ts.URL + "/api/2048/room-info?roomId=" + ticket.RoomCode)
		require.NoError(t, err)
		defer infoResp.Body.Close()

		require.Equal(t, http.StatusOK, infoResp.StatusCode)
		info := decode[entity.RoomInfo](t, infoResp)
		assert.Equal(t, entity.Game2048, info.GameType)
		assert.Equal(t, entity.StatusWaiting, info.Status)
		assert.Equal(t, 2048, info.Settings.TargetTile)
	})

	t.Run("Joining an unknown code is not found", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := post(t, ts, "/api/tetris/join", map[string]string{"roomCode": "ZZZZZZ"})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "room_not_found", decode[errorBody](t, resp).Code)
	})

	t.Run("A malformed code is not found", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := post(t, ts, "/api/tetris/join", map[string]string{"roomCode": "AB"})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Joining with the wrong game is a bad request", func(t *testing.T) {
		// Given: a snake room
		ts, _ := newTestServer(t)
		ticket := decode[entity.Ticket](t, post(t, ts, "/api/snake/create", map[string]string{}))

		// When: it is joined as tetris
		resp := post(t, ts, "/api/tetris/join", map[string]string{"roomCode": ticket.RoomCode})

		// Then: the mismatch is reported
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "game_type_mismatch", decode[errorBody](t, resp).Code)
	})

	t.Run("Join only checks the room and holds no seat", func(t *testing.T) {
		// Given: a provisioned tetris room nobody has connected to
		ts, _ := newTestServer(t)
		ticket := decode[entity.Ticket](t, post(t, ts, "/api/tetris/create", map[string]string{}))

		// When: three clients ask to join over HTTP
		statuses := make([]int, 0, 3)
		for range 3 {
			statuses = append(statuses, post(t, ts, "/api/tetris/join", map[string]string{"roomCode": ticket.RoomCode}).StatusCode)
		}

		// Then: all of them get the ticket, seats are taken by the join record on the room connection
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusOK}, statuses)
	})
}

func TestServer_Errors(t *testing.T) {
	t.Run("Unknown games are not found", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := post(t, ts, "/api/chess/create", map[string]string{})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "unknown_game_type", decode[errorBody](t, resp).Code)
	})

	t.Run("Malformed JSON is a bad request", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := post(t, ts, "/api/tetris/join", "{not json")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "malformed_message", decode[errorBody](t, resp).Code)
	})

	t.Run("Queueing without a player id is a bad request", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := post(t, ts, "/api/tetris/queue", map[string]string{"nickname": "Ann"})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "missing_player_id", decode[errorBody](t, resp).Code)
	})

	t.Run("Room info of an unknown room is not found", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp, err := http.Get(ts.URL + "/api/tetris/room-info?roomId=QQQQQQ")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Panics become a 500", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		ts := httptest.NewServer(NewServer(logger, panickingLobby{}).Handler())
		defer ts.Close()

		resp := post(t, ts, "/api/tetris/create", map[string]string{})

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "internal", decode[errorBody](t, resp).Code)
	})
}

func TestServer_Queue(t *testing.T) {
	t.Run("Two polls of the same game are matched into one room", func(t *testing.T) {
		// Given: a lobby
		ts, rooms := newTestServer(t)

		// When: X polls, then Y polls
		first := decode[entity.Match](t, post(t, ts, "/api/tetris/queue", map[string]string{"playerId": "x", "nickname": "Xena"}))
		second := decode[entity.Match](t, post(t, ts, "/api/tetris/queue", map[string]string{"playerId": "y", "nickname": "Yuri"}))

		// Then: X waits and Y is matched against X
		assert.False(t, first.Matched)
		require.True(t, second.Matched)
		assert.Equal(t, "Xena", second.OpponentNickname)
		assert.Equal(t, "/ws/tetris/"+second.RoomID, second.ConnectionPath)
		assert.Equal(t, 1, rooms.Len())

		// And: X's next poll delivers the same room
		third := decode[entity.Match](t, post(t, ts, "/api/tetris/queue", map[string]string{"playerId": "x", "nickname": "Xena"}))
		assert.True(t, third.Matched)
		assert.Equal(t, second.RoomID, third.RoomID)
		assert.Equal(t, "Yuri", third.OpponentNickname)
	})

	t.Run("Queued settings reach the matched room", func(t *testing.T) {
		// Given: X waits for a 30 second typing race
		ts, _ := newTestServer(t)
		settings := map[string]any{"timeLimitSec": 30}
		post(t, ts, "/api/typing/queue", map[string]any{"playerId": "x", "nickname": "Xena", "settings": settings})

		// When: Y polls with the same settings and gets matched
		match := decode[entity.Match](t, post(t, ts, "/api/typing/queue", map[string]any{"playerId": "y", "nickname": "Yuri", "settings": settings}))
		require.True(t, match.Matched)

		// Then: the room runs with the requested time limit and the default word count
		resp, err := http.Get(ts.URL + "/api/typing/room-info?roomId=" + match.RoomID)
		require.NoError(t, err)
		defer resp.Body.Close()

		info := decode[entity.RoomInfo](t, resp)
		assert.Equal(t, 30, info.Settings.TimeLimitSec)
		assert.Equal(t, 30, info.Settings.WordCount)
	})

	t.Run("Cancelling leaves the queue", func(t *testing.T) {
		ts, _ := newTestServer(t)
		post(t, ts, "/api/snake/queue", map[string]string{"playerId": "x"})

		resp := post(t, ts, "/api/snake/queue/cancel", map[string]string{"playerId": "x"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decode[okResponse](t, resp).OK)

		match := decode[entity.Match](t, post(t, ts, "/api/snake/queue", map[string]string{"playerId": "y"}))
		assert.False(t, match.Matched)
	})
}

func TestPingHandler(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

type panickingLobby struct {
	usecase.LobbyUseCase
}

func (panickingLobby) CreateRoom(context.Context, entity.GameType, entity.Settings) (entity.Ticket, error) {
	panic("boom")
}
