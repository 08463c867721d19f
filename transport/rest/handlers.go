package rest

import (
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/usecase"
)

type createRoomRequest struct {
	Nickname string           `json:"nickname"`
	Settings *entity.Settings `json:"settings,omitempty"`
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
}

type queueRequest struct {
	PlayerID string           `json:"playerId"`
	Nickname string           `json:"nickname"`
	Settings *entity.Settings `json:"settings,omitempty"`
}

type cancelQueueRequest struct {
	PlayerID string `json:"playerId"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type lobbyHandler struct {
	logger *slog.Logger
	lobby  usecase.LobbyUseCase
}

func newLobbyHandler(logger *slog.Logger, lobby usecase.LobbyUseCase) *lobbyHandler {
	return &lobbyHandler{logger: logger, lobby: lobby}
}

func (that *lobbyHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	logger := that.logger.With("method", "createRoom")

	gameType, err := entity.ParseGameType(r.PathValue("game"))
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	req, err := decodeBody[createRoomRequest](r)
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	ticket, err := that.lobby.CreateRoom(r.Context(), gameType, settingsOf(req.Settings))
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	writeJSON(logger, w, http.StatusCreated, ticket)
}

func (that *lobbyHandler) joinRoom(w http.ResponseWriter, r *http.Request) {
	logger := that.logger.With("method", "joinRoom")

	gameType, err := entity.ParseGameType(r.PathValue("game"))
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	req, err := decodeBody[joinRoomRequest](r)
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	ticket, err := that.lobby.JoinRoom(r.Context(), gameType, req.RoomCode)
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	writeJSON(logger, w, http.StatusOK, ticket)
}

func (that *lobbyHandler) queue(w http.ResponseWriter, r *http.Request) {
	logger := that.logger.With("method", "queue")

	gameType, err := entity.ParseGameType(r.PathValue("game"))
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	req, err := decodeBody[queueRequest](r)
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	match, err := that.lobby.Queue(r.Context(), gameType, req.PlayerID, req.Nickname, settingsOf(req.Settings))
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	writeJSON(logger, w, http.StatusOK, match)
}

func (that *lobbyHandler) cancelQueue(w http.ResponseWriter, r *http.Request) {
	logger := that.logger.With("method", "cancelQueue")

	if _, err := entity.ParseGameType(r.PathValue("game")); err != nil {
		WriteError(logger, w, err)
		return
	}

	req, err := decodeBody[cancelQueueRequest](r)
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	if err = that.lobby.CancelQueue(r.Context(), req.PlayerID); err != nil {
		WriteError(logger, w, err)
		return
	}

	writeJSON(logger, w, http.StatusOK, okResponse{OK: true})
}

func (that *lobbyHandler) roomInfo(w http.ResponseWriter, r *http.Request) {
	logger := that.logger.With("method", "roomInfo")

	gameType, err := entity.ParseGameType(r.PathValue("game"))
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	info, err := that.lobby.RoomInfo(r.Context(), gameType, r.URL.Query().Get("roomId"))
	if err != nil {
		WriteError(logger, w, err)
		return
	}

	writeJSON(logger, w, http.StatusOK, info)
}

// settingsOf - an absent settings object means every default.
func settingsOf(settings *entity.Settings) entity.Settings {
	if settings == nil {
		return entity.Settings{}
	}

	return *settings
}
