package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/matchmaking"
)

// LobbyUseCase - everything a client does before it holds a room connection.
type LobbyUseCase interface {
	CreateRoom(ctx context.Context, gameType entity.GameType, settings entity.Settings) (entity.Ticket, error)
	JoinRoom(ctx context.Context, gameType entity.GameType, code string) (entity.Ticket, error)
	RoomInfo(ctx context.Context, gameType entity.GameType, code string) (entity.RoomInfo, error)

	Queue(ctx context.Context, gameType entity.GameType, playerID, nickname string, settings entity.Settings) (entity.Match, error)
	CancelQueue(ctx context.Context, playerID string) error
}

type roomDirectory interface {
	Provision(ctx context.Context, gameType entity.GameType, settings entity.Settings) (string, error)
	ValidateJoin(ctx context.Context, gameType entity.GameType, code string) (entity.RoomInfo, error)
	Info(ctx context.Context, code string) (entity.RoomInfo, error)
}

type matchQueue interface {
	Enqueue(ctx context.Context, playerID, nickname string, gameType entity.GameType, settings entity.Settings) (matchmaking.Result, error)
	Cancel(playerID string)
}

type lobbyUseCase struct {
	logger    *slog.Logger
	directory roomDirectory
	queue     matchQueue
}

func NewLobbyUseCase(logger *slog.Logger, directory roomDirectory, queue matchQueue) LobbyUseCase {
	return &lobbyUseCase{
		logger:    logger.With("component", "lobby"),
		directory: directory,
		queue:     queue,
	}
}

func (that *lobbyUseCase) CreateRoom(ctx context.Context, gameType entity.GameType, settings entity.Settings) (entity.Ticket, error) {
	code, err := that.directory.Provision(ctx, gameType, settings)
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("failed to create room: %w", err)
	}

	that.logger.Info("room provisioned", "method", "CreateRoom", "game", gameType, "code", code)

	return entity.NewTicket(gameType, code), nil
}

func (that *lobbyUseCase) JoinRoom(ctx context.Context, gameType entity.GameType, code string) (entity.Ticket, error) {
	info, err := that.directory.ValidateJoin(ctx, gameType, code)
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("failed to join room: %w", err)
	}

	return entity.NewTicket(gameType, info.ID), nil
}

func (that *lobbyUseCase) RoomInfo(ctx context.Context, gameType entity.GameType, code string) (entity.RoomInfo, error) {
	info, err := that.directory.Info(ctx, code)
	if err != nil {
		return entity.RoomInfo{}, fmt.Errorf("failed to get room info: %w", err)
	}

	if info.GameType != gameType {
		return entity.RoomInfo{}, fmt.Errorf("%w: %s is a %s room", apperror.ErrGameTypeMismatch, info.ID, info.GameType)
	}

	return info, nil
}

func (that *lobbyUseCase) Queue(ctx context.Context, gameType entity.GameType, playerID, nickname string, settings entity.Settings) (entity.Match, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return entity.Match{}, apperror.ErrMissingPlayerID
	}

	result, err := that.queue.Enqueue(ctx, playerID, nickname, gameType, settings)
	if err != nil {
		return entity.Match{}, fmt.Errorf("failed to enqueue player: %w", err)
	}

	if !result.Matched {
		return entity.Match{}, nil
	}

	return entity.Match{
		Matched:          true,
		RoomID:           result.RoomID,
		ConnectionPath:   entity.ConnectionPath(gameType, result.RoomID),
		OpponentNickname: result.OpponentNickname,
	}, nil
}

func (that *lobbyUseCase) CancelQueue(_ context.Context, playerID string) error {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return apperror.ErrMissingPlayerID
	}

	that.queue.Cancel(playerID)

	return nil
}
