package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/versus-backend/internal/config"
	"github.com/rocketscienceinc/versus-backend/internal/directory"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/game/snake"
	"github.com/rocketscienceinc/versus-backend/internal/game/tetris"
	"github.com/rocketscienceinc/versus-backend/internal/game/tilemerge"
	"github.com/rocketscienceinc/versus-backend/internal/game/typing"
	"github.com/rocketscienceinc/versus-backend/internal/matchmaking"
	"github.com/rocketscienceinc/versus-backend/internal/repository"
	"github.com/rocketscienceinc/versus-backend/internal/repository/storage"
	"github.com/rocketscienceinc/versus-backend/internal/room"
	"github.com/rocketscienceinc/versus-backend/internal/usecase"
	"github.com/rocketscienceinc/versus-backend/transport/rest"
	"github.com/rocketscienceinc/versus-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until SIGINT/SIGTERM or a server failure.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	codes, closeCodes, err := newCodeStore(ctx, log, conf)
	if err != nil {
		return err
	}
	defer closeCodes()

	registry := game.NewRegistry(tetris.New, typing.New, tilemerge.New, snake.New)

	rooms := directory.New(logger, codes, registry, directory.Options{
		Room: room.Options{
			CountdownTicks:    conf.Room.CountdownTicks,
			CountdownInterval: conf.Room.CountdownInterval,
		},
		Defaults:        conf.Games.Defaults(),
		MaxCodeAttempts: conf.Room.MaxCodeAttempts,
		IdleTTL:         conf.Room.IdleTTL,
		SweepInterval:   conf.Room.SweepInterval,
	})

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		rooms.Run(ctx)
	}()

	queue := matchmaking.New(logger, rooms, matchmaking.Options{
		StaleAfter: conf.Matchmaking.StaleAfter,
		ResultTTL:  conf.Matchmaking.ResultTTL,
	})
	lobby := usecase.NewLobbyUseCase(logger, rooms, queue)

	httpServer := rest.NewServer(logger, lobby)
	wsServer := websocket.New(logger, rooms)

	errCh := make(chan error, 2)

	// run HTTP server
	go func() {
		if httpErr := httpServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", httpErr)
		}
	}()

	// run Websocket server
	go func() {
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			errCh <- fmt.Errorf("WebSocket server error: %w", wsErr)
		}
	}()

	select {
	case err = <-errCh:
		log.Error("server failed, shutting down", "error", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	cancel()
	<-sweeperDone

	return err
}

// newCodeStore - Redis when enabled, the in-process store otherwise.
func newCodeStore(ctx context.Context, log *slog.Logger, conf *config.Config) (directory.CodeStore, func(), error) {
	if !conf.Redis.Enabled {
		log.Info("redis disabled, room codes are kept in memory")
		return repository.NewMemoryRoomCodes(conf.Redis.CodeTTL), func() {}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == ":" || redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, storage.RedisOptions{
		Addr:     redisAddrString,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	closer := func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}

	return repository.NewRoomCodeRepository(redisStorage.Connection, conf.Redis.CodeTTL), closer, nil
}
