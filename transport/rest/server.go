package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger  *slog.Logger
	lobby   usecase.LobbyUseCase
	handler http.Handler
}

func NewServer(logger *slog.Logger, lobby usecase.LobbyUseCase) *Server {
	server := &Server{
		logger: logger.With("component", "rest"),
		lobby:  lobby,
	}
	server.handler = server.routes()

	return server
}

// Handler - the routed mux behind the middleware chain.
func (that *Server) Handler() http.Handler {
	return that.handler
}

func (that *Server) routes() http.Handler {
	mux := http.NewServeMux()

	wrap := func(h http.HandlerFunc) http.Handler {
		return recoverer(that.logger, loggerMiddleware(that.logger, h))
	}

	lobby := newLobbyHandler(that.logger, that.lobby)
	ping := NewPingHandler()

	mux.Handle("GET /ping", wrap(ping.PingHandler))
	mux.Handle("POST /api/{game}/create", wrap(lobby.createRoom))
	mux.Handle("POST /api/{game}/join", wrap(lobby.joinRoom))
	mux.Handle("POST /api/{game}/queue", wrap(lobby.queue))
	mux.Handle("POST /api/{game}/queue/cancel", wrap(lobby.cancelQueue))
	mux.Handle("GET /api/{game}/room-info", wrap(lobby.roomInfo))

	return mux
}

// Start - serves on port until ctx is cancelled, then shuts down gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		that.logger.Info("http server started", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	that.logger.Info("http server stopped")

	return nil
}
