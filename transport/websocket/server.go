package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
	"github.com/rocketscienceinc/versus-backend/internal/room"
	"github.com/rocketscienceinc/versus-backend/transport/rest"
)

const shutdownTimeout = 5 * time.Second

type roomLookup interface {
	Lookup(ctx context.Context, code string) (*room.Room, error)
}

type Server struct {
	logger   *slog.Logger
	rooms    roomLookup
	upgrader websocket.Upgrader
	handler  http.Handler
}

func New(logger *slog.Logger, rooms roomLookup) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		rooms:  rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{game}/{code}", server.serveRoom)
	server.handler = rest.Middleware(server.logger, mux)

	return server
}

func (that *Server) Handler() http.Handler {
	return that.handler
}

// Start - starts WebSocket server and stops it once ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		that.logger.Info("websocket server started", "port", port)
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

	// Hijacked connections are not tracked by Shutdown; their rooms are stopped by the directory.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	that.logger.Info("websocket server stopped")

	return nil
}

// serveRoom - resolves the room before upgrading, so unknown codes never get a socket.
func (that *Server) serveRoom(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveRoom")

	gameType, err := entity.ParseGameType(r.PathValue("game"))
	if err != nil {
		rest.WriteError(log, w, err)
		return
	}

	rm, err := that.rooms.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		rest.WriteError(log, w, err)
		return
	}

	if rm.GameType() != gameType {
		rest.WriteError(log, w, fmt.Errorf("%w: %s is a %s room", apperror.ErrGameTypeMismatch, rm.ID(), rm.GameType()))
		return
	}

	playerID := strings.TrimSpace(r.URL.Query().Get("playerId"))
	if playerID == "" {
		playerID = uuid.NewString()
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	sess := newSession(that.logger, playerID, conn, rm.Done())

	if err = rm.Attach(r.Context(), sess); err != nil {
		log.Info("session refused", "room", rm.ID(), "session", playerID, "error", err)
		sess.reject(err)
		return
	}

	log.Info("session connected", "room", rm.ID(), "session", playerID)

	go sess.writePump()
	go sess.readPump(rm)
}

// dispatcher - the part of a room a session feeds.
type dispatcher interface {
	Dispatch(sessionID string, env protocol.Envelope) error
	Detach(sessionID string)
}
