package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendQueueSize  = 64
)

var (
	errSessionClosed = errors.New("session closed")
	errSendQueueFull = errors.New("send queue full, message dropped")
)

// session - one client connection. Send is called from the room goroutine, the pumps
// own the connection.
type session struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	send     chan []byte
	done     chan struct{}
	roomDone <-chan struct{}
	once     sync.Once
}

func newSession(logger *slog.Logger, id string, conn *websocket.Conn, roomDone <-chan struct{}) *session {
	return &session{
		id:       id,
		conn:     conn,
		logger:   logger.With("session", id),
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		roomDone: roomDone,
	}
}

func (that *session) ID() string {
	return that.id
}

// Send - queues msg without blocking. A full queue drops it.
func (that *session) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	select {
	case <-that.done:
		return errSessionClosed
	default:
	}

	select {
	case that.send <- data:
		return nil
	default:
		return errSendQueueFull
	}
}

func (that *session) close() {
	that.once.Do(func() { close(that.done) })
}

// reject - answers a refused attach and hangs up.
func (that *session) reject(err error) {
	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = that.conn.WriteJSON(protocol.NewError(err))
	_ = that.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = that.conn.Close()
}

func (that *session) readPump(rm dispatcher) {
	log := that.logger.With("method", "readPump")

	defer func() {
		rm.Detach(that.id)
		that.close()
	}()

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}

			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			if err = that.Send(protocol.NewError(err)); err != nil {
				log.Warn("failed to send message", "error", err)
			}

			continue
		}

		if err = rm.Dispatch(that.id, env); err != nil {
			log.Debug("room gone", "error", err)
			return
		}
	}
}

func (that *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				that.close()
				return
			}
		case <-ticker.C:
			if err := that.write(websocket.PingMessage, nil); err != nil {
				that.close()
				return
			}
		case <-that.roomDone:
			that.flush()
			if data, err := json.Marshal(protocol.NewError(apperror.ErrRoomClosed)); err == nil {
				_ = that.write(websocket.TextMessage, data)
			}
			_ = that.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			that.close()
			return
		case <-that.done:
			that.flush()
			_ = that.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush - writes whatever is still queued.
func (that *session) flush() {
	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (that *session) write(messageType int, data []byte) error {
	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return that.conn.WriteMessage(messageType, data)
}
