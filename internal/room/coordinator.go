package room

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

// Reasons reported in countdown_cancelled.
const (
	CancelPlayerUnready = "player_unready"
	CancelPlayerLeft    = "player_left"
)

// coordinator - the room state. It implements game.Room for the extension.
type coordinator struct {
	handle *Room
	logger *slog.Logger
	ext    game.Extension
	opts   Options

	status   entity.Status
	hostID   string
	players  []*entity.Player
	sessions map[string]Session
	settings entity.Settings

	seed      int64
	rng       *rand.Rand
	createdAt time.Time
	startedAt time.Time

	countdown  int
	generation uint64
	timers     []*time.Timer

	closed bool
}

func newCoordinator(handle *Room, ext game.Extension, settings entity.Settings, opts Options) *coordinator {
	return &coordinator{
		handle:    handle,
		logger:    handle.logger,
		ext:       ext,
		opts:      opts,
		status:    entity.StatusWaiting,
		sessions:  make(map[string]Session),
		settings:  settings,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		createdAt: time.Now(),
	}
}

func (that *coordinator) attach(session Session) error {
	if _, ok := that.sessions[session.ID()]; ok {
		return fmt.Errorf("session %s: %w", session.ID(), apperror.ErrAlreadyJoined)
	}

	that.sessions[session.ID()] = session
	that.logger.Debug("session attached", "session", session.ID())

	return nil
}

func (that *coordinator) detach(sessionID string) {
	if _, ok := that.sessions[sessionID]; !ok {
		return
	}
	delete(that.sessions, sessionID)

	logger := that.logger.With("method", "detach", "session", sessionID)
	logger.Debug("session detached")

	if player := that.player(sessionID); player != nil {
		that.removePlayer(player)
	}

	if len(that.sessions) == 0 {
		that.close()
	}
}

func (that *coordinator) close() {
	that.cancelTimers()
	that.closed = true

	if that.opts.OnClose != nil {
		that.opts.OnClose(that.handle.id)
	}
}

func (that *coordinator) dispatch(sessionID string, env protocol.Envelope) {
	session, ok := that.sessions[sessionID]
	if !ok {
		return
	}

	if err := that.apply(session, env); err != nil {
		that.logger.Debug("message rejected", "session", sessionID, "type", env.Type, "error", err)
		that.send(session, protocol.NewError(err))
	}
}

func (that *coordinator) apply(session Session, env protocol.Envelope) error {
	switch env.Type {
	case protocol.TypePing:
		return that.ping(session, env)
	case protocol.TypeCreateRoom:
		return that.createRoom(session, env)
	case protocol.TypeJoin:
		return that.join(session, env)
	case protocol.TypeReady:
		return that.setReady(session, true)
	case protocol.TypeUnready:
		return that.setReady(session, false)
	case protocol.TypeLeave:
		return that.leave(session)
	}

	if !that.ext.Handles(env.Type) {
		return game.UnknownMessage(env.Type)
	}

	player := that.player(session.ID())
	if player == nil {
		return apperror.ErrNotInRoom
	}

	if that.status != entity.StatusPlaying {
		return fmt.Errorf("%w: %q", apperror.ErrGameNotStarted, env.Type)
	}

	return that.ext.Handle(that, player, env)
}

func (that *coordinator) ping(session Session, env protocol.Envelope) error {
	msg, err := protocol.DecodePayload[protocol.Ping](env.Raw)
	if err != nil {
		return err
	}

	that.send(session, protocol.Pong{
		Type:       protocol.TypePong,
		Timestamp:  msg.Timestamp,
		ServerTime: time.Now().UnixMilli(),
	})

	return nil
}

func (that *coordinator) createRoom(session Session, env protocol.Envelope) error {
	msg, err := protocol.DecodePayload[protocol.CreateRoom](env.Raw)
	if err != nil {
		return err
	}

	if err = that.canJoin(session); err != nil {
		return err
	}

	if that.hostID == "" && msg.Settings != nil {
		that.settings = msg.Settings.WithDefaults(that.opts.Defaults)
	}

	that.addPlayer(session, msg.Nickname)

	return nil
}

func (that *coordinator) join(session Session, env protocol.Envelope) error {
	msg, err := protocol.DecodePayload[protocol.Join](env.Raw)
	if err != nil {
		return err
	}

	if !strings.EqualFold(strings.TrimSpace(msg.RoomCode), that.handle.id) {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidRoomCode, msg.RoomCode)
	}

	if err = that.canJoin(session); err != nil {
		return err
	}

	that.addPlayer(session, msg.Nickname)

	return nil
}

func (that *coordinator) canJoin(session Session) error {
	if that.player(session.ID()) != nil {
		return apperror.ErrAlreadyJoined
	}

	if len(that.players) >= that.opts.Capacity {
		return apperror.ErrRoomFull
	}

	if that.status != entity.StatusWaiting {
		return apperror.ErrGameInProgress
	}

	return nil
}

func (that *coordinator) addPlayer(session Session, nickname string) {
	player := entity.NewPlayer(session.ID(), nickname)
	if that.hostID == "" {
		player.IsHost = true
		that.hostID = player.ID
	}

	that.players = append(that.players, player)
	that.logger.Info("player joined", "player", player.ID, "nickname", player.Nickname, "players", len(that.players))

	that.send(session, protocol.RoomJoined{
		Type:     protocol.TypeRoomJoined,
		RoomID:   that.handle.id,
		RoomCode: that.handle.id,
		PlayerID: player.ID,
		IsHost:   player.IsHost,
		GameType: that.handle.gameType,
		Status:   that.status,
		Settings: that.settings,
		Players:  that.snapshot(),
	})

	that.BroadcastExcept(player.ID, protocol.PlayerJoined{Type: protocol.TypePlayerJoined, Player: *player})
}

func (that *coordinator) setReady(session Session, ready bool) error {
	player := that.player(session.ID())
	if player == nil {
		return apperror.ErrNotInRoom
	}

	switch that.status {
	case entity.StatusWaiting:
	case entity.StatusCountdown:
		if ready {
			return nil
		}
	default:
		return apperror.ErrGameInProgress
	}

	player.Ready = ready
	that.Broadcast(protocol.PlayerReady{Type: protocol.TypePlayerReady, PlayerID: player.ID, Ready: ready})

	if that.status == entity.StatusCountdown {
		that.abortCountdown(CancelPlayerUnready)
		return nil
	}

	if that.allReady() {
		that.startCountdown()
	}

	return nil
}

func (that *coordinator) leave(session Session) error {
	that.send(session, protocol.RoomLeft{Type: protocol.TypeRoomLeft, RoomID: that.handle.id})

	if player := that.player(session.ID()); player != nil {
		that.removePlayer(player)
	}

	return nil
}

// removePlayer - shared by leave and disconnect.
func (that *coordinator) removePlayer(player *entity.Player) {
	that.players = slices.DeleteFunc(that.players, func(p *entity.Player) bool {
		return p.ID == player.ID
	})

	if that.hostID == player.ID {
		that.hostID = ""
		if len(that.players) > 0 {
			that.players[0].IsHost = true
			that.hostID = that.players[0].ID
		}
	}

	that.logger.Info("player left", "player", player.ID, "status", that.status, "players", len(that.players))
	that.Broadcast(protocol.PlayerLeft{Type: protocol.TypePlayerLeft, PlayerID: player.ID, Nickname: player.Nickname})

	switch that.status {
	case entity.StatusCountdown:
		that.abortCountdown(CancelPlayerLeft)
	case entity.StatusPlaying:
		that.ext.OnLeave(that, player)
		if that.status != entity.StatusPlaying {
			return
		}

		switch len(that.players) {
		case 0:
			that.End("", game.ReasonAbandoned)
		case 1:
			that.End(that.players[0].ID, game.ReasonOpponentQuit)
		default:
			if winnerID, ok := game.LastStanding(that.players); ok && winnerID != "" {
				that.End(winnerID, game.ReasonLastStanding)
			}
		}
	}
}

func (that *coordinator) allReady() bool {
	if len(that.players) < that.opts.Capacity {
		return false
	}

	for _, player := range that.players {
		if !player.Ready {
			return false
		}
	}

	return true
}

func (that *coordinator) player(id string) *entity.Player {
	for _, player := range that.players {
		if player.ID == id {
			return player
		}
	}

	return nil
}

func (that *coordinator) snapshot() []entity.Player {
	players := make([]entity.Player, 0, len(that.players))
	for _, player := range that.players {
		players = append(players, *player)
	}

	return players
}

func (that *coordinator) info() entity.RoomInfo {
	info := entity.RoomInfo{
		ID:        that.handle.id,
		GameType:  that.handle.gameType,
		HostID:    that.hostID,
		Status:    that.status,
		Players:   that.snapshot(),
		Sessions:  len(that.sessions),
		Capacity:  that.opts.Capacity,
		Settings:  that.settings,
		Seed:      that.seed,
		CreatedAt: that.createdAt,
	}

	if that.status == entity.StatusPlaying {
		startedAt := that.startedAt
		info.StartedAt = &startedAt
	}

	return info
}

func (that *coordinator) send(session Session, msg any) {
	if err := session.Send(msg); err != nil {
		that.logger.Warn("failed to send message", "session", session.ID(), "error", err)
	}
}

// errSessionGone - a player whose session already detached.
var errSessionGone = errors.New("session gone")

func (that *coordinator) sendTo(playerID string, msg any) error {
	session, ok := that.sessions[playerID]
	if !ok {
		return errSessionGone
	}

	that.send(session, msg)

	return nil
}
