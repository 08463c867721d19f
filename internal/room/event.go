package room

import (
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/protocol"
)

type event interface {
	apply(c *coordinator)
}

type attachEvent struct {
	session Session
	reply   chan error
}

func (that attachEvent) apply(c *coordinator) {
	that.reply <- c.attach(that.session)
}

type detachEvent struct {
	sessionID string
}

func (that detachEvent) apply(c *coordinator) {
	c.detach(that.sessionID)
}

type messageEvent struct {
	sessionID string
	env       protocol.Envelope
}

func (that messageEvent) apply(c *coordinator) {
	c.dispatch(that.sessionID, that.env)
}

type infoEvent struct {
	reply chan entity.RoomInfo
}

func (that infoEvent) apply(c *coordinator) {
	that.reply <- c.info()
}

type timerKind int

const (
	timerCountdown timerKind = iota
	timerTimeUp
)

type timerEvent struct {
	generation uint64
	kind       timerKind
}

func (that timerEvent) apply(c *coordinator) {
	c.fire(that)
}
