package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

var _ Conn = (*websocket.Conn)(nil)

// Conn is the part of *websocket.Conn a session relies on.
// Only the session's writer calls the write methods.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Options struct {
	OutboxSize   int
	WriteTimeout time.Duration
	PongWait     time.Duration
	MaxFrameSize int64
}

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultMaxFrameSize = 4096
)

func (o Options) withDefaults() Options {
	// The welcome must always fit
	o.OutboxSize = max(o.OutboxSize, 1)
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = defaultMaxFrameSize
	}
	return o
}

// pingPeriod keeps pings well inside the pong deadline.
func (o Options) pingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}
