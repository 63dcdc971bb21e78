package ws

import (
	"context"
	"fmt"
	"log/slog"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
	"pokedex-chat/errors"
	"pokedex-chat/observability"
	"pokedex-chat/services"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var _ contract.Peer = (*Session)(nil)

// Session owns one WebSocket connection for its whole life:
// Connecting, Active once joined and welcomed, Closing from the first
// Close, Closed once the connection is released.
//
// Serve runs the receive loop on the caller's goroutine and a writer
// goroutine draining the outbox. Nothing else writes on the connection.
type Session struct {
	id      uuid.UUID
	label   string
	conn    Conn
	service services.IChatService
	metrics *observability.Metrics
	log     *slog.Logger
	options Options
	clock   *chat.Clock

	outbox     chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once

	mu     sync.RWMutex
	state  chat.SessionState
	joined bool
	cause  error
}

func NewSession(label string, conn Conn, service services.IChatService,
	metrics *observability.Metrics, log *slog.Logger, options Options) *Session {
	options = options.withDefaults()
	id := uuid.New()
	return &Session{
		id:         id,
		label:      label,
		conn:       conn,
		service:    service,
		metrics:    metrics,
		log:        log.With("session_id", id, "label", label),
		options:    options,
		clock:      chat.NewClock(time.Now),
		outbox:     make(chan []byte, options.OutboxSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		state:      chat.Connecting,
	}
}

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) Label() string { return s.label }

func (s *Session) State() chat.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Cause is the error that closed the session, nil for a clean close.
func (s *Session) Cause() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cause
}

// Push queues a payload for the writer.
// It fails once the session left the Active state, or when ctx expires
// before the outbox has room.
func (s *Session) Push(ctx context.Context, payload []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != chat.Active {
		return fmt.Errorf("%w: %s", errors.ErrSessionClosed, s.state)
	}
	select {
	case s.outbox <- payload:
		return nil
	case <-s.done:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errors.ErrDeliveryTimeout, ctx.Err())
	}
}

// Close moves the session to Closing and leaves the registry.
// Only the first call has an effect.
func (s *Session) Close(cause error) {
	s.closeOnce.Do(func() {
		close(s.done)

		// Waits for in-flight pushes, none can start after this
		s.mu.Lock()
		joined := s.joined
		s.state = chat.Closing
		s.cause = cause
		s.mu.Unlock()

		if joined {
			s.service.Leave(s)
		}
		if cause != nil {
			s.log.Info("Session closing", "error", cause)
			return
		}
		s.log.Debug("Session closing")
	})
}

// Serve blocks until the session is closed: by the peer, by a transport
// error, by an eviction, or by ctx being canceled.
// It only returns an error when the session could not join.
func (s *Session) Serve(ctx context.Context) error {
	defer s.release()

	s.conn.SetReadLimit(s.options.MaxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.options.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.options.PongWait))
	})

	go s.writer()

	if err := s.activate(); err != nil {
		s.Close(err)
		return err
	}

	stop := context.AfterFunc(ctx, func() { s.Close(nil) })
	defer stop()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.onReadError(err)
			return nil
		}
		s.handle(ctx, data)
	}
}

// activate queues the welcome before joining, so that it precedes
// any broadcast in the outbox.
func (s *Session) activate() error {
	welcome, err := chat.Encode(chat.Welcome(s.label))
	if err != nil {
		return err
	}
	s.outbox <- welcome

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != chat.Connecting {
		return fmt.Errorf("%w: %s", errors.ErrSessionClosed, s.state)
	}
	if err := s.service.Join(s); err != nil {
		return err
	}
	s.joined = true
	s.state = chat.Active
	return nil
}

func (s *Session) handle(ctx context.Context, data []byte) {
	text, err := chat.DecodeInbound(data)
	if err != nil {
		s.discard(err)
		return
	}
	message, err := chat.NewMessage(s.id, s.label, text, s.clock.Next())
	if err != nil {
		s.discard(err)
		return
	}
	if err := s.service.PostMessage(ctx, message); err != nil {
		s.log.Warn("Message not broadcast", "message_id", message.ID, "error", err)
	}
}

func (s *Session) discard(err error) {
	s.metrics.IncrDiscarded()
	s.log.Debug("Discarding inbound frame", "error", err)
}

func (s *Session) onReadError(err error) {
	select {
	case <-s.done:
		// Closed locally, the read error is only the consequence
		return
	default:
	}
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway,
		websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
		s.log.Warn("Connection lost", "error", err)
	}
	s.Close(fmt.Errorf("read: %w", err))
}

// writer is the only goroutine writing on the connection.
// Closing the connection on exit also unblocks the receive loop.
func (s *Session) writer() {
	defer close(s.writerDone)
	defer func() { _ = s.conn.Close() }()

	ticker := time.NewTicker(s.options.pingPeriod())
	defer ticker.Stop()

	for {
		// A closing session writes nothing more, even with a non-empty outbox
		select {
		case <-s.done:
			s.writeClose()
			return
		default:
		}

		select {
		case <-s.done:
			s.writeClose()
			return
		case payload := <-s.outbox:
			if err := s.write(websocket.TextMessage, payload); err != nil {
				s.Close(fmt.Errorf("write: %w", err))
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.Close(fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func (s *Session) write(messageType int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.options.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

func (s *Session) writeClose() {
	_ = s.write(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// release waits for the writer, which closes the connection.
func (s *Session) release() {
	s.Close(nil)
	<-s.writerDone

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = chat.Closed
}
