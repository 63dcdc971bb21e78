package ws

import (
	"context"
	"io"
	"log/slog"
	"net"
	"pokedex-chat/domain/chat"
	"pokedex-chat/errors"
	"pokedex-chat/mocks"
	"pokedex-chat/observability"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeConn replays inbound frames and records outbound text frames.
type fakeConn struct {
	inbound   chan []byte
	written   chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		written: make(chan string, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-c.inbound:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, data, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	if messageType == websocket.TextMessage {
		c.written <- string(data)
	}
	return nil
}

func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) next(req *require.Assertions) string {
	select {
	case frame := <-c.written:
		return frame
	case <-time.After(time.Second):
		req.Fail("no frame written")
		return ""
	}
}

func testOptions() Options {
	return Options{OutboxSize: 4, WriteTimeout: time.Second, PongWait: time.Minute, MaxFrameSize: 1024}
}

func serve(session *Session) <-chan error {
	done := make(chan error, 1)
	go func() { done <- session.Serve(context.Background()) }()
	return done
}

func await(req *require.Assertions, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		req.Fail("session did not stop")
		return nil
	}
}

func TestSession_Welcome_Then_Messages(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := mocks.NewMockIChatService(ctrl)
	conn := newFakeConn()
	session := NewSession("ash", conn, service, observability.NewMetrics(), log, testOptions())

	posted := make(chan chat.Message, 1)
	service.EXPECT().Join(session).Return(nil).Times(1)
	service.EXPECT().PostMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, message chat.Message) error {
			posted <- message
			return nil
		}).Times(1)
	service.EXPECT().Leave(session).Times(1)

	// Given ash connects
	done := serve(session)

	// Then the first frame is the welcome
	req.JSONEq(`{"user":"system","text":"Welcome ash, you are now connected to the chat"}`, conn.next(req))
	req.Eventually(func() bool { return session.State() == chat.Active }, time.Second, 5*time.Millisecond)

	// When ash sends a padded message
	conn.inbound <- []byte(`{"text":"  hello  "}`)

	// Then it is posted trimmed with ash as sender
	message := <-posted
	req.Equal("ash", message.Sender)
	req.Equal("hello", message.Text)
	req.Equal(session.ID(), message.Origin)

	// When a broadcast is pushed, it reaches the socket
	req.NoError(session.Push(context.Background(), []byte(`{"usuario":"ash","texto":"hello"}`)))
	req.JSONEq(`{"usuario":"ash","texto":"hello"}`, conn.next(req))

	// When the peer goes away
	close(conn.inbound)

	// Then the session leaves once and ends Closed
	req.NoError(await(req, done))
	req.Equal(chat.Closed, session.State())
	req.ErrorIs(session.Push(context.Background(), []byte("late")), errors.ErrSessionClosed)
}

func TestSession_Malformed_Frames_Are_Ignored(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	metrics := observability.NewMetrics()
	conn := newFakeConn()
	session := NewSession("misty", conn, service, metrics, slog.Default(), testOptions())

	posted := make(chan chat.Message, 1)
	service.EXPECT().Join(session).Return(nil)
	service.EXPECT().Leave(session).Times(1)
	// Only the last frame is valid
	service.EXPECT().PostMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, message chat.Message) error {
			posted <- message
			return nil
		}).Times(1)

	done := serve(session)
	conn.next(req)

	// Given malformed or empty frames
	for _, frame := range []string{`not json`, `{}`, `{"text":5}`, `{"text":null}`, `{"text":"   "}`, `{"text":""}`} {
		conn.inbound <- []byte(frame)
	}
	conn.inbound <- []byte(`{"text":"still here"}`)

	// Then the session stays active and handles the next valid frame
	req.Equal("still here", (<-posted).Text)
	req.Equal(chat.Active, session.State())
	req.EqualValues(6, metrics.Snapshot(0).MessagesDiscarded)

	close(conn.inbound)
	req.NoError(await(req, done))
}

func TestSession_Shutdown_Leaves_Once(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	conn := newFakeConn()
	session := NewSession("brock", conn, service, observability.NewMetrics(), slog.Default(), testOptions())

	service.EXPECT().Join(session).Return(nil)
	service.EXPECT().Leave(session).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Serve(ctx) }()
	conn.next(req)
	req.Eventually(func() bool { return session.State() == chat.Active }, time.Second, 5*time.Millisecond)

	// When the server shuts down while an eviction races with it
	cancel()
	session.Close(errors.ErrDeliveryTimeout)

	// Then Serve returns and the connection is released
	req.NoError(await(req, done))
	req.Equal(chat.Closed, session.State())
	select {
	case <-conn.closed:
	default:
		req.Fail("connection not closed")
	}
}

func TestSession_Push_Times_Out_On_Full_Outbox(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	service.EXPECT().Join(gomock.Any()).Return(nil)
	service.EXPECT().Leave(gomock.Any()).Times(1)

	// Given a session whose writer is not draining
	options := testOptions()
	options.OutboxSize = 1
	session := NewSession("gary", newFakeConn(), service, observability.NewMetrics(), slog.Default(), options)
	req.NoError(session.activate())
	req.Equal(chat.Active, session.State())

	// When the outbox, already holding the welcome, gets one more payload
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := session.Push(ctx, []byte("one too many"))

	// Then the push gives up
	req.ErrorIs(err, errors.ErrDeliveryTimeout)

	session.Close(err)
	req.ErrorIs(session.Cause(), errors.ErrDeliveryTimeout)
	req.Equal(chat.Closing, session.State())
}

func TestSession_Join_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	service.EXPECT().Join(gomock.Any()).Return(errors.ErrSessionAlreadyJoined)
	service.EXPECT().Leave(gomock.Any()).Times(0)

	session := NewSession("ash", newFakeConn(), service, observability.NewMetrics(), slog.Default(), testOptions())

	err := session.Serve(context.Background())

	req.ErrorIs(err, errors.ErrSessionAlreadyJoined)
	req.Equal(chat.Closed, session.State())
}
