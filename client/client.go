package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"pokedex-chat/domain/chat"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables, an optional
// .env file in the working directory is loaded first.
type Config struct {
	ServerAddress string        `envconfig:"CHAT_SERVER_ADDR" default:"localhost:8080"`
	Label         string        `envconfig:"CHAT_LABEL" required:"true"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"INFO"`
	WriteTimeout  time.Duration `envconfig:"CHAT_WRITE_TIMEOUT" default:"5s"`
	Colours       bool          `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects as CHAT_LABEL, sends every stdin line as a message and
// prints every frame received until Ctrl+C or the server hangs up.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	color.Enable = config.Colours

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoint := url.URL{Scheme: "ws", Host: config.ServerAddress, Path: "/ws/" + config.Label}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", endpoint.String(), err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	// Unblocks ReadMessage on Ctrl+C
	context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(config.WriteTimeout))
		_ = conn.Close()
	})

	go send(ctx, conn, config.WriteTimeout)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		}
		fmt.Println(render(data, time.Now()))
	}
}

// send is the only writer of conn besides the final close frame.
func send(ctx context.Context, conn *websocket.Conn, writeTimeout time.Duration) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := scanner.Text()
		payload, err := json.Marshal(chat.InboundFrame{Text: &text})
		if err != nil {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
