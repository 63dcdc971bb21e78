package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"pokedex-chat/domain/chat"
	"pokedex-chat/infrastructure/ws"
	"pokedex-chat/observability"
	"pokedex-chat/services"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const labelParam = "label"

type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxLabelLength  int
	Session         ws.Options
}

// ChatServer exposes the broadcast channel over HTTP.
// Sessions run on the request context: cancel the server's base context
// to close them all.
type ChatServer struct {
	log      *slog.Logger
	service  services.IChatService
	metrics  *observability.Metrics
	config   Config
	upgrader websocket.Upgrader
	sessions sync.WaitGroup
}

func NewChatServer(log *slog.Logger, service services.IChatService,
	metrics *observability.Metrics, config Config) *ChatServer {
	return &ChatServer{
		log:     log,
		service: service,
		metrics: metrics,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			// The channel is public, any origin may connect
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *ChatServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/up", s.HandleUp)
	r.Get("/stats", s.HandleStats)
	r.Get("/messages", s.HandleMessages)
	r.Get("/ws/{label}", s.HandleConnect)
	r.Get("/channel/{label}", s.HandleConnect)
	return r
}

// Wait blocks until every session served by this server is closed.
func (s *ChatServer) Wait() {
	s.sessions.Wait()
}

func (s *ChatServer) HandleUp(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (s *ChatServer) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Stats())
}

type messageResponse struct {
	ID      string    `json:"id"`
	Usuario string    `json:"usuario"`
	Texto   string    `json:"texto"`
	At      time.Time `json:"at"`
}

type historyResponse struct {
	Messages []messageResponse `json:"messages"`
	Cursor   *string           `json:"cursor"`
}

// HandleMessages pages through persisted history, newest first.
func (s *ChatServer) HandleMessages(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := s.service.GetMessages(cursor)
	if err != nil {
		s.log.Error("Unable to read history", "error", err)
		http.Error(w, "unable to read history", http.StatusInternalServerError)
		return
	}
	resp := historyResponse{Messages: make([]messageResponse, 0, len(messages)), Cursor: next}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, messageResponse{
			ID:      m.ID.String(),
			Usuario: m.Sender,
			Texto:   m.Text,
			At:      m.ReceivedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleConnect upgrades the request and serves the session until it closes.
func (s *ChatServer) HandleConnect(w http.ResponseWriter, r *http.Request) {
	label, err := s.label(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied to the client
		s.log.Warn("Upgrade failed", "label", label, "error", err)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	session := ws.NewSession(label, conn, s.service, s.metrics, s.log, s.config.Session)
	if err := session.Serve(r.Context()); err != nil {
		s.log.Error("Session ended abnormally", "session_id", session.ID(), "label", label, "error", err)
	}
}

func (s *ChatServer) label(r *http.Request) (string, error) {
	raw := chi.URLParam(r, labelParam)
	// chi matches on RawPath when it is set, the param is then still escaped
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			return "", err
		}
		raw = unescaped
	}
	label := strings.TrimSpace(raw)
	if err := chat.ValidateLabel(label, s.config.MaxLabelLength); err != nil {
		return "", err
	}
	return label, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
