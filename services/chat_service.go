package services

import (
	"context"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
	"pokedex-chat/observability"
)

//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks

// IChatService is what the transport layer sees of the broadcast pipeline.
type IChatService interface {
	Join(peer contract.Peer) error
	Leave(peer contract.Peer)
	PostMessage(ctx context.Context, message chat.Message) error
	GetMessages(cursor *string) ([]chat.Message, *string, error)
	ActiveSessions() int
	Stats() observability.Stats
}

type ChatService struct {
	orchestrator contract.IOrchestrator
	metrics      *observability.Metrics
}

func NewChatService(o contract.IOrchestrator, metrics *observability.Metrics) *ChatService {
	return &ChatService{orchestrator: o, metrics: metrics}
}

func (s *ChatService) Join(peer contract.Peer) error {
	return s.orchestrator.Join(peer)
}

func (s *ChatService) Leave(peer contract.Peer) {
	s.orchestrator.Leave(peer)
}

func (s *ChatService) PostMessage(ctx context.Context, message chat.Message) error {
	return s.orchestrator.PostMessage(ctx, message)
}

func (s *ChatService) GetMessages(cursor *string) ([]chat.Message, *string, error) {
	return s.orchestrator.GetMessages(cursor)
}

func (s *ChatService) ActiveSessions() int {
	return s.orchestrator.ActiveSessions()
}

func (s *ChatService) Stats() observability.Stats {
	return s.metrics.Snapshot(s.orchestrator.ActiveSessions())
}
