//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"pokedex-chat/domain/chat"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Peer is the registry's non-owning view of a live session.
// Push never writes on the connection itself, it hands the payload over
// to the session's own writer and fails once the session is closing.
type Peer interface {
	ID() uuid.UUID
	Label() string
	Push(ctx context.Context, payload []byte) error
	Close(cause error)
}

type IRegistry interface {
	Join(peer Peer) error
	Leave(peer Peer) bool
	Snapshot() []Peer
	Len() int
}

type IDispatcher interface {
	Deliver(ctx context.Context, message chat.Message, snapshot []Peer) chat.DeliveryReport
}

// MessageSink is the append-only persistence of accepted messages.
type MessageSink interface {
	Append(ctx context.Context, message chat.Message) error
}

type IOrchestrator interface {
	Join(peer Peer) error
	Leave(peer Peer)
	PostMessage(ctx context.Context, message chat.Message) error
	GetMessages(cursor *string) ([]chat.Message, *string, error)
	ActiveSessions() int
	Start(ctx context.Context) error
	Stop()
}
