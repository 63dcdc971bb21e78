// Package runtime wires the broadcast pipeline: registry, dispatcher,
// and the supervised workers feeding them.
// It owns no connection and contains no transport code.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
	"pokedex-chat/errors"
	"pokedex-chat/infrastructure/storage"
	"pokedex-chat/observability"
	"pokedex-chat/runtime/workers"
	"pokedex-chat/sink"
	"time"

	"github.com/samber/lo"
)

var _ contract.IOrchestrator = (*Orchestrator)(nil)

type Config struct {
	BufferSize       int
	SinkTimeout      time.Duration
	IngestionTimeout time.Duration
	MetricInterval   time.Duration
	EchoToSender     bool
}

type Orchestrator struct {
	log               *slog.Logger
	supervisor        contract.ISupervisor
	registry          contract.IRegistry
	dispatcher        contract.IDispatcher
	sink              contract.MessageSink
	messageRepository storage.IMessageRepository
	metrics           *observability.Metrics
	broadcast         chan chat.Message
	persistence       chan chat.Message
	ingestionTimeout  time.Duration
	metricInterval    time.Duration
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, messageRepository storage.IMessageRepository,
	metrics *observability.Metrics, config Config) *Orchestrator {
	return &Orchestrator{
		log:               log,
		supervisor:        supervisor,
		registry:          registry,
		dispatcher:        NewDispatcher(log, registry, metrics, config.SinkTimeout, config.EchoToSender),
		sink:              sink.NewDiskSink(messageRepository, log),
		messageRepository: messageRepository,
		metrics:           metrics,
		broadcast:         make(chan chat.Message, config.BufferSize),
		persistence:       make(chan chat.Message, config.BufferSize),
		ingestionTimeout:  config.IngestionTimeout,
		metricInterval:    config.MetricInterval,
	}
}

// Join makes the session eligible for every later broadcast.
func (o *Orchestrator) Join(peer contract.Peer) error {
	if err := o.registry.Join(peer); err != nil {
		return err
	}
	o.metrics.IncrJoined()
	o.log.Info("Session joined", "session_id", peer.ID(), "label", peer.Label())
	return nil
}

// Leave can race with an eviction from the dispatcher, only the
// effective removal is counted.
func (o *Orchestrator) Leave(peer contract.Peer) {
	if !o.registry.Leave(peer) {
		return
	}
	o.metrics.IncrLeft()
	o.log.Info("Session left", "session_id", peer.ID(), "label", peer.Label())
}

// PostMessage hands an accepted message to persistence and broadcast.
// Persistence never holds the sender back: a full queue drops the record.
// Broadcast waits for room in its queue at most ingestionTimeout.
func (o *Orchestrator) PostMessage(ctx context.Context, message chat.Message) error {
	o.metrics.IncrAccepted()

	select {
	case o.persistence <- message:
	default:
		o.metrics.IncrPersistenceDropped()
		o.log.Warn("Persistence queue full, dropping record", "message_id", message.ID)
	}

	timer := time.NewTimer(o.ingestionTimeout)
	defer timer.Stop()
	select {
	case o.broadcast <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: message %s", errors.ErrIngestionTimeout, message.ID)
	}
}

// GetMessages returns persisted history, newest first.
func (o *Orchestrator) GetMessages(cursor *string) ([]chat.Message, *string, error) {
	messages, next, err := o.messageRepository.GetMessages(cursor)
	if err != nil {
		return nil, nil, err
	}
	return fromDiskMessage(messages), next, nil
}

func fromDiskMessage(messages []storage.DiskMessage) []chat.Message {
	return lo.Map(messages, func(item storage.DiskMessage, _ int) chat.Message {
		return chat.Message{
			ID:         item.ID,
			Sender:     item.Author,
			Text:       item.Content,
			ReceivedAt: item.At,
		}
	})
}

func (o *Orchestrator) ActiveSessions() int {
	return o.registry.Len()
}

// Start registers the pipeline workers and blocks until the supervisor stops.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(
		workers.NewBroadcastWorker(o.log, o.registry, o.dispatcher, o.broadcast),
		workers.NewPersistenceWorker(o.log, o.sink, o.persistence, o.metrics),
		workers.NewHeartbeatWorker(o.log, o.registry, o.metrics, o.metricInterval,
			workers.NamedQueue{Name: "broadcast_queue", Queue: o.broadcast},
			workers.NamedQueue{Name: "persistence_queue", Queue: o.persistence}),
	)

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels the supervised workers, queued messages are abandoned.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
