package workers

import (
	"context"
	"log/slog"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
	"pokedex-chat/observability"
)

// PersistenceWorker drains the persistence queue into the sink.
// A failed append is logged and counted, the message is still broadcast.
type PersistenceWorker struct {
	log      *slog.Logger
	sink     contract.MessageSink
	messages chan chat.Message
	metrics  *observability.Metrics
}

func NewPersistenceWorker(log *slog.Logger, sink contract.MessageSink,
	messages chan chat.Message, metrics *observability.Metrics) *PersistenceWorker {
	return &PersistenceWorker{log: log, sink: sink, messages: messages, metrics: metrics}
}

func (w *PersistenceWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping persistence")
			return nil
		case msg, ok := <-w.messages:
			if !ok {
				return nil
			}
			if err := w.sink.Append(ctx, msg); err != nil {
				w.metrics.IncrPersistenceFailures()
				w.log.Error("Unable to persist message",
					"message_id", msg.ID,
					"sender", msg.Sender,
					"error", err)
				continue
			}
			w.metrics.IncrPersisted()
		}
	}
}
