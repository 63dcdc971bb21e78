package workers

import (
	"context"
	"log/slog"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
)

// BroadcastWorker is the single consumer of accepted messages.
// Being alone on the channel keeps each sender's messages in order.
type BroadcastWorker struct {
	log        *slog.Logger
	registry   contract.IRegistry
	dispatcher contract.IDispatcher
	messages   chan chat.Message
}

func NewBroadcastWorker(log *slog.Logger, registry contract.IRegistry,
	dispatcher contract.IDispatcher, messages chan chat.Message) *BroadcastWorker {
	return &BroadcastWorker{
		log:        log,
		registry:   registry,
		dispatcher: dispatcher,
		messages:   messages,
	}
}

func (w *BroadcastWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping broadcast")
			return nil
		case msg, ok := <-w.messages:
			if !ok {
				return nil
			}
			// Membership is read now, not when the message was accepted
			w.dispatcher.Deliver(ctx, msg, w.registry.Snapshot())
		}
	}
}
