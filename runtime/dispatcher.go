package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
	"pokedex-chat/errors"
	"pokedex-chat/observability"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

var _ contract.IDispatcher = (*Dispatcher)(nil)

// Dispatcher fans one accepted message out to a registry snapshot.
//
// Every recipient gets exactly one push attempt in its own goroutine,
// bounded by sinkTimeout. A recipient whose push fails is considered
// dead: it leaves the registry and is asked to close, it is never retried.
// The sender is part of the fan-out unless echoToSender is false.
type Dispatcher struct {
	log          *slog.Logger
	registry     contract.IRegistry
	metrics      *observability.Metrics
	sinkTimeout  time.Duration
	echoToSender bool
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics,
	sinkTimeout time.Duration, echoToSender bool) *Dispatcher {
	return &Dispatcher{
		log:          log,
		registry:     registry,
		metrics:      metrics,
		sinkTimeout:  sinkTimeout,
		echoToSender: echoToSender,
	}
}

// Deliver blocks until every recipient was either served or evicted.
func (d *Dispatcher) Deliver(ctx context.Context, message chat.Message, snapshot []contract.Peer) chat.DeliveryReport {
	payload, err := chat.Encode(chat.NewBroadcastFrame(message))
	if err != nil {
		d.log.Error("Unable to encode broadcast frame", "message_id", message.ID, "error", err)
		return chat.DeliveryReport{}
	}

	recipients := lo.Filter(snapshot, func(peer contract.Peer, _ int) bool {
		return d.echoToSender || peer.ID() != message.Origin
	})

	var wg sync.WaitGroup
	var delivered, failed atomic.Int64
	for _, peer := range recipients {
		wg.Add(1)
		go func(peer contract.Peer) {
			defer wg.Done()
			if err := d.push(ctx, peer, payload); err != nil {
				failed.Add(1)
				d.evict(peer, err)
				return
			}
			delivered.Add(1)
		}(peer)
	}
	wg.Wait()

	report := chat.DeliveryReport{
		Attempted: len(recipients),
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
	}
	d.metrics.AddDeliveries(report.Delivered, report.Failed)
	d.log.Debug("Message delivered",
		"message_id", message.ID,
		"sender", message.Sender,
		"attempted", report.Attempted,
		"failed", report.Failed)
	return report
}

// push isolates one recipient: a timeout or even a panic stays local.
func (d *Dispatcher) push(ctx context.Context, peer contract.Peer, payload []byte) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.sinkTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrDeliveryPanic, r)
		}
	}()
	return peer.Push(ctx, payload)
}

func (d *Dispatcher) evict(peer contract.Peer, cause error) {
	d.log.Warn("Recipient unreachable, removing it",
		"session_id", peer.ID(),
		"label", peer.Label(),
		"error", cause)
	d.registry.Leave(peer)
	peer.Close(cause)
}
