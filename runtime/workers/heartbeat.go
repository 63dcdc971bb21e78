package workers

import (
	"context"
	"log/slog"
	"os"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
	"pokedex-chat/observability"
	"time"

	"github.com/shirou/gopsutil/process"
)

// NamedQueue exposes a message channel to the heartbeat.
// Reading len and cap never blocks its producers or consumers.
type NamedQueue struct {
	Name  string
	Queue chan chat.Message
}

// HeartbeatWorker samples the process every metricInterval and logs
// the broadcast load: active sessions and queue backlog.
type HeartbeatWorker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	metrics        *observability.Metrics
	queues         []NamedQueue
	metricInterval time.Duration
	now            func() time.Time
}

func NewHeartbeatWorker(log *slog.Logger, registry contract.IRegistry,
	metrics *observability.Metrics, metricInterval time.Duration, queues ...NamedQueue) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:            log,
		registry:       registry,
		metrics:        metrics,
		queues:         queues,
		metricInterval: metricInterval,
		now:            time.Now,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping heartbeat")
			return nil
		case <-ticker.C:
			w.beat(p)
		}
	}
}

func (w *HeartbeatWorker) beat(p *process.Process) {
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "error", err)
		return
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "error", err)
		return
	}
	w.metrics.RecordProcess(cpu, ram, w.now().UTC())

	attrs := []any{"active_sessions", w.registry.Len(), "cpu", cpu, "ram", ram}
	for _, q := range w.queues {
		attrs = append(attrs, q.Name, len(q.Queue), q.Name+"_capacity", cap(q.Queue))
	}
	w.log.Debug("Heartbeat", attrs...)
}
