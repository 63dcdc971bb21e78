package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is the JSON view served on /stats.
type Stats struct {
	ActiveSessions      int     `json:"active_sessions"`
	SessionsJoined      uint64  `json:"sessions_joined"`
	SessionsLeft        uint64  `json:"sessions_left"`
	MessagesAccepted    uint64  `json:"messages_accepted"`
	MessagesDiscarded   uint64  `json:"messages_discarded"`
	Deliveries          uint64  `json:"deliveries"`
	DeliveryFailures    uint64  `json:"delivery_failures"`
	Persisted           uint64  `json:"persisted"`
	PersistenceFailures uint64  `json:"persistence_failures"`
	PersistenceDropped  uint64  `json:"persistence_dropped"`
	CPUPercent          float64 `json:"cpu_percent"`
	RAMPercent          float32 `json:"ram_percent"`
	SampledAt           string  `json:"sampled_at,omitempty"`
}

// Metrics gathers the broadcast counters.
// Counters are atomic, the last process sample is guarded by mu.
type Metrics struct {
	joined              atomic.Uint64
	left                atomic.Uint64
	accepted            atomic.Uint64
	discarded           atomic.Uint64
	deliveries          atomic.Uint64
	deliveryFailures    atomic.Uint64
	persisted           atomic.Uint64
	persistenceFailures atomic.Uint64
	persistenceDropped  atomic.Uint64

	mu        sync.RWMutex
	cpu       float64
	ram       float32
	sampledAt time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncrJoined()              { m.joined.Add(1) }
func (m *Metrics) IncrLeft()                { m.left.Add(1) }
func (m *Metrics) IncrAccepted()            { m.accepted.Add(1) }
func (m *Metrics) IncrDiscarded()           { m.discarded.Add(1) }
func (m *Metrics) IncrPersisted()           { m.persisted.Add(1) }
func (m *Metrics) IncrPersistenceFailures() { m.persistenceFailures.Add(1) }
func (m *Metrics) IncrPersistenceDropped()  { m.persistenceDropped.Add(1) }

func (m *Metrics) AddDeliveries(delivered, failed int) {
	m.deliveries.Add(uint64(delivered))
	m.deliveryFailures.Add(uint64(failed))
}

// RecordProcess keeps the latest process sample taken by the heartbeat.
func (m *Metrics) RecordProcess(cpu float64, ram float32, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpu = cpu
	m.ram = ram
	m.sampledAt = at
}

func (m *Metrics) Snapshot(activeSessions int) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{
		ActiveSessions:      activeSessions,
		SessionsJoined:      m.joined.Load(),
		SessionsLeft:        m.left.Load(),
		MessagesAccepted:    m.accepted.Load(),
		MessagesDiscarded:   m.discarded.Load(),
		Deliveries:          m.deliveries.Load(),
		DeliveryFailures:    m.deliveryFailures.Load(),
		Persisted:           m.persisted.Load(),
		PersistenceFailures: m.persistenceFailures.Load(),
		PersistenceDropped:  m.persistenceDropped.Load(),
		CPUPercent:          m.cpu,
		RAMPercent:          m.ram,
	}
	if !m.sampledAt.IsZero() {
		stats.SampledAt = m.sampledAt.Format(time.RFC3339)
	}
	return stats
}
