// Package chat contains core concepts of the broadcast channel.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
// No runtime, network, or storage logic should be added here.
package chat

import (
	"pokedex-chat/errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents an accepted chat message.
type Message struct {
	ID         uuid.UUID // unique identifier
	Origin     uuid.UUID // session which accepted the message
	Sender     string
	Text       string
	ReceivedAt time.Time
}

// NewMessage trims raw and builds an accepted message.
// Whitespace-only text is rejected with ErrEmptyText.
func NewMessage(origin uuid.UUID, sender, raw string, at time.Time) (Message, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Message{}, errors.ErrEmptyText
	}
	return Message{
		ID:         uuid.New(),
		Origin:     origin,
		Sender:     sender,
		Text:       text,
		ReceivedAt: at,
	}, nil
}

// DeliveryReport summarizes one fan-out.
type DeliveryReport struct {
	Attempted int
	Delivered int
	Failed    int
}

// Clock hands out non-decreasing timestamps for a single session.
// It is not safe for concurrent use, it belongs to one receive loop.
type Clock struct {
	now  func() time.Time
	last time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Next() time.Time {
	t := c.now().UTC()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
