package chat

import (
	"encoding/json"
	"fmt"
	"pokedex-chat/errors"
)

// SystemUser authors every frame the server sends on its own behalf.
const SystemUser = "system"

// InboundFrame is what a client sends. Unknown fields are ignored.
type InboundFrame struct {
	Text *string `json:"text"`
}

// WelcomeFrame is sent once, right after a session joins.
type WelcomeFrame struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// BroadcastFrame carries one accepted message to every recipient.
type BroadcastFrame struct {
	Usuario string `json:"usuario"`
	Texto   string `json:"texto"`
}

// DecodeInbound extracts the raw text of an inbound frame.
// Invalid JSON, a missing text or a non-string text all yield ErrMalformedFrame.
func DecodeInbound(data []byte) (string, error) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	if frame.Text == nil {
		return "", fmt.Errorf("%w: missing text", errors.ErrMalformedFrame)
	}
	return *frame.Text, nil
}

func NewBroadcastFrame(m Message) BroadcastFrame {
	return BroadcastFrame{Usuario: m.Sender, Texto: m.Text}
}

// Encode serializes an outbound frame.
func Encode(frame any) ([]byte, error) {
	return json.Marshal(frame)
}
