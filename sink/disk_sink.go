package sink

import (
	"context"
	"log/slog"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
	"pokedex-chat/infrastructure/storage"
)

var _ contract.MessageSink = DiskSink{}

// DiskSink appends accepted messages to the message repository.
type DiskSink struct {
	repository storage.IMessageRepository
	log        *slog.Logger
}

func NewDiskSink(repository storage.IMessageRepository, log *slog.Logger) DiskSink {
	return DiskSink{repository: repository, log: log}
}

func (d DiskSink) Append(ctx context.Context, message chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.log.Debug("Appending message", "message_id", message.ID, "sender", message.Sender)
	return d.repository.StoreMessage(toDiskMessage(message))
}

func toDiskMessage(message chat.Message) storage.DiskMessage {
	return storage.DiskMessage{
		ID:      message.ID,
		Author:  message.Sender,
		Content: message.Text,
		At:      message.ReceivedAt,
	}
}
