//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"fmt"
	"log/slog"
	"pokedex-chat/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// MessagePrefix starts every message key.
const MessagePrefix = "msg:"

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(cursor *string) ([]DiskMessage, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is one appended record: who said what, and when.
type DiskMessage struct {
	ID      uuid.UUID
	Author  string
	Content string
	At      time.Time
}

// StoreMessage appends a message in BadgerDB.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := messageKey(message)
	record, err := toRecord(message)
	if err != nil {
		return err
	}
	bytes, err := proto.Marshal(record)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages retrieves messages newest first using a reverse prefix scan.
// Thanks to the padded timestamp in the key, messages are naturally sorted by time.
// It stops collecting messages once the configured limitMessages is reached and
// returns the cursor to resume from, nil when nothing was read.
func (m MessageRepository) GetMessages(cursor *string) ([]DiskMessage, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(MessagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Reverse iteration starts past the newest possible key
			seekKey = append([]byte(MessagePrefix), []byte("9999999999999999999;")...)
		default:
			seekKey = append([]byte(MessagePrefix), []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	diskMessages := make([]DiskMessage, 0, len(byteMessages))
	for _, b := range byteMessages {
		message, err := DecodeRecord(b)
		if err != nil {
			return nil, nil, err
		}
		diskMessages = append(diskMessages, message)
	}
	if len(diskMessages) == 0 {
		return diskMessages, nil, nil
	}
	return diskMessages, &lastKey, nil
}

// DecodeRecord reads one stored value back into a DiskMessage.
func DecodeRecord(value []byte) (DiskMessage, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(value, &record); err != nil {
		return DiskMessage{}, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, err)
	}
	return fromRecord(&record)
}

func messageKey(message DiskMessage) string {
	return fmt.Sprintf("%s%019d:%s", MessagePrefix, message.At.UnixNano(), message.ID)
}

func toRecord(message DiskMessage) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":      message.ID.String(),
		"author":  message.Author,
		"content": message.Content,
		"at":      message.At.UTC().Format(time.RFC3339Nano),
	})
}

func fromRecord(record *structpb.Struct) (DiskMessage, error) {
	fields := record.GetFields()
	parsedID, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return DiskMessage{}, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, err)
	}
	at, err := time.Parse(time.RFC3339Nano, fields["at"].GetStringValue())
	if err != nil {
		return DiskMessage{}, fmt.Errorf("%w: %v", errors.ErrInvalidRecord, err)
	}
	return DiskMessage{
		ID:      parsedID,
		Author:  fields["author"].GetStringValue(),
		Content: fields["content"].GetStringValue(),
		At:      at.UTC(),
	}, nil
}
