package storage

import (
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Record_And_Get_Sorted_Messages(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		{uuid.New(), "ash", "hello", at},
		{uuid.New(), "misty", "hi ash", at.Add(1 * time.Minute)},
		{uuid.New(), "brock", "hey", at.Add(2 * time.Minute)},
	}

	sortedDiskMessages := make([]DiskMessage, len(diskMessages))
	copy(sortedDiskMessages, diskMessages)
	sort.Slice(sortedDiskMessages, func(i, j int) bool {
		return sortedDiskMessages[i].At.After(sortedDiskMessages[j].At)
	})
	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	// When fetching messages
	fetchedMessages, cursor, err := repository.GetMessages(nil)
	req.NoError(err)

	// Then the messages are sorted, newest first
	req.Equal(sortedDiskMessages, fetchedMessages)
	req.NotNil(cursor)
}

func Test_Record_Multiple_Message_And_Limit(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)
	at := time.Now().UTC()
	for i, author := range []string{"ash", "misty", "brock"} {
		req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), author, "hello", at.Add(time.Duration(i) * time.Second)}))
	}

	fetchedMessages, _, err := repository.GetMessages(nil)
	req.NoError(err)
	req.Len(fetchedMessages, limit)
}

func Test_MessageRepository_Pagination(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)
	at := time.Now().UTC()
	authors := []string{"ash", "misty", "brock", "gary", "oak"}
	for i, author := range authors {
		req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), author, "hello", at.Add(time.Duration(i) * time.Second)}))
	}

	// Given the first page
	page1, cursor, err := repository.GetMessages(nil)
	req.NoError(err)
	req.Equal([]string{"oak", "gary"}, authorsOf(page1))

	// When resuming from the cursor
	page2, cursor, err := repository.GetMessages(cursor)
	req.NoError(err)
	req.Equal([]string{"brock", "misty"}, authorsOf(page2))

	page3, cursor, err := repository.GetMessages(cursor)
	req.NoError(err)
	req.Equal([]string{"ash"}, authorsOf(page3))

	// Then the history is exhausted
	page4, cursor, err := repository.GetMessages(cursor)
	req.NoError(err)
	req.Empty(page4)
	req.Nil(cursor)
}

func Test_GetMessages_Empty_Store(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	messages, cursor, err := repository.GetMessages(nil)

	req.NoError(err)
	req.Empty(messages)
	req.Nil(cursor)
}

func Test_Record_Round_Trip_Through_Proto(t *testing.T) {
	req := require.New(t)
	message := DiskMessage{uuid.New(), "ash", "¡hola!", time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)}

	record, err := toRecord(message)
	req.NoError(err)
	bytes, err := proto.Marshal(record)
	req.NoError(err)
	req.NotEmpty(bytes)

	decoded, err := fromRecord(record)
	req.NoError(err)
	req.Equal(message, decoded)
}

func authorsOf(messages []DiskMessage) []string {
	var authors []string
	for _, m := range messages {
		authors = append(authors, m.Author)
	}
	return authors
}
