package sink

import (
	"context"
	"fmt"
	"log/slog"
	"pokedex-chat/domain/chat"
	"pokedex-chat/infrastructure/storage"
	"pokedex-chat/mocks"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDiskSink_Append(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	diskSink := NewDiskSink(repository, logs.GetLoggerFromLevel(slog.LevelDebug))
	message, err := chat.NewMessage(uuid.New(), "ash", "hello", time.Now().UTC())
	req.NoError(err)

	// Then the record carries the sender label and the trimmed text
	repository.EXPECT().StoreMessage(storage.DiskMessage{
		ID:      message.ID,
		Author:  "ash",
		Content: "hello",
		At:      message.ReceivedAt,
	}).Return(nil).Times(1)

	// When the message is appended
	req.NoError(diskSink.Append(context.Background(), message))
}

func TestDiskSink_Append_Propagates_Repository_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	diskSink := NewDiskSink(repository, slog.Default())
	boom := fmt.Errorf("disk full")

	repository.EXPECT().StoreMessage(gomock.Any()).Return(boom).Times(1)

	err := diskSink.Append(context.Background(), chat.Message{ID: uuid.New(), Sender: "ash", Text: "hello"})
	req.ErrorIs(err, boom)
}

func TestDiskSink_Append_Skips_When_Context_Done(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	diskSink := NewDiskSink(repository, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Given a canceled context, the repository is never reached
	repository.EXPECT().StoreMessage(gomock.Any()).Times(0)

	req.ErrorIs(diskSink.Append(ctx, chat.Message{}), context.Canceled)
}
