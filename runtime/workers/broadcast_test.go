package workers

import (
	"context"
	"log/slog"
	"pokedex-chat/contract"
	"pokedex-chat/domain/chat"
	"pokedex-chat/mocks"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestBroadcastWorker_Delivers_In_Order_To_Current_Snapshot(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := mocks.NewMockIRegistry(ctrl)
	dispatcher := mocks.NewMockIDispatcher(ctrl)
	messages := make(chan chat.Message, 2)

	origin := uuid.New()
	first, err := chat.NewMessage(origin, "ash", "first", time.Now())
	req.NoError(err)
	second, err := chat.NewMessage(origin, "ash", "second", time.Now())
	req.NoError(err)

	misty := mocks.NewMockPeer(ctrl)
	brock := mocks.NewMockPeer(ctrl)

	// Given membership changing between two messages
	gomock.InOrder(
		registry.EXPECT().Snapshot().Return([]contract.Peer{misty}),
		dispatcher.EXPECT().Deliver(gomock.Any(), first, []contract.Peer{misty}).
			Return(chat.DeliveryReport{Attempted: 1, Delivered: 1}),
		registry.EXPECT().Snapshot().Return([]contract.Peer{misty, brock}),
		dispatcher.EXPECT().Deliver(gomock.Any(), second, []contract.Peer{misty, brock}).
			Return(chat.DeliveryReport{Attempted: 2, Delivered: 2}),
	)

	messages <- first
	messages <- second
	close(messages)

	// When the worker drains the queue
	err = NewBroadcastWorker(log, registry, dispatcher, messages).Run(context.Background())

	// Then each message saw the membership of its own dispatch time
	req.NoError(err)
}

func TestBroadcastWorker_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	worker := NewBroadcastWorker(slog.Default(), mocks.NewMockIRegistry(ctrl),
		mocks.NewMockIDispatcher(ctrl), make(chan chat.Message))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.NoError(worker.Run(ctx))
}
