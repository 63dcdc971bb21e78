package runtime

import (
	"pokedex-chat/contract"
	"pokedex-chat/errors"
	"pokedex-chat/mocks"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newPeer(ctrl *gomock.Controller, label string) *mocks.MockPeer {
	peer := mocks.NewMockPeer(ctrl)
	id := uuid.New()
	peer.EXPECT().ID().Return(id).AnyTimes()
	peer.EXPECT().Label().Return(label).AnyTimes()
	return peer
}

func TestRegistry_Join_One_Session(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	ash := newPeer(ctrl, "ash")

	// Given no session is connected
	req.Zero(registry.Len())
	req.Empty(registry.Snapshot())

	// When a session joins
	req.NoError(registry.Join(ash))

	// Then it is part of the snapshot
	req.Equal(1, registry.Len())
	req.Equal([]contract.Peer{ash}, registry.Snapshot())
}

func TestRegistry_Join_Twice_Fails(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	ash := newPeer(ctrl, "ash")

	req.NoError(registry.Join(ash))

	err := registry.Join(ash)
	req.ErrorIs(err, errors.ErrSessionAlreadyJoined)
	req.Equal(1, registry.Len())
}

func TestRegistry_Sessions_Sharing_A_Label(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	first := newPeer(ctrl, "ash")
	second := newPeer(ctrl, "ash")

	// When two connections use the same label
	req.NoError(registry.Join(first))
	req.NoError(registry.Join(second))

	// Then both are tracked independently
	req.ElementsMatch([]contract.Peer{first, second}, registry.Snapshot())

	req.True(registry.Leave(first))
	req.Equal([]contract.Peer{second}, registry.Snapshot())
}

func TestRegistry_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	ash := newPeer(ctrl, "ash")
	misty := newPeer(ctrl, "misty")
	req.NoError(registry.Join(ash))
	req.NoError(registry.Join(misty))

	// When the same session leaves twice
	req.True(registry.Leave(ash))
	req.False(registry.Leave(ash))

	// And a session that never joined leaves
	req.False(registry.Leave(newPeer(ctrl, "brock")))

	// Then only the remaining session is left
	req.Equal([]contract.Peer{misty}, registry.Snapshot())
}

func TestRegistry_Snapshot_Is_A_Copy(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	ash := newPeer(ctrl, "ash")
	req.NoError(registry.Join(ash))

	snapshot := registry.Snapshot()
	registry.Leave(ash)
	req.NoError(registry.Join(newPeer(ctrl, "misty")))

	// Then a snapshot taken earlier is unaffected by later membership changes
	req.Equal([]contract.Peer{ash}, snapshot)
}

func TestRegistry_Concurrent_Join_Leave_Snapshot(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()
	const n = 100

	peers := make([]*mocks.MockPeer, n)
	for i := range peers {
		peers[i] = newPeer(ctrl, "trainer")
	}

	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(2)
		go func(p *mocks.MockPeer) {
			defer wg.Done()
			req.NoError(registry.Join(p))
			registry.Leave(p)
		}(peer)
		go func() {
			defer wg.Done()
			for _, p := range registry.Snapshot() {
				req.NotNil(p)
			}
		}()
	}
	wg.Wait()

	req.Zero(registry.Len())
}
