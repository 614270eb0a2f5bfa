package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := NewConn(&fakeWire{})

	registry.Register(7, conn)
	registry.Register(7, conn)

	req.Equal(1, registry.ConnectionCount(7))
}

func TestRegistry_MultiDevice(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := NewConn(&fakeWire{})
	second := NewConn(&fakeWire{})

	registry.Register(7, first)
	registry.Register(7, second)

	req.Equal(2, registry.ConnectionCount(7))
	req.Len(registry.ConnectionsFor(7), 2)

	registry.Unregister(7, first)
	remaining := registry.ConnectionsFor(7)
	req.Len(remaining, 1)
	req.Same(second, remaining[0])
}

func TestRegistry_UnregisterDropsEmptySet(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := NewConn(&fakeWire{})

	registry.Register(7, conn)
	registry.Unregister(7, conn)

	req.Zero(registry.ConnectionCount(7))
	req.Nil(registry.ConnectionsFor(7))

	// Unregistering an unknown connection must not panic.
	registry.Unregister(7, conn)
	registry.Unregister(99, conn)
}

func TestRegistry_SnapshotIsDetached(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := NewConn(&fakeWire{})
	registry.Register(7, conn)

	snapshot := registry.ConnectionsFor(7)
	registry.Unregister(7, conn)

	// The snapshot taken before the unregister is unaffected.
	req.Len(snapshot, 1)
	req.Zero(registry.ConnectionCount(7))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			conn := NewConn(&fakeWire{})
			registry.Register(userID, conn)
			registry.ConnectionsFor(userID)
			registry.Unregister(userID, conn)
		}(uint(i % 4))
	}
	wg.Wait()

	for userID := uint(0); userID < 4; userID++ {
		require.Zero(t, registry.ConnectionCount(userID))
	}
}
