package retrieval

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdapterCache_ReturnsSameInstance(t *testing.T) {
	t.Parallel()

	var constructed atomic.Int32
	cache := NewAdapterCache(map[BackendKind]Factory{
		KindMemory: func(ep Endpoint) (Backend, error) {
			constructed.Add(1)
			return &fakeBackend{}, nil
		},
	}, zap.NewNop())

	ep := Endpoint{Name: "m1", Kind: KindMemory}
	first, err := cache.Get(ep)
	require.NoError(t, err)
	second, err := cache.Get(ep)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, int32(1), constructed.Load())
}

func TestAdapterCache_DistinctEndpointsDistinctAdapters(t *testing.T) {
	t.Parallel()

	cache := NewAdapterCache(map[BackendKind]Factory{
		KindMemory: func(ep Endpoint) (Backend, error) { return &fakeBackend{}, nil },
	}, zap.NewNop())

	a, err := cache.Get(Endpoint{Name: "a", Kind: KindMemory})
	require.NoError(t, err)
	b, err := cache.Get(Endpoint{Name: "b", Kind: KindMemory})
	require.NoError(t, err)
	require.NotSame(t, a, b)
}

func TestAdapterCache_ConcurrentFirstAccessConstructsOnce(t *testing.T) {
	t.Parallel()

	var constructed atomic.Int32
	cache := NewAdapterCache(map[BackendKind]Factory{
		KindMemory: func(ep Endpoint) (Backend, error) {
			constructed.Add(1)
			return &fakeBackend{}, nil
		},
	}, zap.NewNop())

	ep := Endpoint{Name: "shared", Kind: KindMemory}
	const goroutines = 16
	adapters := make([]Backend, goroutines)
	errs := make([]error, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			adapters[i], errs[i] = cache.Get(ep)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), constructed.Load())
	for i := 1; i < goroutines; i++ {
		require.Same(t, adapters[0], adapters[i])
	}
}

func TestAdapterCache_ConstructionErrorNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	var attempts atomic.Int32
	cache := NewAdapterCache(map[BackendKind]Factory{
		KindMemory: func(ep Endpoint) (Backend, error) {
			if attempts.Add(1) == 1 {
				return nil, boom
			}
			return &fakeBackend{}, nil
		},
	}, zap.NewNop())

	ep := Endpoint{Name: "flaky", Kind: KindMemory}
	_, err := cache.Get(ep)
	require.ErrorIs(t, err, boom)

	adapter, err := cache.Get(ep)
	require.NoError(t, err)
	require.NotNil(t, adapter)
	require.Equal(t, int32(2), attempts.Load())
}

func TestAdapterCache_UnregisteredKind(t *testing.T) {
	t.Parallel()

	cache := NewAdapterCache(map[BackendKind]Factory{}, zap.NewNop())
	_, err := cache.Get(Endpoint{Name: "q", Kind: KindQdrant})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no adapter registered")
}
