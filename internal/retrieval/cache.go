package retrieval

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// AdapterCache memoizes one Backend per (kind, endpoint name) pair for the
// life of the process. Construction goes through the registered factory for
// the endpoint's kind; concurrent first access constructs exactly once.
// Construction failures are not cached, so a later call may retry.
type AdapterCache struct {
	mu        sync.Mutex
	factories map[BackendKind]Factory
	adapters  map[string]Backend
	logger    *zap.Logger
}

// NewAdapterCache builds a cache over the given factory table.
func NewAdapterCache(factories map[BackendKind]Factory, logger *zap.Logger) *AdapterCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdapterCache{
		factories: factories,
		adapters:  make(map[string]Backend),
		logger:    logger,
	}
}

// Get returns the adapter for the endpoint, constructing it on first use.
func (c *AdapterCache) Get(ep Endpoint) (Backend, error) {
	key := string(ep.Kind) + "/" + ep.Name

	c.mu.Lock()
	defer c.mu.Unlock()
	if adapter, ok := c.adapters[key]; ok {
		return adapter, nil
	}

	factory, ok := c.factories[ep.Kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for kind %q (endpoint %s)", ep.Kind, ep.Name)
	}
	c.logger.Debug("constructing backend adapter",
		zap.String("kind", string(ep.Kind)),
		zap.String("endpoint", ep.Name),
	)
	adapter, err := factory(ep)
	if err != nil {
		return nil, fmt.Errorf("construct %s adapter for endpoint %s: %w", ep.Kind, ep.Name, err)
	}
	c.adapters[key] = adapter
	return adapter, nil
}
