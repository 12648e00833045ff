package retrieval

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Registry holds the configured endpoints and the subset active for this
// client. Iteration order over the active set is deterministic
// (sorted by endpoint name).
type Registry struct {
	configured map[string]Endpoint
	active     map[string]Endpoint
	names      []string
	writeName  string
	pinned     string
	logger     *zap.Logger
}

// NewRegistry builds a Registry over every enabled endpoint that passes
// credential classification. Endpoints that are enabled but missing required
// credentials are skipped with a warning. Fails if nothing usable remains.
func NewRegistry(endpoints map[string]Endpoint, writeEndpoint string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make(map[string]Endpoint, len(endpoints))
	for name, ep := range endpoints {
		if !ep.Enabled {
			continue
		}
		if !ep.Usable() {
			logger.Warn("endpoint enabled but missing required credentials, skipping",
				zap.String("endpoint", name),
				zap.String("kind", string(ep.Kind)),
			)
			continue
		}
		active[name] = ep
	}
	if len(active) == 0 {
		return nil, ErrNoUsableEndpoints
	}
	r := &Registry{
		configured: endpoints,
		active:     active,
		writeName:  writeEndpoint,
		logger:     logger,
	}
	if err := r.validateWriteEndpoint(); err != nil {
		return nil, err
	}
	r.buildNames()
	logger.Info("registry initialized",
		zap.Int("active_endpoints", len(active)),
		zap.Strings("endpoints", r.names),
	)
	return r, nil
}

// NewPinnedRegistry builds a Registry restricted to a single named endpoint,
// bypassing fan-out. The endpoint must be configured.
func NewPinnedRegistry(endpoints map[string]Endpoint, name string, writeEndpoint string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ep, ok := endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	r := &Registry{
		configured: endpoints,
		active:     map[string]Endpoint{name: ep},
		writeName:  writeEndpoint,
		pinned:     name,
		logger:     logger,
	}
	if err := r.validateWriteEndpoint(); err != nil {
		return nil, err
	}
	r.buildNames()
	logger.Info("registry pinned to endpoint", zap.String("endpoint", name))
	return r, nil
}

// A misconfigured write endpoint is fatal at construction; an absent one is
// not, it just makes every later mutating call fail.
func (r *Registry) validateWriteEndpoint() error {
	if r.writeName == "" {
		r.logger.Warn("no write endpoint configured, write operations will fail")
		return nil
	}
	ep, ok := r.configured[r.writeName]
	if !ok {
		return fmt.Errorf("write endpoint %q: %w", r.writeName, ErrUnknownEndpoint)
	}
	if !ep.Usable() {
		return fmt.Errorf("write endpoint %q is missing required credentials", r.writeName)
	}
	return nil
}

func (r *Registry) buildNames() {
	r.names = make([]string, 0, len(r.active))
	for name := range r.active {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
}

// Names returns the active endpoint names in iteration order.
func (r *Registry) Names() []string {
	return r.names
}

// Get returns an active endpoint by name.
func (r *Registry) Get(name string) (Endpoint, bool) {
	ep, ok := r.active[name]
	return ep, ok
}

// Pinned returns the pinned endpoint name, if this registry was built for a
// single endpoint.
func (r *Registry) Pinned() (string, bool) {
	return r.pinned, r.pinned != ""
}

// WriteEndpoint resolves the single endpoint designated for mutations.
func (r *Registry) WriteEndpoint() (Endpoint, error) {
	if r.writeName == "" {
		return Endpoint{}, ErrNoWriteEndpoint
	}
	return r.configured[r.writeName], nil
}
