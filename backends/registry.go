package backends

import (
	"sort"
	"sync"
)

// Factory creates a backend adapter instance. Adapters are stateless beyond
// their configuration, so one instance serves all requests.
type Factory func() Backend

// registry holds registered backend factories.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
	instances  = make(map[string]Backend)
)

// Register adds a backend factory to the registry. It is typically called
// from an adapter package's init() function. Registering the same name twice
// overwrites the earlier entry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
	delete(instances, name)
}

// Get returns the shared adapter instance for name, or nil if the backend is
// not registered. Instances are created lazily and reused.
func Get(name string) Backend {
	registryMu.RLock()
	if b, ok := instances[name]; ok {
		registryMu.RUnlock()
		return b
	}
	factory := registry[name]
	registryMu.RUnlock()

	if factory == nil {
		return nil
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if b, ok := instances[name]; ok {
		return b
	}
	b := factory()
	instances[name] = b
	return b
}

// List returns the names of all registered backends in sorted order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
