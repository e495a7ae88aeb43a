package session

import (
	"sync"

	logx "github.com/arckit11/v-novaa/pkg/logger"
)

type registryEntry struct {
	manager *Manager
	refs    int
}

// Registry keeps exactly one Manager per key alive while it has holders.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Acquire returns the Manager for key, creating it with factory on first use.
// The final release closes the Manager.
func (r *Registry) Acquire(key string, factory func() *Manager) (*Manager, func()) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &registryEntry{manager: factory()}
		r.entries[key] = e
		logx.Debug().Str("key", key).Msg("voice session registered")
	}
	e.refs++
	r.mu.Unlock()

	var once sync.Once
	return e.manager, func() {
		once.Do(func() { r.release(key, e) })
	}
}

func (r *Registry) release(key string, e *registryEntry) {
	r.mu.Lock()
	e.refs--
	last := e.refs == 0
	if last && r.entries[key] == e {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if last {
		logx.Debug().Str("key", key).Msg("voice session released")
		e.manager.Close()
	}
}

// Get returns the Manager registered for key without taking a reference.
func (r *Registry) Get(key string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.manager, true
}

// Len is the number of live managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
