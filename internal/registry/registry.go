// Package registry provides a named-factory registry used to select storage
// backends, embedding engines and language model providers from configuration.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknown is returned by Lookup when no factory is registered under a name.
var ErrUnknown = errors.New("unknown registry entry")

// Registry maps lower-cased names to factories of type F.
type Registry[F any] struct {
	mu   sync.RWMutex
	kind string // e.g. "storage driver", used in error messages.

	byName map[string]F
}

// New creates an empty Registry. kind describes the entries for error messages.
func New[F any](kind string) *Registry[F] {
	return &Registry[F]{
		kind:   kind,
		byName: make(map[string]F),
	}
}

// Register adds a factory under name. Registering the same name twice panics,
// as with database/sql drivers; registrations happen during init().
func (r *Registry[F]) Register(name string, f F) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		panic(fmt.Sprintf("registry: empty %s name", r.kind))
	}
	if _, dup := r.byName[key]; dup {
		panic(fmt.Sprintf("registry: %s %q registered twice", r.kind, key))
	}
	r.byName[key] = f
}

// Lookup returns the factory registered under name (case-insensitive).
func (r *Registry[F]) Lookup(name string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %s %q (available: %s)",
			ErrUnknown, r.kind, name, strings.Join(r.namesLocked(), ", "))
	}
	return f, nil
}

// Names returns all registered names in sorted order.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry[F]) namesLocked() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
