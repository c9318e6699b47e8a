package schema

import (
	"fmt"
	"sync"
)

// Loader produces the fact record of one type. A loader may fail; the
// scanner treats a failing loader as a type that cannot be loaded.
type Loader func() (*Type, error)

// Entry is one registered type.
type Entry struct {
	Package string
	Name    string
	Load    Loader
}

// FullName returns the registry identity of the entry.
func (e Entry) FullName() string { return JoinName(e.Package, e.Name) }

// Registry holds declared types in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	byName  map[string]int
}

// Default is the process registry used by init-time registration.
var Default = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a lazily loaded type. Registering the same full name twice
// replaces the earlier loader in place.
func (r *Registry) Register(pkg, name string, load Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := Entry{Package: pkg, Name: name, Load: load}
	if i, ok := r.byName[e.FullName()]; ok {
		r.entries[i] = e
		return
	}
	r.byName[e.FullName()] = len(r.entries)
	r.entries = append(r.entries, e)
}

// Add registers already-built declarations.
func (r *Registry) Add(types ...*Type) {
	for _, t := range types {
		t := t
		r.Register(t.Package, t.Name, func() (*Type, error) { return t, nil })
	}
}

// Entries returns a snapshot of the registered types.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Lookup loads a registered type by full name. The boolean is false when
// nothing is registered under that name.
func (r *Registry) Lookup(fullName string) (*Type, bool, error) {
	r.mu.RLock()
	i, ok := r.byName[fullName]
	var e Entry
	if ok {
		e = r.entries[i]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	t, err := e.SafeLoad()
	return t, true, err
}

// SafeLoad runs the loader, converting a panic into an error.
func (e Entry) SafeLoad() (t *Type, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("loading %s: panic: %v", e.FullName(), r)
		}
	}()
	if e.Load == nil {
		return nil, fmt.Errorf("loading %s: no loader", e.FullName())
	}
	t, err = e.Load()
	if err == nil && t == nil {
		err = fmt.Errorf("loading %s: loader returned no type", e.FullName())
	}
	return t, err
}

// Register adds a lazily loaded type to the Default registry.
func Register(pkg, name string, load Loader) { Default.Register(pkg, name, load) }

// Add registers declarations in the Default registry.
func Add(types ...*Type) { Default.Add(types...) }
