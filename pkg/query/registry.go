package query

import (
	"fmt"
	"sort"
)

// Registry maps engine names to engines. It is built once and read-only
// afterwards.
type Registry struct {
	engines map[string]Engine
	def     string
}

// NewRegistry creates a registry whose default engine is the first one
// given.
func NewRegistry(engines ...Engine) (*Registry, error) {
	if len(engines) == 0 {
		return nil, fmt.Errorf("query: registry needs at least one engine")
	}
	r := &Registry{engines: make(map[string]Engine, len(engines)), def: engines[0].Name()}
	for _, e := range engines {
		if _, dup := r.engines[e.Name()]; dup {
			return nil, fmt.Errorf("query: engine %q registered twice", e.Name())
		}
		r.engines[e.Name()] = e
	}
	return r, nil
}

// Lookup returns the named engine. The empty name selects the default.
func (r *Registry) Lookup(name string) (Engine, bool) {
	if name == "" {
		name = r.def
	}
	e, ok := r.engines[name]
	return e, ok
}

// Default returns the name of the default engine.
func (r *Registry) Default() string { return r.def }

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
