package storefront

import (
	"fmt"
	"strings"
)

// Component is a display region redrawn on every refresh. Render must not
// call back into the Orchestrator.
type Component interface {
	Render(snapshot Snapshot)
}

// ComponentFunc adapts a function to Component
type ComponentFunc func(snapshot Snapshot)

// Render calls f(snapshot)
func (f ComponentFunc) Render(snapshot Snapshot) { f(snapshot) }

// Entry is a named registry slot
type Entry struct {
	Name      string
	Component Component
}

// Registry is the fixed, ordered set of display components. It cannot be
// changed after construction.
type Registry struct {
	entries []Entry
}

// NewRegistry builds a registry rendering entries in the given order.
// Names must be non-empty and unique.
func NewRegistry(entries ...Entry) (*Registry, error) {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("registry entry %d: name is required", i)
		}
		if e.Component == nil {
			return nil, fmt.Errorf("registry entry %q: component is nil", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("registry entry %q: duplicate name", name)
		}
		seen[name] = struct{}{}
	}

	frozen := make([]Entry, len(entries))
	copy(frozen, entries)
	return &Registry{entries: frozen}, nil
}

// Names returns the component names in render order
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of components
func (r *Registry) Len() int {
	return len(r.entries)
}

// renderAll renders every component in order. A panicking component is
// reported through onPanic and the remaining components still render.
func (r *Registry) renderAll(snapshot Snapshot, onPanic func(name string, recovered any)) {
	for _, e := range r.entries {
		renderOne(e, snapshot, onPanic)
	}
}

func renderOne(e Entry, snapshot Snapshot, onPanic func(name string, recovered any)) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(e.Name, r)
		}
	}()
	e.Component.Render(snapshot)
}
