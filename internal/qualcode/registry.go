package qualcode

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/weldvault/qualify-cli/internal/model"
)

// Registry maps code ids to their implementations. It is populated once
// at startup and read-only afterward, so concurrent reads need no
// locking. Registration order doubles as code priority: free-text
// governing conflicts resolve in favor of the earlier-registered code.
type Registry struct {
	codes map[string]Code
	order []string // insertion order for deterministic iteration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codes: make(map[string]Code)}
}

// Register adds a code keyed by its ID. Re-registering an id replaces
// the implementation in place, keeping its original priority slot, so
// tests can substitute a stub for a built-in code.
func (r *Registry) Register(c Code) {
	id := c.ID()
	if _, exists := r.codes[id]; !exists {
		r.order = append(r.order, id)
	}
	r.codes[id] = c
}

// Get returns the code registered under id. The error names every known
// id so a misconfigured filter is diagnosable from the message alone.
func (r *Registry) Get(id string) (Code, error) {
	c, ok := r.codes[id]
	if !ok {
		return nil, eris.Errorf("qualcode: unknown code %q (known: %s)", id, strings.Join(r.IDs(), ", "))
	}
	return c, nil
}

// IDs returns a sorted snapshot of all registered code ids.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	sort.Strings(ids)
	return ids
}

// All returns every registered code in registration order.
func (r *Registry) All() []Code {
	out := make([]Code, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.codes[id])
	}
	return out
}

// ForForm returns the codes applicable to the given form type, in
// registration order.
func (r *Registry) ForForm(ft model.FormType) []Code {
	var out []Code
	for _, id := range r.order {
		if r.codes[id].AppliesTo(ft) {
			out = append(out, r.codes[id])
		}
	}
	return out
}
