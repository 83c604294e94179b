package pageagent

import (
	"sync"

	"github.com/nrednav/cuid2"
	"github.com/samber/lo"

	"github.com/soundshift/soundshift/lib/dom"
)

// Registered is one captured media element. El is the reference the host
// page holds (a guarded facade for hooked elements); native is the
// arbitration-free write target underneath it.
type Registered struct {
	ID     string
	El     dom.MediaElement
	native dom.MediaElement
}

// Registry is the ordered, append-only sequence of media elements captured
// since the agent loaded. Elements are never removed; the registry holds
// non-owning references.
type Registry struct {
	mu      sync.Mutex
	entries []*Registered
	seen    map[dom.MediaElement]bool
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[dom.MediaElement]bool)}
}

// Add appends el in creation order and returns its entry.
func (r *Registry) Add(el, native dom.MediaElement) *Registered {
	reg := &Registered{ID: cuid2.Generate(), El: el, native: native}
	r.mu.Lock()
	r.entries = append(r.entries, reg)
	r.seen[el] = true
	r.mu.Unlock()
	return reg
}

// Contains reports whether el was already captured.
func (r *Registry) Contains(el dom.MediaElement) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[el]
}

// Len returns the number of captured elements.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// All returns a snapshot of every entry in creation order.
func (r *Registry) All() []*Registered {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Registered, len(r.entries))
	copy(out, r.entries)
	return out
}

// byElement returns the entry holding el, or nil.
func (r *Registry) byElement(el dom.MediaElement) *Registered {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.El == el {
			return e
		}
	}
	return nil
}

// ByID returns the entry with the given id, or nil.
func (r *Registry) ByID(id string) *Registered {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Active derives the element settings enforcement targets: the most
// recently created element that is playing with buffered data; failing
// that, the most recently created element; nil when the registry is empty.
func (r *Registry) Active() *Registered {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	if reg, _, ok := lo.FindLastIndexOf(r.entries, func(e *Registered) bool {
		return e.El.Playing() && e.El.BufferedSeconds() > 0
	}); ok {
		return reg
	}
	return r.entries[len(r.entries)-1]
}
