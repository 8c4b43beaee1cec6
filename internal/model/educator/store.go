package educator

import "github.com/deleyapp/lawcopilot/internal/model/module"

// Store exposes educator retrieval for HTTP handlers and the voice service.
type Store interface {
	List() []Educator
	ListByModule(kind module.Kind) []Educator
	FindByID(id string) (Educator, bool)
	// DefaultForModule returns the module's first seeded educator, used
	// when a client starts a session without naming one.
	DefaultForModule(kind module.Kind) (Educator, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Educator
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied educators.
func NewMemoryStore(items []Educator) *MemoryStore {
	return &MemoryStore{items: append([]Educator(nil), items...)}
}

// List returns every educator.
func (s *MemoryStore) List() []Educator {
	return append([]Educator(nil), s.items...)
}

// ListByModule returns the educators assigned to one module kind.
func (s *MemoryStore) ListByModule(kind module.Kind) []Educator {
	var out []Educator
	for _, item := range s.items {
		if item.Module == kind {
			out = append(out, item)
		}
	}
	return out
}

// FindByID looks up an educator by identifier.
func (s *MemoryStore) FindByID(id string) (Educator, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Educator{}, false
}

// DefaultForModule returns the first educator seeded for the module kind.
func (s *MemoryStore) DefaultForModule(kind module.Kind) (Educator, bool) {
	for _, item := range s.items {
		if item.Module == kind {
			return item, true
		}
	}
	return Educator{}, false
}
