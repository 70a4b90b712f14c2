package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// SlotStore is a generic typed store indexed by slot. A lookup only succeeds
// when the stored EntityID matches exactly, so a stale generation never
// resolves to the entity that reused the slot.
type SlotStore[T any] struct {
	ids  []EntityID
	data []*T
}

func NewSlotStore[T any](capacity int) *SlotStore[T] {
	return &SlotStore[T]{
		ids:  make([]EntityID, capacity+1),
		data: make([]*T, capacity+1),
	}
}

func (s *SlotStore[T]) Set(id EntityID, c *T) {
	idx := id.Index()
	if int(idx) >= len(s.data) {
		return
	}
	s.ids[idx] = id
	s.data[idx] = c
}

func (s *SlotStore[T]) Get(id EntityID) (*T, bool) {
	idx := id.Index()
	if id.IsZero() || int(idx) >= len(s.data) || s.ids[idx] != id || s.data[idx] == nil {
		return nil, false
	}
	return s.data[idx], true
}

func (s *SlotStore[T]) Remove(id EntityID) {
	idx := id.Index()
	if int(idx) >= len(s.data) || s.ids[idx] != id {
		return
	}
	s.ids[idx] = 0
	s.data[idx] = nil
}

func (s *SlotStore[T]) Len() int {
	n := 0
	for _, c := range s.data {
		if c != nil {
			n++
		}
	}
	return n
}

// Each visits entries in ascending slot order.
func (s *SlotStore[T]) Each(fn func(EntityID, *T)) {
	for idx, c := range s.data {
		if c != nil {
			fn(s.ids[idx], c)
		}
	}
}
