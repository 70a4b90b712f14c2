package ecs

// EntityID encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Slot 0 is never allocated, so a zero EntityID always means "none".
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// EntityPool manages a bounded set of slots with generational indices.
// Free slots are reused lowest-index first so spawn order is reproducible.
type EntityPool struct {
	generations []uint32
	alive       []bool
	capacity    uint32
	live        int
}

// NewEntityPool creates a pool with slots 1..capacity.
func NewEntityPool(capacity int) *EntityPool {
	return &EntityPool{
		generations: make([]uint32, capacity+1),
		alive:       make([]bool, capacity+1),
		capacity:    uint32(capacity),
	}
}

// Create allocates the lowest free slot. Returns false when the pool is full.
func (p *EntityPool) Create() (EntityID, bool) {
	for idx := uint32(1); idx <= p.capacity; idx++ {
		if !p.alive[idx] {
			return p.occupy(idx), true
		}
	}
	return 0, false
}

// CreateAt allocates a specific slot. Returns false if the slot is out of range
// or already occupied.
func (p *EntityPool) CreateAt(index uint32) (EntityID, bool) {
	if index == 0 || index > p.capacity || p.alive[index] {
		return 0, false
	}
	return p.occupy(index), true
}

func (p *EntityPool) occupy(idx uint32) EntityID {
	p.alive[idx] = true
	p.live++
	return NewEntityID(idx, p.generations[idx])
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || idx > p.capacity {
		return false
	}
	return p.alive[idx] && p.generations[idx] == id.Generation()
}

// Current returns the live EntityID occupying a slot, if any.
func (p *EntityPool) Current(index uint32) (EntityID, bool) {
	if index == 0 || index > p.capacity || !p.alive[index] {
		return 0, false
	}
	return NewEntityID(index, p.generations[index]), true
}

func (p *EntityPool) Destroy(id EntityID) {
	if !p.Alive(id) {
		return // already destroyed (stale reference)
	}
	idx := id.Index()
	p.generations[idx]++
	p.alive[idx] = false
	p.live--
}

func (p *EntityPool) Capacity() int { return int(p.capacity) }
func (p *EntityPool) Len() int      { return p.live }
