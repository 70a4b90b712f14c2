package sim

import (
	"fmt"

	"github.com/l1jgo/stagescript/internal/core/ecs"
	"github.com/l1jgo/stagescript/internal/core/event"
	"github.com/l1jgo/stagescript/internal/rng"
)

// Direction is the clamped facing of an NPC.
type Direction uint8

const (
	DirLeft Direction = iota
	DirUp
	DirRight
	DirBottom
	DirFacingPlayer
)

// ClampDirection maps any integer into 0-4.
func ClampDirection(v int) Direction {
	switch {
	case v < 0:
		return DirLeft
	case v > int(DirFacingPlayer):
		return DirFacingPlayer
	}
	return Direction(v)
}

// Rect is a sprite rectangle in texture pixels.
type Rect struct {
	Left, Top, Right, Bottom uint16
}

// HitFlags records which sides collided during the last integration step.
type HitFlags uint8

const (
	HitLeftWall HitFlags = 1 << iota
	HitCeiling
	HitRightWall
	HitFloor
)

// NPC holds runtime data for an NPC currently on the stage.
type NPC struct {
	ID   ecs.EntityID
	Type uint16

	// fixed point, Unit per pixel
	X, Y         int32
	VelX, VelY   int32
	VelX2, VelY2 int32

	ActionNum      uint16
	ActionCounter  uint16
	ActionCounter2 uint16
	ActionCounter3 uint16
	AnimNum        uint16
	AnimCounter    uint16
	AnimRect       Rect

	Life     uint16
	FlagNum  uint16
	EventNum uint16
	ParentID uint16 // slot index, 0 = none

	Direction    Direction
	RawDirection uint16 // unconstrained, used by types that abuse direction

	Hit       HitFlags
	SpawnTick uint64
	RNG       rng.Xoroshiro32
}

// Slot returns the script-visible id: the slot index in the NPC table.
func (n *NPC) Slot() uint32 { return n.ID.Index() }

// Random draws from the NPC's own generator, [min, max] inclusive.
func (n *NPC) Random(min, max int32) int32 { return n.RNG.Range(min, max) }

// NpcSpawn describes an NPC to place.
type NpcSpawn struct {
	Slot      uint32 // 0 = lowest free slot
	Type      uint16
	X, Y      int32 // fixed point
	Direction int
	FlagNum   uint16
	EventNum  uint16
	ParentID  uint16
	Life      uint16
}

// SpawnNPC places an NPC and seeds its RNG from the stage seed and identity.
func (s *State) SpawnNPC(spec NpcSpawn) (*NPC, error) {
	var (
		id ecs.EntityID
		ok bool
	)
	if spec.Slot != 0 {
		id, ok = s.npcWorld.Pool().CreateAt(spec.Slot)
		if !ok {
			return nil, fmt.Errorf("spawn npc type %d at slot %d: %w", spec.Type, spec.Slot, ErrStageFull)
		}
	} else {
		id, ok = s.npcWorld.CreateEntity()
		if !ok {
			return nil, fmt.Errorf("spawn npc type %d: %w", spec.Type, ErrStageFull)
		}
	}
	n := &NPC{
		ID:           id,
		Type:         spec.Type,
		X:            spec.X,
		Y:            spec.Y,
		Life:         spec.Life,
		FlagNum:      spec.FlagNum,
		EventNum:     spec.EventNum,
		ParentID:     spec.ParentID,
		Direction:    ClampDirection(spec.Direction),
		RawDirection: uint16(spec.Direction),
		SpawnTick:    s.tick,
		RNG:          rng.New(rng.SpawnSeed(s.Stage.Seed, id.Index(), id.Generation(), s.tick)),
	}
	s.npcs.Set(id, n)
	return n, nil
}

// KillNPC queues an NPC for destruction at the end of the tick and emits
// NpcDied. The handle stays valid until the cleanup phase.
func (s *State) KillNPC(id ecs.EntityID) error {
	n, err := s.NPC(id)
	if err != nil {
		return err
	}
	if s.npcWorld.Pending(id) {
		return nil
	}
	s.npcWorld.MarkForDestruction(id)
	if s.bus != nil {
		event.Emit(s.bus, event.NpcDied{ID: id, Type: n.Type})
	}
	return nil
}

// Dying reports whether an NPC is queued for destruction this tick.
func (s *State) Dying(id ecs.EntityID) bool { return s.npcWorld.Pending(id) }

// NPC resolves a handle. Every call re-validates the slot generation.
func (s *State) NPC(id ecs.EntityID) (*NPC, error) {
	if !s.npcWorld.Alive(id) {
		return nil, ErrInvalidHandle
	}
	n, ok := s.npcs.Get(id)
	if !ok {
		return nil, ErrInvalidHandle
	}
	return n, nil
}

// NPCBySlot returns the NPC currently occupying a slot.
func (s *State) NPCBySlot(slot uint32) (*NPC, bool) {
	id, ok := s.npcWorld.Pool().Current(slot)
	if !ok {
		return nil, false
	}
	n, err := s.NPC(id)
	return n, err == nil
}

// Parent returns the NPC's parent, or false when ParentID is 0 or names a
// slot that is not live.
func (s *State) Parent(n *NPC) (*NPC, bool) {
	if n.ParentID == 0 {
		return nil, false
	}
	return s.NPCBySlot(uint32(n.ParentID))
}

// EachNPC visits live NPCs in slot order.
func (s *State) EachNPC(fn func(*NPC)) {
	s.npcs.Each(func(_ ecs.EntityID, n *NPC) { fn(n) })
}

// NpcCount returns the number of live NPCs.
func (s *State) NpcCount() int { return s.npcWorld.Pool().Len() }

// ClearNPCs destroys every NPC immediately. Used on stage change.
func (s *State) ClearNPCs() {
	var ids []ecs.EntityID
	s.npcs.Each(func(id ecs.EntityID, _ *NPC) { ids = append(ids, id) })
	for _, id := range ids {
		s.npcWorld.DestroyNow(id)
	}
	s.npcWorld.FlushDestroyQueue()
}
