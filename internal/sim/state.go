// Package sim is the host stage simulation the scripting bridge drives.
// It owns the NPC and player slot tables; everything outside it holds only
// generational handles. Accessed only from the game loop goroutine, no locks.
package sim

import (
	"errors"
	"math"

	"github.com/l1jgo/stagescript/internal/core/ecs"
	"github.com/l1jgo/stagescript/internal/core/event"
)

var (
	// ErrInvalidHandle is returned when a handle no longer names a live entity.
	ErrInvalidHandle = errors.New("reference went out of scope")
	// ErrNoPlayers is returned by ClosestPlayer when no player is on the stage.
	ErrNoPlayers = errors.New("no players present on stage")
	// ErrStageFull is returned when no NPC or player slot is free.
	ErrStageFull = errors.New("no free entity slot")
)

// Unit is the number of fixed-point units per pixel.
const Unit = 0x200

// ToFixed converts pixels to the fixed-point representation.
func ToFixed(px float64) int32 { return int32(math.Round(px * Unit)) }

// ToPixels converts a fixed-point value to pixels.
func ToPixels(v int32) float64 { return float64(v) / Unit }

// Audio is the sound collaborator scripts trigger through the bridge.
type Audio interface {
	PlaySfx(id int)
	PlaySfxLoop(id int)
	PlayMusic(id int, fadeout bool)
}

// NopAudio discards every request.
type NopAudio struct{}

func (NopAudio) PlaySfx(int)         {}
func (NopAudio) PlaySfxLoop(int)     {}
func (NopAudio) PlayMusic(int, bool) {}

// Stage describes the playable area currently loaded.
type Stage struct {
	ID       int
	Name     string
	Width    int32 // fixed point, 0 = unbounded
	Height   int32 // fixed point, 0 = unbounded
	Seed     uint64
	Lighting string
}

// State is the authoritative simulation state.
type State struct {
	npcWorld    *ecs.World
	npcs        *ecs.SlotStore[NPC]
	playerWorld *ecs.World
	players     *ecs.SlotStore[Player]
	local       ecs.EntityID

	Stage Stage
	Audio Audio

	bus  *event.Bus
	tick uint64
}

// NewState creates an empty simulation. bus may be nil.
func NewState(npcSlots, playerSlots int, bus *event.Bus) *State {
	s := &State{
		npcWorld:    ecs.NewWorld(npcSlots),
		npcs:        ecs.NewSlotStore[NPC](npcSlots),
		playerWorld: ecs.NewWorld(playerSlots),
		players:     ecs.NewSlotStore[Player](playerSlots),
		Audio:       NopAudio{},
		Stage:       Stage{ID: -1},
		bus:         bus,
	}
	s.npcWorld.Registry().Register(s.npcs)
	s.playerWorld.Registry().Register(s.players)
	return s
}

// Tick returns the number of completed simulation ticks.
func (s *State) Tick() uint64 { return s.tick }

// AdvanceTick is called once per tick after every system has run.
func (s *State) AdvanceTick() { s.tick++ }

// NpcCapacity returns the number of NPC slots.
func (s *State) NpcCapacity() int { return s.npcWorld.Pool().Capacity() }

// FlushDestroyed destroys NPCs queued with KillNPC. Their slots become
// reusable and any outstanding handle to them turns invalid.
func (s *State) FlushDestroyed() []ecs.EntityID {
	return s.npcWorld.FlushDestroyQueue()
}
