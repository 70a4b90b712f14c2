package sim

import (
	"fmt"

	"github.com/l1jgo/stagescript/internal/core/ecs"
)

// invincibility ticks after taking damage
const damageShock = 128

// Player holds runtime data for one participant.
type Player struct {
	ID ecs.EntityID

	// fixed point, Unit per pixel
	X, Y       int32
	VelX, VelY int32

	Life       int16
	MaxLife    int16
	Shock      uint16 // >0 = invincible, counts down each tick
	Invincible bool   // debug / cutscene invincibility

	StageID int
	Online  bool
}

// Slot returns the script-visible id of the player.
func (p *Player) Slot() uint32 { return p.ID.Index() }

// Damage subtracts life. No-op while invincible. Returns true if applied.
func (p *Player) Damage(value int) bool {
	if value <= 0 || p.Shock > 0 || p.Invincible {
		return false
	}
	life := int(p.Life) - value
	if life < 0 {
		life = 0
	}
	p.Life = int16(life)
	p.Shock = damageShock
	return true
}

// PlayerSpawn describes a participant joining.
type PlayerSpawn struct {
	X, Y    int32 // fixed point
	Life    int16
	StageID int
	Local   bool
}

// AddPlayer registers a participant. Only one player may be local; a second
// local spawn takes over the local role.
func (s *State) AddPlayer(spec PlayerSpawn) (*Player, error) {
	id, ok := s.playerWorld.CreateEntity()
	if !ok {
		return nil, fmt.Errorf("add player: %w", ErrStageFull)
	}
	p := &Player{
		ID:      id,
		X:       spec.X,
		Y:       spec.Y,
		Life:    spec.Life,
		MaxLife: spec.Life,
		StageID: spec.StageID,
		Online:  true,
	}
	s.players.Set(id, p)
	if spec.Local || s.local.IsZero() {
		s.local = id
	}
	return p, nil
}

// RemovePlayer drops a participant. Removing the local player leaves the
// directory without one until another is added.
func (s *State) RemovePlayer(id ecs.EntityID) error {
	if _, err := s.Player(id); err != nil {
		return err
	}
	s.playerWorld.DestroyNow(id)
	if s.local == id {
		s.local = 0
	}
	return nil
}

// Travel moves a player to another stage.
func (s *State) Travel(id ecs.EntityID, stageID int) error {
	p, err := s.Player(id)
	if err != nil {
		return err
	}
	p.StageID = stageID
	return nil
}

// Player resolves a handle. Every call re-validates the slot generation.
func (s *State) Player(id ecs.EntityID) (*Player, error) {
	if !s.playerWorld.Alive(id) {
		return nil, ErrInvalidHandle
	}
	p, ok := s.players.Get(id)
	if !ok {
		return nil, ErrInvalidHandle
	}
	return p, nil
}

// PlayerBySlot returns the player currently occupying a slot.
func (s *State) PlayerBySlot(slot uint32) (*Player, bool) {
	id, ok := s.playerWorld.Pool().Current(slot)
	if !ok {
		return nil, false
	}
	p, err := s.Player(id)
	return p, err == nil
}

// EachPlayer visits players in slot order.
func (s *State) EachPlayer(fn func(*Player)) {
	s.players.Each(func(_ ecs.EntityID, p *Player) { fn(p) })
}
