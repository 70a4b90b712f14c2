package system

import (
	"time"

	coresys "github.com/l1jgo/stagescript/internal/core/system"
	"github.com/l1jgo/stagescript/internal/scripting"
	"github.com/l1jgo/stagescript/internal/sim"
)

// Overrider runs a script handler in place of an NPC's built-in behavior.
type Overrider interface {
	Override(n *sim.NPC) scripting.OverrideResult
}

// NpcSystem ticks every live NPC: the script override when its type has one,
// otherwise the built-in behavior, then integration. Players move afterwards.
// Phase 2 (Update).
type NpcSystem struct {
	state     *sim.State
	overrides Overrider
}

func NewNpcSystem(state *sim.State, overrides Overrider) *NpcSystem {
	return &NpcSystem{state: state, overrides: overrides}
}

func (s *NpcSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *NpcSystem) Update(_ time.Duration) {
	s.state.EachNPC(func(n *sim.NPC) {
		if s.state.Dying(n.ID) {
			return
		}
		switch s.overrides.Override(n) {
		case scripting.NotOverridden:
			s.state.RunBuiltin(n)
		case scripting.OverrideFailed:
			return // rolled back; the NPC sits this tick out
		}
		s.state.Integrate(n)
	})
	s.state.TickPlayers()
}
